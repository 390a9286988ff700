package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// CreateTestImage creates a solid image of the given size.
func CreateTestImage(width, height int, background color.Color) image.Image {
	return imaging.New(width, height, background)
}

// WriteImage writes a solid gray image of the given size to path. The format
// follows the file extension.
func WriteImage(t *testing.T, path string, width, height int) string {
	t.Helper()
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	img := CreateTestImage(width, height, color.Gray{Y: 128})
	require.NoError(t, imaging.Save(img, path), "failed to save test image %s", path)
	return path
}

// WritePlaceholder writes a file that is not a decodable image.
func WritePlaceholder(t *testing.T, path string) string {
	t.Helper()
	return WriteFile(t, path, "not an image")
}
