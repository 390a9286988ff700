// Package imagedims supplies pixel dimensions for images referenced by
// pixel-absolute annotation formats.
package imagedims

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF header decoding
	_ "image/jpeg" // register JPEG header decoding
	_ "image/png"  // register PNG header decoding
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP header decoding
	_ "golang.org/x/image/tiff" // register TIFF header decoding
	_ "golang.org/x/image/webp" // register WebP header decoding
)

// Func returns the pixel dimensions of the image at path.
type Func func(path string) (geometry.Dims, error)

// SupportedImageExtensions lists extensions with a registered decoder.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// DecodeError describes a failed dimension lookup.
type DecodeError struct {
	Path      string
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image dimensions %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	// ErrNonPositive is returned when a decoder reports an empty image.
	ErrNonPositive = errors.New("non-positive dimensions")
	// ErrNoLookup is returned by a Memo without a lookup function.
	ErrNoLookup = errors.New("no dimension lookup configured")
)

// Decode reads only the image header to obtain its stored dimensions.
func Decode(path string) (geometry.Dims, error) {
	if path == "" {
		return geometry.Dims{}, &DecodeError{Path: path, Operation: "open", Err: errors.New("empty path")}
	}
	f, err := os.Open(path) //nolint:gosec // G304: image paths come from the dataset file scan
	if err != nil {
		return geometry.Dims{}, &DecodeError{Path: path, Operation: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return geometry.Dims{}, &DecodeError{Path: path, Operation: "decode", Err: err}
	}
	dims := geometry.Dims{Width: cfg.Width, Height: cfg.Height}
	if !dims.Valid() {
		return geometry.Dims{}, &DecodeError{Path: path, Operation: "decode", Err: ErrNonPositive}
	}
	return dims, nil
}

// DecodeOriented decodes the full image honoring its EXIF orientation, so
// rotated camera images report their displayed width and height.
func DecodeOriented(path string) (geometry.Dims, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return geometry.Dims{}, &DecodeError{Path: path, Operation: "decode", Err: err}
	}
	b := img.Bounds()
	dims := geometry.Dims{Width: b.Dx(), Height: b.Dy()}
	if !dims.Valid() {
		return geometry.Dims{}, &DecodeError{Path: path, Operation: "decode", Err: ErrNonPositive}
	}
	return dims, nil
}

// ForOrientation picks Decode or DecodeOriented.
func ForOrientation(autoOrient bool) Func {
	if autoOrient {
		return DecodeOriented
	}
	return Decode
}
