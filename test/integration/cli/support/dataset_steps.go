package support

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/boxseed/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// theFileContains writes a scenario file; {dir} expands to the scenario directory.
func (testCtx *TestContext) theFileContains(rel string, doc *godog.DocString) error {
	_, err := testCtx.writeFile(rel, testCtx.substituteVariables(doc.Content)+"\n")
	return err
}

// theImagesExist writes undecodable placeholder images.
func (testCtx *TestContext) theImagesExist(table *godog.Table) error {
	for _, row := range table.Rows {
		for _, cell := range row.Cells {
			if _, err := testCtx.writeFile(cell.Value, "not an image"); err != nil {
				return err
			}
		}
	}
	return nil
}

// theImageOfSizeExists writes a decodable image with the given pixel size.
func (testCtx *TestContext) theImageOfSizeExists(rel string, width, height int) error {
	path := testCtx.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	img := testutil.CreateTestImage(width, height, color.Gray{Y: 128})
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", rel, err)
	}
	testCtx.TrackFile(path)
	return nil
}

// aDatasetDefinition writes a definition whose data folder is "images" and
// whose annotation source has the given format and path.
func (testCtx *TestContext) aDatasetDefinition(rel, format, annotationPath string) error {
	content := fmt.Sprintf(`name: scenario
class_names: [cat, dog]
data_source:
  type: local_folder
  config:
    path: images
    recursive: true
annotation_source:
  format: %s
  config:
    path: %q
`, format, testCtx.Path(annotationPath))
	_, err := testCtx.writeFile(rel, content)
	return err
}

// registerDatasetSteps registers fixture construction steps.
func (testCtx *TestContext) registerDatasetSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the file "([^"]*)" contains:$`, testCtx.theFileContains)
	sc.Step(`^the images exist:$`, testCtx.theImagesExist)
	sc.Step(`^the image "([^"]*)" of size (\d+)x(\d+) exists$`, testCtx.theImageOfSizeExists)
	sc.Step(`^a dataset definition "([^"]*)" with (\w+) annotations at "([^"]*)"$`, testCtx.aDatasetDefinition)
}

// RegisterDatasetSteps registers all dataset fixture step definitions.
func (testCtx *TestContext) RegisterDatasetSteps(sc *godog.ScenarioContext) {
	testCtx.registerDatasetSteps(sc)
}
