package defaults

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"golang.org/x/sync/errgroup"
)

// sidecarParser turns one sidecar file into boxes for the image at file.
type sidecarParser func(file, sidecar string) []Box

// sidecarPath maps an image to its sidecar: the image path relative to the
// data root, extension replaced, joined with the annotation root. Images
// outside the data root fall back to their basename.
func sidecarPath(file, dataRoot, annRoot, ext string) string {
	rel := filepath.Base(file)
	if dataRoot != "" {
		absRoot, errRoot := filepath.Abs(dataRoot)
		absFile, errFile := filepath.Abs(file)
		if errRoot == nil && errFile == nil {
			r, err := filepath.Rel(absRoot, absFile)
			if err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
				rel = r
			}
		}
	}
	return filepath.Join(annRoot, strings.TrimSuffix(rel, filepath.Ext(rel))+ext)
}

func (r *run) folderDefaults(src FolderSource, files []string, parse sidecarParser) Result {
	out := Result{}
	if src.Root == "" || !isDir(src.Root) {
		r.logger.Warn("annotation folder unavailable", "path", src.Root)
		return out
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(r.workers)
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sidecar := sidecarPath(file, r.dataRoot, src.Root, src.Extension)
			if !isFile(sidecar) {
				return nil
			}
			boxes := parse(file, sidecar)
			if len(boxes) == 0 {
				return nil
			}
			mu.Lock()
			out[filekey.Normalize(file)] = boxes
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// folderLabels lists labels for a folder source: the effective label map when
// one is configured, otherwise every label found in sidecars under the root.
func (r *run) folderLabels(src FolderSource, add func(string)) {
	if values := r.resolver.Effective().Values(); len(values) > 0 {
		for _, v := range values {
			add(v)
		}
		return
	}
	if src.Root == "" || !isDir(src.Root) {
		return
	}
	_ = filepath.WalkDir(src.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if r.ctx.Err() != nil {
			return r.ctx.Err()
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), src.Extension) {
			return nil
		}
		if src.IsVOC() {
			r.vocLabels(p, add)
		} else {
			r.yoloLabels(p, add)
		}
		return nil
	})
}
