// Package scan lists the candidate files of a dataset.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/imagedims"
)

// Options controls which files a scan returns.
type Options struct {
	Recursive bool
	// Include patterns match base names (filepath.Match syntax, case-insensitive).
	// Empty means every supported image extension.
	Include []string
	Exclude []string
}

// ImagePatterns returns include patterns for every supported image extension.
func ImagePatterns() []string {
	out := make([]string, len(imagedims.SupportedImageExtensions))
	for i, ext := range imagedims.SupportedImageExtensions {
		out[i] = "*" + ext
	}
	return out
}

// Files finds the files under roots that pass the include and exclude
// patterns. Roots may be files or directories. The result is sorted and
// free of duplicates.
func Files(roots []string, opts Options) ([]string, error) {
	include := opts.Include
	if len(include) == 0 {
		include = ImagePatterns()
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}

		if !info.IsDir() {
			if shouldInclude(root, include, opts.Exclude) {
				add(root)
			}
			continue
		}

		found, err := walkDirectory(root, opts.Recursive, include, opts.Exclude)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	return files, nil
}

func walkDirectory(dir string, recursive bool, include, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldInclude(path, include, exclude) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}

// shouldInclude applies exclude patterns first, then include patterns.
func shouldInclude(path string, include, exclude []string) bool {
	if matchesAny(path, exclude) {
		return false
	}
	return matchesAny(path, include)
}

func matchesAny(path string, patterns []string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(strings.ToLower(pattern), base); matched {
			return true
		}
	}
	return false
}
