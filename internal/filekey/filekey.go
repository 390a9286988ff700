// Package filekey builds case-insensitive lookup keys for image paths so that
// annotation records authored with different path conventions still match
// the files of a live directory scan.
package filekey

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Expand replaces a leading ~ with the user's home directory and expands
// $VAR / ${VAR} references.
func Expand(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return os.ExpandEnv(p)
}

// Normalize returns the canonical key form of a path: cleaned, forward-slash
// separated, NFC composed and case-folded. The path is taken literally, so
// callers holding configured or annotation-side paths run Expand first.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	return fold(p)
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Key holds the match components of one path.
type Key struct {
	Path string
	Base string
	Stem string
}

// NewKey computes the key components of p.
func NewKey(p string) Key {
	n := Normalize(p)
	if n == "" || n == "." {
		return Key{}
	}
	base := path.Base(n)
	return Key{
		Path: n,
		Base: base,
		Stem: strings.TrimSuffix(base, path.Ext(base)),
	}
}

// Index maps path keys to values. Values registered under the same key
// accumulate in insertion order.
type Index[T any] struct {
	byPath map[string][]T
	byBase map[string][]T
	byStem map[string][]T
}

// NewIndex returns an empty index.
func NewIndex[T any]() *Index[T] {
	return &Index[T]{
		byPath: make(map[string][]T),
		byBase: make(map[string][]T),
		byStem: make(map[string][]T),
	}
}

// Add registers v under every component of raw's key.
// Paths that normalize to nothing are ignored.
func (ix *Index[T]) Add(raw string, v T) {
	k := NewKey(raw)
	if k.Path == "" {
		return
	}
	ix.byPath[k.Path] = append(ix.byPath[k.Path], v)
	if k.Base != "" {
		ix.byBase[k.Base] = append(ix.byBase[k.Base], v)
	}
	if k.Stem != "" {
		ix.byStem[k.Stem] = append(ix.byStem[k.Stem], v)
	}
}

// Lookup matches raw against full path, then basename, then stem, returning
// the values of the first component that matches.
func (ix *Index[T]) Lookup(raw string) []T {
	k := NewKey(raw)
	if k.Path == "" {
		return nil
	}
	if v := ix.byPath[k.Path]; len(v) > 0 {
		return v
	}
	if v := ix.byBase[k.Base]; len(v) > 0 {
		return v
	}
	return ix.byStem[k.Stem]
}

// LookupPathOrBase is Lookup without the stem fallback.
func (ix *Index[T]) LookupPathOrBase(raw string) []T {
	k := NewKey(raw)
	if k.Path == "" {
		return nil
	}
	if v := ix.byPath[k.Path]; len(v) > 0 {
		return v
	}
	return ix.byBase[k.Base]
}

// Len returns the number of distinct full-path keys.
func (ix *Index[T]) Len() int {
	return len(ix.byPath)
}
