package labels

import (
	"strconv"
	"strings"
)

// Resolver maps raw label tokens to display labels.
//
// Precedence: effective label map (external overlaid by inline), then the
// dataset class name at the token's index, then the token itself.
type Resolver struct {
	effective  Map
	classNames []string
}

// NewResolver builds a Resolver from the two label maps and the dataset's
// class names.
func NewResolver(inline, external Map, classNames []string) *Resolver {
	return &Resolver{
		effective:  Merge(external, inline),
		classNames: classNames,
	}
}

// Resolve returns the display label for raw.
func (r *Resolver) Resolve(raw string) string {
	token := strings.TrimSpace(raw)
	if v := r.effective[token]; v != "" {
		return v
	}
	if idx, err := strconv.Atoi(token); err == nil && idx >= 0 && idx < len(r.classNames) {
		if name := r.classNames[idx]; name != "" {
			return name
		}
	}
	return token
}

// Effective returns the merged label map. The returned map must not be modified.
func (r *Resolver) Effective() Map {
	return r.effective
}

// ClassNames returns the dataset class names the resolver falls back to.
func (r *Resolver) ClassNames() []string {
	return r.classNames
}
