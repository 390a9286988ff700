package defaults

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/MeKo-Tech/boxseed/internal/imagedims"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

type countingObserver struct {
	mu          sync.Mutex
	records     map[Outcome]int
	resolutions int
	files       int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{records: map[Outcome]int{}}
}

func (o *countingObserver) ObserveRecord(_ Format, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[outcome]++
}

func (o *countingObserver) ObserveResolution(_ Format, files int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolutions++
	o.files += files
}

func (o *countingObserver) count(outcome Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.records[outcome]
}

func fixedDims(w, h int) imagedims.Func {
	return func(string) (geometry.Dims, error) {
		return geometry.Dims{Width: w, Height: h}, nil
	}
}

func failingDims(string) (geometry.Dims, error) {
	return geometry.Dims{}, errors.New("no image")
}

func assertBox(t *testing.T, b Box, x, y, w, h float64) {
	t.Helper()
	assert.InDelta(t, x, b.X, eps, "x")
	assert.InDelta(t, y, b.Y, eps, "y")
	assert.InDelta(t, w, b.Width, eps, "width")
	assert.InDelta(t, h, b.Height, eps, "height")
}

// assertCanonical checks the unit-square invariant on every non-negative box.
func assertCanonical(t *testing.T, res Result) {
	t.Helper()
	for key, boxes := range res {
		require.NotEmpty(t, boxes, "key %s maps to an empty list", key)
		for _, b := range boxes {
			if b.Negative {
				continue
			}
			assert.GreaterOrEqual(t, b.X, 0.0, key)
			assert.GreaterOrEqual(t, b.Y, 0.0, key)
			assert.LessOrEqual(t, b.X+b.Width, 1.0+eps, key)
			assert.LessOrEqual(t, b.Y+b.Height, 1.0+eps, key)
			assert.Greater(t, b.Width, 0.0, key)
			assert.Greater(t, b.Height, 0.0, key)
		}
	}
}

func assertUniqueIDs(t *testing.T, res Result) {
	t.Helper()
	seen := map[string]bool{}
	for _, boxes := range res {
		for _, b := range boxes {
			require.NotEmpty(t, b.ID)
			assert.False(t, seen[b.ID], "duplicate id %s", b.ID)
			seen[b.ID] = true
		}
	}
}

func hasKey(res Result, path string) bool {
	_, ok := res[filekey.Normalize(path)]
	return ok
}

func labelsOf(boxes []Box) []string {
	out := make([]string, len(boxes))
	for i, b := range boxes {
		out[i] = b.Label
	}
	return out
}

func countNegatives(boxes []Box) int {
	n := 0
	for _, b := range boxes {
		if b.Negative {
			n++
		}
	}
	return n
}
