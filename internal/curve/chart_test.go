package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyPoints(t *testing.T) {
	in := series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	got := KeyPoints(in, 4)
	var names []string
	for _, p := range got {
		names = append(names, p.Label)
	}
	assert.Equal(t, []string{"Week 1", "Week 5", "Week 9", "Week 10"}, names)

	assert.Len(t, KeyPoints(in, 1), 10)
	assert.Len(t, KeyPoints(series(1, 2, 3, 4, 5), 4), 2)
	assert.Empty(t, KeyPoints(nil, 4))
}

func TestBounds(t *testing.T) {
	lo, hi, ok := Bounds(series(3100, 2900.5, 3300, 3000))
	assert.True(t, ok)
	assert.Equal(t, "2900.5", lo.String())
	assert.Equal(t, "3300", hi.String())

	_, _, ok = Bounds(nil)
	assert.False(t, ok)
}
