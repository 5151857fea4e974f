// Package testutil provides common test utilities and assertions for framescript tests
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/reglet-dev/framescript/draw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FloatTolerance is the delta used when comparing coordinates that went
// through script arithmetic and a float32 conversion.
const FloatTolerance = 1e-5

// AssertRect asserts that cmd is the fixed-size plum rectangle at (x, y).
func AssertRect(t *testing.T, cmd draw.Command, x, y float32, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, draw.KindRect, cmd.Kind, msgAndArgs...)
	assert.InDelta(t, x, cmd.X, FloatTolerance, msgAndArgs...)
	assert.InDelta(t, y, cmd.Y, FloatTolerance, msgAndArgs...)
	assert.Equal(t, draw.RectSize, cmd.W, msgAndArgs...)
	assert.Equal(t, draw.RectSize, cmd.H, msgAndArgs...)
	assert.Equal(t, draw.Plum, cmd.Color, msgAndArgs...)
}

// RequireRects asserts that cmds are exactly the rectangles at the given
// points, in order. Points are (x, y) pairs.
func RequireRects(t *testing.T, cmds []draw.Command, points ...[2]float32) {
	t.Helper()
	require.Len(t, cmds, len(points))
	for i, p := range points {
		AssertRect(t, cmds[i], p[0], p[1], "command %d", i)
	}
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
