package hostfuncs

import (
	"context"
	"testing"

	"github.com/reglet-dev/framescript/draw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHostContext_OutsideRuntime(t *testing.T) {
	hc := NewHostContext(context.Background(), OpShapesRect)

	require.NotNil(t, hc)
	assert.Equal(t, OpShapesRect, hc.FunctionName())
	assert.Nil(t, hc.State())

	_, ok := hc.Canvas()
	assert.False(t, ok)
}

func TestHostContext_Canvas(t *testing.T) {
	dc := draw.NewContext()
	state := NewState()
	state.Put(dc)

	hc := NewHostContext(WithState(context.Background(), state), OpShapesRect)
	assert.Same(t, state, hc.State())

	got, ok := hc.Canvas()
	require.True(t, ok)
	assert.Same(t, dc, got)
}

func TestHostContext_CanvasMissingFromState(t *testing.T) {
	hc := NewHostContext(WithState(context.Background(), NewState()), OpShapesRect)
	require.NotNil(t, hc.State())

	_, ok := hc.Canvas()
	assert.False(t, ok)
}

func TestHostContext_Scratch(t *testing.T) {
	hc := NewHostContext(context.Background(), OpShapesRect)

	_, ok := hc.GetValue("started")
	assert.False(t, ok)

	hc.SetValue("started", int64(7))
	hc.SetValue("attempt", 1)

	v, ok := hc.GetValue("started")
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
	v, ok = hc.GetValue("attempt")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestHostContext_IsAContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hc := NewHostContext(ctx, OpShapesRect)

	assert.NoError(t, hc.Err())
	cancel()
	<-hc.Done()
	assert.ErrorIs(t, hc.Err(), context.Canceled)
}

func TestHostContextFrom(t *testing.T) {
	t.Run("wraps a plain context", func(t *testing.T) {
		hc := HostContextFrom(context.Background(), OpShapesRect)
		assert.Equal(t, OpShapesRect, hc.FunctionName())
	})

	t.Run("keeps the registry's context and scratch", func(t *testing.T) {
		outer := NewHostContext(context.Background(), OpShapesRect)
		outer.SetValue("logged", true)

		inner := HostContextFrom(outer, "op_other")
		assert.Equal(t, OpShapesRect, inner.FunctionName())
		v, ok := inner.GetValue("logged")
		assert.True(t, ok)
		assert.Equal(t, true, v)
	})
}
