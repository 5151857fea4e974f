package hostfuncs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapesBundle(t *testing.T) {
	handlers := ShapesBundle().Handlers()

	assert.Len(t, handlers, 1)
	assert.Contains(t, handlers, OpShapesRect)
}

func TestAllBundles(t *testing.T) {
	handlers := AllBundles().Handlers()

	assert.Contains(t, handlers, OpShapesRect)
}

type echoBundle struct{}

func (echoBundle) Handlers() map[string]Handler {
	return map[string]Handler{
		"op_echo": func(ctx context.Context, args Args) (any, error) {
			return args, nil
		},
	}
}

func TestWithBundle_CustomBundle(t *testing.T) {
	reg, err := NewRegistry(
		WithBundle(ShapesBundle()),
		WithBundle(echoBundle{}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"op_echo", OpShapesRect}, reg.Names())

	resp, err := reg.Invoke(context.Background(), "op_echo", Args{"hi"})
	require.NoError(t, err)
	assert.Equal(t, Args{"hi"}, resp)

	// Untyped bundles publish no schema.
	schemas := reg.Schemas()
	assert.Contains(t, schemas, OpShapesRect)
	assert.NotContains(t, schemas, "op_echo")
}

func TestWithBundle_Composite(t *testing.T) {
	bundle := &compositeBundle{bundles: []HostFuncBundle{ShapesBundle(), echoBundle{}}}

	handlers := bundle.Handlers()
	assert.Len(t, handlers, 2)

	reg, err := NewRegistry(WithBundle(bundle))
	require.NoError(t, err)
	assert.True(t, reg.Has("op_echo"))
	assert.Contains(t, reg.Schemas(), OpShapesRect)
}
