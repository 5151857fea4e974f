package hostfuncs

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs_Float64(t *testing.T) {
	args := Args{1.5, int64(3), "x", nil, float32(2)}

	assert.Equal(t, 1.5, args.Float64(0))
	assert.Equal(t, 3.0, args.Float64(1))
	assert.True(t, math.IsNaN(args.Float64(2)))
	assert.True(t, math.IsNaN(args.Float64(3)))
	assert.Equal(t, float32(2), args.Float32(4))
	assert.True(t, math.IsNaN(args.Float64(10)))
	assert.True(t, math.IsNaN(args.Float64(-1)))
}

func TestNewTypedHandler(t *testing.T) {
	type moveRequest struct {
		DX    float32 `json:"dx" validate:"finite"`
		Steps int     `json:"steps" validate:"min=1"`
		Label string  `json:"label"`
	}
	type moveResponse struct {
		Distance float32
		Label    string
	}

	handler := NewTypedHandler(func(ctx context.Context, req moveRequest) (moveResponse, error) {
		return moveResponse{Distance: req.DX * float32(req.Steps), Label: req.Label}, nil
	})

	t.Run("success", func(t *testing.T) {
		resp, err := handler(context.Background(), Args{0.5, int64(4), "walk"})
		require.NoError(t, err)
		assert.Equal(t, moveResponse{Distance: 2, Label: "walk"}, resp)
	})

	t.Run("integral float accepted for int field", func(t *testing.T) {
		resp, err := handler(context.Background(), Args{1.0, 2.0, "a"})
		require.NoError(t, err)
		assert.Equal(t, float32(2), resp.(moveResponse).Distance)
	})

	t.Run("extra arguments ignored", func(t *testing.T) {
		_, err := handler(context.Background(), Args{1.0, int64(1), "a", "extra"})
		require.NoError(t, err)
	})

	tests := []struct {
		name    string
		args    Args
		wantMsg string
	}{
		{name: "missing argument", args: Args{1.0}, wantMsg: "missing argument 1 (steps)"},
		{name: "undefined argument", args: Args{nil, int64(1), "a"}, wantMsg: "missing argument 0 (dx)"},
		{name: "wrong type", args: Args{"far", int64(1), "a"}, wantMsg: "dx: expected number"},
		{name: "fractional int", args: Args{1.0, 1.5, "a"}, wantMsg: "steps: expected integer"},
		{name: "NaN rejected", args: Args{math.NaN(), int64(1), "a"}, wantMsg: "finite"},
		{name: "infinity rejected", args: Args{math.Inf(1), int64(1), "a"}, wantMsg: "finite"},
		{name: "min rule", args: Args{1.0, int64(0), "a"}, wantMsg: "steps failed \"min\""},
		{name: "string mismatch", args: Args{1.0, int64(1), true}, wantMsg: "label: cannot use bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler(context.Background(), tt.args)
			require.Error(t, err)
			assert.Nil(t, resp)

			opErr, ok := AsOperationError(err)
			require.True(t, ok)
			assert.Equal(t, "VALIDATION_ERROR", opErr.Type)
			assert.Equal(t, 400, opErr.Code)
			assert.Contains(t, opErr.Message, tt.wantMsg)
		})
	}
}

func TestNewTypedHandler_ScalarRequest(t *testing.T) {
	handler := NewTypedHandler(func(ctx context.Context, n float64) (float64, error) {
		return n + 1, nil
	})

	resp, err := handler(context.Background(), Args{int64(41)})
	require.NoError(t, err)
	assert.Equal(t, 42.0, resp)

	resp, err = handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp)
}

func TestNewTypedHandler_OptionalPointer(t *testing.T) {
	type req struct {
		X     float64  `json:"x"`
		Scale *float64 `json:"scale"`
	}
	handler := NewTypedHandler(func(ctx context.Context, r req) (bool, error) {
		return r.Scale == nil, nil
	})

	resp, err := handler(context.Background(), Args{1.0})
	require.NoError(t, err)
	assert.Equal(t, true, resp)
}
