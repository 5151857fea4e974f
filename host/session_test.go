package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/reglet-dev/framescript/bridge"
	"github.com/reglet-dev/framescript/internal/testutil"
	"github.com/reglet-dev/framescript/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// recordingSink keeps every frame it receives.
type recordingSink struct {
	mu     sync.Mutex
	frames []render.Frame
	err    error
}

func (s *recordingSink) WriteFrame(f render.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *recordingSink) Frames() []render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]render.Frame(nil), s.frames...)
}

func newTestSession(t *testing.T, src string, opts ...Option) (*Session, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithSink(sink)}, opts...)
	s, err := NewSession(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	if src != "" {
		require.NoError(t, s.Load(context.Background(), src))
	}
	return s, sink
}

const flaky = `
export function main(t) {
  shapes.rect(t, 0);
  if (t >= 1 && t < 2) throw new Error("bad frame");
  shapes.rect(t, 1);
}`

func TestNewSession(t *testing.T) {
	s, _ := newTestSession(t, "")
	assert.NotEqual(t, uuid.Nil, s.ID())
	assert.NotNil(t, s.Runtime())

	other, _ := newTestSession(t, "")
	assert.NotEqual(t, s.ID(), other.ID())

	_, err := NewSession(WithErrorPolicy("retry"))
	assert.ErrorContains(t, err, "unknown error policy")

	_, err = NewSession(WithRuntimeOptions(bridge.WithModulePath("relative.js")))
	assert.ErrorContains(t, err, "failed to create runtime")
}

func TestParseErrorPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ErrorPolicy
		wantErr bool
	}{
		{in: "", want: AbortOnError},
		{in: "abort", want: AbortOnError},
		{in: "skip", want: SkipOnError},
		{in: "ignore", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseErrorPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSession_Step(t *testing.T) {
	s, sink := newTestSession(t, `export function main(t) { shapes.rect(t, -t); }`)

	frame, err := s.Step(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, float32(2), frame.Time)
	testutil.RequireRects(t, frame.Commands, [2]float32{2, -2})

	frame, err = s.Step(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Index)

	assert.Len(t, sink.Frames(), 2)
	assert.Equal(t, Stats{Frames: 2, Commands: 2}, s.Stats())
}

func TestSession_StepDiscardsFailedFrame(t *testing.T) {
	s, sink := newTestSession(t, flaky)

	frame, err := s.Step(context.Background(), 1.5)
	require.Error(t, err)
	assert.Empty(t, frame.Commands)
	assert.Empty(t, sink.Frames())

	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 0, fe.Index)
	assert.ErrorIs(t, err, bridge.ErrScriptThrew)

	frame, err = s.Step(context.Background(), 3)
	require.NoError(t, err)
	testutil.RequireRects(t, frame.Commands, [2]float32{3, 0}, [2]float32{3, 1})
	assert.Equal(t, Stats{Frames: 2, Failed: 1, Commands: 2}, s.Stats())
}

func TestSession_StepBeforeLoad(t *testing.T) {
	s, _ := newTestSession(t, "")
	_, err := s.Step(context.Background(), 0)
	assert.ErrorIs(t, err, bridge.ErrNoModuleLoaded)
}

func TestSession_LoadDiscardsTopLevelDraws(t *testing.T) {
	s, sink := newTestSession(t, `
shapes.rect(99, 99);
export function main() { shapes.rect(1, 1); }`)

	frame, err := s.Step(context.Background(), 0)
	require.NoError(t, err)
	testutil.RequireRects(t, frame.Commands, [2]float32{1, 1})
	assert.Len(t, sink.Frames(), 1)
}

func TestSession_LoadError(t *testing.T) {
	s, _ := newTestSession(t, "")
	err := s.Load(context.Background(), `export function main( {`)
	require.ErrorIs(t, err, bridge.ErrParse)
	assert.Contains(t, err.Error(), "load script")
}

func TestSession_RunFrames(t *testing.T) {
	s, sink := newTestSession(t, `export function main(t) { shapes.rect(t, 0); }`)

	require.NoError(t, s.RunFrames(context.Background(), 4, 0.5))

	frames := sink.Frames()
	require.Len(t, frames, 4)
	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.InDelta(t, float64(i)*0.5, f.Time, 1e-6)
		testutil.RequireRects(t, f.Commands, [2]float32{f.Time, 0})
	}
}

func TestSession_RunFramesAbortOnError(t *testing.T) {
	s, sink := newTestSession(t, flaky)

	err := s.RunFrames(context.Background(), 5, 0.5)
	require.Error(t, err)

	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Index)
	assert.Len(t, sink.Frames(), 2)
	assert.Equal(t, 3, s.Stats().Frames)
}

func TestSession_RunFramesSkipOnError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, sink := newTestSession(t, flaky, WithErrorPolicy(SkipOnError), WithLogger(zap.New(core)))

	err := s.RunFrames(context.Background(), 5, 0.5)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, err, bridge.ErrScriptThrew)

	frames := sink.Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, []int{0, 1, 4}, []int{frames[0].Index, frames[1].Index, frames[2].Index})
	assert.Equal(t, Stats{Frames: 5, Failed: 2, Commands: 6}, s.Stats())

	skipped := logs.FilterMessage("frame failed, skipping").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, int64(2), skipped[0].ContextMap()["frame"])
	assert.NotEmpty(t, skipped[0].ContextMap()["stack"])
}

func TestSession_SinkErrorsAlwaysAbort(t *testing.T) {
	s, sink := newTestSession(t, `export function main(t) { shapes.rect(t, 0); }`, WithErrorPolicy(SkipOnError))
	sink.err = errors.New("disk full")

	err := s.RunFrames(context.Background(), 3, 1)
	var se *SinkError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.Index)
	assert.Equal(t, 1, s.Stats().Frames)
}

func TestSession_RunFramesCancelled(t *testing.T) {
	s, sink := newTestSession(t, `export function main(t) { shapes.rect(t, 0); }`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunFrames(ctx, 3, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.Frames())
}

func TestSession_Play(t *testing.T) {
	s, sink := newTestSession(t, `export function main(t) { shapes.rect(t, 0); }`)

	require.NoError(t, s.Play(context.Background(), 200, 3))

	frames := sink.Frames()
	require.Len(t, frames, 3)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Time, frames[i-1].Time)
	}
}

func TestSession_PlayStopsOnCancel(t *testing.T) {
	s, sink := newTestSession(t, `export function main(t) { shapes.rect(t, 0); }`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Play(ctx, 100, 0))
	assert.NotEmpty(t, sink.Frames())
}

func TestSession_PlayInvalidFPS(t *testing.T) {
	s, _ := newTestSession(t, "")
	assert.Error(t, s.Play(context.Background(), 0, 1))
}

func TestSession_Close(t *testing.T) {
	s, _ := newTestSession(t, `export function main() {}`)
	require.NoError(t, s.Close())

	_, err := s.Step(context.Background(), 0)
	assert.ErrorIs(t, err, bridge.ErrClosed)
}
