package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/reglet-dev/framescript/bridge"
	"github.com/reglet-dev/framescript/draw"
	"github.com/reglet-dev/framescript/render"
	"go.uber.org/zap"
)

// Stats summarizes the frames a Session has stepped through.
type Stats struct {
	Frames   int `json:"frames"`
	Failed   int `json:"failed"`
	Commands int `json:"commands"`
}

// Session runs one script against one drawing context.
type Session struct {
	mu sync.Mutex

	id          uuid.UUID
	logger      *zap.Logger
	dc          *draw.Context
	rt          *bridge.Runtime
	runtimeOpts []bridge.Option
	sink        render.Sink
	policy      ErrorPolicy

	next  int
	stats Stats
}

// NewSession creates a session with a fresh runtime and drawing context.
func NewSession(opts ...Option) (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	s := &Session{
		id:     id,
		logger: zap.NewNop(),
		dc:     draw.NewContext(),
		sink:   render.DiscardSink{},
		policy: AbortOnError,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := ParseErrorPolicy(string(s.policy)); err != nil {
		return nil, err
	}
	if s.sink == nil {
		s.sink = render.DiscardSink{}
	}
	s.logger = s.logger.With(zap.String("session", id.String()))

	rtOpts := append([]bridge.Option{bridge.WithLogger(s.logger)}, s.runtimeOpts...)
	rt, err := bridge.New(s.dc, rtOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}
	s.rt = rt
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Runtime returns the bridge runtime the session drives.
func (s *Session) Runtime() *bridge.Runtime {
	return s.rt
}

// Stats returns counters for the frames stepped so far.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Load compiles src as the session's script. Commands issued by top-level
// code are discarded; only frames produce output.
func (s *Session) Load(ctx context.Context, src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.rt.Compile(ctx, src)
	if dropped := s.dc.Flush(); len(dropped) > 0 {
		s.logger.Debug("discarded commands issued while loading", zap.Int("commands", len(dropped)))
	}
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}

	id, _ := s.rt.Module()
	s.logger.Info("script loaded",
		zap.Stringer("module", id),
		zap.Strings("exports", s.rt.Exports()))
	return nil
}

// Step runs one frame at time t and writes it to the sink. On a failed run
// the commands the frame issued before failing are discarded and the frame
// is not written.
func (s *Session) Step(ctx context.Context, t float32) (render.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(ctx, t)
}

func (s *Session) step(ctx context.Context, t float32) (render.Frame, error) {
	frame := render.Frame{Index: s.next, Time: t}
	s.next++
	s.stats.Frames++

	err := s.rt.Run(ctx, t)
	cmds := s.dc.Flush()
	if err != nil {
		s.stats.Failed++
		return frame, &FrameError{Index: frame.Index, Time: t, Err: err}
	}

	frame.Commands = cmds
	s.stats.Commands += len(cmds)
	if err := s.sink.WriteFrame(frame); err != nil {
		return frame, &SinkError{Index: frame.Index, Err: err}
	}
	return frame, nil
}

// RunFrames steps n frames on a virtual clock starting at zero and
// advancing by dt per frame.
func (s *Session) RunFrames(ctx context.Context, n int, dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped *multierror.Error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return stopWith(skipped, err)
		}
		t := float32(float64(i) * dt)
		if _, err := s.step(ctx, t); err != nil {
			if !s.skippable(err) {
				return stopWith(skipped, err)
			}
			skipped = multierror.Append(skipped, err)
		}
	}
	return skipped.ErrorOrNil()
}

// Play steps frames in real time at fps, passing the seconds elapsed since
// the first frame as the time. It stops after n frames, or when ctx is done
// if n is zero or negative. A frame in progress always finishes; ctx is only
// checked between frames.
func (s *Session) Play(ctx context.Context, fps float64, n int) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", fps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	start := time.Now()
	var skipped *multierror.Error
	for i := 0; n <= 0 || i < n; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				s.logger.Debug("playback stopped", zap.Int("frames", i))
				return skipped.ErrorOrNil()
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return skipped.ErrorOrNil()
		}

		t := float32(time.Since(start).Seconds())
		if _, err := s.step(ctx, t); err != nil {
			if !s.skippable(err) {
				return stopWith(skipped, err)
			}
			skipped = multierror.Append(skipped, err)
		}
	}
	return skipped.ErrorOrNil()
}

// stopWith returns err, together with any failures skipped before it.
func stopWith(skipped *multierror.Error, err error) error {
	if skipped == nil {
		return err
	}
	return multierror.Append(skipped, err)
}

// skippable reports whether err may be skipped under the session policy,
// logging it if so. Sink failures are never skipped.
func (s *Session) skippable(err error) bool {
	var fe *FrameError
	if s.policy != SkipOnError || !errors.As(err, &fe) {
		return false
	}
	fields := []zap.Field{zap.Int("frame", fe.Index), zap.Float32("time", fe.Time), zap.Error(fe.Err)}
	var re *bridge.RunError
	if errors.As(fe.Err, &re) && re.Stack != "" {
		fields = append(fields, zap.String("stack", re.Stack))
	}
	s.logger.Warn("frame failed, skipping", fields...)
	return true
}

// Close releases the runtime.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.Reset()
	return s.rt.Close()
}

// FrameError reports a frame whose script run failed.
type FrameError struct {
	Index int
	Time  float32
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (t=%g): %v", e.Index, e.Time, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// SinkError reports a frame that ran but could not be written.
type SinkError struct {
	Index int
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("write frame %d: %v", e.Index, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
