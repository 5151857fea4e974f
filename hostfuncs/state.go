package hostfuncs

import (
	"context"
	"reflect"
	"sync"
)

// State is the capability store shared between the host and its operations.
// Values are keyed by their dynamic type, so at most one value of each type
// is held. Operations can reach only what the host put here.
type State struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

// NewState creates an empty capability store.
func NewState() *State {
	return &State{values: make(map[reflect.Type]any)}
}

// Put stores v, replacing any previous value of the same type.
// A nil v is ignored.
func (s *State) Put(v any) {
	if v == nil {
		return
	}
	s.mu.Lock()
	s.values[reflect.TypeOf(v)] = v
	s.mu.Unlock()
}

// Borrow returns the value of type T held in s.
func Borrow[T any](s *State) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

type stateKey struct{}

// WithState attaches a capability store to ctx.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFrom returns the capability store attached to ctx.
func StateFrom(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok && s != nil
}
