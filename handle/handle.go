// Package handle implements the opaque token returned by a successful
// load: it records what that load introduced into its loader's context so
// clear can deterministically invert it.
package handle

import (
	"sync"

	"github.com/google/uuid"

	"github.com/polyrt/ffi/scope"
)

// ID uniquely identifies a Handle within a loader instance.
type ID string

// NewID generates a fresh random handle ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// state is a handle's lifecycle stage.
type state int

const (
	stateLive state = iota
	stateDraining
	stateCleared
)

// Handle owns the list of names one load introduced into its loader's
// context, plus any backend-specific descriptor for that load.
type Handle struct {
	mu sync.Mutex

	id         ID
	names      []string
	descriptor any
	state      state
	inflight   int
	onDrained  func(*Handle)
}

// New constructs a Handle for the given introduced names. descriptor is an
// opaque backend-owned value (e.g. a compiled module handle); it is
// returned as-is by Descriptor.
func New(names []string, descriptor any) *Handle {
	cp := make([]string, len(names))
	copy(cp, names)
	return &Handle{id: NewID(), names: cp, descriptor: descriptor}
}

func (h *Handle) ID() ID          { return h.id }
func (h *Handle) Descriptor() any { return h.descriptor }
func (h *Handle) Names() []string { return append([]string(nil), h.names...) }

// BeginInvocation marks one in-flight invocation against names introduced
// by h. It must be paired with EndInvocation.
func (h *Handle) BeginInvocation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inflight++
}

// EndInvocation completes one in-flight invocation. If h is draining and
// this was the last one, h becomes cleared and onDrained fires when it is
// non-nil (Clear does not set it).
func (h *Handle) EndInvocation() {
	h.mu.Lock()
	h.inflight--
	drained := h.state == stateDraining && h.inflight <= 0
	cb := h.onDrained
	if drained {
		h.state = stateCleared
	}
	h.mu.Unlock()

	if drained && cb != nil {
		cb(h)
	}
}

// IsDraining reports whether h has been cleared but still has invocations
// in flight.
func (h *Handle) IsDraining() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateDraining
}

// IsCleared reports whether h's names have been fully removed from its
// context.
func (h *Handle) IsCleared() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateCleared
}

// Clear removes h's introduced names from root immediately. If
// invocations against those names are in flight, h stays in the draining
// state until the last of them completes, then becomes cleared; "in
// flight" refers to calls already holding a *value.Value reference, not
// new lookups, which fail as soon as Clear returns.
func (h *Handle) Clear(root *scope.Scope) {
	h.mu.Lock()
	if h.state == stateCleared || h.state == stateDraining {
		h.mu.Unlock()
		return
	}
	inflight := h.inflight
	names := append([]string(nil), h.names...)
	if inflight > 0 {
		h.state = stateDraining
	} else {
		h.state = stateCleared
	}
	h.mu.Unlock()

	for _, n := range names {
		root.Remove(n)
	}
}
