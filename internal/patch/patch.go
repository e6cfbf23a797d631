// Package patch defines the contract between the mod loader and the
// host-runtime patch engine, and reports overlapping patch ownership.
//
// The loader never interprets how a patch is physically applied. It hands a
// description to an Engine, keeps the owner-tagged handle it gets back, and
// uses the handles only to group modifications by target for conflict
// reporting.
package patch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind is the point at which a patch modifies its target.
type Kind int

const (
	// Before runs the patch behavior ahead of the target.
	Before Kind = iota

	// After runs the patch behavior following the target.
	After

	// Replace substitutes the patch behavior for the target.
	Replace

	// Around wraps the target in the patch behavior.
	Around
)

// String returns the kind name as used in mod scripts.
func (k Kind) String() string {
	switch k {
	case Before:
		return "before"
	case After:
		return "after"
	case Replace:
		return "replace"
	case Around:
		return "around"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "before":
		return Before, nil
	case "after":
		return After, nil
	case "replace":
		return Replace, nil
	case "around":
		return Around, nil
	default:
		return Before, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Patch engine errors.
var (
	ErrUnknownKind   = errors.New("patch: unknown patch kind")
	ErrMissingOwner  = errors.New("patch: owner must not be empty")
	ErrMissingTarget = errors.New("patch: target must not be empty")
)

// Patch describes one requested modification of host behavior. Behavior is
// opaque to the loader; only the engine interprets it.
type Patch struct {
	Owner    string
	Target   string
	Kind     Kind
	Behavior any
}

// Handle identifies one applied patch.
type Handle struct {
	ID     string
	Owner  string
	Target string
	Kind   Kind
}

// Engine applies patches to the host runtime and returns owner-tagged
// handles.
type Engine interface {
	Apply(p Patch) (Handle, error)
}

// Recorder is an Engine that records requested patches without touching the
// host runtime. It is the default engine and the test double.
type Recorder struct {
	mu      sync.Mutex
	handles []Handle
}

// NewRecorder creates an empty recording engine.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Apply validates the patch description and records a handle for it.
func (r *Recorder) Apply(p Patch) (Handle, error) {
	if p.Owner == "" {
		return Handle{}, ErrMissingOwner
	}
	if p.Target == "" {
		return Handle{}, ErrMissingTarget
	}

	h := Handle{
		ID:     uuid.NewString(),
		Owner:  p.Owner,
		Target: p.Target,
		Kind:   p.Kind,
	}

	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()

	return h, nil
}

// Handles returns the recorded handles in application order.
func (r *Recorder) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Handle, len(r.handles))
	copy(out, r.handles)
	return out
}
