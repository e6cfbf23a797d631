package mod

import (
	"github.com/dshills/modhost/internal/patch"
)

// ModStatus is the per-mod outcome of one load pass.
type ModStatus struct {
	Name  string
	Dir   string
	Hash  string
	State State

	// Stage and Err are meaningful only when State is StateFailed.
	Stage Stage
	Err   error
}

// Report is the outcome of a full load pass. The pass itself always
// completes; per-mod failures live in Mods, and the only pass-level
// conditions are a hook ordering cycle and the aggregate of hook failures.
type Report struct {
	Mods []ModStatus

	// OrderErr is set when the dependency graph of registered mods is
	// cyclic. Ready hooks do not run in that case.
	OrderErr error

	// HookErr aggregates ready-hook failures across mods. Each failing mod
	// is also marked failed in Mods.
	HookErr error

	// Conflicts lists every patch target modified by more than one mod.
	Conflicts []patch.Conflict
}

// Hooked returns the number of mods that completed the full lifecycle.
func (r *Report) Hooked() int {
	n := 0
	for _, m := range r.Mods {
		if m.State == StateHooked {
			n++
		}
	}
	return n
}

// Failed returns the statuses of mods that failed, in discovery order.
func (r *Report) Failed() []ModStatus {
	var out []ModStatus
	for _, m := range r.Mods {
		if m.State == StateFailed {
			out = append(out, m)
		}
	}
	return out
}
