package mod

// State is the lifecycle state of a mod within one load pass. Transitions
// are one-directional; a mod that fails stops advancing but never halts its
// siblings.
type State int

const (
	// StateDiscovered - the artifact resolved to a manifest.
	StateDiscovered State = iota

	// StateInstantiated - the mod's runtime was constructed and its entry
	// chunk ran.
	StateInstantiated

	// StateConfigured - the mod's configuration definition was built and
	// persisted values were resolved against it.
	StateConfigured

	// StateHooked - the mod's ready hook completed.
	StateHooked

	// StateFailed - the mod failed at some stage and was dropped from
	// further processing.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateInstantiated:
		return "instantiated"
	case StateConfigured:
		return "configured"
	case StateHooked:
		return "hooked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the load-pass step a mod failed in.
type Stage int

const (
	// StageDiscover - resolving the artifact to exactly one manifest.
	StageDiscover Stage = iota

	// StageInstantiate - constructing the runtime and running the entry
	// chunk.
	StageInstantiate

	// StageConfigure - building the definition and resolving values.
	StageConfigure

	// StageRegister - claiming the mod's name in the registry.
	StageRegister

	// StageHook - invoking the ready hook.
	StageHook
)

// String returns a string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageDiscover:
		return "discover"
	case StageInstantiate:
		return "instantiate"
	case StageConfigure:
		return "configure"
	case StageRegister:
		return "register"
	case StageHook:
		return "hook"
	default:
		return "unknown"
	}
}
