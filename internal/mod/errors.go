package mod

import "errors"

// Mod system errors.
var (
	// ErrModNotFound is returned when a mod cannot be located by name.
	ErrModNotFound = errors.New("mod not found")

	// ErrNilInfo is returned when a host is created without discovery info.
	ErrNilInfo = errors.New("discovery info is nil")

	// ErrNoManifest is returned for an artifact containing no mod manifest.
	ErrNoManifest = errors.New("artifact contains no mod manifest")

	// ErrMultipleManifests is returned for an artifact containing more than
	// one mod manifest.
	ErrMultipleManifests = errors.New("artifact contains more than one mod manifest")

	// ErrDuplicateName is returned when a second mod registers under a name
	// already taken. The first registration is kept.
	ErrDuplicateName = errors.New("a mod with this name is already registered")

	// ErrNotInstantiated is returned when a lifecycle step runs before the
	// mod's runtime exists.
	ErrNotInstantiated = errors.New("mod is not instantiated")

	// ErrAlreadyInstantiated is returned when instantiation runs twice.
	ErrAlreadyInstantiated = errors.New("mod is already instantiated")

	// ErrConfigNotLoaded is returned when a step requires a resolved
	// configuration the mod does not have yet.
	ErrConfigNotLoaded = errors.New("mod configuration is not loaded")
)
