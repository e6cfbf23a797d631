package config

import "errors"

// Configuration model errors.
var (
	// ErrUnknownType is returned when a type name cannot be parsed.
	ErrUnknownType = errors.New("config: unknown value type")

	// ErrDuplicateKey is returned when a definition would contain two keys
	// with the same name.
	ErrDuplicateKey = errors.New("config: duplicate key name")

	// ErrEmptyKeyName is returned when a key with an empty name is added.
	ErrEmptyKeyName = errors.New("config: key name must not be empty")

	// ErrMissingOwner is returned when a definition has no owning mod name.
	ErrMissingOwner = errors.New("config: definition owner must not be empty")

	// ErrInvalidVersion is returned when a definition version is not valid
	// semver.
	ErrInvalidVersion = errors.New("config: version must be valid semver")

	// ErrBuilderUsed is returned when a builder is built more than once.
	ErrBuilderUsed = errors.New("config: builder already used")

	// ErrVersionMismatch is returned when a persisted snapshot's version
	// differs from the declared version and the definition's policy treats
	// that as fatal.
	ErrVersionMismatch = errors.New("config: persisted version does not match declared version")

	// ErrUnknownPolicy is returned when a policy name cannot be parsed.
	ErrUnknownPolicy = errors.New("config: unknown mismatch policy")
)
