package config

// Key describes a single named setting of a declared value type.
//
// Identity is the name alone: two keys with the same name are the same key
// regardless of type, default, or validator. This lets a persisted key list
// be reconciled against code-declared keys across versions by name lookup.
// Keys are immutable once constructed.
type Key struct {
	name        string
	typ         Type
	description string
	internal    bool
	optional    bool
	defaultFn   func() any
	validator   func(any) bool
}

// KeyOption configures a Key at construction.
type KeyOption func(*Key)

// WithDescription sets human-readable documentation for the key.
func WithDescription(s string) KeyOption {
	return func(k *Key) {
		k.description = s
	}
}

// WithDefault sets a deferred default provider. The provider runs lazily on
// request and its result is not cached: repeated calls may recompute and may
// observe different environment state.
func WithDefault(fn func() any) KeyOption {
	return func(k *Key) {
		k.defaultFn = fn
	}
}

// WithDefaultValue sets a constant default.
func WithDefaultValue(v any) KeyOption {
	return func(k *Key) {
		k.defaultFn = func() any { return v }
	}
}

// WithValidator sets a predicate applied to candidate values after the type
// check. Without a validator the key is permissive beyond the type check.
func WithValidator(fn func(any) bool) KeyOption {
	return func(k *Key) {
		k.validator = fn
	}
}

// Optional marks the key as accepting an absent (nil) value.
func Optional() KeyOption {
	return func(k *Key) {
		k.optional = true
	}
}

// Internal marks the key as not intended for end-user editing.
func Internal() KeyOption {
	return func(k *Key) {
		k.internal = true
	}
}

// NewKey constructs an immutable key.
func NewKey(name string, typ Type, opts ...KeyOption) Key {
	k := Key{name: name, typ: typ}
	for _, opt := range opts {
		opt(&k)
	}
	return k
}

// Name returns the key's name, its sole identity.
func (k Key) Name() string { return k.name }

// ValueType returns the declared value type. Generic consumers that hold
// keys of mixed types use this descriptor.
func (k Key) ValueType() Type { return k.typ }

// Description returns the key's documentation, if any.
func (k Key) Description() string { return k.description }

// IsInternal reports whether the key is hidden from end-user editing.
func (k Key) IsInternal() bool { return k.internal }

// IsOptional reports whether an absent value is acceptable.
func (k Key) IsOptional() bool { return k.optional }

// Equal reports whether other is the same key. Keys compare by name only;
// collections keyed by Name() give the matching hash behavior.
func (k Key) Equal(other Key) bool {
	return k.name == other.name
}

// TryDefault computes the deferred default. It reports false when no
// default provider was supplied; a value is never fabricated.
func (k Key) TryDefault() (any, bool) {
	if k.defaultFn == nil {
		return nil, false
	}
	return k.defaultFn(), true
}

// Validate reports whether value is acceptable for this key. A nil value is
// accepted only for optional keys; a non-nil value must match the declared
// type; the configured validator, when present, has the final say.
func (k Key) Validate(value any) bool {
	if value == nil {
		if !k.optional {
			return false
		}
		if k.validator != nil {
			return k.validator(nil)
		}
		return true
	}

	if !k.typ.Accepts(value) {
		return false
	}
	if k.validator != nil {
		return k.validator(value)
	}
	return true
}
