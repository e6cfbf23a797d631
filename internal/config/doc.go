// Package config provides the typed configuration model for mods.
//
// A mod declares its settings as named, typed keys collected into a frozen
// Definition. Persisted values are reconciled against the definition by key
// name, with a per-definition policy deciding what happens when the
// persisted version differs from the declared one.
package config
