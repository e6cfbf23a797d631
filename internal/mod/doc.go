// Package mod implements the mod lifecycle orchestrator.
//
// A load pass discovers mod artifacts on disk, instantiates each mod's
// sandboxed Lua state, builds and loads its typed configuration, registers
// it under its unique name, invokes ready hooks in dependency order, and
// reports patch-target overlap between mods. Every stage isolates one mod's
// failure from its siblings: the pass always completes, and only a failure
// to enumerate candidates at all is fatal.
package mod
