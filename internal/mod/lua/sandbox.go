package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// Capability is a permission a mod can request in its manifest.
type Capability string

// Available capabilities.
const (
	CapabilityFileRead  Capability = "filesystem.read"
	CapabilityFileWrite Capability = "filesystem.write"
	CapabilityShell     Capability = "shell"
	CapabilityUnsafe    Capability = "unsafe"
)

// KnownCapabilities lists every capability a manifest may request.
var KnownCapabilities = map[Capability]bool{
	CapabilityFileRead:  true,
	CapabilityFileWrite: true,
	CapabilityShell:     true,
	CapabilityUnsafe:    true,
}

// Sandbox restricts a mod script to safe operations. Capability grants open
// the corresponding gated standard libraries.
type Sandbox struct {
	L            *lua.LState
	capabilities map[Capability]bool
}

// NewSandbox creates a sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{
		L:            L,
		capabilities: make(map[Capability]bool),
	}
}

// Grant enables a capability and opens the library it gates.
func (s *Sandbox) Grant(c Capability) {
	if s.capabilities[c] {
		return
	}
	s.capabilities[c] = true

	switch c {
	case CapabilityFileRead, CapabilityFileWrite:
		_ = openLib(s.L, lua.OpenIo, lua.IoLibName)
	case CapabilityShell:
		_ = openLib(s.L, lua.OpenOs, lua.OsLibName)
	case CapabilityUnsafe:
		_ = openLib(s.L, lua.OpenDebug, lua.DebugLibName)
	}
}

// Has reports whether a capability was granted.
func (s *Sandbox) Has(c Capability) bool {
	return s.capabilities[c]
}

// Install removes escape hatches from the state and replaces require with a
// whitelist-based version.
func (s *Sandbox) Install() {
	// Loading arbitrary chunks would bypass every other restriction.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installSafeRequire()
}

// builtin modules a script may always require.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// installSafeRequire clears package.path/cpath so nothing loads from disk
// and gates require on the whitelist plus granted capabilities.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		if !s.requireAllowed(name) {
			L.RaiseError("module %q is not available", name)
			return 0
		}

		L.Push(originalRequire)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

func (s *Sandbox) requireAllowed(name string) bool {
	if safeModules[name] {
		return true
	}
	switch name {
	case "io":
		return s.capabilities[CapabilityFileRead] || s.capabilities[CapabilityFileWrite]
	case "os":
		return s.capabilities[CapabilityShell]
	case "debug":
		return s.capabilities[CapabilityUnsafe]
	}
	return false
}
