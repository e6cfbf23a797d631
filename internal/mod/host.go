package mod

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modhost/internal/config"
	"github.com/dshills/modhost/internal/config/store"
	"github.com/dshills/modhost/internal/ctxlog"
	modlua "github.com/dshills/modhost/internal/mod/lua"
	"github.com/dshills/modhost/internal/patch"
)

// Lifecycle hook functions a mod script may define.
const (
	hookReady         = "on_ready"
	hookConfigChanged = "on_config_changed"
	hookUnload        = "on_unload"
)

// Host wraps one mod: its sandboxed Lua state, resolved configuration, and
// patch registrations. A host advances Discovered -> Instantiated ->
// Configured -> Hooked; a failure at any step parks it in Failed with the
// stage recorded, and the host never advances again.
//
// Host methods are not safe for concurrent use; the load pass and reloads
// run mod code on a single goroutine.
type Host struct {
	info   *Info
	engine patch.Engine
	logger *slog.Logger

	mu    sync.Mutex
	state State
	stage Stage
	err   error

	vm     *modlua.State
	bridge *modlua.Bridge

	// declared collects keys added through modhost.config_key while the
	// entry chunk runs, in declaration order.
	declared []config.Key
	def      *config.Definition
	values   map[string]any
	handles  []patch.Handle
}

// NewHost creates a host for a discovered mod. The info must carry a valid
// manifest; discovery failures never reach a host.
func NewHost(info *Info, engine patch.Engine, logger *slog.Logger) (*Host, error) {
	if info == nil {
		return nil, ErrNilInfo
	}
	if info.Manifest == nil {
		return nil, fmt.Errorf("%w: %s has no manifest", ErrNilInfo, info.Dir)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		info:   info,
		engine: engine,
		logger: logger.With(slog.String("mod", info.Name)),
		state:  StateDiscovered,
	}, nil
}

// Name returns the mod's unique name.
func (h *Host) Name() string { return h.info.Name }

// Version returns the mod's declared version.
func (h *Host) Version() string { return h.info.Manifest.Version }

// Info returns the discovery record the host was built from.
func (h *Host) Info() *Info { return h.info }

// ID satisfies the dependency graph node contract.
func (h *Host) ID() string { return h.info.Name }

// Dependencies returns the names of mods this mod wants ordered before it.
func (h *Host) Dependencies() []string { return h.info.Manifest.Dependencies }

// State returns the current lifecycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Failure returns the stage and error of a failed host. ok is false while
// the host is healthy.
func (h *Host) Failure() (stage Stage, err error, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateFailed {
		return 0, nil, false
	}
	return h.stage, h.err, true
}

// fail parks the host in StateFailed. Callers hold h.mu.
func (h *Host) fail(stage Stage, err error) error {
	h.state = StateFailed
	h.stage = stage
	h.err = err
	h.logger.Warn("mod failed",
		slog.String("stage", stage.String()),
		slog.Any("error", err))
	return err
}

// Instantiate constructs the mod's sandboxed Lua state, grants the
// capabilities its manifest requests, installs the modhost API, and runs the
// entry chunk. No arguments reach the mod; everything it needs it pulls from
// the API during or after the chunk.
func (h *Host) Instantiate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.vm != nil {
		return ErrAlreadyInstantiated
	}
	if h.state == StateFailed {
		return h.err
	}

	vm, err := modlua.NewState()
	if err != nil {
		return h.fail(StageInstantiate, fmt.Errorf("create lua state: %w", err))
	}
	for _, c := range h.info.Manifest.Capabilities {
		vm.Sandbox().Grant(modlua.Capability(c))
	}

	h.vm = vm
	h.bridge = modlua.NewBridge(vm.LuaState())
	h.installAPI()

	ctxlog.FromContext(ctx).Debug("running entry chunk",
		slog.String("mod", h.info.Name),
		slog.String("main", h.info.Manifest.MainPath()))

	if err := vm.DoFile(h.info.Manifest.MainPath()); err != nil {
		vm.Close()
		h.vm = nil
		h.bridge = nil
		return h.fail(StageInstantiate, fmt.Errorf("entry chunk: %w", err))
	}

	h.state = StateInstantiated
	return nil
}

// installAPI exposes the modhost table to the mod script. The functions run
// re-entrantly while the host executes mod code, so they touch host fields
// directly and never take locks.
func (h *Host) installAPI() {
	L := h.vm.LuaState()

	tbl := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"config_key": h.luaConfigKey,
		"patch":      h.luaPatch,
		"log":        h.luaLog,
	})
	L.SetField(tbl, "name", lua.LString(h.info.Name))
	L.SetField(tbl, "version", lua.LString(h.info.Manifest.Version))
	L.SetGlobal("modhost", tbl)
}

// luaConfigKey implements modhost.config_key{name=, type=, default=,
// description=, optional=, internal=, validate=}.
func (h *Host) luaConfigKey(L *lua.LState) int {
	spec := L.CheckTable(1)

	name := lua.LVAsString(L.GetField(spec, "name"))
	if name == "" {
		L.RaiseError("config_key: missing name")
		return 0
	}
	typ, err := config.ParseType(lua.LVAsString(L.GetField(spec, "type")))
	if err != nil {
		L.RaiseError("config_key %q: %v", name, err)
		return 0
	}

	opts := []config.KeyOption{}
	if d := lua.LVAsString(L.GetField(spec, "description")); d != "" {
		opts = append(opts, config.WithDescription(d))
	}
	if lua.LVAsBool(L.GetField(spec, "optional")) {
		opts = append(opts, config.Optional())
	}
	if lua.LVAsBool(L.GetField(spec, "internal")) {
		opts = append(opts, config.Internal())
	}
	if def := L.GetField(spec, "default"); def != lua.LNil {
		if fn, ok := def.(*lua.LFunction); ok {
			// Deferred default: evaluated on demand, never cached.
			bridge := h.bridge
			opts = append(opts, config.WithDefault(func() any {
				out, err := bridge.CallFunc(fn)
				if err != nil || len(out) == 0 {
					return nil
				}
				return out[0]
			}))
		} else {
			opts = append(opts, config.WithDefaultValue(h.bridge.ToGoValue(def)))
		}
	}
	if v := L.GetField(spec, "validate"); v != lua.LNil {
		fn, ok := v.(*lua.LFunction)
		if !ok {
			L.RaiseError("config_key %q: validate must be a function", name)
			return 0
		}
		bridge := h.bridge
		opts = append(opts, config.WithValidator(func(value any) bool {
			out, err := bridge.CallFunc(fn, value)
			if err != nil || len(out) == 0 {
				return false
			}
			b, ok := out[0].(bool)
			return ok && b
		}))
	}

	h.declared = append(h.declared, config.NewKey(name, typ, opts...))
	return 0
}

// luaPatch implements modhost.patch{target=, point=, fn=}. It returns the
// patch handle's id.
func (h *Host) luaPatch(L *lua.LState) int {
	spec := L.CheckTable(1)

	kind, err := patch.ParseKind(lua.LVAsString(L.GetField(spec, "point")))
	if err != nil {
		L.RaiseError("patch: %v", err)
		return 0
	}
	p := patch.Patch{
		Owner:    h.info.Name,
		Target:   lua.LVAsString(L.GetField(spec, "target")),
		Kind:     kind,
		Behavior: L.GetField(spec, "fn"),
	}

	handle, err := h.engine.Apply(p)
	if err != nil {
		L.RaiseError("patch: %v", err)
		return 0
	}
	h.handles = append(h.handles, handle)

	L.Push(lua.LString(handle.ID))
	return 1
}

// luaLog implements modhost.log(msg).
func (h *Host) luaLog(L *lua.LState) int {
	h.logger.Info(L.CheckString(1))
	return 0
}

// LoadConfig builds the mod's configuration definition from manifest-declared
// and script-declared keys, then resolves it against the persisted snapshot.
// A store read failure is tolerated: the mod proceeds on defaults. A version
// mismatch under the error policy fails the mod.
func (h *Host) LoadConfig(ctx context.Context, st store.Store) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateFailed {
		return h.err
	}
	if h.state < StateInstantiated {
		return ErrNotInstantiated
	}

	def, err := h.buildDefinition()
	if err != nil {
		return h.fail(StageConfigure, err)
	}
	h.def = def

	var snap *config.Snapshot
	if st != nil {
		snap, err = st.Load(def)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("config snapshot unreadable, using defaults",
				slog.String("mod", h.info.Name),
				slog.Any("error", err))
			snap = nil
		}
	}

	values, err := config.Resolve(def, snap)
	if err != nil {
		return h.fail(StageConfigure, err)
	}

	h.values = values
	if h.state < StateConfigured {
		h.state = StateConfigured
	}
	return nil
}

// buildDefinition merges manifest keys with script-declared keys. Manifest
// keys come first, sorted by name; script keys follow in declaration order.
// A name collision between the two surfaces as a duplicate-key build error.
func (h *Host) buildDefinition() (*config.Definition, error) {
	manifestKeys, err := h.info.Manifest.configKeys()
	if err != nil {
		return nil, err
	}

	b := config.NewBuilder(h.info.Name, h.info.Manifest.Version).
		Policy(h.info.Manifest.Policy()).
		Add(manifestKeys...).
		Add(h.declared...)
	return b.Build()
}

// Ready invokes the mod's optional on_ready hook with the resolved
// configuration. Mods without the hook advance immediately.
func (h *Host) Ready(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateFailed {
		return h.err
	}
	if h.state < StateConfigured {
		return ErrConfigNotLoaded
	}

	if h.vm.HasFunction(hookReady) {
		if _, err := h.vm.Call(hookReady, h.bridge.ToLuaValue(h.values)); err != nil {
			return h.fail(StageHook, fmt.Errorf("%s: %w", hookReady, err))
		}
	}

	h.state = StateHooked
	ctxlog.FromContext(ctx).Debug("mod ready", slog.String("mod", h.info.Name))
	return nil
}

// ReloadConfig re-resolves configuration against the store and notifies the
// mod through on_config_changed when it defines one. The key set is fixed
// after the entry chunk; only values change.
func (h *Host) ReloadConfig(ctx context.Context, st store.Store) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateFailed {
		return h.err
	}
	if h.def == nil {
		return ErrConfigNotLoaded
	}

	var snap *config.Snapshot
	if st != nil {
		var err error
		snap, err = st.Load(h.def)
		if err != nil {
			return fmt.Errorf("reload config for %s: %w", h.info.Name, err)
		}
	}

	values, err := config.Resolve(h.def, snap)
	if err != nil {
		return fmt.Errorf("reload config for %s: %w", h.info.Name, err)
	}
	h.values = values

	if h.vm != nil && h.vm.HasFunction(hookConfigChanged) {
		if _, err := h.vm.Call(hookConfigChanged, h.bridge.ToLuaValue(values)); err != nil {
			return fmt.Errorf("%s for %s: %w", hookConfigChanged, h.info.Name, err)
		}
	}

	ctxlog.FromContext(ctx).Debug("mod config reloaded", slog.String("mod", h.info.Name))
	return nil
}

// SaveConfig persists the mod's current values.
func (h *Host) SaveConfig(st store.Store) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.def == nil {
		return ErrConfigNotLoaded
	}
	return st.Save(h.def, h.values)
}

// Definition returns the frozen configuration definition, or nil before
// LoadConfig ran.
func (h *Host) Definition() *config.Definition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.def
}

// Values returns a copy of the resolved configuration values.
func (h *Host) Values() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}

// Value looks up one resolved configuration value.
func (h *Host) Value(name string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[name]
	return v, ok
}

// Handles returns the patch handles this mod holds, in application order.
func (h *Host) Handles() []patch.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]patch.Handle, len(h.handles))
	copy(out, h.handles)
	return out
}

// Call invokes a global function in the mod's state with Go arguments.
func (h *Host) Call(fn string, args ...any) ([]lua.LValue, error) {
	h.mu.Lock()
	vm, bridge := h.vm, h.bridge
	h.mu.Unlock()

	if vm == nil {
		return nil, ErrNotInstantiated
	}
	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		luaArgs[i] = bridge.ToLuaValue(a)
	}
	return vm.Call(fn, luaArgs...)
}

// HasFunction reports whether the mod defines a global function.
func (h *Host) HasFunction(name string) bool {
	h.mu.Lock()
	vm := h.vm
	h.mu.Unlock()

	return vm != nil && vm.HasFunction(name)
}

// Close runs the mod's optional on_unload hook and releases its Lua state.
// Close is idempotent.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.vm == nil {
		return nil
	}
	if h.vm.HasFunction(hookUnload) {
		if _, err := h.vm.Call(hookUnload); err != nil {
			h.logger.Warn("unload hook failed", slog.Any("error", err))
		}
	}
	err := h.vm.Close()
	h.vm = nil
	h.bridge = nil
	return err
}
