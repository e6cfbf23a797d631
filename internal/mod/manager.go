package mod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/modhost/internal/config/store"
	"github.com/dshills/modhost/internal/ctxlog"
	"github.com/dshills/modhost/internal/depgraph"
	"github.com/dshills/modhost/internal/fanout"
	"github.com/dshills/modhost/internal/patch"
)

// EventType classifies manager events.
type EventType int

const (
	// EventLoaded - a mod completed the full lifecycle.
	EventLoaded EventType = iota

	// EventFailed - a mod failed at some stage.
	EventFailed

	// EventUnloaded - a mod was closed and removed.
	EventUnloaded

	// EventConfigReloaded - a mod's configuration was re-resolved.
	EventConfigReloaded
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventFailed:
		return "failed"
	case EventUnloaded:
		return "unloaded"
	case EventConfigReloaded:
		return "config-reloaded"
	default:
		return "unknown"
	}
}

// Event describes one mod lifecycle transition.
type Event struct {
	Type EventType
	Mod  string
	Err  error
}

// Manager orchestrates the mod lifecycle: discovery, instantiation,
// configuration, registration, dependency-ordered ready hooks, and patch
// conflict reporting. Registration is keyed by mod name; the first mod to
// claim a name keeps it.
type Manager struct {
	loader *Loader
	store  store.Store
	engine patch.Engine
	logger *slog.Logger

	mu    sync.RWMutex
	hosts map[string]*Host
	order []string

	events fanout.Group[Event]
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the configuration persistence backend. Without one, mods
// run on defaults and SaveConfig fails.
func WithStore(s store.Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithEngine sets the patch engine. The default is a recording engine that
// applies nothing.
func WithEngine(e patch.Engine) Option {
	return func(m *Manager) {
		m.engine = e
	}
}

// WithSearchPaths replaces the default mod search paths.
func WithSearchPaths(paths ...string) Option {
	return func(m *Manager) {
		m.loader = NewLoader(WithPaths(paths...))
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// New creates a manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		loader: NewLoader(),
		engine: patch.NewRecorder(),
		logger: slog.Default(),
		hosts:  make(map[string]*Host),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// pending tracks one discovered artifact through the load pass.
type pending struct {
	info   *Info
	host   *Host
	status ModStatus
}

// LoadAll runs one full load pass and returns its report. Only a failure to
// enumerate mod artifacts is fatal; everything after discovery isolates each
// mod's failure from its siblings, so the pass always completes and the
// report accounts for every artifact found.
func (m *Manager) LoadAll(ctx context.Context) (*Report, error) {
	log := ctxlog.FromContext(ctx)

	infos, err := m.loader.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover mods: %w", err)
	}
	log.Info("mod artifacts discovered", slog.Int("count", len(infos)))

	results := make([]*pending, 0, len(infos))
	for _, info := range infos {
		results = append(results, m.loadOne(ctx, info))
	}

	report := &Report{}
	m.runReadyHooks(ctx, report)

	for _, p := range results {
		if p.host != nil {
			p.status = m.statusOf(p.host)
		}
		report.Mods = append(report.Mods, p.status)

		switch p.status.State {
		case StateHooked:
			_ = m.events.Invoke(Event{Type: EventLoaded, Mod: p.status.Name})
		case StateFailed:
			_ = m.events.Invoke(Event{Type: EventFailed, Mod: p.status.Name, Err: p.status.Err})
		}
	}

	report.Conflicts = patch.Conflicts(m.allHandles())

	log.Info("load pass complete",
		slog.Int("hooked", report.Hooked()),
		slog.Int("failed", len(report.Failed())),
		slog.Int("conflicts", len(report.Conflicts)))
	return report, nil
}

// loadOne takes one artifact through instantiation, configuration, and
// registration. Failures stop the mod, never the pass.
func (m *Manager) loadOne(ctx context.Context, info *Info) *pending {
	p := &pending{info: info}

	if info.Err != nil {
		p.status = ModStatus{
			Name:  info.Name,
			Dir:   info.Dir,
			State: StateFailed,
			Stage: StageDiscover,
			Err:   info.Err,
		}
		return p
	}

	host, err := NewHost(info, m.engine, m.logger)
	if err != nil {
		p.status = ModStatus{
			Name:  info.Name,
			Dir:   info.Dir,
			Hash:  info.Hash,
			State: StateFailed,
			Stage: StageInstantiate,
			Err:   err,
		}
		return p
	}

	if err := host.Instantiate(ctx); err != nil {
		p.host = host
		return p
	}
	if err := host.LoadConfig(ctx, m.store); err != nil {
		p.host = host
		return p
	}

	m.mu.Lock()
	if _, taken := m.hosts[host.Name()]; taken {
		m.mu.Unlock()
		_ = host.Close()
		p.status = ModStatus{
			Name:  info.Name,
			Dir:   info.Dir,
			Hash:  info.Hash,
			State: StateFailed,
			Stage: StageRegister,
			Err:   fmt.Errorf("%w: %q", ErrDuplicateName, host.Name()),
		}
		return p
	}
	m.hosts[host.Name()] = host
	m.order = append(m.order, host.Name())
	m.mu.Unlock()

	p.host = host
	return p
}

// runReadyHooks orders registered mods by their dependencies and invokes
// every ready hook. A dependency cycle aborts hooks for the whole pass; a
// failing hook fails only its mod.
//
// A dependency that names no registered mod is treated as satisfied by the
// host application and imposes no ordering.
func (m *Manager) runReadyHooks(ctx context.Context, report *Report) {
	hosts := m.List()
	if len(hosts) == 0 {
		return
	}

	ordered, err := depgraph.Sort[string](hosts)
	if err != nil {
		report.OrderErr = err
		ctxlog.FromContext(ctx).Error("hook ordering failed, skipping ready hooks",
			slog.Any("error", err))
		return
	}

	handlers := make([]fanout.Handler[context.Context], len(ordered))
	for i, h := range ordered {
		host := h
		handlers[i] = func(ctx context.Context) error {
			if err := host.Ready(ctx); err != nil {
				return fmt.Errorf("%s: %w", host.Name(), err)
			}
			return nil
		}
	}
	report.HookErr = fanout.Invoke(handlers, ctx)
}

// statusOf snapshots a host into a report entry.
func (m *Manager) statusOf(h *Host) ModStatus {
	s := ModStatus{
		Name:  h.Name(),
		Dir:   h.info.Dir,
		Hash:  h.info.Hash,
		State: h.State(),
	}
	if stage, err, failed := h.Failure(); failed {
		s.Stage = stage
		s.Err = err
	}
	return s
}

// allHandles collects patch handles from every registered mod in
// registration order.
func (m *Manager) allHandles() []patch.Handle {
	var handles []patch.Handle
	for _, h := range m.List() {
		handles = append(handles, h.Handles()...)
	}
	return handles
}

// Get returns a registered mod by name.
func (m *Manager) Get(name string) (*Host, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hosts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModNotFound, name)
	}
	return h, nil
}

// List returns registered mods in registration order.
func (m *Manager) List() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Host, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.hosts[name])
	}
	return out
}

// Count returns the number of registered mods.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hosts)
}

// Subscribe registers a lifecycle event handler and returns a function that
// removes it.
func (m *Manager) Subscribe(h fanout.Handler[Event]) func() {
	return m.events.Subscribe(h)
}

// SaveConfig persists one mod's current configuration values.
func (m *Manager) SaveConfig(name string) error {
	if m.store == nil {
		return fmt.Errorf("save config for %q: no store configured", name)
	}
	h, err := m.Get(name)
	if err != nil {
		return err
	}
	return h.SaveConfig(m.store)
}

// ReloadConfig re-resolves one mod's configuration from the store and
// notifies the mod.
func (m *Manager) ReloadConfig(ctx context.Context, name string) error {
	h, err := m.Get(name)
	if err != nil {
		return err
	}
	if err := h.ReloadConfig(ctx, m.store); err != nil {
		_ = m.events.Invoke(Event{Type: EventFailed, Mod: name, Err: err})
		return err
	}
	_ = m.events.Invoke(Event{Type: EventConfigReloaded, Mod: name})
	return nil
}

// Unload closes one mod and removes it from the registry.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	h, ok := m.hosts[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrModNotFound, name)
	}
	delete(m.hosts, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	err := h.Close()
	_ = m.events.Invoke(Event{Type: EventUnloaded, Mod: name, Err: err})
	return err
}

// UnloadAll closes every mod in reverse registration order, so dependents
// unload before their dependencies.
func (m *Manager) UnloadAll() error {
	m.mu.Lock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	hosts := make([]*Host, len(names))
	for i, n := range names {
		hosts[i] = m.hosts[n]
	}
	m.hosts = make(map[string]*Host)
	m.order = nil
	m.mu.Unlock()

	var errs []error
	for i := len(hosts) - 1; i >= 0; i-- {
		err := hosts[i].Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", names[i], err))
		}
		_ = m.events.Invoke(Event{Type: EventUnloaded, Mod: names[i], Err: err})
	}
	return errors.Join(errs...)
}
