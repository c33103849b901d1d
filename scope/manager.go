package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/openhab-automation/ruleengine/engine"
	"github.com/openhab-automation/ruleengine/rules"
)

// Manager owns one engine.Engine per scope and keeps the directory of
// known scopes in sync with which engines are currently loaded. Rule
// UIDs generated by an engine are only unique within that engine, so
// handler factories that cache state by rule UID (celhandler's compiled
// program cache, for instance) must not be shared across scopes; Manager
// asks newFactories to build a fresh set for every scope it creates.
type Manager struct {
	dir          Directory
	engineOpts   func() []engine.Option
	newFactories func() []rules.ModuleHandlerFactory

	mu      sync.RWMutex
	engines map[string]*engine.Engine
}

// NewManager builds a Manager. engineOpts and newFactories may be nil;
// when nil, scopes get a bare engine.New() with no factories registered.
func NewManager(dir Directory, engineOpts func() []engine.Option, newFactories func() []rules.ModuleHandlerFactory) *Manager {
	return &Manager{
		dir:          dir,
		engineOpts:   engineOpts,
		newFactories: newFactories,
		engines:      make(map[string]*engine.Engine),
	}
}

// LoadAll instantiates an engine for every scope already present in the
// directory. Call this once at startup.
func (m *Manager) LoadAll(ctx context.Context) error {
	records, err := m.dir.List(ctx)
	if err != nil {
		return fmt.Errorf("scope: loading directory: %w", err)
	}
	for _, rec := range records {
		m.mountEngine(rec.ID)
	}
	return nil
}

// CreateScope registers a new scope in the directory and mounts a fresh
// engine for it.
func (m *Manager) CreateScope(ctx context.Context, id, displayName string) error {
	if _, err := m.dir.Create(ctx, id, displayName); err != nil {
		return err
	}
	m.mountEngine(id)
	return nil
}

// GetEngine returns the engine mounted for a scope.
func (m *Manager) GetEngine(id string) (*engine.Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[id]
	return e, ok
}

// DeleteScope disposes the scope's engine and removes it from the
// directory.
func (m *Manager) DeleteScope(ctx context.Context, id string) error {
	if err := m.dir.Delete(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	e, ok := m.engines[id]
	delete(m.engines, id)
	m.mu.Unlock()

	if ok {
		e.Dispose()
	}
	return nil
}

// ListScopes returns every known scope, mounted or not.
func (m *Manager) ListScopes(ctx context.Context) ([]Record, error) {
	return m.dir.List(ctx)
}

func (m *Manager) mountEngine(id string) {
	var opts []engine.Option
	if m.engineOpts != nil {
		opts = m.engineOpts()
	}
	e := engine.New(opts...)

	if m.newFactories != nil {
		for _, f := range m.newFactories() {
			e.RegisterHandlerFactory(f)
		}
	}

	m.mu.Lock()
	m.engines[id] = e
	m.mu.Unlock()
}
