// Package engine implements the home-automation rule engine core: it binds
// rules to handler implementations discovered at runtime, tracks readiness
// as handlers and type definitions come and go, evaluates rules when
// triggers fire, and reports status changes to an observer.
package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/openhab-automation/ruleengine/internal/logger"
	"github.com/openhab-automation/ruleengine/rules"
)

// activation is the engine's private bookkeeping for one registered rule:
// its canonical copy, accumulated execution context, and trigger callback.
type activation struct {
	rule    *rules.Rule
	execCtx *rules.ExecutionContext
	cb      *triggerCallback
}

// Engine is the rule engine core. The zero value is not usable; construct
// one with New.
type Engine struct {
	mu sync.Mutex

	moduleTypeRegistry rules.ModuleTypeRegistry
	templateRegistry   rules.TemplateRegistry
	observer           rules.StatusObserver

	activations map[string]*activation
	status      map[string]rules.StatusInfo
	scopes      map[string]string

	typeFactories map[string]rules.ModuleHandlerFactory
	composite     *compositeFactory

	moduleTypeIndex map[string]map[string]struct{}
	templateIndex   map[string]map[string]struct{}

	idGen *rules.IDGenerator

	disposed bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithModuleTypeRegistry supplies the module-type schema registry used by
// the connection validator. Omit it to run without schema validation.
func WithModuleTypeRegistry(reg rules.ModuleTypeRegistry) Option {
	return func(e *Engine) { e.moduleTypeRegistry = reg }
}

// WithTemplateRegistry supplies the template registry consulted for
// template-bound rules.
func WithTemplateRegistry(reg rules.TemplateRegistry) Option {
	return func(e *Engine) { e.templateRegistry = reg }
}

// WithStatusObserver installs the single observer notified of every status
// transition.
func WithStatusObserver(obs rules.StatusObserver) Option {
	return func(e *Engine) { e.observer = obs }
}

// New constructs an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		activations:     make(map[string]*activation),
		status:          make(map[string]rules.StatusInfo),
		scopes:          make(map[string]string),
		typeFactories:   make(map[string]rules.ModuleHandlerFactory),
		moduleTypeIndex: make(map[string]map[string]struct{}),
		templateIndex:   make(map[string]map[string]struct{}),
		idGen:           rules.NewIDGenerator(nil),
	}
	e.composite = &compositeFactory{engine: e}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add deep-copies rule, assigns it a UID if unset, stores it under the
// given scope, and schedules initialization. Returns the (possibly
// generated) UID.
func (e *Engine) Add(rule *rules.Rule, scope string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return "", rules.ErrEngineDisposed
	}
	if err := validateModuleTypeUIDs(rule); err != nil {
		return "", err
	}

	cp := rule.Clone()
	if cp.UID == "" {
		cp.UID = e.idGen.Next()
	} else if _, exists := e.activations[cp.UID]; exists {
		return "", rules.ErrDuplicateRuleUID
	}
	e.idGen.Seed([]string{cp.UID})

	act := &activation{rule: cp, execCtx: rules.NewExecutionContext()}
	e.activations[cp.UID] = act
	e.scopes[cp.UID] = scope
	e.setStatusLocked(cp.UID, rules.NotInitialized(rules.StatusDetailNone, ""))

	e.bindLocked(cp.UID)
	return cp.UID, nil
}

// Update replaces the rule stored under rule.UID with a new canonical copy,
// tearing down the prior activation before re-binding.
func (e *Engine) Update(rule *rules.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return rules.ErrEngineDisposed
	}
	if _, ok := e.activations[rule.UID]; !ok {
		return rules.ErrRuleNotFound
	}
	if err := validateModuleTypeUIDs(rule); err != nil {
		return err
	}

	e.teardownLocked(rule.UID)

	cp := rule.Clone()
	act := &activation{rule: cp, execCtx: rules.NewExecutionContext()}
	e.activations[rule.UID] = act
	e.setStatusLocked(rule.UID, rules.NotInitialized(rules.StatusDetailNone, ""))
	e.bindLocked(rule.UID)
	return nil
}

// Remove tears down and deletes the rule, returning whether one existed.
func (e *Engine) Remove(uid string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.activations[uid]; !ok {
		return false
	}
	e.teardownLocked(uid)
	delete(e.activations, uid)
	delete(e.status, uid)
	delete(e.scopes, uid)
	e.pruneIndexesLocked(uid)
	return true
}

// Get returns a defensive copy of the rule, or false if it does not exist.
func (e *Engine) Get(uid string) (*rules.Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	act, ok := e.activations[uid]
	if !ok {
		return nil, false
	}
	return act.rule.Clone(), true
}

// GetAll returns defensive copies of every registered rule.
func (e *Engine) GetAll() []*rules.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*rules.Rule, 0, len(e.activations))
	for _, act := range e.activations {
		out = append(out, act.rule.Clone())
	}
	return out
}

// GetByTag returns defensive copies of every rule carrying tag.
func (e *Engine) GetByTag(tag string) []*rules.Rule {
	return e.filter(func(r *rules.Rule) bool { return r.Tags.Has(tag) })
}

// GetByTags returns defensive copies of every rule carrying at least one of
// tags (any-of match).
func (e *Engine) GetByTags(tags rules.TagSet) []*rules.Rule {
	return e.filter(func(r *rules.Rule) bool { return r.Tags.HasAny(tags) })
}

func (e *Engine) filter(pred func(*rules.Rule) bool) []*rules.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*rules.Rule
	for _, act := range e.activations {
		if pred(act.rule) {
			out = append(out, act.rule.Clone())
		}
	}
	return out
}

// GetStatus returns the rule's current status, or false if it does not
// exist.
func (e *Engine) GetStatus(uid string) (rules.StatusInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, ok := e.status[uid]
	return info, ok
}

// SetEnabled disables or (re-)enables a rule. Disabling tears down its
// activation and sets DISABLED directly, skipping the NOT_INITIALIZED
// intermediate step; enabling from DISABLED drives initialization.
func (e *Engine) SetEnabled(uid string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.activations[uid]; !ok {
		return rules.ErrRuleNotFound
	}
	cur := e.status[uid]

	if !enabled {
		e.teardownLocked(uid)
		e.setStatusLocked(uid, rules.Disabled())
		return nil
	}

	if cur.Status != rules.StatusDisabled {
		logger.Debug("setEnabled(true) on rule not disabled, ignoring", "rule", uid, "status", cur.Status)
		return nil
	}
	e.setStatusLocked(uid, rules.NotInitialized(rules.StatusDetailNone, ""))
	e.bindLocked(uid)
	return nil
}

// GetScopeIdentifiers returns the set of distinct non-empty scope
// identifiers across all currently registered rules.
func (e *Engine) GetScopeIdentifiers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]struct{})
	for _, scope := range e.scopes {
		if scope != "" {
			seen[scope] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	return out
}

// Dispose closes all subscriptions, tears down every rule releasing
// handlers through their factories, clears status, and makes the engine a
// one-way terminal state: further mutations are no-ops.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	for uid := range e.activations {
		e.teardownLocked(uid)
	}
	e.activations = make(map[string]*activation)
	e.status = make(map[string]rules.StatusInfo)
	e.scopes = make(map[string]string)
	e.moduleTypeIndex = make(map[string]map[string]struct{})
	e.templateIndex = make(map[string]map[string]struct{})
	e.typeFactories = make(map[string]rules.ModuleHandlerFactory)
	e.disposed = true
}

func validateModuleTypeUIDs(rule *rules.Rule) error {
	for _, m := range rule.Modules() {
		if m.TypeUID() == "" {
			return fmt.Errorf("module %q: %w", m.ID(), rules.ErrInvalidTypeUID)
		}
	}
	return nil
}

// newCorrelationID stamps one trigger firing for log correlation.
func newCorrelationID() string {
	return uuid.NewString()
}
