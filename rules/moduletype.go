package rules

import (
	"fmt"
	"sync"
)

// Input describes one named input a Condition or Action module type accepts.
type Input struct {
	Name     string
	Type     string
	Required bool
}

// Output describes one named output a Trigger or Action module type
// publishes.
type Output struct {
	Name string
	Type string
}

// ConfigDescription describes one configuration key a module type accepts.
type ConfigDescription struct {
	Name     string
	Type     string
	Required bool
	Default  any
}

// ModuleType is the schema for a system or composite custom module type,
// identified by a UID of the form "T" (system) or "T:C" (composite custom,
// where T is the system parent that determines factory routing).
type ModuleType struct {
	UID                string
	Kind               ModuleKind
	Inputs             []Input
	Outputs            []Output
	ConfigDescriptions []ConfigDescription
}

// ModuleTypeRegistry is the narrow, out-of-scope collaborator the binder and
// connection validator consult to resolve a module's declared schema. Owned
// and populated by the surrounding application; the engine only reads it.
type ModuleTypeRegistry interface {
	GetType(uid, locale string) (*ModuleType, bool)
	GetTypes(filter func(*ModuleType) bool, locale string) []*ModuleType
}

// RuleTemplate is a named, reusable rule body. Expansion substitutes
// "${name}" references in its modules' configurations with the concrete
// rule's own configuration values.
type RuleTemplate struct {
	UID           string
	Triggers      []*Trigger
	Conditions    []*Condition
	Actions       []*Action
	Configuration map[string]any
	Tags          TagSet
}

// TemplateRegistry is the narrow, out-of-scope collaborator the template
// expander consults to resolve a rule's declared template UID.
type TemplateRegistry interface {
	Get(uid string) (*RuleTemplate, bool)
}

// InMemoryModuleTypeRegistry is a reference ModuleTypeRegistry: a
// deployment that declares its module types in code (rather than
// discovering them from a plugin bundle) registers them here. Register
// rejects malformed types up front rather than letting a typo surface
// later as a confusing connection-validation failure.
type InMemoryModuleTypeRegistry struct {
	mu    sync.RWMutex
	types map[string]*ModuleType
}

func NewInMemoryModuleTypeRegistry() *InMemoryModuleTypeRegistry {
	return &InMemoryModuleTypeRegistry{types: make(map[string]*ModuleType)}
}

func (r *InMemoryModuleTypeRegistry) Register(mt *ModuleType) error {
	if err := ValidateModuleType(mt); err != nil {
		return fmt.Errorf("moduletype: register: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[mt.UID] = mt
	return nil
}

func (r *InMemoryModuleTypeRegistry) GetType(uid, locale string) (*ModuleType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mt, ok := r.types[uid]
	return mt, ok
}

func (r *InMemoryModuleTypeRegistry) GetTypes(filter func(*ModuleType) bool, locale string) []*ModuleType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ModuleType
	for _, mt := range r.types {
		if filter == nil || filter(mt) {
			out = append(out, mt)
		}
	}
	return out
}
