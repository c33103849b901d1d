// Package rules defines the data model shared by the rule engine core: rules,
// their trigger/condition/action modules, module types, templates, handler
// contracts, and the narrow interfaces (§6) the engine uses to reach the
// module-type registry, template registry, and handler factories owned by
// the surrounding application.
package rules

import (
	"maps"
	"time"

	"github.com/openhab-automation/ruleengine/rules/dataflow"
)

// Connection is a directed link from a source module's named output to a
// target module's named input, declared on a Condition or Action.
type Connection = dataflow.Connection

// ModuleKind distinguishes the three module variants a rule is built from.
type ModuleKind int

const (
	KindTrigger ModuleKind = iota
	KindCondition
	KindAction
)

func (k ModuleKind) String() string {
	switch k {
	case KindTrigger:
		return "trigger"
	case KindCondition:
		return "condition"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// Module is the common shape of a Trigger, Condition, or Action within a
// rule: an ID unique within that rule, a module-type UID, and a
// configuration map.
type Module interface {
	ID() string
	TypeUID() string
	Configuration() map[string]any
	Kind() ModuleKind
	clone() Module
}

// Trigger is a value-producing module with no inputs. Its outputs are
// staged by the executor on each firing and read by connected modules.
type Trigger struct {
	Id     string
	Type   string
	Config map[string]any

	outputs map[string]any
	handler TriggerHandler
}

func NewTrigger(id, typeUID string, config map[string]any) *Trigger {
	return &Trigger{Id: id, Type: typeUID, Config: config}
}

func (t *Trigger) ID() string                    { return t.Id }
func (t *Trigger) TypeUID() string               { return t.Type }
func (t *Trigger) Configuration() map[string]any { return t.Config }
func (t *Trigger) Kind() ModuleKind              { return KindTrigger }
func (t *Trigger) Handler() TriggerHandler       { return t.handler }
func (t *Trigger) SetHandler(h TriggerHandler)   { t.handler = h }

// Output implements dataflow.OutputSource: it returns the value most
// recently staged for name, or false if that output has never fired.
func (t *Trigger) Output(name string) (any, bool) {
	v, ok := t.outputs[name]
	return v, ok
}

// SetOutputs stages a fresh set of output values, replacing any previous
// values with the same names.
func (t *Trigger) SetOutputs(outputs map[string]any) {
	if t.outputs == nil {
		t.outputs = make(map[string]any, len(outputs))
	}
	maps.Copy(t.outputs, outputs)
}

func (t *Trigger) clone() Module {
	cp := &Trigger{Id: t.Id, Type: t.Type, Config: cloneMap(t.Config)}
	if len(t.outputs) > 0 {
		cp.outputs = cloneMap(t.outputs)
	}
	return cp
}

// Condition is a boolean gate: it consumes inputs resolved from
// connections plus the rule's execution context and never publishes
// outputs.
type Condition struct {
	Id          string
	Type        string
	Config      map[string]any
	Connections []Connection

	handler ConditionHandler
	bound   map[string]*dataflow.OutputRef
}

func NewCondition(id, typeUID string, config map[string]any, connections []Connection) *Condition {
	return &Condition{Id: id, Type: typeUID, Config: config, Connections: connections}
}

func (c *Condition) ID() string                    { return c.Id }
func (c *Condition) TypeUID() string               { return c.Type }
func (c *Condition) Configuration() map[string]any { return c.Config }
func (c *Condition) Kind() ModuleKind              { return KindCondition }
func (c *Condition) Handler() ConditionHandler     { return c.handler }
func (c *Condition) SetHandler(h ConditionHandler) { c.handler = h }

// Bound reports the connection bindings resolved for this condition, if
// any have been resolved yet, and whether resolution has happened at all.
func (c *Condition) Bound() (map[string]*dataflow.OutputRef, bool) {
	return c.bound, c.bound != nil
}

// SetBound caches the resolved connection bindings so later firings reuse
// them instead of re-resolving on every evaluation.
func (c *Condition) SetBound(bound map[string]*dataflow.OutputRef) {
	c.bound = bound
}

func (c *Condition) clone() Module {
	return &Condition{
		Id:          c.Id,
		Type:        c.Type,
		Config:      cloneMap(c.Config),
		Connections: append([]Connection(nil), c.Connections...),
	}
}

// Action is a value-producing module with inputs: it consumes resolved
// inputs and the execution context, performs an effect, and may publish
// named outputs visible to later actions in the same rule.
type Action struct {
	Id          string
	Type        string
	Config      map[string]any
	Connections []Connection

	handler ActionHandler
	bound   map[string]*dataflow.OutputRef
	outputs map[string]any
}

func NewAction(id, typeUID string, config map[string]any, connections []Connection) *Action {
	return &Action{Id: id, Type: typeUID, Config: config, Connections: connections}
}

func (a *Action) ID() string                    { return a.Id }
func (a *Action) TypeUID() string               { return a.Type }
func (a *Action) Configuration() map[string]any { return a.Config }
func (a *Action) Kind() ModuleKind              { return KindAction }
func (a *Action) Handler() ActionHandler        { return a.handler }
func (a *Action) SetHandler(h ActionHandler)    { a.handler = h }

func (a *Action) Bound() (map[string]*dataflow.OutputRef, bool) {
	return a.bound, a.bound != nil
}

func (a *Action) SetBound(bound map[string]*dataflow.OutputRef) {
	a.bound = bound
}

// Output implements dataflow.OutputSource so later actions in the same
// rule can connect to this action's published outputs.
func (a *Action) Output(name string) (any, bool) {
	v, ok := a.outputs[name]
	return v, ok
}

func (a *Action) SetOutputs(outputs map[string]any) {
	if a.outputs == nil {
		a.outputs = make(map[string]any, len(outputs))
	}
	maps.Copy(a.outputs, outputs)
}

func (a *Action) clone() Module {
	cp := &Action{
		Id:          a.Id,
		Type:        a.Type,
		Config:      cloneMap(a.Config),
		Connections: append([]Connection(nil), a.Connections...),
	}
	if len(a.outputs) > 0 {
		cp.outputs = cloneMap(a.outputs)
	}
	return cp
}

// TagSet is an unordered, deduplicated collection of rule tags.
type TagSet map[string]struct{}

func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// HasAny reports whether s contains at least one tag from other (any-of).
func (s TagSet) HasAny(other TagSet) bool {
	for t := range other {
		if s.Has(t) {
			return true
		}
	}
	return false
}

func (s TagSet) Clone() TagSet {
	return maps.Clone(s)
}

func (s TagSet) Slice() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// Rule is an ordered composition of triggers, conditions, and actions with
// configuration and metadata. A rule is either template-bound (its modules
// are derived on demand from a RuleTemplate) or self-contained.
type Rule struct {
	UID           string
	Name          string
	TemplateUID   string
	Triggers      []*Trigger
	Conditions    []*Condition
	Actions       []*Action
	Configuration map[string]any
	Tags          TagSet
	Scope         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the rule, satisfying the defensive-copy law:
// mutating the returned rule never affects the engine's canonical copy, and
// vice versa.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	cp := &Rule{
		UID:           r.UID,
		Name:          r.Name,
		TemplateUID:   r.TemplateUID,
		Configuration: cloneMap(r.Configuration),
		Tags:          r.Tags.Clone(),
		Scope:         r.Scope,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for _, t := range r.Triggers {
		cp.Triggers = append(cp.Triggers, t.clone().(*Trigger))
	}
	for _, c := range r.Conditions {
		cp.Conditions = append(cp.Conditions, c.clone().(*Condition))
	}
	for _, a := range r.Actions {
		cp.Actions = append(cp.Actions, a.clone().(*Action))
	}
	return cp
}

// Module looks up a module of any kind by ID within the rule.
func (r *Rule) Module(id string) (Module, bool) {
	for _, t := range r.Triggers {
		if t.Id == id {
			return t, true
		}
	}
	for _, c := range r.Conditions {
		if c.Id == id {
			return c, true
		}
	}
	for _, a := range r.Actions {
		if a.Id == id {
			return a, true
		}
	}
	return nil, false
}

// Modules returns every module in the rule, in trigger/condition/action
// declaration order.
func (r *Rule) Modules() []Module {
	mods := make([]Module, 0, len(r.Triggers)+len(r.Conditions)+len(r.Actions))
	for _, t := range r.Triggers {
		mods = append(mods, t)
	}
	for _, c := range r.Conditions {
		mods = append(mods, c)
	}
	for _, a := range r.Actions {
		mods = append(mods, a)
	}
	return mods
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
