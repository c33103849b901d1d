// Package celhandler is a reference ModuleHandlerFactory: the kind of
// factory a real deployment registers with the engine. It implements
// condition and action modules by compiling a CEL expression out of the
// module's "expression" configuration key and evaluating it against the
// merged input snapshot the executor hands it.
package celhandler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/openhab-automation/ruleengine/rules"
)

// TypeCondition and TypeAction are the module type UIDs this factory
// claims when registered with an engine.
const (
	TypeCondition = "cel.Condition"
	TypeAction    = "cel.Action"
)

// Factory compiles and caches CEL programs keyed by rule and module, so a
// rule that fires repeatedly does not recompile its expressions on every
// firing.
type Factory struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// New builds a Factory with a CEL environment exposing the merged input
// snapshot as a single dynamic variable named "input", e.g. an expression of
// "input.temperature > 20".
func New() (*Factory, error) {
	env, err := cel.NewEnv(cel.Variable("input", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("celhandler: creating CEL environment: %w", err)
	}
	return &Factory{env: env, programs: make(map[string]cel.Program)}, nil
}

func (f *Factory) Types() []string { return []string{TypeCondition, TypeAction} }

func (f *Factory) GetHandler(m rules.Module, ruleUID string) (rules.ModuleHandler, error) {
	expr, ok := m.Configuration()["expression"].(string)
	if !ok || expr == "" {
		return nil, fmt.Errorf("celhandler: module %q has no string \"expression\" configuration", m.ID())
	}

	prog, err := f.compile(cacheKey(ruleUID, m.ID()), expr)
	if err != nil {
		return nil, fmt.Errorf("celhandler: compiling module %q: %w", m.ID(), err)
	}

	switch m.Kind() {
	case rules.KindCondition:
		return &conditionHandler{moduleID: m.ID(), prog: prog}, nil
	case rules.KindAction:
		return &actionHandler{moduleID: m.ID(), prog: prog}, nil
	default:
		return nil, fmt.Errorf("celhandler: module %q has unsupported kind %v", m.ID(), m.Kind())
	}
}

func (f *Factory) UngetHandler(m rules.Module, ruleUID string, h rules.ModuleHandler) {
	f.mu.Lock()
	delete(f.programs, cacheKey(ruleUID, m.ID()))
	f.mu.Unlock()
}

func (f *Factory) compile(key, expr string) (cel.Program, error) {
	f.mu.Lock()
	if prog, ok := f.programs[key]; ok {
		f.mu.Unlock()
		return prog, nil
	}
	f.mu.Unlock()

	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prog, err := f.env.Program(ast, cel.EvalOptions(cel.OptTrackState), cel.CostLimit(1000000))
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.programs[key] = prog
	f.mu.Unlock()
	return prog, nil
}

func cacheKey(ruleUID, moduleID string) string { return ruleUID + "/" + moduleID }

type conditionHandler struct {
	moduleID string
	prog     cel.Program
}

func (h *conditionHandler) IsSatisfied(ctx context.Context, inputs map[string]any) bool {
	out, _, err := h.prog.Eval(map[string]any{"input": inputs})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}

func (h *conditionHandler) Dispose() {}

type actionHandler struct {
	moduleID string
	prog     cel.Program
}

// Execute publishes the expression's result under the output name
// "result", so downstream modules can wire a connection to it.
func (h *actionHandler) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	out, _, err := h.prog.Eval(map[string]any{"input": inputs})
	if err != nil {
		return nil, fmt.Errorf("celhandler: evaluating module %q: %w", h.moduleID, err)
	}
	return map[string]any{"result": out.Value()}, nil
}

func (h *actionHandler) Dispose() {}
