package engine

import (
	"fmt"
	"strings"

	"github.com/openhab-automation/ruleengine/internal/logger"
	"github.com/openhab-automation/ruleengine/rules"
	"github.com/openhab-automation/ruleengine/rules/ruletemplate"
)

// bindLocked attempts to bring ruleUID from NOT_INITIALIZED to IDLE. It
// must be called with e.mu held.
func (e *Engine) bindLocked(ruleUID string) {
	act, ok := e.activations[ruleUID]
	if !ok {
		return
	}
	rule := act.rule

	if rule.TemplateUID != "" && !e.expandTemplateLocked(ruleUID, rule) {
		return
	}

	var errs strings.Builder
	var bound []boundModule

	bindKind := func(mods []rules.Module) {
		for _, m := range mods {
			e.indexModuleTypeLocked(m.TypeUID(), ruleUID)

			factory, ok := e.resolveFactoryLocked(m.TypeUID())
			if !ok {
				logger.HandlerMissing(ruleUID, m.ID(), m.TypeUID())
				appendBindError(&errs, m, fmt.Errorf("no handler factory registered for type %q", m.TypeUID()))
				continue
			}
			handler, err := factory.GetHandler(m, ruleUID)
			if err != nil {
				appendBindError(&errs, m, err)
				continue
			}
			if handler == nil {
				appendBindError(&errs, m, fmt.Errorf("factory returned no handler for type %q", m.TypeUID()))
				continue
			}
			if !attachHandler(m, handler) {
				appendBindError(&errs, m, fmt.Errorf("factory returned a handler of the wrong kind for type %q", m.TypeUID()))
				factory.UngetHandler(m, ruleUID, handler)
				continue
			}
			bound = append(bound, boundModule{module: m, handler: handler, factory: factory})
		}
	}

	bindKind(conditionModules(rule))
	bindKind(actionModules(rule))
	bindKind(triggerModules(rule))

	if errs.Len() > 0 {
		releaseBound(bound, ruleUID)
		logger.BindingFailed(ruleUID, errs.String())
		e.setStatusLocked(ruleUID, rules.NotInitialized(rules.DetailHandlerInitializingError, errs.String()))
		return
	}

	if msgs := validateConnections(rule, e.moduleTypeRegistry); len(msgs) > 0 {
		releaseBound(bound, ruleUID)
		joined := strings.Join(msgs, "\n")
		logger.BindingFailed(ruleUID, joined)
		e.setStatusLocked(ruleUID, rules.NotInitialized(rules.DetailHandlerInitializingError, joined))
		return
	}

	if act.cb == nil {
		act.cb = newTriggerCallback(e, ruleUID)
	} else {
		act.cb.detached.Store(false)
	}
	for _, t := range rule.Triggers {
		if h := t.Handler(); h != nil {
			h.SetCallback(act.cb)
		}
	}
	e.setStatusLocked(ruleUID, rules.Idle())
}

// expandTemplateLocked resolves rule's template reference, expanding its
// modules in place. Returns false (and sets a NOT_INITIALIZED status) when
// the template is not yet available, meaning binding must stop here.
func (e *Engine) expandTemplateLocked(ruleUID string, rule *rules.Rule) bool {
	if e.templateRegistry == nil {
		e.indexTemplateLocked(rule.TemplateUID, ruleUID)
		e.setStatusLocked(ruleUID, rules.NotInitialized(rules.DetailTemplateMissing, fmt.Sprintf("no template registry configured to resolve %q", rule.TemplateUID)))
		return false
	}
	tpl, ok := e.templateRegistry.Get(rule.TemplateUID)
	if !ok {
		e.indexTemplateLocked(rule.TemplateUID, ruleUID)
		e.setStatusLocked(ruleUID, rules.NotInitialized(rules.DetailTemplateMissing, fmt.Sprintf("template %q is not registered", rule.TemplateUID)))
		return false
	}
	triggers, conditions, actions := ruletemplate.Expand(tpl, rule.Configuration)
	rule.Triggers = triggers
	rule.Conditions = conditions
	rule.Actions = actions
	return true
}

// teardownLocked releases every handler currently attached to ruleUID's
// modules, returning each to its factory, detaches the trigger callback,
// and resets execution context accumulated during the prior activation.
func (e *Engine) teardownLocked(ruleUID string) {
	act, ok := e.activations[ruleUID]
	if !ok {
		return
	}
	rule := act.rule

	release := func(mods []rules.Module) {
		for _, m := range mods {
			h := handlerOf(m)
			if h == nil {
				continue
			}
			if factory, ok := e.resolveFactoryLocked(m.TypeUID()); ok {
				factory.UngetHandler(m, ruleUID, h)
			}
			disposeHandler(h)
			detachHandler(m)
		}
	}
	release(triggerModules(rule))
	release(conditionModules(rule))
	release(actionModules(rule))

	if act.cb != nil {
		act.cb.dispose()
	}
	act.execCtx.Reset()
}

// resolveFactoryLocked routes a module-type UID to the factory responsible
// for it: the factory registered directly for a system type, or the
// engine's composite factory for a "T:C" custom type.
func (e *Engine) resolveFactoryLocked(typeUID string) (rules.ModuleHandlerFactory, bool) {
	system, _, composite := rules.SplitModuleType(typeUID)
	if composite {
		return e.composite, true
	}
	f, ok := e.typeFactories[system]
	return f, ok
}

// compositeFactory is the single engine-owned factory that produces
// handlers for composite custom module types ("T:C") by delegating to
// whatever factory currently serves the system parent type T. Its handlers
// are never the same factory instance registered directly for T: the
// composite factory always intermediates.
type compositeFactory struct {
	engine *Engine
}

func (f *compositeFactory) Types() []string { return nil }

func (f *compositeFactory) GetHandler(module rules.Module, ruleUID string) (rules.ModuleHandler, error) {
	system, _, _ := rules.SplitModuleType(module.TypeUID())
	parent, ok := f.engine.typeFactories[system]
	if !ok {
		return nil, fmt.Errorf("no handler factory registered for system type %q (composite type %q)", system, module.TypeUID())
	}
	return parent.GetHandler(module, ruleUID)
}

func (f *compositeFactory) UngetHandler(module rules.Module, ruleUID string, handler rules.ModuleHandler) {
	system, _, _ := rules.SplitModuleType(module.TypeUID())
	if parent, ok := f.engine.typeFactories[system]; ok {
		parent.UngetHandler(module, ruleUID, handler)
	}
}

type boundModule struct {
	module  rules.Module
	handler rules.ModuleHandler
	factory rules.ModuleHandlerFactory
}

func releaseBound(bound []boundModule, ruleUID string) {
	for _, b := range bound {
		b.factory.UngetHandler(b.module, ruleUID, b.handler)
		disposeHandler(b.handler)
		detachHandler(b.module)
	}
}

func appendBindError(errs *strings.Builder, m rules.Module, err error) {
	if errs.Len() > 0 {
		errs.WriteByte('\n')
	}
	fmt.Fprintf(errs, "module %q (type %q): %v", m.ID(), m.TypeUID(), err)
}

func conditionModules(rule *rules.Rule) []rules.Module {
	mods := make([]rules.Module, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		mods = append(mods, c)
	}
	return mods
}

func actionModules(rule *rules.Rule) []rules.Module {
	mods := make([]rules.Module, 0, len(rule.Actions))
	for _, a := range rule.Actions {
		mods = append(mods, a)
	}
	return mods
}

func triggerModules(rule *rules.Rule) []rules.Module {
	mods := make([]rules.Module, 0, len(rule.Triggers))
	for _, t := range rule.Triggers {
		mods = append(mods, t)
	}
	return mods
}

// attachHandler type-asserts handler to the kind module expects and stores
// it, reporting whether the assertion succeeded.
func attachHandler(m rules.Module, handler rules.ModuleHandler) bool {
	switch mod := m.(type) {
	case *rules.Trigger:
		h, ok := handler.(rules.TriggerHandler)
		if !ok {
			return false
		}
		mod.SetHandler(h)
	case *rules.Condition:
		h, ok := handler.(rules.ConditionHandler)
		if !ok {
			return false
		}
		mod.SetHandler(h)
	case *rules.Action:
		h, ok := handler.(rules.ActionHandler)
		if !ok {
			return false
		}
		mod.SetHandler(h)
	default:
		return false
	}
	return true
}

func handlerOf(m rules.Module) rules.ModuleHandler {
	switch mod := m.(type) {
	case *rules.Trigger:
		if mod.Handler() != nil {
			return mod.Handler()
		}
	case *rules.Condition:
		if mod.Handler() != nil {
			return mod.Handler()
		}
	case *rules.Action:
		if mod.Handler() != nil {
			return mod.Handler()
		}
	}
	return nil
}

func detachHandler(m rules.Module) {
	switch mod := m.(type) {
	case *rules.Trigger:
		mod.SetHandler(nil)
	case *rules.Condition:
		mod.SetHandler(nil)
	case *rules.Action:
		mod.SetHandler(nil)
	}
}

func disposeHandler(handler rules.ModuleHandler) {
	type disposer interface{ Dispose() }
	if d, ok := handler.(disposer); ok {
		d.Dispose()
	}
}

// validateConnections checks that every declared connection names a source
// module that exists within the rule and, when a module-type registry is
// available, that the referenced output and input are actually declared by
// their respective module types.
func validateConnections(rule *rules.Rule, registry rules.ModuleTypeRegistry) []string {
	var msgs []string

	check := func(m rules.Module, connections []rules.Connection) {
		var targetType *rules.ModuleType
		if registry != nil {
			targetType, _ = registry.GetType(m.TypeUID(), "")
		}
		for _, c := range connections {
			src, ok := rule.Module(c.SourceModuleID)
			if !ok {
				msgs = append(msgs, fmt.Sprintf("module %q: connection input %q references unknown source module %q", m.ID(), c.InputName, c.SourceModuleID))
				continue
			}
			if registry == nil {
				continue
			}
			srcType, ok := registry.GetType(src.TypeUID(), "")
			if ok && !hasOutput(srcType, c.OutputName) {
				msgs = append(msgs, fmt.Sprintf("module %q: source module %q (type %q) declares no output %q", m.ID(), c.SourceModuleID, src.TypeUID(), c.OutputName))
			}
			if targetType != nil && !hasInput(targetType, c.InputName) {
				msgs = append(msgs, fmt.Sprintf("module %q (type %q): declares no input %q", m.ID(), m.TypeUID(), c.InputName))
			}
		}
	}

	for _, c := range rule.Conditions {
		check(c, c.Connections)
	}
	for _, a := range rule.Actions {
		check(a, a.Connections)
	}
	return msgs
}

func hasOutput(mt *rules.ModuleType, name string) bool {
	for _, o := range mt.Outputs {
		if o.Name == name {
			return true
		}
	}
	return false
}

func hasInput(mt *rules.ModuleType, name string) bool {
	for _, in := range mt.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}
