package rules

import "context"

// ModuleHandler is the opaque object a ModuleHandlerFactory returns for a
// module. The engine never inspects it directly; it type-asserts it to one
// of TriggerHandler, ConditionHandler, or ActionHandler depending on the
// module's kind.
type ModuleHandler any

// TriggerHandler is bound to a Trigger module. It is not called by the
// engine directly: it calls back into the engine through RuleEngineCallback
// whenever it decides the rule should fire, on its own goroutine.
type TriggerHandler interface {
	// SetCallback gives the handler the callback to invoke when it wants
	// its owning rule to run. Called once, immediately after binding.
	SetCallback(cb RuleEngineCallback)
	// Dispose releases any resources the handler holds (subscriptions,
	// timers, goroutines) and is called when the handler is unbound.
	Dispose()
}

// ConditionHandler is bound to a Condition module and evaluated
// synchronously by the executor on every rule firing.
type ConditionHandler interface {
	// IsSatisfied reports whether the condition passes given the resolved
	// inputs (from connections) merged with the rule's execution context.
	IsSatisfied(ctx context.Context, inputs map[string]any) bool
	Dispose()
}

// ActionHandler is bound to an Action module and invoked synchronously, in
// declaration order, by the executor once all conditions pass.
type ActionHandler interface {
	// Execute runs the action's effect given its resolved inputs and
	// returns any named outputs it wants to publish to later actions in
	// the same rule.
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
	Dispose()
}

// RuleEngineCallback is what a running TriggerHandler uses to hand control
// back to the engine. TriggerFired queues a firing of the owning rule and
// returns immediately; the handler must never block waiting for the rule to
// finish.
type RuleEngineCallback interface {
	TriggerFired(triggerID string, outputs map[string]any)
}

// ModuleHandlerFactory produces and releases handlers for one or more
// module types. A factory whose Types() includes a system type UID
// (e.g. "timer.GenericCronTrigger") also serves any composite custom type
// composed from it (e.g. "timer.GenericCronTrigger:MyCronTrigger").
type ModuleHandlerFactory interface {
	// Types returns the module-type UIDs this factory can produce
	// handlers for.
	Types() []string
	// GetHandler creates a handler for module, scoped to ruleUID. Called
	// once per module per rule (re)binding.
	GetHandler(module Module, ruleUID string) (ModuleHandler, error)
	// UngetHandler releases a handler previously returned by GetHandler.
	UngetHandler(module Module, ruleUID string, handler ModuleHandler)
}

// StatusObserver is notified whenever a rule's status changes.
type StatusObserver interface {
	RuleStatusChanged(ruleUID string, status StatusInfo)
}
