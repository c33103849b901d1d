package engine

import "github.com/openhab-automation/ruleengine/rules"

// RegisterHandlerFactory is the "handler factory appears" subscription
// callback: it records factory under every module-type UID it claims, then
// re-drives binding for any NOT_INITIALIZED rule referencing one of those
// types.
func (e *Engine) RegisterHandlerFactory(factory rules.ModuleHandlerFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.registerFactoryLocked(factory)
}

// UnregisterHandlerFactory is the "handler factory disappears" subscription
// callback: it removes factory from every module-type UID it claimed and
// tears down affected IDLE/RUNNING rules, batching every type UID a given
// rule lost into a single HANDLER_MISSING status update rather than one per
// type.
func (e *Engine) UnregisterHandlerFactory(factory rules.ModuleHandlerFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unregisterFactoryLocked(factory)
}

// ModuleTypeUpdated is the "module type updated" subscription callback: it
// re-drives binding for every NOT_INITIALIZED rule that references uid.
func (e *Engine) ModuleTypeUpdated(uid string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ruleUID := range e.moduleTypeIndex[uid] {
		if e.status[ruleUID].Status == rules.StatusNotInitialized {
			e.bindLocked(ruleUID)
		}
	}
}

// TemplateUpdated is the "template updated" subscription callback: it
// re-drives binding for every NOT_INITIALIZED rule waiting on uid.
func (e *Engine) TemplateUpdated(uid string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ruleUID := range e.templateIndex[uid] {
		if e.status[ruleUID].Status == rules.StatusNotInitialized {
			e.bindLocked(ruleUID)
		}
	}
}
