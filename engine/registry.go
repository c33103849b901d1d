package engine

import "github.com/openhab-automation/ruleengine/rules"

// indexModuleTypeLocked records that ruleUID references typeUID, regardless
// of whether a handler was found for it, so a later factory arrival can
// re-drive binding.
func (e *Engine) indexModuleTypeLocked(typeUID, ruleUID string) {
	set, ok := e.moduleTypeIndex[typeUID]
	if !ok {
		set = make(map[string]struct{})
		e.moduleTypeIndex[typeUID] = set
	}
	set[ruleUID] = struct{}{}
}

// indexTemplateLocked records that ruleUID is awaiting templateUID.
func (e *Engine) indexTemplateLocked(templateUID, ruleUID string) {
	set, ok := e.templateIndex[templateUID]
	if !ok {
		set = make(map[string]struct{})
		e.templateIndex[templateUID] = set
	}
	set[ruleUID] = struct{}{}
}

// pruneIndexesLocked removes every reference to ruleUID from both indexes,
// dropping any type or template entry left with no rules pointing at it.
func (e *Engine) pruneIndexesLocked(ruleUID string) {
	for typeUID, set := range e.moduleTypeIndex {
		delete(set, ruleUID)
		if len(set) == 0 {
			delete(e.moduleTypeIndex, typeUID)
		}
	}
	for tplUID, set := range e.templateIndex {
		delete(set, ruleUID)
		if len(set) == 0 {
			delete(e.templateIndex, tplUID)
		}
	}
}

func (e *Engine) registerFactoryLocked(factory rules.ModuleHandlerFactory) {
	var toRebind map[string]struct{}
	for _, typeUID := range factory.Types() {
		e.typeFactories[typeUID] = factory
		for ruleUID := range e.moduleTypeIndex[typeUID] {
			if e.status[ruleUID].Status == rules.StatusNotInitialized {
				if toRebind == nil {
					toRebind = make(map[string]struct{})
				}
				toRebind[ruleUID] = struct{}{}
			}
		}
	}
	for ruleUID := range toRebind {
		e.bindLocked(ruleUID)
	}
}

func (e *Engine) unregisterFactoryLocked(factory rules.ModuleHandlerFactory) {
	affected := make(map[string]struct{})
	var owned []string
	for _, typeUID := range factory.Types() {
		if e.typeFactories[typeUID] != factory {
			continue
		}
		owned = append(owned, typeUID)
		for ruleUID := range e.moduleTypeIndex[typeUID] {
			status := e.status[ruleUID]
			if status.Status == rules.StatusIdle || status.Status == rules.StatusRunning {
				affected[ruleUID] = struct{}{}
			}
		}
	}
	for ruleUID := range affected {
		e.teardownLocked(ruleUID)
		e.setStatusLocked(ruleUID, rules.NotInitialized(rules.DetailHandlerMissing, "one or more handler factories are no longer registered"))
	}
	for _, typeUID := range owned {
		delete(e.typeFactories, typeUID)
	}
}
