package engine

import (
	"testing"

	"github.com/openhab-automation/ruleengine/rules"
)

// TestCompositeTypeRoutesThroughCompositeFactory verifies that a module
// declared with type "T:C" is routed through the engine's composite
// factory, which delegates to the factory registered for the system parent
// "T"; a factory registered under the literal composite UID is never
// consulted.
func TestCompositeTypeRoutesThroughCompositeFactory(t *testing.T) {
	e := New()

	var systemFactoryCalls, directCompositeRegistrationCalls int
	systemFactory := &scriptedFactory{
		types: []string{"timer.Cron"},
		getHandler: func(m rules.Module, ruleUID string) (rules.ModuleHandler, error) {
			systemFactoryCalls++
			return &fakeTrigger{}, nil
		},
	}
	// A factory mistakenly registered under the literal composite UID must
	// never be consulted; routing always goes through the system parent.
	literalCompositeFactory := &scriptedFactory{
		types: []string{"timer.Cron:MyCron"},
		getHandler: func(m rules.Module, ruleUID string) (rules.ModuleHandler, error) {
			directCompositeRegistrationCalls++
			return &fakeTrigger{}, nil
		},
	}
	e.RegisterHandlerFactory(systemFactory)
	e.RegisterHandlerFactory(literalCompositeFactory)

	rule := &rules.Rule{
		Triggers: []*rules.Trigger{rules.NewTrigger("t", "timer.Cron:MyCron", nil)},
	}
	uid, err := e.Add(rule, "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	status, _ := e.GetStatus(uid)
	if status.Status != rules.StatusIdle {
		t.Fatalf("expected IDLE, got %v (%v)", status.Status, status.Message)
	}
	if systemFactoryCalls != 1 {
		t.Fatalf("expected the system parent factory to be delegated to once, got %d", systemFactoryCalls)
	}
	if directCompositeRegistrationCalls != 0 {
		t.Fatalf("expected the literal composite registration to never be consulted, got %d calls", directCompositeRegistrationCalls)
	}
}

func TestConnectionValidatorRejectsUnknownOutput(t *testing.T) {
	registry := &fakeModuleTypeRegistry{
		types: map[string]*rules.ModuleType{
			"sysTrig": {UID: "sysTrig", Kind: rules.KindTrigger, Outputs: []rules.Output{{Name: "x", Type: "int"}}},
			"sysAct":  {UID: "sysAct", Kind: rules.KindAction, Inputs: []rules.Input{{Name: "v", Type: "int"}}},
		},
	}
	e := New(WithModuleTypeRegistry(registry))

	triggerFac, _ := triggerFactory(nil)
	actionFac := &scriptedFactory{
		types: []string{"sysAct"},
		getHandler: func(m rules.Module, ruleUID string) (rules.ModuleHandler, error) {
			return &recordingAction{}, nil
		},
	}
	e.RegisterHandlerFactory(triggerFac)
	e.RegisterHandlerFactory(actionFac)

	rule := &rules.Rule{
		Triggers: []*rules.Trigger{rules.NewTrigger("t", "sysTrig", nil)},
		Actions: []*rules.Action{
			rules.NewAction("a", "sysAct", nil, []rules.Connection{{InputName: "v", SourceModuleID: "t", OutputName: "nonexistent"}}),
		},
	}
	uid, _ := e.Add(rule, "")

	status, _ := e.GetStatus(uid)
	if status.Status != rules.StatusNotInitialized || status.Detail != rules.DetailHandlerInitializingError {
		t.Fatalf("expected NOT_INITIALIZED/HANDLER_INITIALIZING_ERROR from validator failure, got %v/%v", status.Status, status.Detail)
	}
}

type fakeModuleTypeRegistry struct {
	types map[string]*rules.ModuleType
}

func (r *fakeModuleTypeRegistry) GetType(uid, locale string) (*rules.ModuleType, bool) {
	mt, ok := r.types[uid]
	return mt, ok
}

func (r *fakeModuleTypeRegistry) GetTypes(filter func(*rules.ModuleType) bool, locale string) []*rules.ModuleType {
	var out []*rules.ModuleType
	for _, mt := range r.types {
		if filter == nil || filter(mt) {
			out = append(out, mt)
		}
	}
	return out
}
