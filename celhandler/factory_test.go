package celhandler

import (
	"context"
	"testing"

	"github.com/openhab-automation/ruleengine/rules"
)

func TestConditionSatisfied(t *testing.T) {
	f, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := rules.NewCondition("c", TypeCondition, map[string]any{"expression": "input.temperature > 20"}, nil)

	h, err := f.GetHandler(c, "rule_1")
	if err != nil {
		t.Fatalf("GetHandler: %v", err)
	}
	cond := h.(rules.ConditionHandler)

	if !cond.IsSatisfied(context.Background(), map[string]any{"temperature": 25}) {
		t.Fatal("expected condition to be satisfied")
	}
	if cond.IsSatisfied(context.Background(), map[string]any{"temperature": 10}) {
		t.Fatal("expected condition to not be satisfied")
	}
}

func TestActionExecuteProducesResult(t *testing.T) {
	f, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := rules.NewAction("a", TypeAction, map[string]any{"expression": "input.x + 1"}, nil)

	h, err := f.GetHandler(a, "rule_1")
	if err != nil {
		t.Fatalf("GetHandler: %v", err)
	}
	action := h.(rules.ActionHandler)

	outs, err := action.Execute(context.Background(), map[string]any{"x": 41})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outs["result"] != int64(42) {
		t.Fatalf("expected result=42, got %v (%T)", outs["result"], outs["result"])
	}
}

func TestMissingExpressionIsRejected(t *testing.T) {
	f, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := rules.NewCondition("c", TypeCondition, nil, nil)

	if _, err := f.GetHandler(c, "rule_1"); err == nil {
		t.Fatal("expected error for missing expression")
	}
}

func TestUngetHandlerClearsCache(t *testing.T) {
	f, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := rules.NewCondition("c", TypeCondition, map[string]any{"expression": "true"}, nil)

	h, err := f.GetHandler(c, "rule_1")
	if err != nil {
		t.Fatalf("GetHandler: %v", err)
	}
	if len(f.programs) != 1 {
		t.Fatalf("expected 1 cached program, got %d", len(f.programs))
	}

	f.UngetHandler(c, "rule_1", h)
	if len(f.programs) != 0 {
		t.Fatalf("expected cache to be cleared, got %d entries", len(f.programs))
	}
}

func TestInvalidExpressionFailsToCompile(t *testing.T) {
	f, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := rules.NewCondition("c", TypeCondition, map[string]any{"expression": "input.temperature >"}, nil)

	if _, err := f.GetHandler(c, "rule_1"); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}
