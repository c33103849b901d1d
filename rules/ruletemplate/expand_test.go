package ruletemplate

import (
	"testing"

	"github.com/openhab-automation/ruleengine/rules"
)

func TestExpandSubstitutesWholePlaceholderPreservingType(t *testing.T) {
	tpl := &rules.RuleTemplate{
		UID: "tpl",
		Actions: []*rules.Action{
			rules.NewAction("a", "sysAct", map[string]any{"count": "${n}"}, nil),
		},
	}

	_, _, actions := Expand(tpl, map[string]any{"n": 3})
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	got := actions[0].Configuration()["count"]
	if got != 3 {
		t.Fatalf("expected count=3 (int preserved), got %#v", got)
	}
}

func TestExpandSubstitutesEmbeddedPlaceholderAsText(t *testing.T) {
	tpl := &rules.RuleTemplate{
		UID: "tpl",
		Triggers: []*rules.Trigger{
			rules.NewTrigger("t", "sysTrig", map[string]any{"message": "hello ${name}!"}),
		},
	}

	triggers, _, _ := Expand(tpl, map[string]any{"name": "world"})
	got := triggers[0].Configuration()["message"]
	if got != "hello world!" {
		t.Fatalf("expected substituted greeting, got %#v", got)
	}
}

func TestExpandLeavesUnresolvedPlaceholderIntact(t *testing.T) {
	tpl := &rules.RuleTemplate{
		UID: "tpl",
		Triggers: []*rules.Trigger{
			rules.NewTrigger("t", "sysTrig", map[string]any{"message": "hello ${missing}!"}),
		},
	}

	triggers, _, _ := Expand(tpl, map[string]any{})
	got := triggers[0].Configuration()["message"]
	if got != "hello ${missing}!" {
		t.Fatalf("expected placeholder left intact, got %#v", got)
	}
}

func TestExpandPreservesConnections(t *testing.T) {
	tpl := &rules.RuleTemplate{
		UID: "tpl",
		Actions: []*rules.Action{
			rules.NewAction("a", "sysAct", nil, []rules.Connection{{InputName: "v", SourceModuleID: "t", OutputName: "x"}}),
		},
	}

	_, _, actions := Expand(tpl, nil)
	if len(actions[0].Connections) != 1 {
		t.Fatalf("expected connection to survive expansion")
	}
}
