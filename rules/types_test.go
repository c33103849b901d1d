package rules

import "testing"

func TestRuleCloneIsDeep(t *testing.T) {
	r := &Rule{
		UID:           "rule_1",
		Configuration: map[string]any{"k": "v"},
		Tags:          NewTagSet("a", "b"),
		Triggers:      []*Trigger{NewTrigger("t", "sysTrig", map[string]any{"x": 1})},
		Conditions:    []*Condition{NewCondition("c", "sysCond", nil, []Connection{{InputName: "in", SourceModuleID: "t", OutputName: "x"}})},
		Actions:       []*Action{NewAction("a", "sysAct", nil, nil)},
	}

	cp := r.Clone()

	cp.Configuration["k"] = "mutated"
	if r.Configuration["k"] != "v" {
		t.Fatal("mutating clone's configuration affected the original")
	}

	cp.Tags["c"] = struct{}{}
	if r.Tags.Has("c") {
		t.Fatal("mutating clone's tags affected the original")
	}

	cp.Triggers[0].Config["x"] = 99
	if r.Triggers[0].Config["x"] != 1 {
		t.Fatal("mutating clone's trigger config affected the original")
	}

	if cp.Triggers[0] == r.Triggers[0] {
		t.Fatal("expected clone to allocate new module pointers")
	}
}

func TestRuleModuleLookupSpansAllKinds(t *testing.T) {
	r := &Rule{
		Triggers:   []*Trigger{NewTrigger("t", "sysTrig", nil)},
		Conditions: []*Condition{NewCondition("c", "sysCond", nil, nil)},
		Actions:    []*Action{NewAction("a", "sysAct", nil, nil)},
	}

	for _, id := range []string{"t", "c", "a"} {
		if _, ok := r.Module(id); !ok {
			t.Fatalf("expected to find module %q", id)
		}
	}
	if _, ok := r.Module("missing"); ok {
		t.Fatal("expected missing module to be absent")
	}

	mods := r.Modules()
	if len(mods) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(mods))
	}
	if mods[0].Kind() != KindTrigger || mods[1].Kind() != KindCondition || mods[2].Kind() != KindAction {
		t.Fatal("expected modules in trigger/condition/action order")
	}
}

func TestTriggerOutputStagingReplacesOnlyGivenKeys(t *testing.T) {
	tr := NewTrigger("t", "sysTrig", nil)
	tr.SetOutputs(map[string]any{"x": 1, "y": 2})
	tr.SetOutputs(map[string]any{"x": 10})

	x, ok := tr.Output("x")
	if !ok || x != 10 {
		t.Fatalf("expected x=10, got %v (%v)", x, ok)
	}
	y, ok := tr.Output("y")
	if !ok || y != 2 {
		t.Fatalf("expected y to survive unrelated update, got %v (%v)", y, ok)
	}
	if _, ok := tr.Output("never-set"); ok {
		t.Fatal("expected unset output to report absent")
	}
}

func TestTagSetHasAny(t *testing.T) {
	s := NewTagSet("kitchen", "lighting")
	if !s.HasAny(NewTagSet("bogus", "lighting")) {
		t.Fatal("expected HasAny to match on shared tag")
	}
	if s.HasAny(NewTagSet("bogus")) {
		t.Fatal("expected HasAny to report false with no overlap")
	}
}
