package dataflow

import "testing"

type fakeSource struct {
	id      string
	outputs map[string]any
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) Output(name string) (any, bool) {
	v, ok := f.outputs[name]
	return v, ok
}

func TestResolveSkipsUnknownSource(t *testing.T) {
	lookup := func(id string) (OutputSource, bool) { return nil, false }

	var warned string
	warn := func(format string, args ...any) { warned = format }

	refs := Resolve([]Connection{{InputName: "v", SourceModuleID: "t", OutputName: "x"}}, lookup, warn)
	if len(refs) != 0 {
		t.Fatalf("expected no refs, got %d", len(refs))
	}
	if warned == "" {
		t.Fatal("expected a warning to be recorded")
	}
}

func TestResolveAndSnapshot(t *testing.T) {
	src := &fakeSource{id: "t", outputs: map[string]any{"x": 42}}
	lookup := func(id string) (OutputSource, bool) {
		if id == "t" {
			return src, true
		}
		return nil, false
	}

	refs := Resolve([]Connection{{InputName: "v", SourceModuleID: "t", OutputName: "x"}}, lookup, nil)
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}

	snap := Snapshot(refs)
	if snap["v"] != 42 {
		t.Fatalf("expected v=42, got %v", snap["v"])
	}
}

func TestSnapshotOmitsUnpublishedOutputs(t *testing.T) {
	src := &fakeSource{id: "t", outputs: map[string]any{}}
	lookup := func(id string) (OutputSource, bool) { return src, true }

	refs := Resolve([]Connection{{InputName: "v", SourceModuleID: "t", OutputName: "x"}}, lookup, nil)
	snap := Snapshot(refs)
	if _, ok := snap["v"]; ok {
		t.Fatalf("expected v to be omitted, snapshot=%v", snap)
	}
}

func TestSnapshotReflectsLiveValue(t *testing.T) {
	src := &fakeSource{id: "t", outputs: map[string]any{"x": 1}}
	lookup := func(id string) (OutputSource, bool) { return src, true }

	refs := Resolve([]Connection{{InputName: "v", SourceModuleID: "t", OutputName: "x"}}, lookup, nil)
	if Snapshot(refs)["v"] != 1 {
		t.Fatal("expected initial value 1")
	}

	src.outputs["x"] = 2
	if Snapshot(refs)["v"] != 2 {
		t.Fatal("expected updated value 2 without re-resolving")
	}
}
