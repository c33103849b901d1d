// Package dataflow resolves the small per-rule graph that wires a
// condition or action's declared inputs to the outputs published by
// another module in the same rule.
package dataflow

// Connection is a directed link from a source module's named output to a
// target module's named input.
type Connection struct {
	InputName      string
	SourceModuleID string
	OutputName     string
}

// OutputSource is implemented by modules that publish named output
// values other modules can connect to (triggers and actions).
type OutputSource interface {
	ID() string
	Output(name string) (any, bool)
}

// Lookup resolves a module ID to its OutputSource within a single rule,
// or reports that the module does not exist or does not produce outputs.
type Lookup func(moduleID string) (OutputSource, bool)

// OutputRef is a lazy pointer to the latest value a source module has
// published for one of its outputs. It is created once per connection and
// reused across trigger firings; dereferencing always returns the current
// value.
type OutputRef struct {
	source     OutputSource
	outputName string
}

func newOutputRef(source OutputSource, outputName string) *OutputRef {
	return &OutputRef{source: source, outputName: outputName}
}

// Value dereferences the ref against the source module's current outputs.
func (r *OutputRef) Value() (any, bool) {
	return r.source.Output(r.outputName)
}

// Warnf receives a formatted warning about a connection that could not be
// resolved, mirroring the module's own logger signature.
type Warnf func(format string, args ...any)

// Resolve turns a module's declared connections into a map of input name to
// OutputRef, skipping (and reporting through warn) any connection whose
// source module does not exist or does not produce outputs. The result is
// meant to be cached on the owning module and reused across firings.
func Resolve(connections []Connection, lookup Lookup, warn Warnf) map[string]*OutputRef {
	refs := make(map[string]*OutputRef, len(connections))
	for _, c := range connections {
		src, ok := lookup(c.SourceModuleID)
		if !ok {
			if warn != nil {
				warn("connection for input %q: source module %q is not available or does not produce outputs", c.InputName, c.SourceModuleID)
			}
			continue
		}
		refs[c.InputName] = newOutputRef(src, c.OutputName)
	}
	return refs
}

// Snapshot dereferences every ref, producing an inputName -> value map for
// one evaluation. Refs whose output has never been published are omitted.
func Snapshot(refs map[string]*OutputRef) map[string]any {
	snap := make(map[string]any, len(refs))
	for name, ref := range refs {
		if v, ok := ref.Value(); ok {
			snap[name] = v
		}
	}
	return snap
}
