package rules

import (
	"maps"
	"sync"
)

// ExecutionContext is the per-rule accumulating snapshot of published
// output values, keyed by "<moduleId>.<outputName>". It survives across
// trigger firings for the lifetime of a rule's activation and is safe for
// concurrent Publish/Snapshot calls, though in practice a single rule
// activation only ever runs one executor goroutine at a time.
type ExecutionContext struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: make(map[string]any)}
}

// Publish records outputs produced by moduleID, qualifying each output name
// with the module ID.
func (c *ExecutionContext) Publish(moduleID string, outputs map[string]any) {
	if len(outputs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, v := range outputs {
		c.values[moduleID+"."+name] = v
	}
}

// Snapshot returns a defensive copy of the full accumulated context, ready
// to be merged under a module's own resolved inputs.
func (c *ExecutionContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.values)
}

// Reset clears all accumulated values, used when a rule is re-registered.
func (c *ExecutionContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]any)
}

// MergeInputs returns a new map containing the context snapshot with
// inputs layered on top, so a module's own resolved connection values take
// precedence over same-named context entries.
func MergeInputs(context, inputs map[string]any) map[string]any {
	merged := make(map[string]any, len(context)+len(inputs))
	maps.Copy(merged, context)
	maps.Copy(merged, inputs)
	return merged
}
