package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openhab-automation/ruleengine/rules"
)

// scriptedFactory is a ModuleHandlerFactory whose behavior is supplied
// per-test via closures.
type scriptedFactory struct {
	types        []string
	getHandler   func(rules.Module, string) (rules.ModuleHandler, error)
	ungetHandler func(rules.Module, string, rules.ModuleHandler)
}

func (f *scriptedFactory) Types() []string { return f.types }

func (f *scriptedFactory) GetHandler(m rules.Module, ruleUID string) (rules.ModuleHandler, error) {
	return f.getHandler(m, ruleUID)
}

func (f *scriptedFactory) UngetHandler(m rules.Module, ruleUID string, h rules.ModuleHandler) {
	if f.ungetHandler != nil {
		f.ungetHandler(m, ruleUID, h)
	}
}

// fakeTrigger is a TriggerHandler whose Fire method lets a test drive a
// firing synchronously, exactly like a real handler's own event thread.
type fakeTrigger struct {
	id       string
	cb       rules.RuleEngineCallback
	disposed bool
}

func (h *fakeTrigger) SetCallback(cb rules.RuleEngineCallback) { h.cb = cb }
func (h *fakeTrigger) Dispose()                                { h.disposed = true }
func (h *fakeTrigger) Fire(outputs map[string]any)             { h.cb.TriggerFired(h.id, outputs) }

// fixedCondition always returns the same satisfaction verdict.
type fixedCondition struct {
	satisfied bool
}

func (c *fixedCondition) IsSatisfied(ctx context.Context, inputs map[string]any) bool { return c.satisfied }
func (c *fixedCondition) Dispose()                                                    {}

// recordingAction stores the inputs of its most recent invocation and
// returns a fixed outputs map.
type recordingAction struct {
	mu      sync.Mutex
	calls   int
	lastIn  map[string]any
	outputs map[string]any
	err     error
}

func (a *recordingAction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.lastIn = inputs
	return a.outputs, a.err
}

func (a *recordingAction) Dispose() {}

func (a *recordingAction) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *recordingAction) inputs() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastIn
}

// blockingAction blocks until release is closed, counting entries.
type blockingAction struct {
	release chan struct{}
	entries atomic64
}

type atomic64 struct {
	mu sync.Mutex
	n  int
}

func (a *atomic64) inc() {
	a.mu.Lock()
	a.n++
	a.mu.Unlock()
}

func (a *atomic64) get() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

func (a *blockingAction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	a.entries.inc()
	<-a.release
	return nil, nil
}

func (a *blockingAction) Dispose() {}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition")
}

func triggerFactory(id *string) (*scriptedFactory, *fakeTrigger) {
	th := &fakeTrigger{}
	f := &scriptedFactory{
		types: []string{"sysTrig"},
		getHandler: func(m rules.Module, ruleUID string) (rules.ModuleHandler, error) {
			th.id = m.ID()
			if id != nil {
				*id = m.ID()
			}
			return th, nil
		},
	}
	return f, th
}
