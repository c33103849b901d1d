package engine

import (
	"sync/atomic"

	"github.com/openhab-automation/ruleengine/internal/logger"
	"github.com/openhab-automation/ruleengine/rules"
)

// triggerCallback is the single per-rule bridge handed to every trigger
// handler bound to a rule. It is created once on first successful binding
// and reused across rebinding attempts.
type triggerCallback struct {
	engine   *Engine
	ruleUID  string
	detached atomic.Bool
}

func newTriggerCallback(e *Engine, ruleUID string) *triggerCallback {
	return &triggerCallback{engine: e, ruleUID: ruleUID}
}

// TriggerFired implements rules.RuleEngineCallback. It is called from
// whatever thread the trigger handler runs on: it reads the rule's current
// status and, if IDLE, transitions it to RUNNING synchronously under the
// engine lock (so two firings arriving back to back reliably observe each
// other), then hands the actual condition/action pipeline off to a
// goroutine so the calling handler thread is never blocked on execution.
func (c *triggerCallback) TriggerFired(triggerID string, outputs map[string]any) {
	if c.detached.Load() {
		return
	}
	e := c.engine

	e.mu.Lock()
	act, ok := e.activations[c.ruleUID]
	if !ok || e.status[c.ruleUID].Status != rules.StatusIdle {
		e.mu.Unlock()
		logger.DroppedFiring(c.ruleUID, triggerID)
		return
	}
	e.setStatusLocked(c.ruleUID, rules.Running())
	rule := act.rule
	execCtx := act.execCtx
	e.mu.Unlock()

	go e.executeRule(c.ruleUID, rule, execCtx, triggerID, outputs)
}

// dispose severs the callback so any trigger firing already queued, or
// arriving late from a handler that has not yet noticed teardown, becomes a
// no-op instead of reaching into a torn-down activation.
func (c *triggerCallback) dispose() {
	c.detached.Store(true)
}
