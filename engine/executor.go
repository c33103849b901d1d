package engine

import (
	"context"
	"fmt"

	"github.com/openhab-automation/ruleengine/internal/logger"
	"github.com/openhab-automation/ruleengine/rules"
	"github.com/openhab-automation/ruleengine/rules/dataflow"
)

// executeRule is the body of the Rule Executor. By the time it runs, the
// rule has already been atomically transitioned IDLE -> RUNNING by
// triggerCallback.TriggerFired; this function stages the trigger's
// outputs, evaluates conditions in declared order, executes actions in
// declared order if every condition held, and unconditionally returns the
// rule to IDLE.
func (e *Engine) executeRule(ruleUID string, rule *rules.Rule, execCtx *rules.ExecutionContext, triggerID string, outputs map[string]any) {
	correlationID := newCorrelationID()
	logger.Debug("rule firing", "rule", ruleUID, "trigger", triggerID, "correlation_id", correlationID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("rule execution panicked", "rule", ruleUID, "correlation_id", correlationID, "recover", fmt.Sprint(r))
		}
		e.mu.Lock()
		e.setStatusLocked(ruleUID, rules.Idle())
		e.mu.Unlock()
	}()

	ctx := context.Background()
	lookup := moduleLookup(rule)

	for _, t := range rule.Triggers {
		if t.Id == triggerID {
			t.SetOutputs(outputs)
			execCtx.Publish(triggerID, outputs)
			break
		}
	}

	satisfied := true
	for _, c := range rule.Conditions {
		bound, ok := c.Bound()
		if !ok {
			bound = dataflow.Resolve(c.Connections, lookup, warnFunc(ruleUID, c.Id, correlationID))
			c.SetBound(bound)
		}
		merged := rules.MergeInputs(execCtx.Snapshot(), dataflow.Snapshot(bound))
		if h := c.Handler(); h == nil || !h.IsSatisfied(ctx, merged) {
			satisfied = false
			break
		}
	}
	if !satisfied {
		return
	}

	for _, a := range rule.Actions {
		bound, ok := a.Bound()
		if !ok {
			bound = dataflow.Resolve(a.Connections, lookup, warnFunc(ruleUID, a.Id, correlationID))
			a.SetBound(bound)
		}
		merged := rules.MergeInputs(execCtx.Snapshot(), dataflow.Snapshot(bound))
		outs, err := executeAction(ctx, a, merged)
		if err != nil {
			logger.Error("action failed", "rule", ruleUID, "action", a.Id, "correlation_id", correlationID, "err", err)
			continue
		}
		if len(outs) > 0 {
			a.SetOutputs(outs)
			execCtx.Publish(a.Id, outs)
		}
	}
}

// executeAction runs a single action's handler, converting a panic into an
// error so one misbehaving action never aborts the rest of the rule.
func executeAction(ctx context.Context, a *rules.Action, inputs map[string]any) (outs map[string]any, err error) {
	h := a.Handler()
	if h == nil {
		return nil, fmt.Errorf("action %q has no bound handler", a.Id)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Execute(ctx, inputs)
}

func moduleLookup(rule *rules.Rule) dataflow.Lookup {
	return func(moduleID string) (dataflow.OutputSource, bool) {
		m, ok := rule.Module(moduleID)
		if !ok {
			return nil, false
		}
		src, ok := m.(dataflow.OutputSource)
		return src, ok
	}
}

func warnFunc(ruleUID, moduleID, correlationID string) dataflow.Warnf {
	return func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...), "rule", ruleUID, "module", moduleID, "correlation_id", correlationID)
	}
}
