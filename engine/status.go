package engine

import "github.com/openhab-automation/ruleengine/rules"

// setStatusLocked records the new status and notifies the observer, if
// one is set. Every call to this function is one transition; it never
// suppresses a notification even if the new status equals the old one, so
// the observer stays faithful to every retry (per the redesign note on the
// original's skipped intermediate notifications).
func (e *Engine) setStatusLocked(uid string, info rules.StatusInfo) {
	e.status[uid] = info
	if e.observer != nil {
		e.observer.RuleStatusChanged(uid, info)
	}
}
