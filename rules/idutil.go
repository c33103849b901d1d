package rules

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// RuleUIDPrefix is prepended to every engine-generated rule UID.
const RuleUIDPrefix = "rule_"

// SplitModuleType splits a module-type UID into its system parent and, if
// present, its composite custom suffix. "timer.Cron" returns
// ("timer.Cron", "", false); "timer.Cron:MyCron" returns
// ("timer.Cron", "MyCron", true).
func SplitModuleType(uid string) (system, custom string, isComposite bool) {
	i := strings.IndexByte(uid, ':')
	if i < 0 {
		return uid, "", false
	}
	return uid[:i], uid[i+1:], true
}

// IDGenerator produces rule_<n> identifiers with n strictly increasing,
// without ever rescanning the full rule set: Seed only ever moves the
// counter forward past UIDs it is given, and Next increments it.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator seeds the generator from existingUIDs so that the first
// call to Next() returns a suffix strictly greater than any already in use.
func NewIDGenerator(existingUIDs []string) *IDGenerator {
	g := &IDGenerator{}
	g.Seed(existingUIDs)
	return g
}

// Seed advances the generator's counter past the maximum rule_<n> suffix
// found in existingUIDs, without lowering it. Safe to call more than once,
// e.g. after a bulk load.
func (g *IDGenerator) Seed(existingUIDs []string) {
	var max uint64
	found := false
	for _, uid := range existingUIDs {
		n, ok := ruleUIDSuffix(uid)
		if !ok {
			continue
		}
		found = true
		if n > max {
			max = n
		}
	}
	if !found {
		return
	}
	for {
		cur := g.next.Load()
		if max < cur {
			return
		}
		if g.next.CompareAndSwap(cur, max+1) {
			return
		}
	}
}

// Next returns the next unused rule_<n> identifier.
func (g *IDGenerator) Next() string {
	n := g.next.Add(1) - 1
	return RuleUIDPrefix + strconv.FormatUint(n, 10)
}

func ruleUIDSuffix(uid string) (uint64, bool) {
	if !strings.HasPrefix(uid, RuleUIDPrefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(uid[len(RuleUIDPrefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
