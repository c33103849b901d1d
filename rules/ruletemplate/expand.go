// Package ruletemplate expands a rule template into the concrete modules of
// a rule, substituting "${name}" references in module configurations with
// values from the rule's own configuration map.
package ruletemplate

import (
	"regexp"

	"github.com/openhab-automation/ruleengine/rules"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expand builds a fresh set of triggers, conditions, and actions from tpl,
// substituting "${name}" references in each module's configuration against
// ruleConfig. A configuration value that is exactly one placeholder
// ("${name}") is replaced by the referenced value with its original type
// preserved; a placeholder embedded in a larger string is replaced with its
// textual representation.
func Expand(tpl *rules.RuleTemplate, ruleConfig map[string]any) (triggers []*rules.Trigger, conditions []*rules.Condition, actions []*rules.Action) {
	for _, t := range tpl.Triggers {
		triggers = append(triggers, rules.NewTrigger(t.Id, t.Type, substituteMap(t.Config, ruleConfig)))
	}
	for _, c := range tpl.Conditions {
		conditions = append(conditions, rules.NewCondition(c.Id, c.Type, substituteMap(c.Config, ruleConfig), append([]rules.Connection(nil), c.Connections...)))
	}
	for _, a := range tpl.Actions {
		actions = append(actions, rules.NewAction(a.Id, a.Type, substituteMap(a.Config, ruleConfig), append([]rules.Connection(nil), a.Connections...)))
	}
	return triggers, conditions, actions
}

func substituteMap(config, ruleConfig map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = substituteValue(v, ruleConfig)
	}
	return out
}

func substituteValue(v any, ruleConfig map[string]any) any {
	switch val := v.(type) {
	case string:
		return substituteString(val, ruleConfig)
	case map[string]any:
		return substituteMap(val, ruleConfig)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = substituteValue(item, ruleConfig)
		}
		return out
	default:
		return v
	}
}

func substituteString(s string, ruleConfig map[string]any) any {
	if name, ok := wholePlaceholder(s); ok {
		if val, present := ruleConfig[name]; present {
			return val
		}
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		if val, present := ruleConfig[name]; present {
			return toText(val)
		}
		return m
	})
}

// wholePlaceholder reports whether s is exactly one "${name}" reference
// with nothing else around it, so the substitution can preserve the
// referenced value's original type instead of stringifying it.
func wholePlaceholder(s string) (string, bool) {
	m := placeholder.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return "", false
	}
	return m[1], true
}

func toText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}
