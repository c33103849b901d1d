package main

import "github.com/openhab-automation/ruleengine/rules"

// createScopeRequest is the body for POST /api/v1/scopes.
type createScopeRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// addRuleRequest is the body for POST /api/v1/scopes/{scopeId}/rules.
type addRuleRequest struct {
	UID           string             `json:"uid,omitempty"`
	Name          string             `json:"name"`
	TemplateUID   string             `json:"templateUid,omitempty"`
	Triggers      []*rules.Trigger   `json:"triggers,omitempty"`
	Conditions    []*rules.Condition `json:"conditions,omitempty"`
	Actions       []*rules.Action    `json:"actions,omitempty"`
	Configuration map[string]any     `json:"configuration,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
}

// setEnabledRequest is the body for PUT /api/v1/scopes/{scopeId}/rules/{ruleId}/enabled.
type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// statusResponse mirrors rules.StatusInfo for JSON responses.
type statusResponse struct {
	Status  string `json:"status"`
	Detail  string `json:"detail"`
	Message string `json:"message,omitempty"`
}

func toStatusResponse(info rules.StatusInfo) statusResponse {
	return statusResponse{
		Status:  info.Status.String(),
		Detail:  info.Detail.String(),
		Message: info.Message,
	}
}
