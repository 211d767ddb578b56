package notify

import (
	"fmt"
	"strings"

	"github.com/zulandar/switchboard/internal/dispatch"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// actionVerb returns a human-friendly verb for a change action.
func actionVerb(action string) string {
	switch action {
	case dispatch.ActionCreated:
		return "created"
	case dispatch.ActionUpdated:
		return "updated"
	case dispatch.ActionDeleted:
		return "deleted"
	default:
		return action
	}
}

// typeNoun returns a display name for an event type.
func typeNoun(eventType string) string {
	switch eventType {
	case dispatch.TypeBoard:
		return "Board"
	case dispatch.TypeCard:
		return "Card"
	case dispatch.TypeActionPlan:
		return "Action plan"
	default:
		return eventType
	}
}

// FormatChange formats a change event for chat delivery.
func FormatChange(event dispatch.Event) FormattedEvent {
	severity := "info"
	switch event.Action {
	case dispatch.ActionCreated:
		severity = "success"
	case dispatch.ActionDeleted:
		severity = "warning"
	}

	title := fmt.Sprintf("%s %s %s", typeNoun(event.Type), event.ID, actionVerb(event.Action))

	fields := []Field{
		{Name: "Type", Value: event.Type, Short: true},
		{Name: "Action", Value: event.Action, Short: true},
	}
	if boardID, ok := event.Data["board_id"]; ok {
		fields = append(fields, Field{Name: "Board", Value: boardID, Short: true})
	}
	if planID, ok := event.Data["action_plan_id"]; ok {
		fields = append(fields, Field{Name: "Plan", Value: planID, Short: true})
	}

	var bodyParts []string
	if event.Data["moved"] == "true" {
		bodyParts = append(bodyParts, fmt.Sprintf("Moved to column %s", event.Data["column_id"]))
	}

	return FormattedEvent{
		Title:    title,
		Body:     strings.Join(bodyParts, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}
