package routing

import (
	"fmt"
	"sort"

	"github.com/zulandar/switchboard/internal/models"
)

// WorkItem exposes the attributes a routing rule can match against. Custom
// is the predicate hook for rules with the custom condition type; a nil
// Custom never matches such rules.
type WorkItem struct {
	Badge           string
	Intent          string
	Urgency         string
	CustomerSegment string
	Channel         string
	Custom          func(conditionValue string) bool
}

// Decision is the outcome of a successful rule evaluation.
type Decision struct {
	Rule     models.RoutingRule
	TeamID   string
	BoardID  *string
	ColumnID *string
}

// Evaluate loads the enabled rule set and returns the first match in
// (priority, insertion) order, or nil when no rule matches. Evaluation has
// no hidden state: the same rule set and work item always yield the same
// decision.
func (e *Engine) Evaluate(item WorkItem) (*Decision, error) {
	enabled := true
	rules, err := e.List(ListFilters{Enabled: &enabled})
	if err != nil {
		return nil, fmt.Errorf("routing: evaluate: %w", err)
	}
	return EvaluateRules(rules, item), nil
}

// EvaluateRules is the pure evaluation core: stable-sorts rules by
// (priority, seq) and returns the first match, or nil for none.
func EvaluateRules(rules []models.RoutingRule, item WorkItem) *Decision {
	ordered := make([]models.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}
		if Matches(rule, item) {
			r := rule
			return &Decision{
				Rule:     r,
				TeamID:   r.TargetTeamID,
				BoardID:  r.TargetBoardID,
				ColumnID: r.TargetColumnID,
			}
		}
	}
	return nil
}

// Matches reports whether a single rule matches a work item. The channel
// filter applies first; the condition then compares by exact string
// equality against the field named by ConditionType, with "*" accepting any
// value. Custom conditions delegate to the work item's predicate hook.
func Matches(rule models.RoutingRule, item WorkItem) bool {
	if rule.Channel != nil && *rule.Channel != item.Channel {
		return false
	}

	value := ""
	if rule.ConditionValue != nil {
		value = *rule.ConditionValue
	}

	switch rule.ConditionType {
	case models.ConditionBadge:
		return matchField(value, item.Badge)
	case models.ConditionIntent:
		return matchField(value, item.Intent)
	case models.ConditionUrgency:
		return matchField(value, item.Urgency)
	case models.ConditionCustomerSegment:
		return matchField(value, item.CustomerSegment)
	case models.ConditionChannel:
		return matchField(value, item.Channel)
	case models.ConditionCustom:
		return item.Custom != nil && item.Custom(value)
	default:
		return false
	}
}

func matchField(conditionValue, field string) bool {
	if conditionValue == "*" {
		return true
	}
	return conditionValue == field
}
