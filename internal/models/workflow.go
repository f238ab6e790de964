package models

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleField enumerates the grievance attributes a condition can inspect.
type RuleField string

const (
	FieldCategory       RuleField = "category"
	FieldPriority       RuleField = "priority"
	FieldDepartment     RuleField = "department"
	FieldUserRole       RuleField = "userRole"
	FieldDaysUnresolved RuleField = "daysUnresolved"
)

// RuleOperator enumerates comparison operators.
type RuleOperator string

const (
	OperatorEquals      RuleOperator = "equals"
	OperatorContains    RuleOperator = "contains"
	OperatorIncludes    RuleOperator = "includes"
	OperatorGreaterThan RuleOperator = "greaterThan"
	OperatorLessThan    RuleOperator = "lessThan"
)

// ConditionValue holds either a single string or a set of strings.
// It accepts both shapes from JSON and YAML and writes a bare string back when it holds one value.
type ConditionValue struct {
	Values []string
	isSet  bool
}

// StringValue builds a single-valued condition operand.
func StringValue(v string) ConditionValue {
	return ConditionValue{Values: []string{v}}
}

// SetValue builds a set-valued condition operand.
func SetValue(vs ...string) ConditionValue {
	return ConditionValue{Values: append([]string(nil), vs...), isSet: true}
}

// String returns the scalar form; sets yield their first member.
func (v ConditionValue) String() string {
	if len(v.Values) == 0 {
		return ""
	}
	return v.Values[0]
}

// Any reports whether some member of the operand satisfies match.
func (v ConditionValue) Any(match func(string) bool) bool {
	for _, candidate := range v.Values {
		if match(candidate) {
			return true
		}
	}
	return false
}

// IsSet reports whether the operand was supplied as a list.
func (v ConditionValue) IsSet() bool {
	return v.isSet
}

var errConditionValue = errors.New("condition value must be a string or a list of strings")

// MarshalJSON implements json.Marshaler.
func (v ConditionValue) MarshalJSON() ([]byte, error) {
	if v.isSet {
		if v.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Values)
	}
	return json.Marshal(v.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = StringValue(single)
		return nil
	}
	var set []string
	if err := json.Unmarshal(data, &set); err == nil {
		*v = SetValue(set...)
		return nil
	}
	return errConditionValue
}

// MarshalYAML implements yaml.Marshaler.
func (v ConditionValue) MarshalYAML() (interface{}, error) {
	if v.isSet {
		return v.Values, nil
	}
	return v.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *ConditionValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = StringValue(node.Value)
		return nil
	case yaml.SequenceNode:
		var set []string
		if err := node.Decode(&set); err != nil {
			return err
		}
		*v = SetValue(set...)
		return nil
	default:
		return errConditionValue
	}
}

// RuleCondition is one AND-combined predicate of a rule.
type RuleCondition struct {
	Field    RuleField      `json:"field" yaml:"field" validate:"required,oneof=category priority department userRole daysUnresolved"`
	Operator RuleOperator   `json:"operator" yaml:"operator" validate:"required,oneof=equals contains includes greaterThan lessThan"`
	Value    ConditionValue `json:"value" yaml:"value"`
}

// RuleActionType enumerates what a rule can do.
type RuleActionType string

const (
	ActionAssign      RuleActionType = "assign"
	ActionEscalate    RuleActionType = "escalate"
	ActionNotify      RuleActionType = "notify"
	ActionSetPriority RuleActionType = "setPriority"
	ActionAddTag      RuleActionType = "addTag"
)

// RuleAction is one step executed when a rule matches.
type RuleAction struct {
	Type         RuleActionType `json:"type" yaml:"type" validate:"required,oneof=assign escalate notify setPriority addTag"`
	TargetUserID string         `json:"targetUserId,omitempty" yaml:"targetUserId,omitempty"`
	TargetRole   string         `json:"targetRole,omitempty" yaml:"targetRole,omitempty"`
	Value        string         `json:"value,omitempty" yaml:"value,omitempty"`
	NotifyEmail  bool           `json:"notifyEmail,omitempty" yaml:"notifyEmail,omitempty"`
}

// WorkflowRule is a declarative condition to action automation.
type WorkflowRule struct {
	ID          string          `db:"id" json:"id" yaml:"id"`
	Name        string          `db:"name" json:"name" yaml:"name"`
	Description string          `db:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool            `db:"enabled" json:"enabled" yaml:"enabled"`
	Priority    int             `db:"priority" json:"priority" yaml:"priority"`
	Conditions  []RuleCondition `db:"-" json:"conditions" yaml:"conditions"`
	Actions     []RuleAction    `db:"-" json:"actions" yaml:"actions"`
	CreatedBy   string          `db:"created_by" json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt" yaml:"-"`
}

// RuleExecution is the outcome of applying one rule or a whole rule set.
type RuleExecution struct {
	Grievance     Grievance         `json:"grievance"`
	AssignedTo    *Assignee         `json:"assignedTo,omitempty"`
	Notifications []AppNotification `json:"notifications"`
	MatchedRules  []string          `json:"matchedRules,omitempty"`
}

// EscalationMetrics summarises escalation activity across grievances.
type EscalationMetrics struct {
	EscalatedCount                 int     `json:"escalatedCount"`
	TotalEscalations               int     `json:"totalEscalations"`
	AverageEscalationsPerGrievance float64 `json:"averageEscalationsPerGrievance"`
}

// AssignmentSuggestion bundles advisor output for one grievance.
type AssignmentSuggestion struct {
	GrievanceID     string `json:"grievanceId"`
	Eligible        []User `json:"eligible"`
	LeastBusy       *User  `json:"leastBusy,omitempty"`
	NeedsEscalation bool   `json:"needsEscalation"`
	SLAHours        int    `json:"slaHours"`
}
