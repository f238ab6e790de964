package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const day = 24 * time.Hour

// Clock returns the current instant. Engines take one so tests can pin time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func newULID() string { return ulid.Make().String() }

// WorkflowEngine matches workflow rules against grievances and folds their actions.
// It never writes through to storage; callers persist the returned grievance.
type WorkflowEngine struct {
	now         Clock
	newID       func() string
	skipApplied bool
}

// WorkflowEngineOption customises a WorkflowEngine.
type WorkflowEngineOption func(*WorkflowEngine)

// WithEngineClock pins the engine's notion of now.
func WithEngineClock(now Clock) WorkflowEngineOption {
	return func(e *WorkflowEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithNotificationIDs overrides the notification identifier generator.
func WithNotificationIDs(fn func() string) WorkflowEngineOption {
	return func(e *WorkflowEngine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithSkipAppliedRules makes ApplyRules ignore rules already recorded in appliedRules.
// The default re-fires every matching rule on every run.
func WithSkipAppliedRules(skip bool) WorkflowEngineOption {
	return func(e *WorkflowEngine) {
		e.skipApplied = skip
	}
}

// NewWorkflowEngine constructs an engine with the system clock and ULID notification ids.
func NewWorkflowEngine(opts ...WorkflowEngineOption) *WorkflowEngine {
	e := &WorkflowEngine{now: systemClock, newID: newULID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RuleMatches reports whether the rule is enabled and every condition holds.
func (e *WorkflowEngine) RuleMatches(rule models.WorkflowRule, grievance models.Grievance, users []models.User) bool {
	if !rule.Enabled {
		return false
	}
	for _, cond := range rule.Conditions {
		if !e.evaluateCondition(cond, grievance, users) {
			return false
		}
	}
	return true
}

func (e *WorkflowEngine) evaluateCondition(cond models.RuleCondition, grievance models.Grievance, users []models.User) bool {
	switch cond.Field {
	case models.FieldCategory:
		v, ok := scalar(cond)
		return ok && cond.Operator == models.OperatorEquals && string(grievance.Category) == v
	case models.FieldPriority:
		v, ok := scalar(cond)
		return ok && cond.Operator == models.OperatorEquals && string(grievance.Priority) == v
	case models.FieldDepartment:
		submitter := findUser(users, grievance.UserID)
		v, ok := scalar(cond)
		return submitter != nil && ok && cond.Operator == models.OperatorEquals && submitter.Department == v
	case models.FieldUserRole:
		submitter := findUser(users, grievance.UserID)
		if submitter == nil {
			return false
		}
		switch cond.Operator {
		case models.OperatorEquals:
			v, ok := scalar(cond)
			return ok && submitter.Role == models.NormalizeRole(v)
		case models.OperatorIncludes:
			return cond.Value.Any(func(v string) bool { return submitter.Role == models.NormalizeRole(v) })
		default:
			return false
		}
	case models.FieldDaysUnresolved:
		threshold, err := strconv.ParseFloat(strings.TrimSpace(cond.Value.String()), 64)
		if err != nil || cond.Value.IsSet() {
			return false
		}
		days := math.Floor(float64(e.now().Sub(grievance.CreatedAt)) / float64(day))
		switch cond.Operator {
		case models.OperatorGreaterThan:
			return days > threshold
		case models.OperatorLessThan:
			return days < threshold
		case models.OperatorEquals:
			return days == threshold
		default:
			return false
		}
	default:
		return false
	}
}

func scalar(cond models.RuleCondition) (string, bool) {
	if cond.Value.IsSet() {
		return "", false
	}
	return cond.Value.String(), true
}

// FindMatchingRules returns the matching rules ordered by ascending priority; ties keep input order.
func (e *WorkflowEngine) FindMatchingRules(rules []models.WorkflowRule, grievance models.Grievance, users []models.User) []models.WorkflowRule {
	matched := make([]models.WorkflowRule, 0, len(rules))
	for _, rule := range rules {
		if e.RuleMatches(rule, grievance, users) {
			matched = append(matched, rule)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})
	return matched
}

// ExecuteRule applies one rule's actions in declaration order.
// carried is the assignee known from earlier rules in the same run.
func (e *WorkflowEngine) ExecuteRule(rule models.WorkflowRule, grievance models.Grievance, users []models.User, carried *models.Assignee) models.RuleExecution {
	updated := grievance.Clone()
	assignee := copyAssignee(carried)
	notifications := make([]models.AppNotification, 0)

	for _, action := range rule.Actions {
		switch action.Type {
		case models.ActionAssign:
			if action.TargetUserID == "" {
				continue
			}
			if target := findUser(users, action.TargetUserID); target != nil {
				assignee = target.Assignee()
				updated.AssignedTo = copyAssignee(assignee)
			}
		case models.ActionEscalate:
			target := findEscalationTarget(users, models.NormalizeRole(action.TargetRole))
			if target == nil {
				continue
			}
			now := e.now()
			assignee = target.Assignee()
			updated.AssignedTo = copyAssignee(assignee)
			updated.EscalationCount++
			updated.LastEscalatedAt = &now
			notifications = append(notifications, e.notification(target.ID, grievance,
				fmt.Sprintf("Grievance \"%s\" has been escalated to you", grievance.Subject)))
		case models.ActionNotify:
			if assignee == nil {
				continue
			}
			notifications = append(notifications, e.notification(assignee.ID, grievance,
				fmt.Sprintf("Rule \"%s\" triggered for grievance \"%s\"", rule.Name, grievance.Subject)))
		case models.ActionSetPriority:
			if action.Value != "" {
				updated.Priority = models.Priority(action.Value)
			}
		case models.ActionAddTag:
			if action.Value != "" {
				updated.Tags = append(updated.Tags, action.Value)
			}
		}
	}

	updated.AppliedRules = append(updated.AppliedRules, rule.ID)

	return models.RuleExecution{
		Grievance:     updated,
		AssignedTo:    assignee,
		Notifications: notifications,
		MatchedRules:  []string{rule.ID},
	}
}

// ApplyRules matches every rule against the grievance as supplied, then folds the matched rules
// in priority order. Effects of one rule are visible to the actions of later rules but never
// re-trigger matching; a second ApplyRules call sees them.
func (e *WorkflowEngine) ApplyRules(rules []models.WorkflowRule, grievance models.Grievance, users []models.User) models.RuleExecution {
	matched := e.FindMatchingRules(rules, grievance, users)

	result := models.RuleExecution{
		Grievance:     grievance.Clone(),
		Notifications: make([]models.AppNotification, 0),
		MatchedRules:  make([]string, 0, len(matched)),
	}
	for _, rule := range matched {
		if e.skipApplied && containsString(grievance.AppliedRules, rule.ID) {
			continue
		}
		step := e.ExecuteRule(rule, result.Grievance, users, result.AssignedTo)
		result.Grievance = step.Grievance
		result.AssignedTo = step.AssignedTo
		result.Notifications = append(result.Notifications, step.Notifications...)
		result.MatchedRules = append(result.MatchedRules, rule.ID)
	}
	return result
}

func (e *WorkflowEngine) notification(userID string, grievance models.Grievance, message string) models.AppNotification {
	gid := grievance.ID
	return models.AppNotification{
		ID:          e.newID(),
		UserID:      userID,
		Message:     message,
		Timestamp:   e.now(),
		Read:        false,
		Type:        models.NotificationStatusChange,
		GrievanceID: &gid,
	}
}

func findUser(users []models.User, id string) *models.User {
	if id == "" {
		return nil
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

func findEscalationTarget(users []models.User, role models.Role) *models.User {
	if !role.IsStaff() {
		return nil
	}
	for i := range users {
		if users[i].Role == role {
			return &users[i]
		}
	}
	return nil
}

func copyAssignee(a *models.Assignee) *models.Assignee {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
