package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

func newTestEngine(opts ...WorkflowEngineOption) *WorkflowEngine {
	base := []WorkflowEngineOption{WithEngineClock(fixedClock), WithNotificationIDs(sequence("ntf"))}
	return NewWorkflowEngine(append(base, opts...)...)
}

func cond(field models.RuleField, op models.RuleOperator, value models.ConditionValue) models.RuleCondition {
	return models.RuleCondition{Field: field, Operator: op, Value: value}
}

func TestRuleMatchesConditions(t *testing.T) {
	engine := newTestEngine()
	users := testUsers()
	grievance := newGrievance("g1", 4*day+time.Hour, withCategory(models.CategoryFinancial))

	tests := []struct {
		name       string
		conditions []models.RuleCondition
		enabled    bool
		want       bool
	}{
		{name: "no conditions", enabled: true, want: true},
		{name: "disabled rule", enabled: false, want: false},
		{name: "category equals", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldCategory, models.OperatorEquals, models.StringValue("Financial"))}},
		{name: "category mismatch", enabled: true, want: false,
			conditions: []models.RuleCondition{cond(models.FieldCategory, models.OperatorEquals, models.StringValue("Hostel"))}},
		{name: "unsupported operator", enabled: true, want: false,
			conditions: []models.RuleCondition{cond(models.FieldCategory, models.OperatorContains, models.StringValue("Fin"))}},
		{name: "priority equals", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldPriority, models.OperatorEquals, models.StringValue("Medium"))}},
		{name: "submitter department", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldDepartment, models.OperatorEquals, models.StringValue("CSE"))}},
		{name: "role includes", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldUserRole, models.OperatorIncludes, models.SetValue("Faculty", "Student"))}},
		{name: "role includes registry keys", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldUserRole, models.OperatorIncludes, models.SetValue("FACULTY", "STUDENT"))}},
		{name: "role includes other roles", enabled: true, want: false,
			conditions: []models.RuleCondition{cond(models.FieldUserRole, models.OperatorIncludes, models.SetValue("HOD", "DEPT_ADMIN"))}},
		{name: "role registry key", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldUserRole, models.OperatorEquals, models.StringValue("STUDENT"))}},
		{name: "days greater than", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldDaysUnresolved, models.OperatorGreaterThan, models.StringValue("3"))}},
		{name: "days less than", enabled: true, want: false,
			conditions: []models.RuleCondition{cond(models.FieldDaysUnresolved, models.OperatorLessThan, models.StringValue("4"))}},
		{name: "days equals floors elapsed time", enabled: true, want: true,
			conditions: []models.RuleCondition{cond(models.FieldDaysUnresolved, models.OperatorEquals, models.StringValue("4"))}},
		{name: "malformed threshold fails closed", enabled: true, want: false,
			conditions: []models.RuleCondition{cond(models.FieldDaysUnresolved, models.OperatorGreaterThan, models.StringValue("three"))}},
		{name: "unknown field", enabled: true, want: false,
			conditions: []models.RuleCondition{cond("location", models.OperatorEquals, models.StringValue("x"))}},
		{name: "all conditions must hold", enabled: true, want: false,
			conditions: []models.RuleCondition{
				cond(models.FieldCategory, models.OperatorEquals, models.StringValue("Financial")),
				cond(models.FieldPriority, models.OperatorEquals, models.StringValue("High")),
			}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule := models.WorkflowRule{ID: "r", Enabled: tc.enabled, Conditions: tc.conditions}
			assert.Equal(t, tc.want, engine.RuleMatches(rule, grievance, users))
		})
	}
}

func TestRuleMatchesMissingSubmitter(t *testing.T) {
	engine := newTestEngine()
	grievance := newGrievance("g1", time.Hour, withSubmitter("ghost", "Ghost"))
	rule := models.WorkflowRule{ID: "r", Enabled: true, Conditions: []models.RuleCondition{
		cond(models.FieldDepartment, models.OperatorEquals, models.StringValue("CSE")),
	}}
	assert.False(t, engine.RuleMatches(rule, grievance, testUsers()))
}

func TestFindMatchingRulesOrdersByPriorityStable(t *testing.T) {
	engine := newTestEngine()
	rules := []models.WorkflowRule{
		{ID: "late", Enabled: true, Priority: 5},
		{ID: "first-tie", Enabled: true, Priority: 1},
		{ID: "off", Enabled: false, Priority: 0},
		{ID: "second-tie", Enabled: true, Priority: 1},
	}
	matched := engine.FindMatchingRules(rules, newGrievance("g1", time.Hour), testUsers())

	ids := make([]string, 0, len(matched))
	for _, r := range matched {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"first-tie", "second-tie", "late"}, ids)
}

func TestExecuteRuleActions(t *testing.T) {
	t.Run("escalate assigns and notifies target", func(t *testing.T) {
		engine := newTestEngine()
		rule := models.WorkflowRule{ID: "esc", Name: "Escalate", Enabled: true, Actions: []models.RuleAction{
			{Type: models.ActionEscalate, TargetRole: "DEPT_ADMIN"},
		}}
		grievance := newGrievance("g1", time.Hour)

		out := engine.ExecuteRule(rule, grievance, testUsers(), nil)

		require.NotNil(t, out.AssignedTo)
		assert.Equal(t, "d1", out.AssignedTo.ID)
		assert.Equal(t, "d1", out.Grievance.AssignedTo.ID)
		assert.Equal(t, 1, out.Grievance.EscalationCount)
		require.NotNil(t, out.Grievance.LastEscalatedAt)
		assert.Equal(t, testNow, *out.Grievance.LastEscalatedAt)
		require.Len(t, out.Notifications, 1)
		assert.Equal(t, models.AppNotification{
			ID:          "ntf-1",
			UserID:      "d1",
			Message:     `Grievance "Subject g1" has been escalated to you`,
			Timestamp:   testNow,
			Type:        models.NotificationStatusChange,
			GrievanceID: &grievance.ID,
		}, out.Notifications[0])
		assert.Equal(t, []string{"esc"}, out.Grievance.AppliedRules)
		assert.Nil(t, grievance.AssignedTo, "input grievance must not be mutated")
	})

	t.Run("escalate without holder is a no-op", func(t *testing.T) {
		engine := newTestEngine()
		rule := models.WorkflowRule{ID: "esc", Enabled: true, Actions: []models.RuleAction{
			{Type: models.ActionEscalate, TargetRole: "President"},
		}}
		out := engine.ExecuteRule(rule, newGrievance("g1", time.Hour), testUsers(), nil)

		assert.Nil(t, out.AssignedTo)
		assert.Zero(t, out.Grievance.EscalationCount)
		assert.Empty(t, out.Notifications)
		assert.Equal(t, []string{"esc"}, out.Grievance.AppliedRules)
	})

	t.Run("escalate to missing HOD then notify changes nothing", func(t *testing.T) {
		engine := newTestEngine()
		users := make([]models.User, 0)
		for _, u := range testUsers() {
			if u.Role != models.RoleHOD {
				users = append(users, u)
			}
		}
		rule := models.WorkflowRule{ID: "esc-hod", Enabled: true, Actions: []models.RuleAction{
			{Type: models.ActionEscalate, TargetRole: "HOD"},
			{Type: models.ActionNotify},
		}}
		grievance := newGrievance("g1", time.Hour)

		out := engine.ExecuteRule(rule, grievance, users, nil)
		assert.Nil(t, out.AssignedTo)
		assert.Nil(t, out.Grievance.AssignedTo)
		assert.Zero(t, out.Grievance.EscalationCount)
		assert.Nil(t, out.Grievance.LastEscalatedAt)
		assert.Empty(t, out.Notifications)

		run := engine.ApplyRules([]models.WorkflowRule{rule}, grievance, users)
		assert.Nil(t, run.Grievance.AssignedTo)
		assert.Zero(t, run.Grievance.EscalationCount)
		assert.Empty(t, run.Notifications)
		assert.Equal(t, []string{"esc-hod"}, run.MatchedRules)
	})

	t.Run("assign unknown user is a no-op", func(t *testing.T) {
		engine := newTestEngine()
		rule := models.WorkflowRule{ID: "asg", Enabled: true, Actions: []models.RuleAction{
			{Type: models.ActionAssign, TargetUserID: "nobody"},
			{Type: models.ActionNotify},
		}}
		out := engine.ExecuteRule(rule, newGrievance("g1", time.Hour), testUsers(), nil)

		assert.Nil(t, out.AssignedTo)
		assert.Empty(t, out.Notifications)
	})

	t.Run("notify uses carried assignee", func(t *testing.T) {
		engine := newTestEngine()
		rule := models.WorkflowRule{ID: "ntf", Name: "Ping", Enabled: true, Actions: []models.RuleAction{
			{Type: models.ActionNotify},
		}}
		carried := &models.Assignee{ID: "f1", Name: "Ravi"}
		out := engine.ExecuteRule(rule, newGrievance("g1", time.Hour), testUsers(), carried)

		require.Len(t, out.Notifications, 1)
		assert.Equal(t, "f1", out.Notifications[0].UserID)
		assert.Equal(t, `Rule "Ping" triggered for grievance "Subject g1"`, out.Notifications[0].Message)
		assert.Nil(t, out.Grievance.AssignedTo, "notify never assigns")
	})

	t.Run("set priority and tag", func(t *testing.T) {
		engine := newTestEngine()
		rule := models.WorkflowRule{ID: "mut", Enabled: true, Actions: []models.RuleAction{
			{Type: models.ActionSetPriority, Value: "High"},
			{Type: models.ActionAddTag, Value: "urgent"},
			{Type: models.ActionAddTag},
		}}
		out := engine.ExecuteRule(rule, newGrievance("g1", time.Hour), testUsers(), nil)

		assert.Equal(t, models.PriorityHigh, out.Grievance.Priority)
		assert.Equal(t, []string{"urgent"}, out.Grievance.Tags)
	})
}

func TestApplyRulesFoldsInPriorityOrder(t *testing.T) {
	engine := newTestEngine()
	rules := []models.WorkflowRule{
		{ID: "notify", Name: "Notify", Enabled: true, Priority: 2, Actions: []models.RuleAction{{Type: models.ActionNotify}}},
		{ID: "assign", Name: "Assign", Enabled: true, Priority: 1, Actions: []models.RuleAction{{Type: models.ActionAssign, TargetUserID: "f1"}}},
	}
	grievance := newGrievance("g1", time.Hour)

	out := engine.ApplyRules(rules, grievance, testUsers())

	require.NotNil(t, out.AssignedTo)
	assert.Equal(t, "f1", out.AssignedTo.ID)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, "f1", out.Notifications[0].UserID)
	assert.Equal(t, []string{"assign", "notify"}, out.Grievance.AppliedRules)
	assert.Equal(t, []string{"assign", "notify"}, out.MatchedRules)
	assert.Empty(t, grievance.AppliedRules)
}

func TestApplyRulesMatchesAgainstOriginalGrievance(t *testing.T) {
	engine := newTestEngine()
	rules := []models.WorkflowRule{
		{ID: "raise", Enabled: true, Priority: 1, Actions: []models.RuleAction{{Type: models.ActionSetPriority, Value: "High"}}},
		{ID: "fast-track", Enabled: true, Priority: 2,
			Conditions: []models.RuleCondition{cond(models.FieldPriority, models.OperatorEquals, models.StringValue("High"))},
			Actions:    []models.RuleAction{{Type: models.ActionAddTag, Value: "fast-track"}}},
	}

	first := engine.ApplyRules(rules, newGrievance("g1", time.Hour), testUsers())
	assert.Equal(t, []string{"raise"}, first.Grievance.AppliedRules)
	assert.Empty(t, first.Grievance.Tags)

	second := engine.ApplyRules(rules, first.Grievance, testUsers())
	assert.Equal(t, []string{"raise", "raise", "fast-track"}, second.Grievance.AppliedRules)
	assert.Equal(t, []string{"fast-track"}, second.Grievance.Tags)
}

func TestApplyRulesSkipApplied(t *testing.T) {
	rules := []models.WorkflowRule{
		{ID: "tag", Enabled: true, Actions: []models.RuleAction{{Type: models.ActionAddTag, Value: "seen"}}},
	}
	grievance := newGrievance("g1", time.Hour)
	grievance.AppliedRules = []string{"tag"}

	refire := newTestEngine().ApplyRules(rules, grievance, testUsers())
	assert.Equal(t, []string{"tag", "tag"}, refire.Grievance.AppliedRules)

	skip := newTestEngine(WithSkipAppliedRules(true)).ApplyRules(rules, grievance, testUsers())
	assert.Equal(t, []string{"tag"}, skip.Grievance.AppliedRules)
	assert.Empty(t, skip.MatchedRules)
}

func TestApplyRulesNoMatchReturnsCopy(t *testing.T) {
	engine := newTestEngine()
	grievance := newGrievance("g1", time.Hour, withAssignee("h1", "Meera"))

	out := engine.ApplyRules(nil, grievance, testUsers())

	if diff := cmp.Diff(grievance, out.Grievance); diff != "" {
		t.Fatalf("grievance changed without rules (-want +got):\n%s", diff)
	}
	assert.Nil(t, out.AssignedTo)
	assert.Empty(t, out.Notifications)
}
