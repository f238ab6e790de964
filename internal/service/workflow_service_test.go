package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/jobs"
)

type workflowFixture struct {
	svc        *WorkflowService
	grievances *memoryGrievances
	rules      *memoryRules
	notifier   *recordingNotifier
	cacheRepo  *stubCacheRepo
	metrics    *MetricsService
}

func newWorkflowFixture(rules []models.WorkflowRule, grievances ...models.Grievance) *workflowFixture {
	f := &workflowFixture{
		grievances: newMemoryGrievances(grievances...),
		rules:      &memoryRules{items: rules},
		notifier:   &recordingNotifier{},
		cacheRepo:  &stubCacheRepo{},
		metrics:    NewMetricsService(),
	}
	cache := NewCacheService(f.cacheRepo, f.metrics, time.Minute, zap.NewNop(), true)
	f.svc = NewWorkflowService(f.rules, f.grievances, &memoryUsers{items: testUsers()}, newTestEngine(),
		f.notifier, cache, f.metrics, nil, zap.NewNop(), WorkflowServiceOptions{Clock: fixedClock})
	return f
}

func financeEscalation() models.WorkflowRule {
	return models.WorkflowRule{
		ID:         "r1",
		Name:       "Escalate finance",
		Enabled:    true,
		Priority:   1,
		Conditions: []models.RuleCondition{cond(models.FieldCategory, models.OperatorEquals, models.StringValue("Financial"))},
		Actions: []models.RuleAction{
			{Type: models.ActionEscalate, TargetRole: "HOD"},
			{Type: models.ActionAddTag, Value: "finance"},
		},
	}
}

func tagRule(id, tag string, conditions ...models.RuleCondition) models.WorkflowRule {
	return models.WorkflowRule{
		ID:         id,
		Name:       "Tag " + tag,
		Enabled:    true,
		Conditions: conditions,
		Actions:    []models.RuleAction{{Type: models.ActionAddTag, Value: tag}},
	}
}

func TestWorkflowServiceApplyPersistsOutcome(t *testing.T) {
	f := newWorkflowFixture([]models.WorkflowRule{financeEscalation()},
		newGrievance("g1", 2*day, withCategory(models.CategoryFinancial)))

	result, err := f.svc.Apply(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, result.MatchedRules)

	stored := f.grievances.get("g1")
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, "h1", stored.AssignedTo.ID)
	assert.Equal(t, 1, stored.EscalationCount)
	assert.Equal(t, []string{"finance"}, stored.Tags)
	assert.Equal(t, []string{"r1"}, stored.AppliedRules)
	assert.Equal(t, testNow, stored.UpdatedAt)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "h1", sent[0].UserID)

	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.RulesApplied)
	assert.Equal(t, uint64(1), snapshot.Escalations)
	assert.Contains(t, f.cacheRepo.patterns, "analytics:*")
}

func TestWorkflowServiceApplyWithoutMatchWritesNothing(t *testing.T) {
	f := newWorkflowFixture([]models.WorkflowRule{financeEscalation()}, newGrievance("g1", day))

	result, err := f.svc.Apply(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, result.MatchedRules)
	assert.Zero(t, f.grievances.updates)
	assert.Empty(t, f.notifier.sent())
}

func TestWorkflowServiceApplyMissingGrievance(t *testing.T) {
	f := newWorkflowFixture(nil)

	_, err := f.svc.Apply(context.Background(), "nope")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestWorkflowServiceApplyNewNotifiesLeastBusyStaff(t *testing.T) {
	busy := newGrievance("g0", 3*day, withSubmitter("s2", "Vikram"), withAssignee("f1", "Ravi"))
	f := newWorkflowFixture([]models.WorkflowRule{tagRule("r1", "triage")}, busy, newGrievance("g1", time.Hour))

	result, err := f.svc.ApplyNew(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, result.Grievance.AssignedTo)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "h1", sent[0].UserID)
	assert.Equal(t, models.NotificationNewSubmission, sent[0].Type)
	assert.Equal(t, `New General grievance "Subject g1" awaits assignment`, sent[0].Message)
}

func TestWorkflowServiceApplyNewSkipsNoticeWhenAssigned(t *testing.T) {
	f := newWorkflowFixture([]models.WorkflowRule{financeEscalation()},
		newGrievance("g1", time.Hour, withCategory(models.CategoryFinancial)))

	_, err := f.svc.ApplyNew(context.Background(), "g1")
	require.NoError(t, err)
	for _, n := range f.notifier.sent() {
		assert.NotEqual(t, models.NotificationNewSubmission, n.Type)
	}
}

func TestWorkflowServicePreviewDoesNotPersist(t *testing.T) {
	f := newWorkflowFixture([]models.WorkflowRule{financeEscalation()},
		newGrievance("g1", day, withCategory(models.CategoryFinancial)))

	result, err := f.svc.Preview(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, result.MatchedRules)
	assert.Zero(t, f.grievances.updates)
	assert.Empty(t, f.notifier.sent())
	assert.Nil(t, f.grievances.get("g1").AssignedTo)
}

func TestWorkflowServiceSweep(t *testing.T) {
	stale := cond(models.FieldDaysUnresolved, models.OperatorGreaterThan, models.StringValue("3"))
	f := newWorkflowFixture([]models.WorkflowRule{tagRule("r-stale", "stale", stale)},
		newGrievance("g-old", 5*day),
		newGrievance("g-new", day),
		newGrievance("g-closed", 10*day, resolvedAfter(1)),
	)

	result, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.SweepResult{Evaluated: 2, Changed: 1}, result)
	assert.Equal(t, []string{"stale"}, f.grievances.get("g-old").Tags)
	assert.Empty(t, f.grievances.get("g-new").Tags)
}

func TestWorkflowServiceSweepStopsOnCancel(t *testing.T) {
	f := newWorkflowFixture(nil, newGrievance("g1", day))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Sweep(ctx)
	assert.Error(t, err)
}

func TestWorkflowServiceSuggest(t *testing.T) {
	f := newWorkflowFixture(nil, newGrievance("g1", 2*day, withCategory(models.CategoryAcademic)))

	suggestion, err := f.svc.Suggest(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, suggestion.Eligible, 1)
	assert.Equal(t, "c1", suggestion.Eligible[0].ID)
	require.NotNil(t, suggestion.LeastBusy)
	assert.Equal(t, "c1", suggestion.LeastBusy.ID)
	assert.True(t, suggestion.NeedsEscalation)
	assert.Equal(t, DefaultSLAHours, suggestion.SLAHours)
}

func TestWorkflowServiceSuggestHonoursZeroSLA(t *testing.T) {
	zero := 0
	svc := NewWorkflowService(&memoryRules{}, newMemoryGrievances(newGrievance("g1", time.Minute)), &memoryUsers{items: testUsers()},
		newTestEngine(), nil, nil, nil, nil, zap.NewNop(), WorkflowServiceOptions{SLAHours: &zero, Clock: fixedClock})

	suggestion, err := svc.Suggest(context.Background(), "g1")
	require.NoError(t, err)
	assert.Zero(t, suggestion.SLAHours)
	assert.True(t, suggestion.NeedsEscalation)
}

func TestWorkflowServiceHandleJob(t *testing.T) {
	f := newWorkflowFixture([]models.WorkflowRule{tagRule("r1", "seen")}, newGrievance("g1", time.Hour))

	require.NoError(t, f.svc.HandleJob(context.Background(), jobs.Job{Type: JobApplyWorkflow, Payload: "g1"}))
	assert.Equal(t, []string{"seen"}, f.grievances.get("g1").Tags)

	assert.Error(t, f.svc.HandleJob(context.Background(), jobs.Job{Type: JobApplyWorkflow, Payload: 42}))
}

func TestWorkflowServiceHandleJobSucceedsOnceOutcomeIsSaved(t *testing.T) {
	f := newWorkflowFixture([]models.WorkflowRule{tagRule("tag", "tracked")}, newGrievance("g1", time.Hour))
	f.grievances.openErrs = []error{errors.New("connection reset")}

	require.NoError(t, f.svc.HandleJob(context.Background(), jobs.Job{Type: JobApplyWorkflow, Payload: "g1"}))

	saved := f.grievances.get("g1")
	assert.Equal(t, []string{"tracked"}, saved.Tags)
	assert.Equal(t, []string{"tag"}, saved.AppliedRules)
	assert.Empty(t, f.notifier.sent())
}

func TestWorkflowServiceCreateRuleValidation(t *testing.T) {
	f := newWorkflowFixture(nil)
	actor := staff(models.RoleAdmin, "admin-1")

	tests := []struct {
		name string
		req  dto.RuleRequest
	}{
		{name: "missing conditions", req: dto.RuleRequest{
			Name:    "empty",
			Actions: []models.RuleAction{{Type: models.ActionAddTag, Value: "x"}},
		}},
		{name: "unsupported operator", req: dto.RuleRequest{
			Name:       "contains",
			Conditions: []models.RuleCondition{cond(models.FieldCategory, models.OperatorContains, models.StringValue("Fin"))},
			Actions:    []models.RuleAction{{Type: models.ActionAddTag, Value: "x"}},
		}},
		{name: "non numeric days", req: dto.RuleRequest{
			Name:       "days",
			Conditions: []models.RuleCondition{cond(models.FieldDaysUnresolved, models.OperatorGreaterThan, models.StringValue("soon"))},
			Actions:    []models.RuleAction{{Type: models.ActionAddTag, Value: "x"}},
		}},
		{name: "escalate to student", req: dto.RuleRequest{
			Name:       "student",
			Conditions: []models.RuleCondition{cond(models.FieldPriority, models.OperatorEquals, models.StringValue("High"))},
			Actions:    []models.RuleAction{{Type: models.ActionEscalate, TargetRole: "Student"}},
		}},
		{name: "bad priority value", req: dto.RuleRequest{
			Name:       "priority",
			Conditions: []models.RuleCondition{cond(models.FieldPriority, models.OperatorEquals, models.StringValue("High"))},
			Actions:    []models.RuleAction{{Type: models.ActionSetPriority, Value: "Urgent"}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateRule(context.Background(), tc.req, actor)
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
	assert.Empty(t, f.rules.created)
}

func TestWorkflowServiceRuleLifecycle(t *testing.T) {
	f := newWorkflowFixture(nil)
	ctx := context.Background()
	req := dto.RuleRequest{
		Name:       " Escalate hostel ",
		Priority:   2,
		Conditions: []models.RuleCondition{cond(models.FieldCategory, models.OperatorEquals, models.StringValue("Hostel"))},
		Actions:    []models.RuleAction{{Type: models.ActionEscalate, TargetRole: "DEPT_ADMIN"}},
	}

	created, err := f.svc.CreateRule(ctx, req, staff(models.RoleAdmin, "admin-1"))
	require.NoError(t, err)
	assert.Equal(t, "Escalate hostel", created.Name)
	assert.True(t, created.Enabled)
	assert.Equal(t, "admin-1", created.CreatedBy)

	require.NoError(t, f.svc.SetRuleEnabled(ctx, created.ID, false))
	req.Name = "Escalate hostel faster"
	updated, err := f.svc.UpdateRule(ctx, created.ID, req)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "admin-1", updated.CreatedBy)

	rules, err := f.svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Escalate hostel faster", rules[0].Name)

	require.NoError(t, f.svc.DeleteRule(ctx, created.ID))
	_, err = f.svc.GetRule(ctx, created.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestWorkflowServiceSeedRulesOnlyWhenEmpty(t *testing.T) {
	f := newWorkflowFixture(nil)
	seed := []models.WorkflowRule{financeEscalation(), tagRule("r2", "x")}

	n, err := f.svc.SeedRules(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.SeedRules(context.Background(), seed)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.rules.items, 2)
}
