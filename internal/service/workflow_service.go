package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/jobs"
)

type ruleRepository interface {
	List(ctx context.Context) ([]models.WorkflowRule, error)
	Get(ctx context.Context, id string) (*models.WorkflowRule, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, rule *models.WorkflowRule) error
	Update(ctx context.Context, rule *models.WorkflowRule) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
}

type grievanceStore interface {
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
	All(ctx context.Context) ([]models.Grievance, error)
	Open(ctx context.Context) ([]models.Grievance, error)
	Create(ctx context.Context, g *models.Grievance) error
	Update(ctx context.Context, g *models.Grievance) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	All(ctx context.Context) ([]models.User, error)
}

// NotificationDispatcher hands notifications to delivery.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, items []models.AppNotification) error
}

type discardNotifications struct{}

func (discardNotifications) Dispatch(context.Context, []models.AppNotification) error { return nil }

// WorkflowServiceOptions tunes the workflow service.
type WorkflowServiceOptions struct {
	// SLAHours is the escalation window; nil selects DefaultSLAHours.
	SLAHours *int
	Roles    *models.RoleRegistry
	Clock    Clock
}

// WorkflowService runs the rule engine against stored grievances and manages the rule set.
type WorkflowService struct {
	rules      ruleRepository
	grievances grievanceStore
	users      userDirectory
	engine     *WorkflowEngine
	notifier   NotificationDispatcher
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger

	slaHours int
	roles    *models.RoleRegistry
	now      Clock
}

// NewWorkflowService wires the workflow service.
func NewWorkflowService(
	rules ruleRepository,
	grievances grievanceStore,
	users userDirectory,
	engine *WorkflowEngine,
	notifier NotificationDispatcher,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	opts WorkflowServiceOptions,
) *WorkflowService {
	if engine == nil {
		engine = NewWorkflowEngine()
	}
	if notifier == nil {
		notifier = discardNotifications{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	slaHours := DefaultSLAHours
	if opts.SLAHours != nil && *opts.SLAHours >= 0 {
		slaHours = *opts.SLAHours
	}
	if opts.Roles == nil {
		opts.Roles = models.NewRoleRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	return &WorkflowService{
		rules:      rules,
		grievances: grievances,
		users:      users,
		engine:     engine,
		notifier:   notifier,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		slaHours:   slaHours,
		roles:      opts.Roles,
		now:        opts.Clock,
	}
}

// Apply runs the rule set against one grievance and persists the outcome.
func (s *WorkflowService) Apply(ctx context.Context, grievanceID string) (*models.RuleExecution, error) {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	rules, users, err := s.loadRulesAndUsers(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, *grievance, rules, users)
}

// ApplyNew runs the rule set for a fresh submission. When no rule leaves the grievance
// with an assignee, the least busy eligible staff member is told about it.
func (s *WorkflowService) ApplyNew(ctx context.Context, grievanceID string) (*models.RuleExecution, error) {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	rules, users, err := s.loadRulesAndUsers(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, *grievance, rules, users)
	if err != nil {
		return nil, err
	}
	if result.Grievance.AssignedTo != nil {
		return result, nil
	}

	// The outcome is saved. Errors past this point must not make the job retry.
	open, err := s.grievances.Open(ctx)
	if err != nil {
		s.logger.Warn("skipping new submission notice", zap.String("grievance_id", grievanceID), zap.Error(err))
		return result, nil
	}
	target := LeastBusyMember(EligibleAssignees(result.Grievance, users), open)
	if target == nil {
		s.logger.Warn("no eligible staff for new grievance", zap.String("grievance_id", grievanceID))
		return result, nil
	}
	gid := result.Grievance.ID
	notice := models.AppNotification{
		ID:          newULID(),
		UserID:      target.ID,
		Message:     fmt.Sprintf("New %s grievance \"%s\" awaits assignment", result.Grievance.Category, result.Grievance.Subject),
		Timestamp:   s.now(),
		Type:        models.NotificationNewSubmission,
		GrievanceID: &gid,
	}
	if err := s.notifier.Dispatch(ctx, []models.AppNotification{notice}); err != nil {
		s.logger.Warn("new submission notification failed", zap.String("grievance_id", gid), zap.Error(err))
	}
	result.Notifications = append(result.Notifications, notice)
	return result, nil
}

// HandleJob is the queue handler for JobApplyWorkflow. The payload is a grievance id.
func (s *WorkflowService) HandleJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok || id == "" {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	_, err := s.ApplyNew(ctx, id)
	return err
}

// Preview returns what Apply would do without writing anything.
func (s *WorkflowService) Preview(ctx context.Context, grievanceID string) (*models.RuleExecution, error) {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	rules, users, err := s.loadRulesAndUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := s.engine.ApplyRules(rules, *grievance, users)
	return &result, nil
}

// Sweep re-evaluates every open grievance, picking up time-based rules.
// Individual failures are logged and counted; the sweep continues.
func (s *WorkflowService) Sweep(ctx context.Context) (dto.SweepResult, error) {
	var result dto.SweepResult
	rules, users, err := s.loadRulesAndUsers(ctx)
	if err != nil {
		return result, err
	}
	open, err := s.grievances.Open(ctx)
	if err != nil {
		return result, appErrors.Internal(err, "failed to load open grievances")
	}

	for _, g := range open {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Evaluated++
		exec, err := s.apply(ctx, g, rules, users)
		if err != nil {
			result.Failed++
			s.logger.Warn("sweep apply failed", zap.String("grievance_id", g.ID), zap.Error(err))
			continue
		}
		if len(exec.MatchedRules) > 0 {
			result.Changed++
		}
	}
	s.logger.Info("workflow sweep finished",
		zap.Int("evaluated", result.Evaluated), zap.Int("changed", result.Changed), zap.Int("failed", result.Failed))
	return result, nil
}

// RunSweeper sweeps on every tick until ctx is cancelled.
func (s *WorkflowService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("workflow sweep failed", zap.Error(err))
			}
		}
	}
}

// Suggest returns assignment advice for a grievance.
func (s *WorkflowService) Suggest(ctx context.Context, grievanceID string) (*models.AssignmentSuggestion, error) {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}

	var (
		users []models.User
		open  []models.Grievance
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		users, err = s.users.All(gctx)
		return err
	})
	group.Go(func() error {
		var err error
		open, err = s.grievances.Open(gctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load assignment data")
	}

	eligible := EligibleAssignees(*grievance, users)
	return &models.AssignmentSuggestion{
		GrievanceID:     grievance.ID,
		Eligible:        eligible,
		LeastBusy:       LeastBusyMember(eligible, open),
		NeedsEscalation: NeedsEscalation(*grievance, s.slaHours, s.now()),
		SLAHours:        s.slaHours,
	}, nil
}

// ListRules returns the rule set in evaluation order.
func (s *WorkflowService) ListRules(ctx context.Context) ([]models.WorkflowRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list workflow rules")
	}
	return rules, nil
}

// GetRule returns one rule.
func (s *WorkflowService) GetRule(ctx context.Context, id string) (*models.WorkflowRule, error) {
	rule, err := s.rules.Get(ctx, id)
	if err != nil {
		return nil, ruleError(err, "failed to load workflow rule")
	}
	return rule, nil
}

// CreateRule validates and stores a new rule.
func (s *WorkflowService) CreateRule(ctx context.Context, req dto.RuleRequest, actor models.Principal) (*models.WorkflowRule, error) {
	if err := s.validateRule(req); err != nil {
		return nil, err
	}
	rule := ruleFromRequest(req)
	rule.CreatedBy = actor.UserID
	if err := s.rules.Create(ctx, &rule); err != nil {
		return nil, appErrors.Internal(err, "failed to create workflow rule")
	}
	s.logger.Info("workflow rule created", zap.String("rule_id", rule.ID), zap.String("actor", actor.UserID))
	return &rule, nil
}

// UpdateRule replaces a rule's definition.
func (s *WorkflowService) UpdateRule(ctx context.Context, id string, req dto.RuleRequest) (*models.WorkflowRule, error) {
	if err := s.validateRule(req); err != nil {
		return nil, err
	}
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	rule := ruleFromRequest(req)
	rule.ID = existing.ID
	rule.CreatedBy = existing.CreatedBy
	rule.CreatedAt = existing.CreatedAt
	if req.Enabled == nil {
		rule.Enabled = existing.Enabled
	}
	if err := s.rules.Update(ctx, &rule); err != nil {
		return nil, ruleError(err, "failed to update workflow rule")
	}
	return &rule, nil
}

// SetRuleEnabled toggles a rule.
func (s *WorkflowService) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.rules.SetEnabled(ctx, id, enabled); err != nil {
		return ruleError(err, "failed to toggle workflow rule")
	}
	s.logger.Info("workflow rule toggled", zap.String("rule_id", id), zap.Bool("enabled", enabled))
	return nil
}

// DeleteRule removes a rule.
func (s *WorkflowService) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		return ruleError(err, "failed to delete workflow rule")
	}
	return nil
}

// SeedRules stores the given rules when the rule table is empty. It returns how many were written.
func (s *WorkflowService) SeedRules(ctx context.Context, rules []models.WorkflowRule) (int, error) {
	count, err := s.rules.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	for i := range rules {
		rule := rules[i]
		if err := s.rules.Create(ctx, &rule); err != nil {
			return i, fmt.Errorf("seed rule %s: %w", rule.ID, err)
		}
	}
	s.logger.Info("default workflow rules seeded", zap.Int("count", len(rules)))
	return len(rules), nil
}

func (s *WorkflowService) apply(ctx context.Context, grievance models.Grievance, rules []models.WorkflowRule, users []models.User) (*models.RuleExecution, error) {
	result := s.engine.ApplyRules(rules, grievance, users)
	if len(result.MatchedRules) == 0 {
		return &result, nil
	}

	updated := result.Grievance
	if updated.Status.IsOpen() {
		updated.UpdatedAt = notBefore(s.now(), updated.CreatedAt)
	}
	if err := s.grievances.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Internal(err, "failed to persist workflow result")
	}
	result.Grievance = updated

	escalations := updated.EscalationCount - grievance.EscalationCount
	s.metrics.RecordWorkflowRun(result.MatchedRules, escalations, 0)
	if err := s.notifier.Dispatch(ctx, result.Notifications); err != nil {
		s.logger.Warn("workflow notifications failed", zap.String("grievance_id", updated.ID), zap.Error(err))
	}
	_ = s.cache.InvalidateNamespace(ctx, analyticsCacheNamespace)

	s.logger.Info("workflow rules applied",
		zap.String("grievance_id", updated.ID),
		zap.Strings("rules", result.MatchedRules),
		zap.Int("escalations", escalations),
		zap.Int("notifications", len(result.Notifications)))
	return &result, nil
}

func (s *WorkflowService) loadGrievance(ctx context.Context, id string) (*models.Grievance, error) {
	g, err := s.grievances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Internal(err, "failed to load grievance")
	}
	return g, nil
}

func (s *WorkflowService) loadRulesAndUsers(ctx context.Context) ([]models.WorkflowRule, []models.User, error) {
	var (
		rules []models.WorkflowRule
		users []models.User
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		rules, err = s.rules.List(gctx)
		return err
	})
	group.Go(func() error {
		var err error
		users, err = s.users.All(gctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load workflow data")
	}
	return rules, users, nil
}

// validateRule checks the payload shape, then rejects conditions and actions the engine would silently ignore.
func (s *WorkflowService) validateRule(req dto.RuleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workflow rule payload")
	}
	for i, cond := range req.Conditions {
		if msg := conditionProblem(cond); msg != "" {
			return appErrors.Invalid("condition %d: %s", i, msg).WithDetail("condition", i)
		}
	}
	for i, action := range req.Actions {
		if msg := s.actionProblem(action); msg != "" {
			return appErrors.Invalid("action %d: %s", i, msg).WithDetail("action", i)
		}
	}
	return nil
}

func conditionProblem(cond models.RuleCondition) string {
	if len(cond.Value.Values) == 0 {
		return "value is required"
	}
	switch cond.Field {
	case models.FieldCategory, models.FieldPriority, models.FieldDepartment:
		if cond.Operator != models.OperatorEquals || cond.Value.IsSet() {
			return fmt.Sprintf("%s supports only equals with a single value", cond.Field)
		}
	case models.FieldUserRole:
		switch {
		case cond.Operator == models.OperatorEquals && cond.Value.IsSet():
			return "userRole equals takes a single value"
		case cond.Operator != models.OperatorEquals && cond.Operator != models.OperatorIncludes:
			return "userRole supports equals or includes"
		}
	case models.FieldDaysUnresolved:
		if cond.Value.IsSet() {
			return "daysUnresolved takes a single number"
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(cond.Value.String()), 64); err != nil {
			return "daysUnresolved value must be numeric"
		}
		if cond.Operator == models.OperatorContains || cond.Operator == models.OperatorIncludes {
			return "daysUnresolved supports greaterThan, lessThan or equals"
		}
	}
	return ""
}

func (s *WorkflowService) actionProblem(action models.RuleAction) string {
	switch action.Type {
	case models.ActionAssign:
		if action.TargetUserID == "" {
			return "assign requires targetUserId"
		}
	case models.ActionEscalate:
		role := models.NormalizeRole(action.TargetRole)
		if !role.IsStaff() || !s.roles.Known(role) {
			return "escalate requires a known staff targetRole"
		}
	case models.ActionSetPriority:
		if models.ParsePriority(action.Value) != models.Priority(action.Value) {
			return "setPriority value must be Low, Medium or High"
		}
	case models.ActionAddTag:
		if strings.TrimSpace(action.Value) == "" {
			return "addTag requires a value"
		}
	}
	return ""
}

func ruleFromRequest(req dto.RuleRequest) models.WorkflowRule {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return models.WorkflowRule{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Enabled:     enabled,
		Priority:    req.Priority,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
	}
}

func ruleError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "workflow rule not found")
	}
	return appErrors.Internal(err, message)
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
