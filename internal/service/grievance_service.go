package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/jobs"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/logger"
)

// WorkflowRunner applies workflow rules to a freshly submitted grievance.
type WorkflowRunner interface {
	ApplyNew(ctx context.Context, grievanceID string) (*models.RuleExecution, error)
}

// Classifier wraps the classification and drafting backends used by grievance intake.
type Classifier interface {
	Classify(ctx context.Context, subject, description string) (models.GrievanceCategory, models.Priority, models.AIInsights)
	DraftReply(ctx context.Context, g models.Grievance) string
	Provider() string
}

// Closed grievances may only be reopened to In Progress.
var allowedTransitions = map[models.GrievanceStatus][]models.GrievanceStatus{
	models.StatusPending:    {models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusInProgress: {models.StatusPending, models.StatusResolved, models.StatusRejected},
	models.StatusResolved:   {models.StatusInProgress},
	models.StatusRejected:   {models.StatusInProgress},
}

// GrievanceService owns the grievance lifecycle: intake, status changes, replies and assignment.
type GrievanceService struct {
	repo       grievanceStore
	users      userDirectory
	classifier Classifier
	workflow   WorkflowRunner
	queue      Enqueuer
	notifier   NotificationDispatcher
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	now        Clock
}

// NewGrievanceService wires the grievance service. A nil queue runs workflow rules inline.
func NewGrievanceService(
	repo grievanceStore,
	users userDirectory,
	classifier Classifier,
	workflow WorkflowRunner,
	queue Enqueuer,
	notifier NotificationDispatcher,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *GrievanceService {
	if notifier == nil {
		notifier = discardNotifications{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrievanceService{
		repo:       repo,
		users:      users,
		classifier: classifier,
		workflow:   workflow,
		queue:      queue,
		notifier:   notifier,
		cache:      cache,
		validator:  validate,
		logger:     logger,
		now:        systemClock,
	}
}

// Submit classifies and stores a new grievance, then schedules the workflow run.
func (s *GrievanceService) Submit(ctx context.Context, req dto.SubmitGrievanceRequest, principal models.Principal) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grievance payload")
	}
	submitter, err := s.lookupUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(req.Subject)
	description := strings.TrimSpace(req.Description)
	category, priority, insights := s.classifier.Classify(ctx, subject, description)

	now := s.now()
	g := &models.Grievance{
		ID:           uuid.NewString(),
		UserID:       submitter.ID,
		UserName:     submitter.Name,
		UserRole:     string(submitter.Role),
		Subject:      subject,
		Description:  description,
		Category:     category,
		Priority:     priority,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Attachments:  req.Attachments,
		AIInsights:   &insights,
		Replies:      []models.Reply{},
		AppliedRules: []string{},
		Tags:         []string{},
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, appErrors.Internal(err, "failed to store grievance")
	}
	s.invalidate(ctx)
	logger.ForContext(ctx, s.logger).Info("grievance submitted",
		zap.String("grievance_id", g.ID),
		zap.String("category", string(g.Category)),
		zap.String("priority", string(g.Priority)),
		zap.String("classifier", s.classifier.Provider()))

	return s.scheduleWorkflow(ctx, g), nil
}

// scheduleWorkflow queues the rule run, or runs it inline and returns the updated grievance.
func (s *GrievanceService) scheduleWorkflow(ctx context.Context, g *models.Grievance) *models.Grievance {
	if s.workflow == nil {
		return g
	}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{Type: JobApplyWorkflow, Payload: g.ID})
		if err == nil {
			return g
		}
		logger.ForContext(ctx, s.logger).Warn("workflow enqueue failed, applying inline", zap.String("grievance_id", g.ID), zap.Error(err))
	}
	result, err := s.workflow.ApplyNew(ctx, g.ID)
	if err != nil {
		logger.ForContext(ctx, s.logger).Warn("workflow run failed", zap.String("grievance_id", g.ID), zap.Error(err))
		return g
	}
	updated := result.Grievance
	return &updated
}

// Get returns one grievance. Students see only their own.
func (s *GrievanceService) Get(ctx context.Context, id string, principal models.Principal) (*models.Grievance, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(principal, *g) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance belongs to another user")
	}
	return g, nil
}

// List returns a filtered page. Students are always scoped to their own submissions.
func (s *GrievanceService) List(ctx context.Context, filter models.GrievanceFilter, principal models.Principal) ([]models.Grievance, *models.Pagination, error) {
	if !principal.Role.IsStaff() {
		filter.UserID = principal.UserID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list grievances")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// UpdateStatus moves a grievance to a new status and tells the submitter.
func (s *GrievanceService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor models.Principal) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can change status")
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status == req.Status {
		return g, nil
	}
	if !transitionAllowed(g.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", g.Status, req.Status))
	}

	previous := g.Status
	g.Status = req.Status
	g.UpdatedAt = notBefore(s.now(), g.CreatedAt)
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}

	s.notify(ctx, g.UserID, *g, models.NotificationStatusChange,
		fmt.Sprintf("Your grievance \"%s\" is now %s", g.Subject, g.Status))
	logger.ForContext(ctx, s.logger).Info("grievance status changed",
		zap.String("grievance_id", g.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(g.Status)),
		zap.String("actor", actor.UserID))
	return g, nil
}

// AddReply appends a message to the thread and notifies the other party.
func (s *GrievanceService) AddReply(ctx context.Context, id string, req dto.ReplyRequest, actor models.Principal) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reply payload")
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, *g) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance belongs to another user")
	}
	author, err := s.lookupUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	now := notBefore(s.now(), g.CreatedAt)
	g.Replies = append(g.Replies, models.Reply{
		ID:            newULID(),
		AuthorName:    author.Name,
		AuthorRole:    string(author.Role),
		Text:          strings.TrimSpace(req.Text),
		Timestamp:     now,
		IsAIGenerated: req.IsAIGenerated,
		Attachments:   req.Attachments,
	})
	g.UpdatedAt = now
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("New reply on grievance \"%s\"", g.Subject)
	switch {
	case author.ID != g.UserID:
		s.notify(ctx, g.UserID, *g, models.NotificationReply, message)
	case g.AssignedTo != nil:
		s.notify(ctx, g.AssignedTo.ID, *g, models.NotificationReply, message)
	}
	return g, nil
}

// Assign hands a grievance to a staff member.
func (s *GrievanceService) Assign(ctx context.Context, id string, req dto.AssignRequest, actor models.Principal) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can assign grievances")
	}
	assignee, err := s.lookupUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !assignee.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grievances can only be assigned to staff")
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	g.AssignedTo = assignee.Assignee()
	g.UpdatedAt = notBefore(s.now(), g.CreatedAt)
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}
	s.notify(ctx, assignee.ID, *g, models.NotificationStatusChange,
		fmt.Sprintf("Grievance \"%s\" has been assigned to you", g.Subject))
	logger.ForContext(ctx, s.logger).Info("grievance assigned", zap.String("grievance_id", g.ID), zap.String("assignee", assignee.ID), zap.String("actor", actor.UserID))
	return g, nil
}

// SubmitFeedback records the submitter's rating once the grievance is resolved.
func (s *GrievanceService) SubmitFeedback(ctx context.Context, id string, req dto.FeedbackRequest, actor models.Principal) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitter can rate a grievance")
	}
	if g.Status != models.StatusResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "feedback is accepted for resolved grievances only")
	}

	rating := req.Rating
	g.Rating = &rating
	if text := strings.TrimSpace(req.Feedback); text != "" {
		g.Feedback = &text
	}
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DraftReply returns a reply draft for staff review.
func (s *GrievanceService) DraftReply(ctx context.Context, id string, actor models.Principal) (*dto.DraftReplyResponse, error) {
	if !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can draft replies")
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.DraftReplyResponse{
		GrievanceID: g.ID,
		Draft:       s.classifier.DraftReply(ctx, *g),
		Provider:    s.classifier.Provider(),
	}, nil
}

func (s *GrievanceService) load(ctx context.Context, id string) (*models.Grievance, error) {
	g, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Internal(err, "failed to load grievance")
	}
	return g, nil
}

func (s *GrievanceService) save(ctx context.Context, g *models.Grievance) error {
	if err := s.repo.Update(ctx, g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return appErrors.Internal(err, "failed to update grievance")
	}
	s.invalidate(ctx)
	return nil
}

func (s *GrievanceService) lookupUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

func (s *GrievanceService) notify(ctx context.Context, userID string, g models.Grievance, kind models.NotificationType, message string) {
	gid := g.ID
	notice := models.AppNotification{
		ID:          newULID(),
		UserID:      userID,
		Message:     message,
		Timestamp:   s.now(),
		Type:        kind,
		GrievanceID: &gid,
	}
	if err := s.notifier.Dispatch(ctx, []models.AppNotification{notice}); err != nil {
		s.logger.Warn("notification dispatch failed", zap.String("grievance_id", gid), zap.String("type", string(kind)), zap.Error(err))
	}
}

func (s *GrievanceService) invalidate(ctx context.Context) {
	_ = s.cache.InvalidateNamespace(ctx, analyticsCacheNamespace)
}

func canView(principal models.Principal, g models.Grievance) bool {
	return principal.Role.IsStaff() || principal.UserID == g.UserID
}

func transitionAllowed(from, to models.GrievanceStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
