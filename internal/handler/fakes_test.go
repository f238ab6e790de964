package handler

import (
	"context"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/export"
)

type fakeGrievanceSrv struct {
	err        error
	principal  models.Principal
	filter     models.GrievanceFilter
	submitted  dto.SubmitGrievanceRequest
	status     dto.UpdateStatusRequest
	feedback   dto.FeedbackRequest
	lastID     string
	pagination *models.Pagination
}

func (f *fakeGrievanceSrv) record(id string, p models.Principal) (*models.Grievance, error) {
	f.lastID = id
	f.principal = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.Grievance{ID: id, UserID: p.UserID}, nil
}

func (f *fakeGrievanceSrv) Submit(_ context.Context, req dto.SubmitGrievanceRequest, p models.Principal) (*models.Grievance, error) {
	f.submitted = req
	return f.record("g-new", p)
}

func (f *fakeGrievanceSrv) Get(_ context.Context, id string, p models.Principal) (*models.Grievance, error) {
	return f.record(id, p)
}

func (f *fakeGrievanceSrv) List(_ context.Context, filter models.GrievanceFilter, p models.Principal) ([]models.Grievance, *models.Pagination, error) {
	f.filter = filter
	f.principal = p
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.Grievance{{ID: "g1"}}, f.pagination, nil
}

func (f *fakeGrievanceSrv) UpdateStatus(_ context.Context, id string, req dto.UpdateStatusRequest, p models.Principal) (*models.Grievance, error) {
	f.status = req
	return f.record(id, p)
}

func (f *fakeGrievanceSrv) AddReply(_ context.Context, id string, _ dto.ReplyRequest, p models.Principal) (*models.Grievance, error) {
	return f.record(id, p)
}

func (f *fakeGrievanceSrv) Assign(_ context.Context, id string, _ dto.AssignRequest, p models.Principal) (*models.Grievance, error) {
	return f.record(id, p)
}

func (f *fakeGrievanceSrv) SubmitFeedback(_ context.Context, id string, req dto.FeedbackRequest, p models.Principal) (*models.Grievance, error) {
	f.feedback = req
	return f.record(id, p)
}

func (f *fakeGrievanceSrv) DraftReply(_ context.Context, id string, p models.Principal) (*dto.DraftReplyResponse, error) {
	f.lastID = id
	f.principal = p
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DraftReplyResponse{GrievanceID: id, Draft: "Dear student", Provider: "keyword"}, nil
}

type fakeWorkflowSrv struct {
	err     error
	enabled *bool
	actor   models.Principal
	created dto.RuleRequest
	lastID  string
	deleted []string
}

func (f *fakeWorkflowSrv) Apply(_ context.Context, id string) (*models.RuleExecution, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.RuleExecution{Grievance: models.Grievance{ID: id}, MatchedRules: []string{"r1"}}, nil
}

func (f *fakeWorkflowSrv) Preview(ctx context.Context, id string) (*models.RuleExecution, error) {
	return f.Apply(ctx, id)
}

func (f *fakeWorkflowSrv) Suggest(_ context.Context, id string) (*models.AssignmentSuggestion, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.AssignmentSuggestion{GrievanceID: id, SLAHours: 24}, nil
}

func (f *fakeWorkflowSrv) Sweep(context.Context) (dto.SweepResult, error) {
	return dto.SweepResult{Evaluated: 3, Changed: 1}, f.err
}

func (f *fakeWorkflowSrv) ListRules(context.Context) ([]models.WorkflowRule, error) {
	return []models.WorkflowRule{{ID: "r1", Name: "Finance"}}, f.err
}

func (f *fakeWorkflowSrv) GetRule(_ context.Context, id string) (*models.WorkflowRule, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.WorkflowRule{ID: id}, nil
}

func (f *fakeWorkflowSrv) CreateRule(_ context.Context, req dto.RuleRequest, actor models.Principal) (*models.WorkflowRule, error) {
	f.created = req
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &models.WorkflowRule{ID: "r-new", Name: req.Name}, nil
}

func (f *fakeWorkflowSrv) UpdateRule(_ context.Context, id string, req dto.RuleRequest) (*models.WorkflowRule, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.WorkflowRule{ID: id, Name: req.Name}, nil
}

func (f *fakeWorkflowSrv) SetRuleEnabled(_ context.Context, id string, enabled bool) error {
	f.lastID = id
	f.enabled = &enabled
	return f.err
}

func (f *fakeWorkflowSrv) DeleteRule(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeAnalyticsSrv struct {
	bundle     *dto.AnalyticsBundle
	hit        bool
	err        error
	windowDays int
	format     string
}

func (f *fakeAnalyticsSrv) Bundle(context.Context) (*dto.AnalyticsBundle, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.bundle == nil {
		return &dto.AnalyticsBundle{}, f.hit, nil
	}
	return f.bundle, f.hit, nil
}

func (f *fakeAnalyticsSrv) PredictGrievance(_ context.Context, id string) (*models.PredictedResolutionTime, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PredictedResolutionTime{GrievanceID: id, EstimatedDaysToResolve: 4}, nil
}

func (f *fakeAnalyticsSrv) Compare(_ context.Context, windowDays int) (*dto.ComparisonResponse, error) {
	f.windowDays = windowDays
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ComparisonResponse{WindowDays: windowDays}, nil
}

func (f *fakeAnalyticsSrv) Report(_ context.Context, format string) ([]byte, export.Renderer, error) {
	f.format = format
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte("Section,Metric,Value\n"), export.CSVRenderer{}, nil
}

func (f *fakeAnalyticsSrv) SystemMetrics() models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{RulesApplied: 3}
}

type fakeUserSrv struct {
	err     error
	filter  models.UserFilter
	created dto.UserRequest
	deleted string
}

func (f *fakeUserSrv) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.User{{ID: "s1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeUserSrv) Get(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Create(_ context.Context, req dto.UserRequest) (*models.User, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "u-new", Name: req.Name}, nil
}

func (f *fakeUserSrv) Update(_ context.Context, id string, req dto.UserRequest) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Name: req.Name}, nil
}

func (f *fakeUserSrv) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

func (f *fakeUserSrv) Roles() []models.Role {
	return []models.Role{models.RoleStudent, models.RoleAdmin}
}

func (f *fakeUserSrv) RegisterRole(req dto.RoleRequest) (models.Role, error) {
	if f.err != nil {
		return "", f.err
	}
	return models.Role(req.Name), nil
}

type fakeNotificationSrv struct {
	err       error
	principal models.Principal
	unread    bool
	limit     int
	read      string
}

func (f *fakeNotificationSrv) List(_ context.Context, p models.Principal, unreadOnly bool, limit int) ([]models.AppNotification, error) {
	f.principal = p
	f.unread = unreadOnly
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []models.AppNotification{{ID: "n1", UserID: p.UserID}}, nil
}

func (f *fakeNotificationSrv) MarkRead(_ context.Context, p models.Principal, id string) error {
	f.principal = p
	f.read = id
	return f.err
}
