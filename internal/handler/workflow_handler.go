package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/response"
)

type workflowService interface {
	Apply(ctx context.Context, grievanceID string) (*models.RuleExecution, error)
	Preview(ctx context.Context, grievanceID string) (*models.RuleExecution, error)
	Suggest(ctx context.Context, grievanceID string) (*models.AssignmentSuggestion, error)
	Sweep(ctx context.Context) (dto.SweepResult, error)
	ListRules(ctx context.Context) ([]models.WorkflowRule, error)
	GetRule(ctx context.Context, id string) (*models.WorkflowRule, error)
	CreateRule(ctx context.Context, req dto.RuleRequest, actor models.Principal) (*models.WorkflowRule, error)
	UpdateRule(ctx context.Context, id string, req dto.RuleRequest) (*models.WorkflowRule, error)
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error
	DeleteRule(ctx context.Context, id string) error
}

// WorkflowHandler exposes rule management and on-demand rule runs.
type WorkflowHandler struct {
	service workflowService
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(svc workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: svc}
}

// Apply godoc
// @Summary Apply workflow rules
// @Description Runs every enabled rule against the grievance and persists the outcome
// @Tags Workflow
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/workflow [post]
func (h *WorkflowHandler) Apply(c *gin.Context) {
	result, err := h.service.Apply(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Preview godoc
// @Summary Preview workflow rules
// @Tags Workflow
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/workflow/preview [get]
func (h *WorkflowHandler) Preview(c *gin.Context) {
	result, err := h.service.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Suggestions godoc
// @Summary Assignment suggestions
// @Tags Workflow
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/suggestions [get]
func (h *WorkflowHandler) Suggestions(c *gin.Context) {
	suggestion, err := h.service.Suggest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, suggestion)
}

// Sweep godoc
// @Summary Sweep open grievances
// @Description Re-evaluates time-based rules against every open grievance
// @Tags Workflow
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /workflow/sweep [post]
func (h *WorkflowHandler) Sweep(c *gin.Context) {
	result, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ListRules godoc
// @Summary List workflow rules
// @Tags Workflow
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /workflow/rules [get]
func (h *WorkflowHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rules)
}

// GetRule godoc
// @Summary Get workflow rule
// @Tags Workflow
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /workflow/rules/{id} [get]
func (h *WorkflowHandler) GetRule(c *gin.Context) {
	rule, err := h.service.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rule)
}

// CreateRule godoc
// @Summary Create workflow rule
// @Tags Workflow
// @Accept json
// @Produce json
// @Param payload body dto.RuleRequest true "Rule"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /workflow/rules [post]
func (h *WorkflowHandler) CreateRule(c *gin.Context) {
	var req dto.RuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.service.CreateRule(c.Request.Context(), req, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Replace workflow rule
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body dto.RuleRequest true "Rule"
// @Success 200 {object} response.Envelope
// @Router /workflow/rules/{id} [put]
func (h *WorkflowHandler) UpdateRule(c *gin.Context) {
	var req dto.RuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rule)
}

// ToggleRule godoc
// @Summary Enable or disable workflow rule
// @Tags Workflow
// @Accept json
// @Param id path string true "Rule ID"
// @Param payload body dto.ToggleRuleRequest true "Enabled flag"
// @Success 204
// @Router /workflow/rules/{id}/enabled [patch]
func (h *WorkflowHandler) ToggleRule(c *gin.Context) {
	var req dto.ToggleRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Enabled == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "enabled is required"))
		return
	}
	if err := h.service.SetRuleEnabled(c.Request.Context(), c.Param("id"), *req.Enabled); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteRule godoc
// @Summary Delete workflow rule
// @Tags Workflow
// @Param id path string true "Rule ID"
// @Success 204
// @Router /workflow/rules/{id} [delete]
func (h *WorkflowHandler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
