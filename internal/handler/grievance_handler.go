package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/response"
)

type grievanceService interface {
	Submit(ctx context.Context, req dto.SubmitGrievanceRequest, principal models.Principal) (*models.Grievance, error)
	Get(ctx context.Context, id string, principal models.Principal) (*models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter, principal models.Principal) ([]models.Grievance, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor models.Principal) (*models.Grievance, error)
	AddReply(ctx context.Context, id string, req dto.ReplyRequest, actor models.Principal) (*models.Grievance, error)
	Assign(ctx context.Context, id string, req dto.AssignRequest, actor models.Principal) (*models.Grievance, error)
	SubmitFeedback(ctx context.Context, id string, req dto.FeedbackRequest, actor models.Principal) (*models.Grievance, error)
	DraftReply(ctx context.Context, id string, actor models.Principal) (*dto.DraftReplyResponse, error)
}

// GrievanceHandler exposes the grievance lifecycle endpoints.
type GrievanceHandler struct {
	service grievanceService
}

// NewGrievanceHandler constructs the handler.
func NewGrievanceHandler(svc grievanceService) *GrievanceHandler {
	return &GrievanceHandler{service: svc}
}

// Submit godoc
// @Summary Submit grievance
// @Description Classify and store a new grievance, then run workflow rules
// @Tags Grievances
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param payload body dto.SubmitGrievanceRequest true "Grievance"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Submit(c *gin.Context) {
	var req dto.SubmitGrievanceRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.service.Submit(c.Request.Context(), req, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// List godoc
// @Summary List grievances
// @Description Students see their own grievances; staff may filter the full set
// @Tags Grievances
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param category query string false "Category"
// @Param priority query string false "Priority"
// @Param assignee_id query string false "Assignee id"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	filter := models.GrievanceFilter{
		Category:   models.GrievanceCategory(c.Query("category")),
		Priority:   models.Priority(c.Query("priority")),
		AssigneeID: c.Query("assignee_id"),
		UserID:     c.Query("user_id"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	for _, s := range splitQuery(c.Query("status")) {
		filter.Status = append(filter.Status, models.GrievanceStatus(s))
	}

	items, pagination, err := h.service.List(c.Request.Context(), filter, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, items, pagination)
}

// Get godoc
// @Summary Get grievance
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	g, err := h.service.Get(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// UpdateStatus godoc
// @Summary Change grievance status
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grievances/{id}/status [patch]
func (h *GrievanceHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// AddReply godoc
// @Summary Reply to grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.ReplyRequest true "Reply"
// @Success 201 {object} response.Envelope
// @Router /grievances/{id}/replies [post]
func (h *GrievanceHandler) AddReply(c *gin.Context) {
	var req dto.ReplyRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.service.AddReply(c.Request.Context(), c.Param("id"), req, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// Assign godoc
// @Summary Assign grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.AssignRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/assign [post]
func (h *GrievanceHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.service.Assign(c.Request.Context(), c.Param("id"), req, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// Feedback godoc
// @Summary Rate a resolved grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.FeedbackRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/feedback [post]
func (h *GrievanceHandler) Feedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.service.SubmitFeedback(c.Request.Context(), c.Param("id"), req, principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// DraftReply godoc
// @Summary Draft a reply
// @Description Returns a formal reply draft for staff review
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/draft-reply [get]
func (h *GrievanceHandler) DraftReply(c *gin.Context) {
	draft, err := h.service.DraftReply(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, draft)
}
