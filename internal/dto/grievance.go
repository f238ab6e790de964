package dto

import "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"

// SubmitGrievanceRequest is the payload for a new grievance. Category and priority are
// derived by the classifier.
type SubmitGrievanceRequest struct {
	Subject     string              `json:"subject" validate:"required,max=200"`
	Description string              `json:"description" validate:"required,max=5000"`
	Attachments []models.Attachment `json:"attachments" validate:"max=5,dive"`
}

// UpdateStatusRequest moves a grievance through its lifecycle.
type UpdateStatusRequest struct {
	Status models.GrievanceStatus `json:"status" validate:"required,oneof=Pending 'In Progress' Resolved Rejected"`
}

// ReplyRequest appends a message to a grievance thread.
type ReplyRequest struct {
	Text          string              `json:"text" validate:"required,max=5000"`
	IsAIGenerated bool                `json:"isAiGenerated"`
	Attachments   []models.Attachment `json:"attachments" validate:"max=5,dive"`
}

// AssignRequest hands a grievance to a staff member.
type AssignRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// FeedbackRequest records the submitter's rating of a resolved grievance.
type FeedbackRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// DraftReplyResponse carries a reply draft for staff review.
type DraftReplyResponse struct {
	GrievanceID string `json:"grievanceId"`
	Draft       string `json:"draft"`
	Provider    string `json:"provider"`
}
