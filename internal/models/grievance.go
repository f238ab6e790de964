package models

import (
	"time"
)

// GrievanceCategory identifies the cell a grievance is routed to.
type GrievanceCategory string

const (
	CategoryAcademic       GrievanceCategory = "Academic"
	CategoryInfrastructure GrievanceCategory = "Infrastructure"
	CategoryFinancial      GrievanceCategory = "Financial"
	CategoryAdministrative GrievanceCategory = "Administrative"
	CategoryHostel         GrievanceCategory = "Hostel"
	CategoryGeneral        GrievanceCategory = "General"
)

// Categories lists every known category in reporting order.
var Categories = []GrievanceCategory{
	CategoryAcademic,
	CategoryInfrastructure,
	CategoryFinancial,
	CategoryAdministrative,
	CategoryHostel,
	CategoryGeneral,
}

// ParseCategory returns the matching category or General when the value is unknown.
func ParseCategory(raw string) GrievanceCategory {
	for _, c := range Categories {
		if string(c) == raw {
			return c
		}
	}
	return CategoryGeneral
}

// GrievanceStatus captures lifecycle states.
type GrievanceStatus string

const (
	StatusPending    GrievanceStatus = "Pending"
	StatusInProgress GrievanceStatus = "In Progress"
	StatusResolved   GrievanceStatus = "Resolved"
	StatusRejected   GrievanceStatus = "Rejected"
)

// IsOpen reports whether the status still needs staff attention.
func (s GrievanceStatus) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

// IsClosed reports whether the grievance reached a terminal state.
func (s GrievanceStatus) IsClosed() bool {
	return s == StatusResolved || s == StatusRejected
}

// Priority ranks urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority returns the matching priority or Medium when the value is unknown.
func ParsePriority(raw string) Priority {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(raw)
	default:
		return PriorityMedium
	}
}

// Sentiment is the classifier's reading of the submitter's tone.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ParseSentiment returns the matching sentiment or Neutral when the value is unknown.
func ParseSentiment(raw string) Sentiment {
	switch Sentiment(raw) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(raw)
	default:
		return SentimentNeutral
	}
}

// Assignee is the denormalised staff reference stored on a grievance.
type Assignee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Attachment is opaque file metadata carried with grievances and replies.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// Reply is a message on a grievance thread.
type Reply struct {
	ID            string       `json:"id"`
	AuthorName    string       `json:"authorName"`
	AuthorRole    string       `json:"authorRole"`
	Text          string       `json:"text"`
	Timestamp     time.Time    `json:"timestamp"`
	IsAIGenerated bool         `json:"isAiGenerated,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// AIInsights holds the upstream classifier's enrichment.
type AIInsights struct {
	Sentiment       Sentiment `json:"sentiment"`
	Summary         string    `json:"summary"`
	SuggestedAction string    `json:"suggestedAction"`
}

// Grievance is a submitted complaint progressing through the status lifecycle.
type Grievance struct {
	ID              string            `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"userId"`
	UserName        string            `db:"user_name" json:"userName"`
	UserRole        string            `db:"user_role" json:"userRole"`
	Subject         string            `db:"subject" json:"subject"`
	Description     string            `db:"description" json:"description"`
	Category        GrievanceCategory `db:"category" json:"category"`
	Priority        Priority          `db:"priority" json:"priority"`
	Status          GrievanceStatus   `db:"status" json:"status"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`
	AssignedTo      *Assignee         `db:"-" json:"assignedTo,omitempty"`
	Replies         []Reply           `db:"-" json:"replies,omitempty"`
	Attachments     []Attachment      `db:"-" json:"attachments,omitempty"`
	Rating          *int              `db:"rating" json:"rating,omitempty"`
	Feedback        *string           `db:"feedback" json:"feedback,omitempty"`
	AIInsights      *AIInsights       `db:"-" json:"aiInsights,omitempty"`
	EscalationCount int               `db:"escalation_count" json:"escalationCount"`
	LastEscalatedAt *time.Time        `db:"last_escalated_at" json:"lastEscalatedAt,omitempty"`
	AppliedRules    []string          `db:"-" json:"appliedRules,omitempty"`
	Tags            []string          `db:"-" json:"tags,omitempty"`
}

// Clone returns a deep copy so engines never alias the caller's slices or pointers.
func (g Grievance) Clone() Grievance {
	out := g
	if g.AssignedTo != nil {
		a := *g.AssignedTo
		out.AssignedTo = &a
	}
	if g.AIInsights != nil {
		ai := *g.AIInsights
		out.AIInsights = &ai
	}
	if g.LastEscalatedAt != nil {
		ts := *g.LastEscalatedAt
		out.LastEscalatedAt = &ts
	}
	if g.Rating != nil {
		r := *g.Rating
		out.Rating = &r
	}
	if g.Feedback != nil {
		f := *g.Feedback
		out.Feedback = &f
	}
	out.Replies = append([]Reply(nil), g.Replies...)
	out.Attachments = append([]Attachment(nil), g.Attachments...)
	out.AppliedRules = append([]string(nil), g.AppliedRules...)
	out.Tags = append([]string(nil), g.Tags...)
	return out
}

// SentimentValue returns the classifier sentiment when present.
func (g Grievance) SentimentValue() (Sentiment, bool) {
	if g.AIInsights == nil || g.AIInsights.Sentiment == "" {
		return "", false
	}
	return g.AIInsights.Sentiment, true
}

// ResolutionDays is the elapsed time between creation and last update in days.
func (g Grievance) ResolutionDays() float64 {
	return g.UpdatedAt.Sub(g.CreatedAt).Hours() / 24
}

// GrievanceFilter scopes grievance listings.
type GrievanceFilter struct {
	Status     []GrievanceStatus
	Category   GrievanceCategory
	Priority   Priority
	AssigneeID string
	UserID     string
	Page       int
	PageSize   int
}
