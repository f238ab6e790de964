// Package ai wraps the grievance classifiers and reply drafters.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when a model answers without usable content.
var ErrEmptyResponse = errors.New("ai: empty model response")

// Classification is the structured reading of a grievance. Values are raw model output;
// callers normalise category, priority and sentiment against their own enumerations.
type Classification struct {
	Category        string `json:"category"`
	Priority        string `json:"priority"`
	Summary         string `json:"summary"`
	Sentiment       string `json:"sentiment"`
	SuggestedAction string `json:"suggestedAction"`
}

// DraftRequest carries the grievance context for a reply draft.
type DraftRequest struct {
	UserName    string
	UserRole    string
	Subject     string
	Description string
	Status      string
	Category    string
}

// Classifier labels a grievance from its subject and description.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, subject, description string) (Classification, error)
}

// Drafter writes a formal reply for staff to review.
type Drafter interface {
	DraftReply(ctx context.Context, req DraftRequest) (string, error)
}

// Assistant is a backend that both classifies and drafts.
type Assistant interface {
	Classifier
	Drafter
}

func parseClassification(raw string) (Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Classification{}, ErrEmptyResponse
	}
	var out Classification
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Classification{}, fmt.Errorf("ai: decode classification: %w", err)
	}
	if out.Category == "" {
		return Classification{}, fmt.Errorf("ai: classification without category")
	}
	return out, nil
}
