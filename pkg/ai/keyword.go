package ai

import (
	"context"
	"fmt"
	"strings"
)

const summaryLimit = 60

// keywordRules is checked in order; the first category with a matching keyword wins.
var keywordRules = []struct {
	category string
	keywords []string
}{
	{category: "Academic", keywords: []string{"exam", "marks", "faculty", "course"}},
	{category: "Infrastructure", keywords: []string{"wifi", "lab", "classroom", "canteen"}},
	{category: "Financial", keywords: []string{"fee", "scholarship", "refund"}},
	{category: "Administrative", keywords: []string{"certificate", "document", "id card"}},
	{category: "Hostel", keywords: []string{"hostel", "mess", "room"}},
}

var (
	urgentKeywords   = []string{"urgent", "critical"}
	negativeKeywords = []string{"poor", "bad", "worst"}
)

// KeywordClassifier is the deterministic offline classifier.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the keyword heuristic backend.
func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

// Name implements Classifier.
func (KeywordClassifier) Name() string { return "keyword" }

// Classify implements Classifier. It never fails.
func (KeywordClassifier) Classify(_ context.Context, subject, description string) (Classification, error) {
	text := strings.ToLower(description) + " " + strings.ToLower(subject)

	category := "General"
	for _, rule := range keywordRules {
		if containsAny(text, rule.keywords) {
			category = rule.category
			break
		}
	}

	priority := "Medium"
	if containsAny(text, urgentKeywords) {
		priority = "High"
	}
	sentiment := "Neutral"
	if containsAny(text, negativeKeywords) {
		sentiment = "Negative"
	}

	summary := subject
	if summary == "" {
		summary = "No subject"
	}
	if runes := []rune(summary); len(runes) > summaryLimit {
		summary = string(runes[:summaryLimit])
	}

	return Classification{
		Category:        category,
		Priority:        priority,
		Summary:         summary,
		Sentiment:       sentiment,
		SuggestedAction: fmt.Sprintf("Review and address the %s concern promptly.", strings.ToLower(category)),
	}, nil
}

// DraftReply implements Drafter with the fixed template.
func (KeywordClassifier) DraftReply(_ context.Context, req DraftRequest) (string, error) {
	return TemplateReply(req), nil
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
