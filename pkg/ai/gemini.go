package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAssistant classifies and drafts through the Gemini API.
type GeminiAssistant struct {
	models contentGenerator
	model  string
}

// NewGeminiAssistant builds a Gemini backend. An empty model selects the default.
func NewGeminiAssistant(ctx context.Context, apiKey, model string) (*GeminiAssistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiAssistant(client.Models, model), nil
}

func newGeminiAssistant(models contentGenerator, model string) *GeminiAssistant {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiAssistant{models: models, model: model}
}

// Name implements Classifier.
func (g *GeminiAssistant) Name() string { return "gemini" }

// Classify implements Classifier using a JSON response schema.
func (g *GeminiAssistant) Classify(ctx context.Context, subject, description string) (Classification, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(classifyPrompt(subject, description)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   classificationSchema,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("gemini classify: %w", err)
	}
	if resp == nil {
		return Classification{}, ErrEmptyResponse
	}
	return parseClassification(resp.Text())
}

// DraftReply implements Drafter.
func (g *GeminiAssistant) DraftReply(ctx context.Context, req DraftRequest) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(draftPrompt(req)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini draft: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var classificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category":        {Type: genai.TypeString, Description: "Must match one of the categories provided"},
		"priority":        {Type: genai.TypeString, Description: "Low, Medium, or High"},
		"summary":         {Type: genai.TypeString},
		"sentiment":       {Type: genai.TypeString},
		"suggestedAction": {Type: genai.TypeString},
	},
	Required: []string{"category", "priority", "summary", "sentiment", "suggestedAction"},
}
