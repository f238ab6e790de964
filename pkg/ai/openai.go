package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAssistant classifies and drafts through an OpenAI-compatible chat API.
type OpenAIAssistant struct {
	client chatCompleter
	model  string
}

// NewOpenAIAssistant builds an OpenAI backend. An empty model selects the default.
func NewOpenAIAssistant(apiKey, model string) (*OpenAIAssistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return newOpenAIAssistant(openai.NewClient(apiKey), model), nil
}

func newOpenAIAssistant(client chatCompleter, model string) *OpenAIAssistant {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIAssistant{client: client, model: model}
}

// Name implements Classifier.
func (o *OpenAIAssistant) Name() string { return "openai" }

// Classify implements Classifier using JSON object mode.
func (o *OpenAIAssistant) Classify(ctx context.Context, subject, description string) (Classification, error) {
	content, err := o.complete(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You triage campus grievances and answer with a single JSON object."},
			{Role: openai.ChatMessageRoleUser, Content: classifyPrompt(subject, description)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Classification{}, fmt.Errorf("openai classify: %w", err)
	}
	return parseClassification(content)
}

// DraftReply implements Drafter.
func (o *OpenAIAssistant) DraftReply(ctx context.Context, req DraftRequest) (string, error) {
	content, err := o.complete(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: draftPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai draft: %w", err)
	}
	return content, nil
}

func (o *OpenAIAssistant) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
