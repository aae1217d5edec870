package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"healthcare-portal-server/internal/prediction"
)

const systemPrompt = "You are a medical triage assistant. You describe possible conditions for a list of symptoms. " +
	"Your output is informational only and never a diagnosis. Always answer with a single JSON object."

// OpenAIProvider implements Provider against the OpenAI chat completions API
// or any endpoint compatible with it.
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Analyze sends the symptoms to the chat completions API in JSON mode and
// parses the reply into an Analysis.
func (p *OpenAIProvider) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if len(req.Symptoms) == 0 {
		return nil, errors.New("at least one symptom is required")
	}

	model := p.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}
	timeout := p.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	analysis.Symptoms = append([]string(nil), req.Symptoms...)
	analysis.Provider = p.Name()
	analysis.Model = resp.Model
	if analysis.Model == "" {
		analysis.Model = model
	}
	return analysis, nil
}

// BuildPrompt renders the user prompt for a symptom analysis.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyze the following symptoms and give a structured assessment.\n\n")
	b.WriteString("Symptoms:\n")
	for _, s := range req.Symptoms {
		fmt.Fprintf(&b, "- %s\n", prediction.FormatSymptomName(s))
	}
	if req.Age != nil {
		fmt.Fprintf(&b, "Patient age: %d\n", *req.Age)
	}
	if req.Gender != "" {
		fmt.Fprintf(&b, "Patient gender: %s\n", req.Gender)
	}
	b.WriteString(`
Respond with JSON of this shape:
{
  "possibleConditions": [
    {"condition": "name", "probability": 0-100, "description": "one sentence", "recommendations": ["..."]}
  ],
  "urgency": "low" | "medium" | "high" | "critical",
  "generalRecommendations": ["..."]
}
List at most five conditions, most likely first.`)
	return b.String()
}

type analysisPayload struct {
	PossibleConditions     []Condition `json:"possibleConditions"`
	Urgency                string      `json:"urgency"`
	GeneralRecommendations []string    `json:"generalRecommendations"`
}

// ParseAnalysis decodes a model reply. Markdown code fences are tolerated,
// probabilities are clamped to [0, 100] and empty sections get conservative
// defaults.
func ParseAnalysis(content string) (*Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %w", err)
	}

	analysis := &Analysis{
		Urgency:                ParseUrgency(payload.Urgency),
		GeneralRecommendations: payload.GeneralRecommendations,
	}
	for _, c := range payload.PossibleConditions {
		if strings.TrimSpace(c.Condition) == "" {
			continue
		}
		switch {
		case c.Probability < 0:
			c.Probability = 0
		case c.Probability > 100:
			c.Probability = 100
		}
		analysis.PossibleConditions = append(analysis.PossibleConditions, c)
	}

	if len(analysis.PossibleConditions) == 0 {
		analysis.PossibleConditions = []Condition{{
			Condition:       "General Assessment",
			Probability:     50,
			Description:     "Based on the symptoms provided, further evaluation is recommended.",
			Recommendations: []string{"Consult with a healthcare provider", "Monitor symptoms closely"},
		}}
	}
	if len(analysis.GeneralRecommendations) == 0 {
		analysis.GeneralRecommendations = []string{"Consult with a healthcare provider"}
	}
	return analysis, nil
}
