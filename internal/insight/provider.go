package insight

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Urgency grades how soon the patient should be seen.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency maps free text onto an Urgency. Anything unrecognised is
// treated as medium.
func ParseUrgency(s string) Urgency {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u
	default:
		return UrgencyMedium
	}
}

// Condition is one possible diagnosis suggested by the provider.
type Condition struct {
	Condition       string   `json:"condition"`
	Probability     float64  `json:"probability"` // percent, 0-100
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
}

// Analysis is a generative assessment of a set of symptoms. It is
// informational only and never replaces the scoring engine's output.
type Analysis struct {
	Symptoms               []string    `json:"symptoms"`
	PossibleConditions     []Condition `json:"possibleConditions"`
	Urgency                Urgency     `json:"urgency"`
	GeneralRecommendations []string    `json:"generalRecommendations"`
	Provider               string      `json:"provider"`
	Model                  string      `json:"model,omitempty"`
}

// Clone returns a deep copy of a, so callers may modify it freely.
func (a *Analysis) Clone() *Analysis {
	out := *a
	out.Symptoms = append([]string(nil), a.Symptoms...)
	out.GeneralRecommendations = append([]string(nil), a.GeneralRecommendations...)
	if a.PossibleConditions != nil {
		out.PossibleConditions = make([]Condition, len(a.PossibleConditions))
		for i, c := range a.PossibleConditions {
			c.Recommendations = append([]string(nil), c.Recommendations...)
			out.PossibleConditions[i] = c
		}
	}
	return &out
}

// Request carries the patient context sent to a provider.
type Request struct {
	Symptoms []string
	Age      *int
	Gender   string
}

// Provider produces symptom analyses from a hosted text model.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Analyze asks the model for possible conditions and an urgency grade.
	Analyze(ctx context.Context, req Request) (*Analysis, error)
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// NewProvider creates the configured provider. A blank provider name disables
// the feature and returns a nil Provider without error.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown insight provider: %s (supported: openai)", cfg.Provider)
	}
}
