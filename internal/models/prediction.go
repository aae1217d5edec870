package models

import (
	"fmt"
	"strings"

	"healthcare-portal-server/internal/insight"
	"healthcare-portal-server/internal/prediction"
)

// AnalysisMode selects which analyses run for a submission.
type AnalysisMode string

const (
	ModeML   AnalysisMode = "ml"
	ModeAI   AnalysisMode = "ai"
	ModeBoth AnalysisMode = "both"
)

// ParseAnalysisMode maps a request value to a mode. Empty means both.
func ParseAnalysisMode(s string) (AnalysisMode, error) {
	switch mode := AnalysisMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return ModeBoth, nil
	case ModeML, ModeAI, ModeBoth:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown analysis mode %q", s)
	}
}

// RunsEngine reports whether the local scoring engine takes part.
func (m AnalysisMode) RunsEngine() bool {
	return m == ModeML || m == ModeBoth
}

// RunsInsight reports whether the generative analysis takes part.
func (m AnalysisMode) RunsInsight() bool {
	return m == ModeAI || m == ModeBoth
}

// PredictionRecord is one entry of a user's medical analysis history.
type PredictionRecord struct {
	BaseModel
	UserID        string              `gorm:"size:36;index;not null" json:"userId"`
	PatientName   string              `gorm:"size:255;not null" json:"patientName"`
	PatientAge    *int                `json:"patientAge,omitempty"`
	PatientGender string              `gorm:"size:20" json:"patientGender,omitempty"`
	Mode          AnalysisMode        `gorm:"size:10;not null" json:"mode"`
	Symptoms      []string            `gorm:"type:text;serializer:json" json:"symptoms"`
	Results       []prediction.Result `gorm:"type:text;serializer:json" json:"results,omitempty"`
	TopDisease    string              `gorm:"size:255" json:"topDisease,omitempty"`
	TopConfidence float64             `json:"topConfidence,omitempty"`
	Analysis      *insight.Analysis   `gorm:"type:text;serializer:json" json:"analysis,omitempty"`
	AnalysisError string              `gorm:"type:text" json:"aiError,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// SetResults stores the engine output and records the best found disease.
// Results are expected in ranked order.
func (p *PredictionRecord) SetResults(results []prediction.Result) {
	p.Results = results
	p.TopDisease = ""
	p.TopConfidence = 0
	for _, r := range results {
		if r.Found() {
			p.TopDisease = r.Disease
			p.TopConfidence = r.Confidence
			return
		}
	}
}
