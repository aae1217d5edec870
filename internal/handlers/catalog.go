package handlers

import (
	"github.com/gin-gonic/gin"

	"healthcare-portal-server/internal/prediction"
	"healthcare-portal-server/internal/utils"
)

// CatalogHandler serves the symptom and disease vocabularies used to build
// selection forms.
type CatalogHandler struct {
	KB *prediction.KnowledgeBase
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(kb *prediction.KnowledgeBase) *CatalogHandler {
	return &CatalogHandler{KB: kb}
}

// SymptomOption is one selectable symptom.
type SymptomOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SymptomOptions returns the vocabulary with display labels, in vocabulary
// order. Repeated identifiers are listed once.
func SymptomOptions(kb *prediction.KnowledgeBase) []SymptomOption {
	symptoms := kb.Symptoms()
	seen := make(map[string]bool, len(symptoms))
	options := make([]SymptomOption, 0, len(symptoms))
	for _, s := range symptoms {
		if seen[s] {
			continue
		}
		seen[s] = true
		options = append(options, SymptomOption{ID: s, Name: prediction.FormatSymptomName(s)})
	}
	return options
}

// ListSymptoms handles GET /symptoms.
func (h *CatalogHandler) ListSymptoms(c *gin.Context) {
	utils.Success(c, "Symptoms fetched successfully", SymptomOptions(h.KB))
}

// ListDiseases handles GET /diseases.
func (h *CatalogHandler) ListDiseases(c *gin.Context) {
	utils.Success(c, "Diseases fetched successfully", h.KB.Diseases())
}
