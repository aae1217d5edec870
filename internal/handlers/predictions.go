package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthcare-portal-server/internal/insight"
	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/prediction"
	"healthcare-portal-server/internal/utils"
)

const errInsightDisabled = "AI analysis is not configured"

// Predictor runs the disease scoring engine.
type Predictor interface {
	Predict(ctx context.Context, symptoms []string) []prediction.Result
}

// PredictionHandler handles disease analysis requests and history.
type PredictionHandler struct {
	Store       models.PredictionStore
	Engine      Predictor
	Insight     insight.Provider // nil when AI analysis is disabled
	MinSymptoms int
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(store models.PredictionStore, engine Predictor, provider insight.Provider, minSymptoms int) *PredictionHandler {
	return &PredictionHandler{
		Store:       store,
		Engine:      engine,
		Insight:     provider,
		MinSymptoms: minSymptoms,
	}
}

// CreatePredictionRequest represents the request body for a new analysis.
type CreatePredictionRequest struct {
	PatientName   string   `json:"patientName" binding:"required,max=255"`
	PatientAge    *int     `json:"patientAge" binding:"omitempty,min=0,max=150"`
	PatientGender string   `json:"patientGender" binding:"max=20"`
	Symptoms      []string `json:"symptoms" binding:"required"`
	Mode          string   `json:"mode"`
}

// CreatePrediction runs the requested analyses and stores the outcome in the
// caller's history.
func (h *PredictionHandler) CreatePrediction(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreatePredictionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientName := strings.TrimSpace(req.PatientName)
	if patientName == "" {
		utils.BadRequest(c, "Patient name is required")
		return
	}

	symptoms := compactSymptoms(req.Symptoms)
	if len(symptoms) < h.MinSymptoms {
		utils.BadRequest(c, fmt.Sprintf("Please select at least %d symptoms", h.MinSymptoms))
		return
	}

	mode, err := models.ParseAnalysisMode(req.Mode)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if mode == models.ModeAI && h.Insight == nil {
		utils.ServiceUnavailable(c, errInsightDisabled)
		return
	}

	ctx := c.Request.Context()
	record := models.PredictionRecord{
		UserID:        userID,
		PatientName:   patientName,
		PatientAge:    req.PatientAge,
		PatientGender: strings.TrimSpace(req.PatientGender),
		Mode:          mode,
		Symptoms:      symptoms,
	}

	if mode.RunsEngine() {
		record.SetResults(h.Engine.Predict(ctx, symptoms))
	}

	if mode.RunsInsight() {
		if h.Insight == nil {
			record.AnalysisError = errInsightDisabled
		} else {
			analysis, err := h.Insight.Analyze(ctx, insight.Request{
				Symptoms: symptoms,
				Age:      req.PatientAge,
				Gender:   record.PatientGender,
			})
			switch {
			case err != nil && mode == models.ModeAI:
				log.Printf("predictions: insight analysis failed: %v", err)
				utils.Error(c, http.StatusBadGateway, "AI analysis failed")
				return
			case err != nil:
				log.Printf("predictions: insight analysis failed, keeping engine results: %v", err)
				record.AnalysisError = "AI analysis failed"
			default:
				record.Analysis = analysis
			}
		}
	}

	if err := h.Store.CreatePrediction(ctx, &record); err != nil {
		log.Printf("predictions: store record: %v", err)
		utils.InternalServerError(c, "Failed to save analysis")
		return
	}

	utils.Created(c, "Analysis completed successfully", record)
}

// GetPredictions lists the caller's history. Clinical staff may pass
// ?userId= to read another account's history.
func (h *PredictionHandler) GetPredictions(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	target := userID
	if requested := c.Query("userId"); requested != "" && requested != userID {
		if !role.IsClinicalStaff() {
			utils.Forbidden(c, "You can only view your own analysis history")
			return
		}
		if _, err := uuid.Parse(requested); err != nil {
			utils.BadRequest(c, "Invalid user ID")
			return
		}
		target = requested
	}

	records, err := h.Store.ListPredictions(c.Request.Context(), target)
	if err != nil {
		log.Printf("predictions: list for %s: %v", target, err)
		utils.InternalServerError(c, "Failed to fetch analysis history")
		return
	}
	if records == nil {
		records = []models.PredictionRecord{}
	}

	utils.Success(c, "Analysis history fetched successfully", records)
}

// GetPrediction returns one record to its owner or to clinical staff.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	if record.UserID != userID && !role.IsClinicalStaff() {
		utils.Forbidden(c, "You do not have permission to view this analysis")
		return
	}

	utils.Success(c, "Analysis fetched successfully", record)
}

// DeletePrediction removes a record. Only its owner or an admin may do so.
func (h *PredictionHandler) DeletePrediction(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	if record.UserID != userID && role != models.RoleAdmin {
		utils.Forbidden(c, "You do not have permission to delete this analysis")
		return
	}

	if err := h.Store.DeletePrediction(c.Request.Context(), record.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "Analysis not found")
			return
		}
		log.Printf("predictions: delete %s: %v", record.ID, err)
		utils.InternalServerError(c, "Failed to delete analysis")
		return
	}

	utils.Success(c, "Analysis deleted successfully", nil)
}

func (h *PredictionHandler) loadRecord(c *gin.Context) (*models.PredictionRecord, bool) {
	if _, ok := middleware.GetUserIDFromContext(c); !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid analysis ID")
		return nil, false
	}

	record, err := h.Store.GetPrediction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "Analysis not found")
		} else {
			log.Printf("predictions: get %s: %v", id, err)
			utils.InternalServerError(c, "Failed to fetch analysis")
		}
		return nil, false
	}
	return record, true
}

// compactSymptoms trims each entry and drops blank form slots. Order and
// repeats are kept.
func compactSymptoms(raw []string) []string {
	symptoms := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			symptoms = append(symptoms, s)
		}
	}
	return symptoms
}
