package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/database"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/ingest"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/services"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/utils"
)

type TrackerHandler struct {
	parser   *ingest.Parser
	tracker  *services.TrackerService
	notifier *services.NotificationService
	repo     *database.ResultsRepository
}

// NewTrackerHandler creates the handler. The notifier and repository may be
// nil; the corresponding features are then unavailable.
func NewTrackerHandler(parser *ingest.Parser, tracker *services.TrackerService, notifier *services.NotificationService, repo *database.ResultsRepository) *TrackerHandler {
	return &TrackerHandler{
		parser:   parser,
		tracker:  tracker,
		notifier: notifier,
		repo:     repo,
	}
}

// EvaluateResponse wraps a run report with ingestion counts.
type EvaluateResponse struct {
	ParsedNotes int                 `json:"parsed_notes"`
	Notified    bool                `json:"notified"`
	Report      *services.RunReport `json:"report"`
}

// EvaluateNotes ingests an uploaded position sheet, runs a full evaluation
// and optionally dispatches notifications.
//
// POST /api/v1/notes/evaluate
// Multipart form: "sheet" (CSV file). Query: "date" (YYYY-MM-DD, default
// today), "notify" (true/false).
func (h *TrackerHandler) EvaluateNotes(c *gin.Context) {
	h.runSheet(c, c.Query("notify") == "true")
}

// DispatchNotifications runs the same sheet evaluation and always sends the
// client alerts and admin digest.
//
// POST /api/v1/notifications/dispatch
func (h *TrackerHandler) DispatchNotifications(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications not configured"})
		return
	}
	h.runSheet(c, true)
}

func (h *TrackerHandler) runSheet(c *gin.Context, notify bool) {
	fileHeader, err := c.FormFile("sheet")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'sheet' file upload"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded sheet"})
		return
	}
	defer file.Close()

	evaluationDate := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'date', expected YYYY-MM-DD"})
			return
		}
		evaluationDate = parsed
	}

	notes, err := h.parser.Parse(file)
	if err != nil {
		var structural *utils.StructuralError
		if errors.As(err, &structural) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": structural.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(notes) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "sheet contains no parseable notes"})
		return
	}

	report, err := h.tracker.RunEvaluation(c.Request.Context(), notes, evaluationDate)
	if err != nil {
		logrus.WithError(err).Error("Evaluation run failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	notified := false
	if notify && h.notifier != nil {
		if err := h.notifier.DispatchReport(c.Request.Context(), report, notes); err != nil {
			logrus.WithError(err).Error("Notification dispatch failed")
		} else {
			notified = true
		}
	}

	c.JSON(http.StatusOK, EvaluateResponse{
		ParsedNotes: len(notes),
		Notified:    notified,
		Report:      report,
	})
}

// RunResponse lists the persisted outcomes of one run.
type RunResponse struct {
	RunID    string                   `json:"run_id"`
	Outcomes []database.NoteResultRow `json:"outcomes"`
}

// GetRun returns the persisted outcomes of an earlier evaluation run.
//
// GET /api/v1/runs/:id
func (h *TrackerHandler) GetRun(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "results store not configured"})
		return
	}
	runID := c.Param("id")

	rows, err := h.repo.ListOutcomes(c.Request.Context(), runID)
	if err != nil {
		logrus.WithError(err).WithField("run_id", runID).Error("Failed to load run outcomes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run outcomes"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, RunResponse{RunID: runID, Outcomes: rows})
}
