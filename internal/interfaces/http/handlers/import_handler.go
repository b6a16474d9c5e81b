package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/pkg/errors"
)

// UpdateNotifier is told about every competitor write.
type UpdateNotifier interface {
	CompetitorUpdated(ctx context.Context, c *competitor.Competitor, previousIndustry string) error
}

// ImportHandler seeds the store with competitors and analyses.
type ImportHandler struct {
	competitors  competitor.Repository
	analyses     competitor.AnalysisRepository
	notifier     UpdateNotifier
	logger       logging.Logger
	maxBodyBytes int64
	now          func() time.Time
}

func NewImportHandler(competitors competitor.Repository, analyses competitor.AnalysisRepository, notifier UpdateNotifier, log logging.Logger, maxBodyBytes int64) *ImportHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ImportHandler{
		competitors:  competitors,
		analyses:     analyses,
		notifier:     notifier,
		logger:       log,
		maxBodyBytes: maxBodyBytes,
		now:          time.Now,
	}
}

// CreateCompetitor handles POST /api/v1/competitors. A missing id is
// generated and a missing status defaults to completed, so imported records
// take part in market assessments.
func (h *ImportHandler) CreateCompetitor(w http.ResponseWriter, r *http.Request) {
	var c competitor.Competitor
	if err := decodeJSON(w, r, h.maxBodyBytes, &c); err != nil {
		writeAppError(w, err)
		return
	}

	now := h.now().UTC()
	c.Name = strings.TrimSpace(c.Name)
	c.Industry = strings.TrimSpace(c.Industry)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = competitor.StatusCompleted
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := c.Validate(); err != nil {
		writeAppError(w, err)
		return
	}

	previousIndustry := h.storedIndustry(r.Context(), c.ID)
	if err := h.competitors.Save(r.Context(), &c); err != nil {
		h.logger.Error("Failed to save competitor", logging.String("competitor_id", c.ID), logging.Err(err))
		writeAppError(w, err)
		return
	}
	if h.notifier != nil {
		// Publish failures are logged by the notifier; the write already succeeded.
		_ = h.notifier.CompetitorUpdated(r.Context(), &c, previousIndustry)
	}
	writeJSON(w, http.StatusCreated, c)
}

// storedIndustry returns the industry currently stored for id, or empty when
// the competitor is new or cannot be read.
func (h *ImportHandler) storedIndustry(ctx context.Context, id string) string {
	prev, err := h.competitors.GetByID(ctx, id)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeCompetitorNotFound) {
			h.logger.Warn("Failed to read competitor before update", logging.String("competitor_id", id), logging.Err(err))
		}
		return ""
	}
	if prev == nil {
		return ""
	}
	return prev.Industry
}

// CreateAnalysis handles POST /api/v1/analyses.
func (h *ImportHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var a competitor.Analysis
	if err := decodeJSON(w, r, h.maxBodyBytes, &a); err != nil {
		writeAppError(w, err)
		return
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CompetitorID != "" {
		if _, err := uuid.Parse(a.CompetitorID); err != nil {
			writeAppError(w, errors.New(errors.ErrCodeInvalidAnalysis, "competitor_id must be a UUID").WithDetail(a.CompetitorID))
			return
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = h.now().UTC()
	}

	if err := h.analyses.SaveAnalysis(r.Context(), &a); err != nil {
		h.logger.Error("Failed to save analysis", logging.String("analysis_id", a.ID), logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
