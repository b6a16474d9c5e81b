package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/competeiq/pkg/errors"
)

const analysisColumns = `id, competitor_id, status, providers_used, analysis_data, confidence_scores, source_citations, created_at`

type postgresAnalysisRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresAnalysisRepo returns the Postgres-backed competitor.AnalysisRepository.
func NewPostgresAnalysisRepo(conn *postgres.Connection, log logging.Logger) competitor.AnalysisRepository {
	return &postgresAnalysisRepo{conn: conn, log: log}
}

func (r *postgresAnalysisRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresAnalysisRepo) GetAnalysisByID(ctx context.Context, id string) (*competitor.Analysis, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeAnalysisNotFound, "analysis not found").WithDetail("id=" + id)
	}

	var (
		a                                  competitor.Analysis
		competitorID                       sql.NullString
		providers, data, scores, citations []byte
	)
	query := `SELECT ` + analysisColumns + ` FROM competitor_analyses WHERE id = $1`
	err := r.executor().QueryRowContext(ctx, query, id).Scan(
		&a.ID, &competitorID, &a.Status, &providers, &data, &scores, &citations, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodeAnalysisNotFound, "analysis not found").WithDetail("id=" + id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to get analysis")
	}
	a.CompetitorID = competitorID.String

	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{providers, &a.ProvidersUsed},
		{data, &a.AnalysisData},
		{scores, &a.ConfidenceScores},
		{citations, &a.SourceCitations},
	} {
		if err := unmarshalJSONB(col.raw, col.dst); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode analysis").WithDetail("id=" + id)
		}
	}
	return &a, nil
}

// SaveAnalysis inserts a, assigning an id when empty.
func (r *postgresAnalysisRepo) SaveAnalysis(ctx context.Context, a *competitor.Analysis) error {
	if a == nil {
		return apperrors.NewValidation("analysis is nil")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if _, err := uuid.Parse(a.ID); err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidAnalysis, "analysis id must be a UUID").WithDetail(a.ID)
	}
	var competitorID sql.NullString
	if a.CompetitorID != "" {
		if _, err := uuid.Parse(a.CompetitorID); err != nil {
			return apperrors.New(apperrors.ErrCodeInvalidAnalysis, "competitor_id must be a UUID").WithDetail(a.CompetitorID)
		}
		competitorID = sql.NullString{String: a.CompetitorID, Valid: true}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	encoded := make([][]byte, 0, 4)
	for _, col := range []struct {
		v     any
		empty string
	}{
		{a.ProvidersUsed, "[]"},
		{a.AnalysisData, "{}"},
		{a.ConfidenceScores, "{}"},
		{a.SourceCitations, "[]"},
	} {
		b, err := marshalJSONB(col.v, col.empty)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode analysis")
		}
		encoded = append(encoded, b)
	}

	query := `INSERT INTO competitor_analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.executor().ExecContext(ctx, query,
		a.ID, competitorID, a.Status, encoded[0], encoded[1], encoded[2], encoded[3], a.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to save analysis")
	}
	r.log.Debug("analysis saved", logging.String("analysis_id", a.ID))
	return nil
}
