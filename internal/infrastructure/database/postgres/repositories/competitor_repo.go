package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/competeiq/pkg/errors"
)

const competitorColumns = `id, name, industry, employee_count, founded_year, market_position, status, analysis_data, created_at, updated_at`

type postgresCompetitorRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresCompetitorRepo returns the Postgres-backed competitor.Repository.
func NewPostgresCompetitorRepo(conn *postgres.Connection, log logging.Logger) competitor.Repository {
	return &postgresCompetitorRepo{conn: conn, log: log}
}

func (r *postgresCompetitorRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresCompetitorRepo) GetByID(ctx context.Context, id string) (*competitor.Competitor, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCompetitorNotFound, "competitor not found").WithDetail("id=" + id)
	}

	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE id = $1`
	c, err := scanCompetitor(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodeCompetitorNotFound, "competitor not found").WithDetail("id=" + id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to get competitor")
	}
	return c, nil
}

func (r *postgresCompetitorRepo) ListByIndustry(ctx context.Context, industry string, limit int) ([]*competitor.Competitor, error) {
	if limit <= 0 || limit > competitor.DefaultMarketLimit {
		limit = competitor.DefaultMarketLimit
	}

	query := `SELECT ` + competitorColumns + ` FROM competitors
		WHERE lower(industry) = lower($1) AND status = $2
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := r.executor().QueryContext(ctx, query, strings.TrimSpace(industry), string(competitor.StatusCompleted), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to list competitors")
	}
	defer rows.Close()

	var out []*competitor.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan competitor")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate competitors")
	}
	return out, nil
}

// Save inserts c or replaces the stored row with the same id.
func (r *postgresCompetitorRepo) Save(ctx context.Context, c *competitor.Competitor) error {
	if c == nil {
		return apperrors.NewValidation("competitor is nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := marshalJSONB(c.AnalysisData, "{}")
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode analysis_data")
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO competitors (` + competitorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			industry = EXCLUDED.industry,
			employee_count = EXCLUDED.employee_count,
			founded_year = EXCLUDED.founded_year,
			market_position = EXCLUDED.market_position,
			status = EXCLUDED.status,
			analysis_data = EXCLUDED.analysis_data,
			updated_at = EXCLUDED.updated_at`
	_, err = r.executor().ExecContext(ctx, query,
		c.ID, c.Name, c.Industry, nullableInt(c.EmployeeCount), nullableInt(c.FoundedYear),
		c.MarketPosition, string(c.Status), data, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to save competitor")
	}
	r.log.Debug("competitor saved", logging.String("competitor_id", c.ID))
	return nil
}

func scanCompetitor(row scanner) (*competitor.Competitor, error) {
	var (
		c                      competitor.Competitor
		status                 string
		employees, foundedYear sql.NullInt64
		data                   []byte
	)
	err := row.Scan(&c.ID, &c.Name, &c.Industry, &employees, &foundedYear,
		&c.MarketPosition, &status, &data, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = competitor.Status(status)
	c.EmployeeCount = intPtr(employees)
	c.FoundedYear = intPtr(foundedYear)
	if err := unmarshalJSONB(data, &c.AnalysisData); err != nil {
		return nil, err
	}
	return &c, nil
}
