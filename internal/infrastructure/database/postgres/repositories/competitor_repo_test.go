package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/competeiq/pkg/errors"
)

var competitorCols = []string{
	"id", "name", "industry", "employee_count", "founded_year", "market_position",
	"status", "analysis_data", "created_at", "updated_at",
}

type CompetitorRepoTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo competitor.Repository
}

func (s *CompetitorRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	log := logging.NewNopLogger()
	s.repo = NewPostgresCompetitorRepo(postgres.NewConnectionWithDB(s.db, log), log)
}

func (s *CompetitorRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *CompetitorRepoTestSuite) TestGetByID_Found() {
	id := uuid.NewString()
	now := time.Now().UTC()
	rows := sqlmock.NewRows(competitorCols).AddRow(
		id, "Acme", "technology", int64(15000), nil, "market leader", "completed",
		[]byte(`{"revenue_estimate":2000000000,"competitive_advantages":["scale"],"summary":"x"}`), now, now,
	)
	s.mock.ExpectQuery(`SELECT id, name, industry, .* FROM competitors WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	c, err := s.repo.GetByID(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("Acme", c.Name)
	s.Equal(competitor.StatusCompleted, c.Status)
	s.Require().NotNil(c.EmployeeCount)
	s.Equal(15000, *c.EmployeeCount)
	s.Nil(c.FoundedYear)
	s.Require().NotNil(c.AnalysisData.RevenueEstimate)
	s.Equal(2e9, *c.AnalysisData.RevenueEstimate)
	s.Equal([]string{"scale"}, c.AnalysisData.CompetitiveAdvantages)
	s.Equal("x", c.AnalysisData.Extra["summary"])
}

func (s *CompetitorRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.NewString()
	s.mock.ExpectQuery(`FROM competitors WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetByID(context.Background(), id)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeCompetitorNotFound))
	s.True(apperrors.IsNotFound(err))
}

func (s *CompetitorRepoTestSuite) TestGetByID_InvalidIDSkipsQuery() {
	_, err := s.repo.GetByID(context.Background(), "not-a-uuid")
	s.True(apperrors.IsNotFound(err))
}

func (s *CompetitorRepoTestSuite) TestGetByID_DatabaseError() {
	id := uuid.NewString()
	s.mock.ExpectQuery(`FROM competitors WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(errors.New("connection reset"))

	_, err := s.repo.GetByID(context.Background(), id)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
	s.False(apperrors.IsNotFound(err))
}

func (s *CompetitorRepoTestSuite) TestListByIndustry() {
	now := time.Now().UTC()
	rows := sqlmock.NewRows(competitorCols).
		AddRow(uuid.NewString(), "A", "Technology", int64(100), int64(2020), "", "completed", []byte(`{}`), now, now).
		AddRow(uuid.NewString(), "B", "technology", nil, nil, "niche", "completed", nil, now, now)

	s.mock.ExpectQuery(`FROM competitors\s+WHERE lower\(industry\) = lower\(\$1\) AND status = \$2\s+ORDER BY created_at DESC\s+LIMIT \$3`).
		WithArgs("technology", "completed", 50).
		WillReturnRows(rows)

	list, err := s.repo.ListByIndustry(context.Background(), " technology ", 500)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(2020, *list[0].FoundedYear)
	s.Nil(list[1].EmployeeCount)
	s.Nil(list[1].AnalysisData.RevenueEstimate)
}

func (s *CompetitorRepoTestSuite) TestListByIndustry_QueryError() {
	s.mock.ExpectQuery(`FROM competitors`).
		WithArgs("retail", "completed", 10).
		WillReturnError(errors.New("boom"))

	_, err := s.repo.ListByIndustry(context.Background(), "retail", 10)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
}

func (s *CompetitorRepoTestSuite) TestSave_Upserts() {
	c, err := competitor.NewCompetitor("Acme", "retail")
	s.Require().NoError(err)
	employees := 250
	c.EmployeeCount = &employees

	s.mock.ExpectExec(`INSERT INTO competitors .* ON CONFLICT \(id\) DO UPDATE SET`).
		WithArgs(c.ID, "Acme", "retail", sql.NullInt64{Int64: 250, Valid: true}, sql.NullInt64{},
			"", "pending", []byte(`{}`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Save(context.Background(), c))
	s.False(c.UpdatedAt.IsZero())
}

func (s *CompetitorRepoTestSuite) TestSave_RejectsInvalid() {
	err := s.repo.Save(context.Background(), &competitor.Competitor{ID: uuid.NewString(), Status: competitor.StatusCompleted})
	s.True(apperrors.IsCode(err, apperrors.ErrCodeValidation))

	err = s.repo.Save(context.Background(), nil)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestCompetitorRepoTestSuite(t *testing.T) {
	suite.Run(t, new(CompetitorRepoTestSuite))
}
