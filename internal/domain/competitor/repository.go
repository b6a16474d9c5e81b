package competitor

import "context"

// DefaultMarketLimit caps how many competitors an industry query returns.
const DefaultMarketLimit = 50

// Repository is the competitor store. GetByID returns an
// ErrCodeCompetitorNotFound AppError for unknown ids.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Competitor, error)

	// ListByIndustry returns up to limit completed competitors in industry,
	// newest first.
	ListByIndustry(ctx context.Context, industry string, limit int) ([]*Competitor, error)

	Save(ctx context.Context, c *Competitor) error
}

// AnalysisRepository stores provider analysis runs.
type AnalysisRepository interface {
	GetAnalysisByID(ctx context.Context, id string) (*Analysis, error)
	SaveAnalysis(ctx context.Context, a *Analysis) error
}
