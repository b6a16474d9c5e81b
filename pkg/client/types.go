package client

import "time"

// Factors are the five threat sub-scores, each in [0,100].
type Factors struct {
	MarketSize         int `json:"marketSize"`
	CompetitorStrength int `json:"competitorStrength"`
	MarketPosition     int `json:"marketPosition"`
	GrowthRate         int `json:"growthRate"`
	ResourceStrength   int `json:"resourceStrength"`
}

// Assessment is a competitor or market threat assessment.
type Assessment struct {
	ThreatLevel     string   `json:"threatLevel"`
	Score           int      `json:"score"`
	Factors         Factors  `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

// ArchivedObject locates an archived report.
type ArchivedObject struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url,omitempty"`
}

// ArchivedReport is returned by ThreatsClient.ArchiveMarket.
type ArchivedReport struct {
	Industry        string          `json:"industry"`
	Assessment      *Assessment     `json:"assessment"`
	CompetitorCount int             `json:"competitorCount"`
	Object          *ArchivedObject `json:"object"`
	ArchivedAt      time.Time       `json:"archivedAt"`
}

type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// Competitor is the import payload and response. ID and Status are filled in
// by the server when empty.
type Competitor struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name"`
	Industry       string         `json:"industry,omitempty"`
	EmployeeCount  *int           `json:"employee_count,omitempty"`
	FoundedYear    *int           `json:"founded_year,omitempty"`
	MarketPosition string         `json:"market_position,omitempty"`
	Status         string         `json:"status,omitempty"`
	AnalysisData   map[string]any `json:"analysis_data,omitempty"`
	CreatedAt      time.Time      `json:"created_at,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
}

// Analysis is one provider analysis run.
type Analysis struct {
	ID               string         `json:"id,omitempty"`
	CompetitorID     string         `json:"competitor_id,omitempty"`
	Status           string         `json:"status,omitempty"`
	ProvidersUsed    []string       `json:"providers_used,omitempty"`
	AnalysisData     map[string]any `json:"analysis_data,omitempty"`
	ConfidenceScores map[string]any `json:"confidence_scores,omitempty"`
	SourceCitations  []any          `json:"source_citations,omitempty"`
	CreatedAt        time.Time      `json:"created_at,omitempty"`
}
