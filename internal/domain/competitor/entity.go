// Package competitor holds the competitor and analysis records that threat
// scoring and provider attribution read from the store.
package competitor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/competeiq/pkg/errors"
)

// Status is the processing state of a competitor profile.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Competitor is a semi-structured competitor profile. Optional numeric fields
// are pointers: nil means unknown, which is not the same as zero.
type Competitor struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Industry       string       `json:"industry,omitempty"`
	EmployeeCount  *int         `json:"employee_count,omitempty"`
	FoundedYear    *int         `json:"founded_year,omitempty"`
	MarketPosition string       `json:"market_position,omitempty"`
	Status         Status       `json:"status"`
	AnalysisData   AnalysisData `json:"analysis_data"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewCompetitor creates a pending competitor with a fresh id.
func NewCompetitor(name, industry string) (*Competitor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidation("name cannot be empty")
	}
	now := time.Now().UTC()
	return &Competitor{
		ID:        uuid.NewString(),
		Name:      name,
		Industry:  strings.TrimSpace(industry),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the invariants required before persisting.
func (c *Competitor) Validate() error {
	if c.ID == "" {
		return errors.NewValidation("ID cannot be empty")
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		return errors.New(errors.ErrCodeInvalidCompetitor, "ID must be a UUID").WithDetail(c.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.NewValidation("Name cannot be empty")
	}
	if !c.Status.IsValid() {
		return errors.NewValidation("invalid status: " + string(c.Status))
	}
	if c.EmployeeCount != nil && *c.EmployeeCount < 0 {
		return errors.NewValidation("employee_count cannot be negative")
	}
	// Both columns are INTEGER.
	if c.EmployeeCount != nil && *c.EmployeeCount > math.MaxInt32 {
		return errors.NewValidation("employee_count out of range").WithDetail(strconv.Itoa(*c.EmployeeCount))
	}
	if c.FoundedYear != nil && (*c.FoundedYear < math.MinInt32 || *c.FoundedYear > math.MaxInt32) {
		return errors.NewValidation("founded_year out of range").WithDetail(strconv.Itoa(*c.FoundedYear))
	}
	return nil
}

// AnalysisData is the nested analysis blob on a competitor. The typed fields
// feed threat scoring; any other keys are kept in Extra and round-trip through
// JSON unchanged.
type AnalysisData struct {
	RevenueEstimate       *float64
	MarketShareEstimate   *float64
	BrandStrengthScore    *float64
	CompetitiveAdvantages []string
	Extra                 map[string]any
}

const (
	keyRevenue     = "revenue_estimate"
	keyMarketShare = "market_share_estimate"
	keyBrand       = "brand_strength_score"
	keyAdvantages  = "competitive_advantages"
)

// UnmarshalJSON accepts numbers or numeric strings for the estimate fields and
// ignores values of the wrong type instead of failing the whole record.
func (a *AnalysisData) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = AnalysisData{}
	for k, v := range raw {
		switch k {
		case keyRevenue:
			a.RevenueEstimate = toFloat(v)
		case keyMarketShare:
			a.MarketShareEstimate = toFloat(v)
		case keyBrand:
			a.BrandStrengthScore = toFloat(v)
		case keyAdvantages:
			a.CompetitiveAdvantages = toStrings(v)
		default:
			if a.Extra == nil {
				a.Extra = make(map[string]any)
			}
			a.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON merges Extra with the typed fields; typed fields win.
func (a AnalysisData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+4)
	for k, v := range a.Extra {
		out[k] = v
	}
	if a.RevenueEstimate != nil {
		out[keyRevenue] = *a.RevenueEstimate
	}
	if a.MarketShareEstimate != nil {
		out[keyMarketShare] = *a.MarketShareEstimate
	}
	if a.BrandStrengthScore != nil {
		out[keyBrand] = *a.BrandStrengthScore
	}
	if a.CompetitiveAdvantages != nil {
		out[keyAdvantages] = a.CompetitiveAdvantages
	}
	return json.Marshal(out)
}

func toFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return &f
		}
	}
	return nil
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Analysis is one stored provider analysis run. Its JSON columns keep
// whatever schema the producing pipeline used at the time.
type Analysis struct {
	ID               string         `json:"id"`
	CompetitorID     string         `json:"competitor_id,omitempty"`
	Status           string         `json:"status,omitempty"`
	ProvidersUsed    []string       `json:"providers_used,omitempty"`
	AnalysisData     map[string]any `json:"analysis_data,omitempty"`
	ConfidenceScores map[string]any `json:"confidence_scores,omitempty"`
	SourceCitations  []any          `json:"source_citations,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Document renders the analysis as the loosely typed record consumed by
// provider attribution. Nil sections are omitted.
func (a *Analysis) Document() map[string]any {
	doc := make(map[string]any, 4)
	if a.ProvidersUsed != nil {
		used := make([]any, len(a.ProvidersUsed))
		for i, p := range a.ProvidersUsed {
			used[i] = p
		}
		doc["providers_used"] = used
	}
	if a.AnalysisData != nil {
		doc["analysis_data"] = a.AnalysisData
	}
	if a.ConfidenceScores != nil {
		doc["confidence_scores"] = a.ConfidenceScores
	}
	if a.SourceCitations != nil {
		doc["source_citations"] = a.SourceCitations
	}
	return doc
}
