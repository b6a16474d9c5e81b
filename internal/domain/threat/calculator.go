package threat

import (
	"math"
	"strings"
	"time"

	"github.com/turtacn/competeiq/internal/domain/competitor"
)

// Factor weights for the overall score. They sum to exactly 1.0.
const (
	WeightMarketSize         = 0.20
	WeightCompetitorStrength = 0.30
	WeightMarketPosition     = 0.25
	WeightGrowthRate         = 0.15
	WeightResourceStrength   = 0.10
)

// Calculator derives threat factors from competitor records.
// It is safe for concurrent use.
type Calculator struct {
	tables Tables
	now    func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTables substitutes the lookup tables. The Calculator keeps its own copy.
func WithTables(t Tables) Option {
	return func(c *Calculator) { c.tables = t.clone() }
}

// WithClock sets the clock used to compute company age.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCalculator returns a Calculator using DefaultTables and the wall clock
// unless overridden.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{tables: DefaultTables(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Assess scores a single competitor. A nil competitor yields DefaultAssessment.
func (c *Calculator) Assess(comp *competitor.Competitor) *Assessment {
	if comp == nil {
		return DefaultAssessment()
	}
	factors := c.CalculateThreatFactors(comp)
	score := CalculateOverallThreatScore(factors)
	level := DetermineThreatLevel(score)
	return &Assessment{
		ThreatLevel:     level,
		Score:           score,
		Factors:         factors,
		Recommendations: GenerateRecommendations(level),
	}
}

// CalculateThreatFactors computes the five sub-scores. Unknown fields add
// nothing. Each factor is clamped to [0,100] after all adjustments.
func (c *Calculator) CalculateThreatFactors(comp *competitor.Competitor) Factors {
	if comp == nil {
		return Factors{}
	}
	f := Factors{
		MarketSize:         c.marketSize(comp),
		CompetitorStrength: c.competitorStrength(comp),
		MarketPosition:     c.marketPosition(comp),
		GrowthRate:         c.growthRate(comp),
		ResourceStrength:   c.resourceStrength(comp),
	}
	return f.clamped()
}

func (c *Calculator) marketSize(comp *competitor.Competitor) int {
	score := lookup(c.tables.MarketSizeByIndustry, comp.Industry, c.tables.DefaultMarketSize)
	if comp.EmployeeCount != nil {
		switch n := *comp.EmployeeCount; {
		case n > 10000:
			score += 15
		case n > 1000:
			score += 10
		case n > 100:
			score += 5
		}
	}
	return score
}

func (c *Calculator) competitorStrength(comp *competitor.Competitor) int {
	score := 50
	if rev := comp.AnalysisData.RevenueEstimate; rev != nil {
		switch {
		case *rev > 1_000_000_000:
			score += 20
		case *rev > 100_000_000:
			score += 15
		case *rev > 10_000_000:
			score += 10
		case *rev > 1_000_000:
			score += 5
		}
	}
	if comp.EmployeeCount != nil {
		switch n := *comp.EmployeeCount; {
		case n > 5000:
			score += 15
		case n > 1000:
			score += 10
		case n > 100:
			score += 5
		}
	}
	if brand := comp.AnalysisData.BrandStrengthScore; brand != nil {
		score += roundHalfUp(*brand * 0.2)
	}
	return score
}

// positionTiers are checked in order; the first tier with a matching keyword wins.
var positionTiers = []struct {
	keywords []string
	bonus    int
}{
	{[]string{"leader", "dominant"}, 25},
	{[]string{"strong", "major"}, 15},
	{[]string{"emerging", "growing"}, 10},
	{[]string{"niche", "specialized"}, 5},
}

func (c *Calculator) marketPosition(comp *competitor.Competitor) int {
	score := 50
	text := strings.ToLower(comp.MarketPosition)
	if text != "" {
	tiers:
		for _, tier := range positionTiers {
			for _, kw := range tier.keywords {
				if strings.Contains(text, kw) {
					score += tier.bonus
					break tiers
				}
			}
		}
	}
	advantages := 3 * len(comp.AnalysisData.CompetitiveAdvantages)
	if advantages > 20 {
		advantages = 20
	}
	return score + advantages
}

func (c *Calculator) growthRate(comp *competitor.Competitor) int {
	score := lookup(c.tables.GrowthByIndustry, comp.Industry, c.tables.DefaultGrowth)
	if comp.FoundedYear != nil {
		age := c.now().Year() - *comp.FoundedYear
		switch {
		case age < 5:
			score += 10
		case age < 10:
			score += 5
		}
	}
	return score
}

func (c *Calculator) resourceStrength(comp *competitor.Competitor) int {
	score := 50
	if rev := comp.AnalysisData.RevenueEstimate; rev != nil {
		switch {
		case *rev > 500_000_000:
			score += 20
		case *rev > 50_000_000:
			score += 15
		case *rev > 5_000_000:
			score += 10
		}
	}
	if comp.EmployeeCount != nil {
		switch n := *comp.EmployeeCount; {
		case n > 2000:
			score += 15
		case n > 500:
			score += 10
		case n > 50:
			score += 5
		}
	}
	industry := normalizeIndustry(comp.Industry)
	if industry != "" {
		for _, kw := range c.tables.ResourceIndustryKeywords {
			if strings.Contains(industry, kw) {
				score += 10
				break
			}
		}
	}
	return score
}

// CalculateOverallThreatScore combines factors with the fixed weights and
// rounds half up. The result is in [0,100] for in-range factors.
func CalculateOverallThreatScore(f Factors) int {
	weighted := float64(f.MarketSize)*WeightMarketSize +
		float64(f.CompetitorStrength)*WeightCompetitorStrength +
		float64(f.MarketPosition)*WeightMarketPosition +
		float64(f.GrowthRate)*WeightGrowthRate +
		float64(f.ResourceStrength)*WeightResourceStrength
	return clamp(roundHalfUp(weighted))
}

// DetermineThreatLevel maps a score to its level. Lower bounds are inclusive.
func DetermineThreatLevel(score int) Level {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 65:
		return LevelHigh
	case score >= 45:
		return LevelMedium
	default:
		return LevelLow
	}
}

// roundHalfUp rounds to the nearest integer with .5 going towards +Inf.
// The epsilon absorbs float error on exact halves. Results saturate at the
// int32 range so extreme inputs cannot overflow.
func roundHalfUp(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Floor(v + 0.5 + 1e-9))
}
