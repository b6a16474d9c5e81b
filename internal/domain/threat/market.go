package threat

import "github.com/turtacn/competeiq/internal/domain/competitor"

// AggregateMarket combines per-competitor assessments into an industry-wide
// assessment. The score is the rounded mean of the competitor scores. The
// factors come from the coarser MarketHeuristics rather than the
// per-competitor calculators: market size from the number of competitors,
// fixed position and growth, and resource strength from the mean employee
// count. An empty assessment list yields DefaultAssessment.
func (c *Calculator) AggregateMarket(competitors []*competitor.Competitor, assessments []*Assessment) *Assessment {
	var (
		scoreSum, strengthSum, n int
	)
	for _, a := range assessments {
		if a == nil {
			continue
		}
		scoreSum += a.Score
		strengthSum += a.Factors.CompetitorStrength
		n++
	}
	if n == 0 {
		return DefaultAssessment()
	}

	score := clamp(roundHalfUp(float64(scoreSum) / float64(n)))
	level := DetermineThreatLevel(score)
	factors := Factors{
		MarketSize:         c.marketSizeForCount(len(competitors)),
		CompetitorStrength: roundHalfUp(float64(strengthSum) / float64(n)),
		MarketPosition:     c.tables.Market.MarketPosition,
		GrowthRate:         c.tables.Market.GrowthRate,
		ResourceStrength:   c.resourceForAverageEmployees(competitors),
	}
	return &Assessment{
		ThreatLevel:     level,
		Score:           score,
		Factors:         factors.clamped(),
		Recommendations: MarketRecommendations(level),
	}
}

func (c *Calculator) marketSizeForCount(count int) int {
	for _, tier := range c.tables.Market.MarketSizeByCount {
		if count >= tier.MinCompetitors {
			return tier.Score
		}
	}
	return c.tables.DefaultMarketSize
}

// resourceForAverageEmployees averages over competitors with a known count.
func (c *Calculator) resourceForAverageEmployees(competitors []*competitor.Competitor) int {
	var sum, known int
	for _, comp := range competitors {
		if comp == nil || comp.EmployeeCount == nil {
			continue
		}
		sum += *comp.EmployeeCount
		known++
	}
	if known == 0 {
		return c.tables.Market.DefaultResource
	}
	avg := float64(sum) / float64(known)
	for _, tier := range c.tables.Market.ResourceByAvgEmployees {
		if avg > tier.Above {
			return tier.Score
		}
	}
	return c.tables.Market.DefaultResource
}
