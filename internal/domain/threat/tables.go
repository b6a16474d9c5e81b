package threat

import "strings"

// Tables holds the lookup data behind the factor heuristics. Pass a modified
// copy through WithTables to substitute it; a Calculator never mutates it.
type Tables struct {
	// MarketSizeByIndustry is the marketSize base keyed by lower-case industry.
	MarketSizeByIndustry map[string]int
	DefaultMarketSize    int

	// GrowthByIndustry is the growthRate base keyed by lower-case industry.
	GrowthByIndustry map[string]int
	DefaultGrowth    int

	// ResourceIndustryKeywords grant the resourceStrength industry bonus when
	// any of them is a substring of the lower-case industry.
	ResourceIndustryKeywords []string

	Market MarketHeuristics
}

// MarketHeuristics are the coarser constants used for industry-wide factors.
type MarketHeuristics struct {
	// MarketSizeByCount: first tier whose MinCompetitors <= count wins.
	MarketSizeByCount []CountTier
	MarketPosition    int
	GrowthRate        int
	// ResourceByAvgEmployees: first tier whose average is strictly above Above wins.
	ResourceByAvgEmployees []EmployeeTier
	DefaultResource        int
}

// CountTier maps a minimum competitor count to a score.
type CountTier struct {
	MinCompetitors int
	Score          int
}

// EmployeeTier maps an average-employee threshold to a score.
type EmployeeTier struct {
	Above float64
	Score int
}

// DefaultTables returns a fresh copy of the standard lookup tables.
func DefaultTables() Tables {
	return Tables{
		MarketSizeByIndustry: map[string]int{
			"technology":    85,
			"healthcare":    80,
			"finance":       75,
			"retail":        70,
			"manufacturing": 65,
		},
		DefaultMarketSize: 60,
		GrowthByIndustry: map[string]int{
			"technology":       80,
			"healthcare":       75,
			"renewable energy": 85,
			"e-commerce":       80,
		},
		DefaultGrowth:            60,
		ResourceIndustryKeywords: []string{"technology", "software", "ai", "biotech"},
		Market: MarketHeuristics{
			MarketSizeByCount: []CountTier{
				{MinCompetitors: 20, Score: 90},
				{MinCompetitors: 10, Score: 75},
				{MinCompetitors: 5, Score: 60},
				{MinCompetitors: 0, Score: 45},
			},
			MarketPosition: 60,
			GrowthRate:     65,
			ResourceByAvgEmployees: []EmployeeTier{
				{Above: 5000, Score: 90},
				{Above: 1000, Score: 75},
				{Above: 100, Score: 60},
			},
			DefaultResource: 45,
		},
	}
}

func normalizeIndustry(industry string) string {
	return strings.ToLower(strings.TrimSpace(industry))
}

func lookup(table map[string]int, industry string, fallback int) int {
	if v, ok := table[normalizeIndustry(industry)]; ok {
		return v
	}
	return fallback
}

func (t Tables) clone() Tables {
	out := t
	out.MarketSizeByIndustry = copyMap(t.MarketSizeByIndustry)
	out.GrowthByIndustry = copyMap(t.GrowthByIndustry)
	out.ResourceIndustryKeywords = append([]string(nil), t.ResourceIndustryKeywords...)
	out.Market.MarketSizeByCount = append([]CountTier(nil), t.Market.MarketSizeByCount...)
	out.Market.ResourceByAvgEmployees = append([]EmployeeTier(nil), t.Market.ResourceByAvgEmployees...)
	return out
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[normalizeIndustry(k)] = v
	}
	return out
}
