package threat

var levelRecommendations = map[Level][]string{
	LevelCritical: {
		"Launch an immediate competitive response plan and assign an executive owner",
		"Accelerate differentiation in the product areas where this competitor overlaps",
		"Track this competitor's pricing, hiring and product releases weekly",
	},
	LevelHigh: {
		"Strengthen positioning in the segments this competitor targets",
		"Prepare counter-offers for accounts at risk of switching",
		"Review this competitor's moves monthly with product and sales leads",
	},
	LevelMedium: {
		"Monitor this competitor's announcements and funding quarterly",
		"Identify differentiation opportunities before the gap narrows",
	},
	LevelLow: {
		"Keep this competitor on a low-frequency watch list",
		"Re-assess if the competitor raises funding or enters new markets",
	},
}

var marketRecommendations = []string{
	"Map the industry's competitive landscape and refresh it every quarter",
	"Benchmark pricing and feature coverage against the industry's leading competitors",
}

// GenerateRecommendations returns the fixed recommendations for level:
// three for critical and high, two for medium and low. Unknown levels get
// the medium list. The returned slice is owned by the caller.
func GenerateRecommendations(level Level) []string {
	recs, ok := levelRecommendations[level]
	if !ok {
		recs = levelRecommendations[LevelMedium]
	}
	return append([]string(nil), recs...)
}

// MarketRecommendations returns the level list followed by the two
// industry-wide recommendations.
func MarketRecommendations(level Level) []string {
	return append(GenerateRecommendations(level), marketRecommendations...)
}
