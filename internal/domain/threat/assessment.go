// Package threat scores how threatening a competitor, or a whole industry, is.
// The calculations are deterministic heuristics over competitor records; they
// hold no state and never fail.
package threat

// Level is the qualitative threat band derived from a score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels lists every level from lowest to highest.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// Factors are the five sub-scores, each in [0,100].
type Factors struct {
	MarketSize         int `json:"marketSize"`
	CompetitorStrength int `json:"competitorStrength"`
	MarketPosition     int `json:"marketPosition"`
	GrowthRate         int `json:"growthRate"`
	ResourceStrength   int `json:"resourceStrength"`
}

// Assessment is the scored result for one competitor or one industry.
// It is computed on demand and never stored as its own entity.
type Assessment struct {
	ThreatLevel     Level    `json:"threatLevel"`
	Score           int      `json:"score"`
	Factors         Factors  `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

// NeutralScore is used for every factor and the score of the default assessment.
const NeutralScore = 50

var defaultRecommendations = []string{
	"Gather more competitor data to improve assessment accuracy",
	"Review this assessment again once analysis results are available",
}

// DefaultAssessment is returned whenever a real assessment cannot be computed.
func DefaultAssessment() *Assessment {
	return &Assessment{
		ThreatLevel: LevelMedium,
		Score:       NeutralScore,
		Factors: Factors{
			MarketSize:         NeutralScore,
			CompetitorStrength: NeutralScore,
			MarketPosition:     NeutralScore,
			GrowthRate:         NeutralScore,
			ResourceStrength:   NeutralScore,
		},
		Recommendations: append([]string(nil), defaultRecommendations...),
	}
}

// IsDefault reports whether a has the exact shape of DefaultAssessment.
func (a *Assessment) IsDefault() bool {
	if a == nil || a.Score != NeutralScore || a.ThreatLevel != LevelMedium {
		return false
	}
	if a.Factors != DefaultAssessment().Factors || len(a.Recommendations) != len(defaultRecommendations) {
		return false
	}
	for i, r := range defaultRecommendations {
		if a.Recommendations[i] != r {
			return false
		}
	}
	return true
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (f Factors) clamped() Factors {
	return Factors{
		MarketSize:         clamp(f.MarketSize),
		CompetitorStrength: clamp(f.CompetitorStrength),
		MarketPosition:     clamp(f.MarketPosition),
		GrowthRate:         clamp(f.GrowthRate),
		ResourceStrength:   clamp(f.ResourceStrength),
	}
}
