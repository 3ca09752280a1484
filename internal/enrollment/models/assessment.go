package models

// Category buckets a vulnerability score for program targeting.
type Category string

const (
	CategoryLow      Category = "LOW"
	CategoryModerate Category = "MODERATE"
	CategoryHigh     Category = "HIGH"
	CategoryExtreme  Category = "EXTREME"
)

// CategoryForScore maps a clamped score onto its category.
func CategoryForScore(score int) Category {
	switch {
	case score >= 70:
		return CategoryExtreme
	case score >= 50:
		return CategoryHigh
	case score >= 30:
		return CategoryModerate
	default:
		return CategoryLow
	}
}

// Dimension groups scoring factors for display.
type Dimension string

const (
	DimensionEconomic    Dimension = "economic"
	DimensionDemographic Dimension = "demographic"
	DimensionSocial      Dimension = "social"
	DimensionGeographic  Dimension = "geographic"
)

// Factor is one scoring rule that fired. Factors keep rule-evaluation order,
// which the dashboard relies on for a stable breakdown display.
type Factor struct {
	Dimension Dimension `json:"dimension"`
	Label     string    `json:"label"`
	Points    int       `json:"points"`
}

// Assessment is a vulnerability score snapshot: the clamped 0-100 score, its
// category and the ordered contributing factors. It is computed fresh from
// the current person/household snapshot and never cached across edits.
type Assessment struct {
	Score    int      `json:"score"`
	Category Category `json:"category"`
	Factors  []Factor `json:"factors"`
}
