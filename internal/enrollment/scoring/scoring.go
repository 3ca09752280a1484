// Package scoring computes the provisional vulnerability score previewed on
// the device. The score is advisory: the registry authority recomputes it on
// sync and its value is authoritative afterwards.
package scoring

import (
	"time"

	"enrolld/internal/enrollment/models"
	"enrolld/internal/enrollment/validate"
)

// Additive point model. Rules evaluate in a fixed order and each rule is
// independent of the others; the factors slice preserves that order.
const (
	pointsNoElectricity  = 15
	pointsNoWater        = 10
	pointsLowIncome      = 10
	pointsAgeRisk        = 10
	pointsLargeHousehold = 10
	pointsNoEducation    = 12
	pointsDisabledMember = 13
	pointsIsolatedZone   = 15

	lowIncomeThreshold = 100_000
	largeHouseholdSize = 7
	youngChildAge      = 5
	seniorAge          = 65
	maxScore           = 100
)

// Compute derives the vulnerability assessment from the current person and
// household snapshot. Pure: no I/O, no caching, deterministic for identical
// input. The evaluation instant only affects the age rule.
func Compute(person models.PersonRecord, household models.HouseholdRecord, now time.Time) models.Assessment {
	var factors []models.Factor
	add := func(dim models.Dimension, label string, points int) {
		factors = append(factors, models.Factor{Dimension: dim, Label: label, Points: points})
	}

	// 1. No electricity.
	if household.HasElectricity == models.TriNo {
		add(models.DimensionEconomic, "no electricity", pointsNoElectricity)
	}
	// 2. No running water.
	if household.HasWater == models.TriNo {
		add(models.DimensionEconomic, "no running water", pointsNoWater)
	}
	// 3. Monthly income below the threshold; missing income counts as zero.
	income := 0.0
	if household.MonthlyIncome != nil {
		income = *household.MonthlyIncome
	}
	if income < lowIncomeThreshold {
		add(models.DimensionEconomic, "income below subsistence threshold", pointsLowIncome)
	}
	// 4. Age risk, only when the birth date is valid.
	if date, err := time.Parse(validate.BirthDateLayout, person.BirthDate); err == nil && !date.After(now) {
		switch age := validate.Age(date, now); {
		case age < youngChildAge:
			add(models.DimensionDemographic, "young child", pointsAgeRisk)
		case age > seniorAge:
			add(models.DimensionDemographic, "senior", pointsAgeRisk)
		}
	}
	// 5. Large household.
	if household.Size > largeHouseholdSize {
		add(models.DimensionDemographic, "large household", pointsLargeHousehold)
	}
	// 6. No formal education.
	if person.EducationLevel == models.EducationUnset || person.EducationLevel == models.EducationNone {
		add(models.DimensionSocial, "no formal education", pointsNoEducation)
	}
	// 7. Disabled household member.
	if household.HasDisabledMember == models.TriYes {
		add(models.DimensionSocial, "disabled household member", pointsDisabledMember)
	}
	// 8. Isolated zone.
	if household.ZoneType == models.ZoneRuralRemote || household.ZoneType == models.ZoneForest {
		add(models.DimensionGeographic, "isolated zone", pointsIsolatedZone)
	}

	score := 0
	for _, f := range factors {
		score += f.Points
	}
	score = clamp(score)

	return models.Assessment{
		Score:    score,
		Category: models.CategoryForScore(score),
		Factors:  factors,
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
