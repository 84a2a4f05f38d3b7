// ABOUTME: Derived 0-100 score computation for leads and deals
// ABOUTME: Pure functions of current field values, recomputed on change
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/indik4/crm/models"
)

const recentWindow = 7 * 24 * time.Hour

// LeadScore computes a lead's score from contact completeness, recent
// activity, and status. Always within [0, 100].
func LeadScore(lead models.Lead, now time.Time) int {
	score := 0

	contactFields := []string{lead.Name, lead.Email, lead.Phone, lead.Company}
	filled := 0
	for _, f := range contactFields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	score += int(math.Round(float64(filled) / float64(len(contactFields)) * 25))

	score += activityBonus(lead.Activities, now)

	switch lead.Status {
	case models.LeadStatusQualified:
		score += 20
	case models.LeadStatusContacted:
		score += 10
	case models.LeadStatusNew:
		score += 5
	}

	return clamp(score)
}

// DealScore computes a deal's score from amount, probability, recent
// activity, stage progress within its funnel, and custom field
// completeness. Always within [0, 100]. A stage id not present in the
// funnel contributes no stage bonus.
func DealScore(deal models.Deal, funnel models.Funnel, now time.Time) int {
	score := 0

	// Amount factor (0-30 points)
	switch {
	case deal.Amount > 1_000_000:
		score += 30
	case deal.Amount > 500_000:
		score += 20
	case deal.Amount > 100_000:
		score += 10
	}

	// Probability factor (0-25 points)
	score += int(math.Round(float64(deal.Probability) * 0.25))

	// Activity factor (0-20 points)
	score += activityBonus(deal.Activities, now)

	// Stage factor (0-15 points)
	if idx := funnel.StageIndex(deal.Stage); idx >= 0 && len(funnel.Stages) > 0 {
		score += int(math.Round(float64(idx) / float64(len(funnel.Stages)) * 15))
	}

	// Custom field completeness (0-10 points)
	filled := 0
	for _, f := range deal.CustomFields {
		if !f.IsEmpty() {
			filled++
		}
	}
	score += min(filled*2, 10)

	return clamp(score)
}

func activityBonus(activities []models.Activity, now time.Time) int {
	recent := 0
	cutoff := now.Add(-recentWindow)
	for _, a := range activities {
		if a.Date.After(cutoff) {
			recent++
		}
	}
	return min(recent*5, 20)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
