// ABOUTME: Tests for lead and deal score computation
// ABOUTME: Pins the factor weights, caps, and clamping behavior
package scoring

import (
	"testing"
	"time"

	"github.com/indik4/crm/models"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func recentActivities(n int) []models.Activity {
	activities := make([]models.Activity, n)
	for i := range activities {
		activities[i] = models.Activity{
			Type: models.ActivityNote,
			Date: now.Add(-time.Duration(i+1) * time.Hour),
		}
	}
	return activities
}

func TestLeadScoreEmptyLead(t *testing.T) {
	lead := models.Lead{Status: models.LeadStatusNew}
	// No contact fields, no activity, status new only.
	if got := LeadScore(lead, now); got != 5 {
		t.Errorf("LeadScore = %d, want 5", got)
	}
}

func TestLeadScoreContactCompleteness(t *testing.T) {
	tests := []struct {
		name string
		lead models.Lead
		want int
	}{
		{
			"two of four fields",
			models.Lead{Name: "Anna", Email: "anna@example.com", Status: models.LeadStatusNew},
			13 + 5, // round(2/4*25) + new bonus
		},
		{
			"all four fields",
			models.Lead{Name: "Anna", Email: "a@b.com", Phone: "89123456789", Company: "Acme", Status: models.LeadStatusNew},
			25 + 5,
		},
		{
			"whitespace does not count",
			models.Lead{Name: "Anna", Email: "   ", Status: models.LeadStatusNew},
			6 + 5, // round(1/4*25)
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LeadScore(tt.lead, now); got != tt.want {
				t.Errorf("LeadScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLeadScoreStatusBonus(t *testing.T) {
	tests := []struct {
		status models.LeadStatus
		want   int
	}{
		{models.LeadStatusNew, 5},
		{models.LeadStatusContacted, 10},
		{models.LeadStatusQualified, 20},
		{models.LeadStatusConverted, 0},
		{models.LeadStatusLost, 0},
	}
	for _, tt := range tests {
		lead := models.Lead{Status: tt.status}
		if got := LeadScore(lead, now); got != tt.want {
			t.Errorf("status %s: LeadScore = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestLeadScoreActivityBonusCapped(t *testing.T) {
	lead := models.Lead{Status: models.LeadStatusNew, Activities: recentActivities(3)}
	if got := LeadScore(lead, now); got != 15+5 {
		t.Errorf("3 recent activities: LeadScore = %d, want 20", got)
	}

	lead.Activities = recentActivities(10)
	if got := LeadScore(lead, now); got != 20+5 {
		t.Errorf("10 recent activities: LeadScore = %d, want 25", got)
	}
}

func TestLeadScoreIgnoresOldActivities(t *testing.T) {
	lead := models.Lead{
		Status: models.LeadStatusNew,
		Activities: []models.Activity{
			{Type: models.ActivityCall, Date: now.Add(-8 * 24 * time.Hour)},
		},
	}
	if got := LeadScore(lead, now); got != 5 {
		t.Errorf("old activity counted: LeadScore = %d, want 5", got)
	}
}

func TestLeadScoreMaximum(t *testing.T) {
	lead := models.Lead{
		Name:       "Anna",
		Email:      "a@b.com",
		Phone:      "89123456789",
		Company:    "Acme",
		Status:     models.LeadStatusQualified,
		Activities: recentActivities(4),
	}
	// 25 contact + 20 activity + 20 qualified
	if got := LeadScore(lead, now); got != 65 {
		t.Errorf("LeadScore = %d, want 65", got)
	}
}

func TestDealScoreAmountBrackets(t *testing.T) {
	funnel := models.DefaultFunnels()[0]
	tests := []struct {
		amount float64
		want   int
	}{
		{50_000, 0},
		{100_000, 0},
		{100_001, 10},
		{500_001, 20},
		{1_000_000, 20},
		{1_000_001, 30},
	}
	for _, tt := range tests {
		deal := models.Deal{Amount: tt.amount, Stage: "new"}
		if got := DealScore(deal, funnel, now); got != tt.want {
			t.Errorf("amount %.0f: DealScore = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestDealScoreProbability(t *testing.T) {
	funnel := models.DefaultFunnels()[0]
	deal := models.Deal{Probability: 50, Stage: "new"}
	// round(50 * 0.25) = 13
	if got := DealScore(deal, funnel, now); got != 13 {
		t.Errorf("DealScore = %d, want 13", got)
	}
}

func TestDealScoreStageProgress(t *testing.T) {
	funnel := models.DefaultFunnels()[0] // 6 stages

	deal := models.Deal{Stage: "new"}
	if got := DealScore(deal, funnel, now); got != 0 {
		t.Errorf("first stage: DealScore = %d, want 0", got)
	}

	deal.Stage = "won" // index 4 of 6: round(4/6*15) = 10
	if got := DealScore(deal, funnel, now); got != 10 {
		t.Errorf("won stage: DealScore = %d, want 10", got)
	}
}

func TestDealScoreUnknownStageNoBonus(t *testing.T) {
	funnel := models.DefaultFunnels()[0]
	deal := models.Deal{Stage: "removed-stage", Probability: 40}
	// Probability only: round(40*0.25) = 10
	if got := DealScore(deal, funnel, now); got != 10 {
		t.Errorf("DealScore = %d, want 10", got)
	}
}

func TestDealScoreCustomFieldCompleteness(t *testing.T) {
	funnel := models.DefaultFunnels()[0]
	deal := models.Deal{
		Stage: "new",
		CustomFields: models.CustomFields{
			"budget":   {Type: models.FieldNumber, Value: models.NumberValue(0)},
			"approved": {Type: models.FieldCheckbox, Value: models.CheckboxValue(false)},
			"notes":    {Type: models.FieldText, Value: models.TextValue("")},
		},
	}
	// Numbers and checkboxes always count as filled, blank text does not:
	// 2 filled * 2 = 4 points.
	if got := DealScore(deal, funnel, now); got != 4 {
		t.Errorf("DealScore = %d, want 4", got)
	}

	deal.CustomFields = models.CustomFields{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		deal.CustomFields.Set(name, models.CustomField{Type: models.FieldText, Value: models.TextValue("x")})
	}
	// 7 filled fields cap at 10 points.
	if got := DealScore(deal, funnel, now); got != 10 {
		t.Errorf("DealScore = %d, want 10", got)
	}
}

func TestDealScoreCombined(t *testing.T) {
	funnel := models.DefaultFunnels()[0]
	deal := models.Deal{
		Amount:      1_500_000,
		Probability: 100,
		Stage:       "lost", // index 5 of 6: round(5/6*15) = 13
		Activities:  recentActivities(4),
		CustomFields: models.CustomFields{
			"a": {Type: models.FieldText, Value: models.TextValue("x")},
			"b": {Type: models.FieldText, Value: models.TextValue("y")},
		},
	}
	// 30 + 25 + 20 + 13 + 4 = 92
	if got := DealScore(deal, funnel, now); got != 92 {
		t.Errorf("DealScore = %d, want 92", got)
	}
}
