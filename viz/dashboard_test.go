// ABOUTME: Tests for dashboard statistics generation
// ABOUTME: Covers pipeline grouping, recent activity, and staleness cutoffs
package viz

import (
	"strings"
	"testing"
	"time"

	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
)

func TestGenerateDashboardStats(t *testing.T) {
	now := time.Now()
	s := store.NewWithClock(func() time.Time { return now })

	if _, err := s.AddLead(models.Lead{Name: "Anna"}); err != nil {
		t.Fatalf("AddLead: %v", err)
	}
	first, err := s.AddDeal(models.Deal{Title: "First", Amount: 100_000, Stage: "new"})
	if err != nil {
		t.Fatalf("AddDeal: %v", err)
	}
	if _, err := s.AddDeal(models.Deal{Title: "Second", Amount: 50_000, Stage: "new"}); err != nil {
		t.Fatalf("AddDeal: %v", err)
	}
	if _, err := s.AddActivity(models.EntityDeal, first.ID, models.Activity{
		Type:        models.ActivityCall,
		Description: "Negotiated terms",
	}); err != nil {
		t.Fatalf("AddActivity: %v", err)
	}

	stats := GenerateDashboardStats(s)

	if stats.TotalLeads != 1 || stats.TotalDeals != 2 {
		t.Errorf("totals = %d leads, %d deals", stats.TotalLeads, stats.TotalDeals)
	}
	pstats := stats.PipelineByStage["new"]
	if pstats.Count != 2 {
		t.Errorf("new stage count = %d, want 2", pstats.Count)
	}
	if pstats.Amount != 150_000 {
		t.Errorf("new stage amount = %.0f, want 150000", pstats.Amount)
	}
	if len(stats.RecentActivity) != 1 {
		t.Fatalf("recent activity = %d, want 1", len(stats.RecentActivity))
	}
	if !strings.Contains(stats.RecentActivity[0].Description, "Negotiated terms") {
		t.Errorf("recent activity = %q", stats.RecentActivity[0].Description)
	}
	if len(stats.StaleDeals) != 0 || len(stats.StaleLeads) != 0 {
		t.Error("fresh records flagged as stale")
	}
	if stats.Funnel.ID != "sales" {
		t.Errorf("funnel = %q, want sales", stats.Funnel.ID)
	}
}

func TestRenderDashboardIncludesPipeline(t *testing.T) {
	s := store.New()
	if _, err := s.AddDeal(models.Deal{Title: "Contract", Amount: 90_000, Stage: "qualified"}); err != nil {
		t.Fatalf("AddDeal: %v", err)
	}

	out := RenderDashboard(GenerateDashboardStats(s))

	if !strings.Contains(out, "INDIK4 CRM DASHBOARD") {
		t.Error("header missing")
	}
	if !strings.Contains(out, "Qualified") {
		t.Error("stage row missing")
	}
	if !strings.Contains(out, "1 deals") {
		t.Errorf("totals line missing:\n%s", out)
	}
}
