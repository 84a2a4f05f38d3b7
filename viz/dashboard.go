// ABOUTME: Dashboard statistics and terminal rendering
// ABOUTME: Summarizes pipeline, totals, recent activity, and stale records
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
)

type DashboardStats struct {
	// Pipeline overview for the first funnel
	Funnel          models.Funnel
	PipelineByStage map[string]PipelineStageStats

	// Overall stats
	TotalLeads int
	TotalDeals int

	// Recent activity (last 7 days)
	RecentActivity []ActivityItem

	// Needs attention
	StaleLeads []StaleItem
	StaleDeals []StaleItem
}

type PipelineStageStats struct {
	Stage  string
	Count  int
	Amount float64
}

type ActivityItem struct {
	Date        time.Time
	Description string
}

type StaleItem struct {
	Name      string
	DaysSince int
}

func GenerateDashboardStats(s *store.Store) *DashboardStats {
	stats := &DashboardStats{
		PipelineByStage: make(map[string]PipelineStageStats),
	}
	if funnels := s.Funnels(); len(funnels) > 0 {
		stats.Funnel = funnels[0]
	}

	now := time.Now()
	deals := s.Deals()
	leads := s.Leads()

	for _, deal := range deals {
		stage := deal.Stage
		if stage == "" {
			stage = "unknown"
		}
		pstats := stats.PipelineByStage[stage]
		pstats.Stage = stage
		pstats.Count++
		pstats.Amount += deal.Amount
		stats.PipelineByStage[stage] = pstats
	}
	stats.TotalDeals = len(deals)
	stats.TotalLeads = len(leads)

	cutoff := now.Add(-7 * 24 * time.Hour)
	for _, deal := range deals {
		for _, a := range deal.Activities {
			if a.Date.After(cutoff) {
				stats.RecentActivity = append(stats.RecentActivity, ActivityItem{
					Date:        a.Date,
					Description: fmt.Sprintf("%s: %s", deal.Title, a.Description),
				})
			}
		}
		if daysSince := int(now.Sub(deal.LastActivity).Hours() / 24); daysSince > 14 {
			stats.StaleDeals = append(stats.StaleDeals, StaleItem{Name: deal.Title, DaysSince: daysSince})
		}
	}
	for _, lead := range leads {
		for _, a := range lead.Activities {
			if a.Date.After(cutoff) {
				stats.RecentActivity = append(stats.RecentActivity, ActivityItem{
					Date:        a.Date,
					Description: fmt.Sprintf("%s: %s", lead.Name, a.Description),
				})
			}
		}
		if lead.Status == models.LeadStatusConverted || lead.Status == models.LeadStatusLost {
			continue
		}
		if daysSince := int(now.Sub(lead.LastContact).Hours() / 24); daysSince > 30 {
			stats.StaleLeads = append(stats.StaleLeads, StaleItem{Name: lead.Name, DaysSince: daysSince})
		}
	}

	sort.Slice(stats.RecentActivity, func(i, j int) bool {
		return stats.RecentActivity[i].Date.After(stats.RecentActivity[j].Date)
	})

	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  INDIK4 CRM DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.Funnel, stats.PipelineByStage)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  %d leads  %d deals\n\n", stats.TotalLeads, stats.TotalDeals))

	if len(stats.StaleLeads) > 0 || len(stats.StaleDeals) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.StaleLeads) > 0 {
			out.WriteString(fmt.Sprintf("  %d leads - no contact in 30+ days\n", len(stats.StaleLeads)))
		}
		if len(stats.StaleDeals) > 0 {
			out.WriteString(fmt.Sprintf("  %d deals - stale (no activity in 14+ days)\n", len(stats.StaleDeals)))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, funnel models.Funnel, pipeline map[string]PipelineStageStats) {
	maxCount := 0
	for _, pstats := range pipeline {
		if pstats.Count > maxCount {
			maxCount = pstats.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, stage := range funnel.Stages {
		pstats := pipeline[stage.ID]

		barLength := (pstats.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d (%.0fK)\n",
			stage.Name, bar, pstats.Count, pstats.Amount/1000))
	}
}
