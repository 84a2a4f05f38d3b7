// ABOUTME: Funnel and dashboard MCP tool handlers
// ABOUTME: Implements list_funnels, update_funnels, and crm_dashboard tools
package handlers

import (
	"context"
	"fmt"

	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type FunnelHandlers struct {
	store *store.Store
}

func NewFunnelHandlers(s *store.Store) *FunnelHandlers {
	return &FunnelHandlers{store: s}
}

type ListFunnelsInput struct{}

type StageOutput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Deals int    `json:"deals"`
}

type FunnelOutput struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Color  string        `json:"color,omitempty"`
	Stages []StageOutput `json:"stages"`
}

type ListFunnelsOutput struct {
	Funnels []FunnelOutput `json:"funnels"`
}

func (h *FunnelHandlers) ListFunnels(_ context.Context, request *mcp.CallToolRequest, input ListFunnelsInput) (*mcp.CallToolResult, ListFunnelsOutput, error) {
	dealsByStage := make(map[string]int)
	for _, deal := range h.store.Deals() {
		dealsByStage[deal.Stage]++
	}

	var out ListFunnelsOutput
	for _, funnel := range h.store.Funnels() {
		fo := FunnelOutput{ID: funnel.ID, Name: funnel.Name, Color: funnel.Color}
		for _, stage := range funnel.Stages {
			fo.Stages = append(fo.Stages, StageOutput{
				ID:    stage.ID,
				Name:  stage.Name,
				Color: stage.Color,
				Deals: dealsByStage[stage.ID],
			})
		}
		out.Funnels = append(out.Funnels, fo)
	}
	return nil, out, nil
}

type StageInput struct {
	ID    string `json:"id" jsonschema:"Stage ID (required)"`
	Name  string `json:"name" jsonschema:"Stage display name (required)"`
	Color string `json:"color,omitempty" jsonschema:"Display color"`
}

type FunnelInput struct {
	ID     string       `json:"id" jsonschema:"Funnel ID (required)"`
	Name   string       `json:"name" jsonschema:"Funnel display name (required)"`
	Color  string       `json:"color,omitempty" jsonschema:"Display color"`
	Stages []StageInput `json:"stages" jsonschema:"Ordered stages (at least one)"`
}

type UpdateFunnelsInput struct {
	Funnels []FunnelInput `json:"funnels" jsonschema:"Full replacement funnel list (required, at least one)"`
}

type UpdateFunnelsOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *FunnelHandlers) UpdateFunnels(_ context.Context, request *mcp.CallToolRequest, input UpdateFunnelsInput) (*mcp.CallToolResult, UpdateFunnelsOutput, error) {
	if len(input.Funnels) == 0 {
		return nil, UpdateFunnelsOutput{}, fmt.Errorf("at least one funnel is required")
	}

	funnels := make([]models.Funnel, 0, len(input.Funnels))
	seen := make(map[string]bool)
	for _, f := range input.Funnels {
		if f.ID == "" || f.Name == "" {
			return nil, UpdateFunnelsOutput{}, fmt.Errorf("funnel id and name are required")
		}
		if len(f.Stages) == 0 {
			return nil, UpdateFunnelsOutput{}, fmt.Errorf("funnel %s has no stages", f.ID)
		}
		funnel := models.Funnel{ID: f.ID, Name: f.Name, Color: f.Color}
		for _, st := range f.Stages {
			if st.ID == "" || st.Name == "" {
				return nil, UpdateFunnelsOutput{}, fmt.Errorf("stage id and name are required in funnel %s", f.ID)
			}
			if seen[st.ID] {
				return nil, UpdateFunnelsOutput{}, fmt.Errorf("duplicate stage id: %s", st.ID)
			}
			seen[st.ID] = true
			funnel.Stages = append(funnel.Stages, models.Stage{ID: st.ID, Name: st.Name, Color: st.Color})
		}
		funnels = append(funnels, funnel)
	}

	if err := h.store.UpdateFunnels(funnels); err != nil {
		return nil, UpdateFunnelsOutput{}, fmt.Errorf("failed to update funnels: %w", err)
	}

	return nil, UpdateFunnelsOutput{
		Success: true,
		Message: fmt.Sprintf("Funnels replaced (%d configured)", len(funnels)),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Dashboard string `json:"dashboard"`
}

func (h *FunnelHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats := viz.GenerateDashboardStats(h.store)
	return nil, DashboardOutput{Dashboard: viz.RenderDashboard(stats)}, nil
}
