// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal, move_deal, and find_deals tools
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	store *store.Store
}

func NewDealHandlers(s *store.Store) *DealHandlers {
	return &DealHandlers{store: s}
}

type CreateDealInput struct {
	Title         string  `json:"title" jsonschema:"Deal title (required)"`
	Company       string  `json:"company,omitempty" jsonschema:"Company name"`
	Contact       string  `json:"contact,omitempty" jsonschema:"Contact person"`
	Amount        float64 `json:"amount" jsonschema:"Deal amount (non-negative)"`
	Probability   int     `json:"probability" jsonschema:"Close probability 0-100"`
	Stage         string  `json:"stage,omitempty" jsonschema:"Stage ID (default: first stage of first funnel)"`
	ExpectedClose string  `json:"expected_close" jsonschema:"Expected close date, YYYY-MM-DD"`
	Description   string  `json:"description,omitempty" jsonschema:"Free-form description"`
}

type DealOutput struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Company       string  `json:"company,omitempty"`
	Contact       string  `json:"contact,omitempty"`
	Amount        float64 `json:"amount"`
	Probability   int     `json:"probability"`
	Stage         string  `json:"stage"`
	ExpectedClose string  `json:"expected_close"`
	Score         int     `json:"score"`
	Activities    int     `json:"activities"`
	LastActivity  string  `json:"last_activity"`
	CreatedAt     string  `json:"created_at"`
}

func (h *DealHandlers) CreateDeal(_ context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	form := validation.ValidateDealForm(map[string]string{
		"title":         input.Title,
		"amount":        strconv.FormatFloat(input.Amount, 'f', -1, 64),
		"probability":   strconv.Itoa(input.Probability),
		"expectedClose": input.ExpectedClose,
	})
	if !form.IsValid {
		return nil, DealOutput{}, formError(form)
	}
	if input.Stage != "" && !h.stageExists(input.Stage) {
		return nil, DealOutput{}, fmt.Errorf("unknown stage: %s", input.Stage)
	}
	expectedClose, err := time.Parse("2006-01-02", input.ExpectedClose)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("invalid expected_close: %w", err)
	}

	deal, err := h.store.AddDeal(models.Deal{
		Title:         input.Title,
		Company:       input.Company,
		Contact:       input.Contact,
		Amount:        input.Amount,
		Probability:   input.Probability,
		Stage:         input.Stage,
		ExpectedClose: expectedClose,
		Description:   input.Description,
	})
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}

	return nil, dealToOutput(deal), nil
}

type UpdateDealInput struct {
	ID            string   `json:"id" jsonschema:"Deal ID (required)"`
	Title         string   `json:"title,omitempty" jsonschema:"Updated title"`
	Company       string   `json:"company,omitempty" jsonschema:"Updated company"`
	Contact       string   `json:"contact,omitempty" jsonschema:"Updated contact"`
	Amount        *float64 `json:"amount,omitempty" jsonschema:"Updated amount"`
	Probability   *int     `json:"probability,omitempty" jsonschema:"Updated probability 0-100"`
	Stage         string   `json:"stage,omitempty" jsonschema:"Updated stage ID"`
	ExpectedClose string   `json:"expected_close,omitempty" jsonschema:"Updated close date, YYYY-MM-DD"`
	Description   string   `json:"description,omitempty" jsonschema:"Updated description"`
	Actor         string   `json:"actor,omitempty" jsonschema:"Acting user recorded on stage changes"`
}

func (h *DealHandlers) UpdateDeal(_ context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.ID == "" {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}
	dealID, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("invalid id: %w", err)
	}

	deal, err := h.store.Deal(dealID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to get deal: %w", err)
	}

	if input.Amount != nil {
		if msg := validation.ValidateAmount(strconv.FormatFloat(*input.Amount, 'f', -1, 64)); msg != "" {
			return nil, DealOutput{}, fmt.Errorf("amount: %s", msg)
		}
	}
	if input.Probability != nil {
		if msg := validation.ValidateProbability(strconv.Itoa(*input.Probability)); msg != "" {
			return nil, DealOutput{}, fmt.Errorf("probability: %s", msg)
		}
	}
	if input.Stage != "" && !h.stageExists(input.Stage) {
		return nil, DealOutput{}, fmt.Errorf("unknown stage: %s", input.Stage)
	}

	// Required custom fields gate the save at the target stage.
	targetStage := deal.Stage
	if input.Stage != "" {
		targetStage = input.Stage
	}
	required := h.store.RequiredFieldsFor(models.EntityDeal, targetStage)
	if missing := validation.MissingRequiredFields(required, deal.CustomFields); len(missing) > 0 {
		return nil, DealOutput{}, fmt.Errorf("%s", validation.RequiredFieldsError(missing))
	}

	upd := store.DealUpdate{
		Amount:      input.Amount,
		Probability: input.Probability,
	}
	if input.Title != "" {
		upd.Title = &input.Title
	}
	if input.Company != "" {
		upd.Company = &input.Company
	}
	if input.Contact != "" {
		upd.Contact = &input.Contact
	}
	if input.Description != "" {
		upd.Description = &input.Description
	}
	if input.Stage != "" {
		upd.Stage = &input.Stage
	}
	if input.ExpectedClose != "" {
		parsed, err := time.Parse("2006-01-02", input.ExpectedClose)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid expected_close: %w", err)
		}
		upd.ExpectedClose = &parsed
	}

	updated, err := h.store.UpdateDeal(dealID, upd, input.Actor)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}

	return nil, dealToOutput(updated), nil
}

type MoveDealInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Stage  string `json:"stage" jsonschema:"Target stage ID (required)"`
	Actor  string `json:"actor,omitempty" jsonschema:"Acting user recorded on the move"`
}

type MoveDealOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *DealHandlers) MoveDeal(_ context.Context, request *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, MoveDealOutput, error) {
	if input.DealID == "" {
		return nil, MoveDealOutput{}, fmt.Errorf("deal_id is required")
	}
	if input.Stage == "" {
		return nil, MoveDealOutput{}, fmt.Errorf("stage is required")
	}
	dealID, err := uuid.Parse(input.DealID)
	if err != nil {
		return nil, MoveDealOutput{}, fmt.Errorf("invalid deal_id: %w", err)
	}
	if !h.stageExists(input.Stage) {
		return nil, MoveDealOutput{}, fmt.Errorf("unknown stage: %s", input.Stage)
	}

	deal, err := h.store.Deal(dealID)
	if err != nil {
		return nil, MoveDealOutput{}, fmt.Errorf("failed to get deal: %w", err)
	}

	required := h.store.RequiredFieldsFor(models.EntityDeal, input.Stage)
	if missing := validation.MissingRequiredFields(required, deal.CustomFields); len(missing) > 0 {
		return nil, MoveDealOutput{}, fmt.Errorf("%s", validation.RequiredFieldsError(missing))
	}

	if err := h.store.MoveDeal(dealID, input.Stage, input.Actor); err != nil {
		return nil, MoveDealOutput{}, fmt.Errorf("failed to move deal: %w", err)
	}

	return nil, MoveDealOutput{
		Success: true,
		Message: fmt.Sprintf("Deal %q moved to stage %s", deal.Title, input.Stage),
	}, nil
}

type FindDealsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Match against title, company, or contact"`
	Stage  string `json:"stage,omitempty" jsonschema:"Filter by stage ID"`
	Funnel string `json:"funnel,omitempty" jsonschema:"Filter by funnel ID"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 10)"`
}

type FindDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
}

func (h *DealHandlers) FindDeals(_ context.Context, request *mcp.CallToolRequest, input FindDealsInput) (*mcp.CallToolResult, FindDealsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	var funnelStages map[string]bool
	if input.Funnel != "" {
		funnelStages = make(map[string]bool)
		for _, f := range h.store.Funnels() {
			if f.ID != input.Funnel {
				continue
			}
			for _, stage := range f.Stages {
				funnelStages[stage.ID] = true
			}
		}
	}

	var out FindDealsOutput
	for _, deal := range h.store.Deals() {
		if input.Stage != "" && deal.Stage != input.Stage {
			continue
		}
		if funnelStages != nil && !funnelStages[deal.Stage] {
			continue
		}
		if input.Query != "" && !dealMatches(deal, input.Query) {
			continue
		}
		out.Deals = append(out.Deals, dealToOutput(deal))
		if len(out.Deals) >= limit {
			break
		}
	}
	out.Count = len(out.Deals)
	return nil, out, nil
}

type DeleteDealInput struct {
	ID string `json:"id" jsonschema:"Deal ID (required)"`
}

func (h *DealHandlers) DeleteDeal(_ context.Context, request *mcp.CallToolRequest, input DeleteDealInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	dealID, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("invalid id: %w", err)
	}
	if err := h.store.DeleteDeal(dealID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Deal %s deleted successfully", dealID)}, nil
}

func (h *DealHandlers) stageExists(stageID string) bool {
	for _, f := range h.store.Funnels() {
		if f.StageIndex(stageID) >= 0 {
			return true
		}
	}
	return false
}

func dealMatches(deal models.Deal, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(deal.Title), q) ||
		strings.Contains(strings.ToLower(deal.Company), q) ||
		strings.Contains(strings.ToLower(deal.Contact), q)
}

func dealToOutput(deal models.Deal) DealOutput {
	return DealOutput{
		ID:            deal.ID.String(),
		Title:         deal.Title,
		Company:       deal.Company,
		Contact:       deal.Contact,
		Amount:        deal.Amount,
		Probability:   deal.Probability,
		Stage:         deal.Stage,
		ExpectedClose: deal.ExpectedClose.Format("2006-01-02"),
		Score:         deal.Score,
		Activities:    len(deal.Activities),
		LastActivity:  deal.LastActivity.Format("2006-01-02T15:04:05Z07:00"),
		CreatedAt:     deal.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
