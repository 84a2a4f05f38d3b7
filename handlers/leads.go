// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements create_lead, update_lead, find_leads, and convert_lead tools
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type LeadHandlers struct {
	store *store.Store
}

func NewLeadHandlers(s *store.Store) *LeadHandlers {
	return &LeadHandlers{store: s}
}

type CreateLeadInput struct {
	Name        string `json:"name" jsonschema:"Lead name (required)"`
	Email       string `json:"email,omitempty" jsonschema:"Email address (optional, format-checked)"`
	Phone       string `json:"phone,omitempty" jsonschema:"Phone number (optional, format-checked)"`
	Company     string `json:"company,omitempty" jsonschema:"Company name"`
	Position    string `json:"position,omitempty" jsonschema:"Contact's position"`
	Source      string `json:"source,omitempty" jsonschema:"Lead source: website, linkedin, conference, recommendation, advertising"`
	Status      string `json:"status,omitempty" jsonschema:"Lead status: new, contacted, qualified (default new)"`
	Description string `json:"description,omitempty" jsonschema:"Free-form description"`
}

type LeadOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company,omitempty"`
	Position    string `json:"position,omitempty"`
	Source      string `json:"source,omitempty"`
	Status      string `json:"status"`
	Score       int    `json:"score"`
	Activities  int    `json:"activities"`
	LastContact string `json:"last_contact"`
	CreatedAt   string `json:"created_at"`
}

func (h *LeadHandlers) CreateLead(_ context.Context, request *mcp.CallToolRequest, input CreateLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	form := validation.ValidateLeadForm(map[string]string{
		"name":  input.Name,
		"email": input.Email,
		"phone": input.Phone,
	})
	if !form.IsValid {
		return nil, LeadOutput{}, formError(form)
	}
	if input.Source != "" && !isValidSource(input.Source) {
		return nil, LeadOutput{}, fmt.Errorf("invalid source: %s (valid: website, linkedin, conference, recommendation, advertising)", input.Source)
	}
	if input.Status != "" && !isValidLeadStatus(input.Status) {
		return nil, LeadOutput{}, fmt.Errorf("invalid status: %s (valid: new, contacted, qualified, converted, lost)", input.Status)
	}

	lead, err := h.store.AddLead(models.Lead{
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		Company:     input.Company,
		Position:    input.Position,
		Source:      models.LeadSource(input.Source),
		Status:      models.LeadStatus(input.Status),
		Description: input.Description,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to create lead: %w", err)
	}

	return nil, leadToOutput(lead), nil
}

type UpdateLeadInput struct {
	ID          string `json:"id" jsonschema:"Lead ID (required)"`
	Name        string `json:"name,omitempty" jsonschema:"Updated name"`
	Email       string `json:"email,omitempty" jsonschema:"Updated email"`
	Phone       string `json:"phone,omitempty" jsonschema:"Updated phone"`
	Company     string `json:"company,omitempty" jsonschema:"Updated company"`
	Position    string `json:"position,omitempty" jsonschema:"Updated position"`
	Status      string `json:"status,omitempty" jsonschema:"Updated status: new, contacted, qualified, converted, lost"`
	Description string `json:"description,omitempty" jsonschema:"Updated description"`
	Actor       string `json:"actor,omitempty" jsonschema:"Acting user recorded on status changes"`
}

func (h *LeadHandlers) UpdateLead(_ context.Context, request *mcp.CallToolRequest, input UpdateLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.ID == "" {
		return nil, LeadOutput{}, fmt.Errorf("id is required")
	}
	leadID, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("invalid id: %w", err)
	}

	lead, err := h.store.Lead(leadID)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to get lead: %w", err)
	}

	if input.Status != "" && !isValidLeadStatus(input.Status) {
		return nil, LeadOutput{}, fmt.Errorf("invalid status: %s (valid: new, contacted, qualified, converted, lost)", input.Status)
	}

	// Required custom fields gate the save at the target status.
	targetStatus := string(lead.Status)
	if input.Status != "" {
		targetStatus = input.Status
	}
	required := h.store.RequiredFieldsFor(models.EntityLead, targetStatus)
	if missing := validation.MissingRequiredFields(required, lead.CustomFields); len(missing) > 0 {
		return nil, LeadOutput{}, fmt.Errorf("%s", validation.RequiredFieldsError(missing))
	}

	upd := store.LeadUpdate{}
	if input.Name != "" {
		upd.Name = &input.Name
	}
	if input.Email != "" {
		upd.Email = &input.Email
	}
	if input.Phone != "" {
		upd.Phone = &input.Phone
	}
	if input.Company != "" {
		upd.Company = &input.Company
	}
	if input.Position != "" {
		upd.Position = &input.Position
	}
	if input.Description != "" {
		upd.Description = &input.Description
	}
	if input.Status != "" {
		status := models.LeadStatus(input.Status)
		upd.Status = &status
	}

	updated, err := h.store.UpdateLead(leadID, upd, input.Actor)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to update lead: %w", err)
	}

	return nil, leadToOutput(updated), nil
}

type FindLeadsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Match against name, email, or company"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 10)"`
}

type FindLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
	Count int          `json:"count"`
}

func (h *LeadHandlers) FindLeads(_ context.Context, request *mcp.CallToolRequest, input FindLeadsInput) (*mcp.CallToolResult, FindLeadsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	var out FindLeadsOutput
	for _, lead := range h.store.Leads() {
		if input.Status != "" && string(lead.Status) != input.Status {
			continue
		}
		if input.Query != "" && !leadMatches(lead, input.Query) {
			continue
		}
		out.Leads = append(out.Leads, leadToOutput(lead))
		if len(out.Leads) >= limit {
			break
		}
	}
	out.Count = len(out.Leads)
	return nil, out, nil
}

type ConvertLeadInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead ID (required)"`
}

func (h *LeadHandlers) ConvertLead(_ context.Context, request *mcp.CallToolRequest, input ConvertLeadInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.LeadID == "" {
		return nil, DealOutput{}, fmt.Errorf("lead_id is required")
	}
	leadID, err := uuid.Parse(input.LeadID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("invalid lead_id: %w", err)
	}

	deal, err := h.store.ConvertLeadToDeal(leadID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to convert lead: %w", err)
	}

	return nil, dealToOutput(deal), nil
}

type DeleteLeadInput struct {
	ID string `json:"id" jsonschema:"Lead ID (required)"`
}

type DeleteOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *LeadHandlers) DeleteLead(_ context.Context, request *mcp.CallToolRequest, input DeleteLeadInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	leadID, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("invalid id: %w", err)
	}
	if err := h.store.DeleteLead(leadID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Lead %s deleted successfully", leadID)}, nil
}

func leadMatches(lead models.Lead, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(lead.Name), q) ||
		strings.Contains(strings.ToLower(lead.Email), q) ||
		strings.Contains(strings.ToLower(lead.Company), q)
}

func leadToOutput(lead models.Lead) LeadOutput {
	return LeadOutput{
		ID:          lead.ID.String(),
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Company:     lead.Company,
		Position:    lead.Position,
		Source:      string(lead.Source),
		Status:      string(lead.Status),
		Score:       lead.Score,
		Activities:  len(lead.Activities),
		LastContact: lead.LastContact.Format("2006-01-02T15:04:05Z07:00"),
		CreatedAt:   lead.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func isValidSource(source string) bool {
	validSources := []string{
		string(models.SourceWebsite),
		string(models.SourceLinkedIn),
		string(models.SourceConference),
		string(models.SourceRecommendation),
		string(models.SourceAdvertising),
	}
	for _, valid := range validSources {
		if source == valid {
			return true
		}
	}
	return false
}

func isValidLeadStatus(status string) bool {
	validStatuses := []string{
		string(models.LeadStatusNew),
		string(models.LeadStatusContacted),
		string(models.LeadStatusQualified),
		string(models.LeadStatusConverted),
		string(models.LeadStatusLost),
	}
	for _, valid := range validStatuses {
		if status == valid {
			return true
		}
	}
	return false
}

func formError(form validation.FormResult) error {
	var parts []string
	for field, msg := range form.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
