// ABOUTME: Custom field schema MCP tool handlers
// ABOUTME: Implements add/remove_global_deal_field and set_required_fields tools
package handlers

import (
	"context"
	"fmt"

	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type FieldHandlers struct {
	store *store.Store
}

func NewFieldHandlers(s *store.Store) *FieldHandlers {
	return &FieldHandlers{store: s}
}

type AddGlobalDealFieldInput struct {
	Name string `json:"name" jsonschema:"Field name (required)"`
	Type string `json:"type" jsonschema:"Field type: text, number, date, select, textarea, email, phone, url, checkbox, file (required)"`
}

type FieldActionOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *FieldHandlers) AddGlobalDealField(_ context.Context, request *mcp.CallToolRequest, input AddGlobalDealFieldInput) (*mcp.CallToolResult, FieldActionOutput, error) {
	if input.Name == "" {
		return nil, FieldActionOutput{}, fmt.Errorf("name is required")
	}
	if !models.FieldType(input.Type).Valid() {
		return nil, FieldActionOutput{}, fmt.Errorf("invalid type: %s", input.Type)
	}

	if err := h.store.AddGlobalDealField(input.Name, models.FieldType(input.Type)); err != nil {
		return nil, FieldActionOutput{}, fmt.Errorf("failed to add field: %w", err)
	}

	return nil, FieldActionOutput{
		Success: true,
		Message: fmt.Sprintf("Field %q (%s) added to all deals", input.Name, input.Type),
	}, nil
}

type RemoveGlobalDealFieldInput struct {
	Name string `json:"name" jsonschema:"Field name (required)"`
}

func (h *FieldHandlers) RemoveGlobalDealField(_ context.Context, request *mcp.CallToolRequest, input RemoveGlobalDealFieldInput) (*mcp.CallToolResult, FieldActionOutput, error) {
	if input.Name == "" {
		return nil, FieldActionOutput{}, fmt.Errorf("name is required")
	}

	if err := h.store.RemoveGlobalDealField(input.Name); err != nil {
		return nil, FieldActionOutput{}, fmt.Errorf("failed to remove field: %w", err)
	}

	return nil, FieldActionOutput{
		Success: true,
		Message: fmt.Sprintf("Field %q removed from all deals", input.Name),
	}, nil
}

type SetRequiredFieldsInput struct {
	EntityType    string   `json:"entity_type" jsonschema:"Entity type: lead or deal (required)"`
	StageOrStatus string   `json:"stage_or_status" jsonschema:"Deal stage ID or lead status the rule applies to (required)"`
	Fields        []string `json:"fields" jsonschema:"Custom field names that must be filled (empty clears the rule)"`
}

func (h *FieldHandlers) SetRequiredFields(_ context.Context, request *mcp.CallToolRequest, input SetRequiredFieldsInput) (*mcp.CallToolResult, FieldActionOutput, error) {
	if input.StageOrStatus == "" {
		return nil, FieldActionOutput{}, fmt.Errorf("stage_or_status is required")
	}
	var entity models.EntityType
	switch input.EntityType {
	case string(models.EntityLead):
		entity = models.EntityLead
	case string(models.EntityDeal):
		entity = models.EntityDeal
	default:
		return nil, FieldActionOutput{}, fmt.Errorf("invalid entity_type: %s (valid: lead, deal)", input.EntityType)
	}

	if err := h.store.SetRequiredFields(entity, input.StageOrStatus, input.Fields); err != nil {
		return nil, FieldActionOutput{}, fmt.Errorf("failed to set required fields: %w", err)
	}

	return nil, FieldActionOutput{
		Success: true,
		Message: fmt.Sprintf("%d required fields set for %s %s", len(input.Fields), input.EntityType, input.StageOrStatus),
	}, nil
}
