// ABOUTME: Activity and attachment MCP tool handlers
// ABOUTME: Implements add_activity, add_attachment, and remove_attachment tools
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ActivityHandlers struct {
	store *store.Store
}

func NewActivityHandlers(s *store.Store) *ActivityHandlers {
	return &ActivityHandlers{store: s}
}

type AddActivityInput struct {
	EntityType  string `json:"entity_type" jsonschema:"Entity type: lead or deal (required)"`
	EntityID    string `json:"entity_id" jsonschema:"Entity ID (required)"`
	Type        string `json:"type" jsonschema:"Activity type: note, call, email, meeting, task (required)"`
	Description string `json:"description" jsonschema:"What happened (required)"`
	User        string `json:"user,omitempty" jsonschema:"Acting user (default System)"`
}

type ActivityOutput struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	User        string `json:"user"`
	Date        string `json:"date"`
}

func (h *ActivityHandlers) AddActivity(_ context.Context, request *mcp.CallToolRequest, input AddActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	entity, id, err := parseEntityRef(input.EntityType, input.EntityID)
	if err != nil {
		return nil, ActivityOutput{}, err
	}
	if input.Description == "" {
		return nil, ActivityOutput{}, fmt.Errorf("description is required")
	}
	if !isValidActivityType(input.Type) {
		return nil, ActivityOutput{}, fmt.Errorf("invalid type: %s (valid: note, call, email, meeting, task)", input.Type)
	}

	activity, err := h.store.AddActivity(entity, id, models.Activity{
		Type:        models.ActivityType(input.Type),
		Description: input.Description,
		User:        input.User,
	})
	if err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to add activity: %w", err)
	}

	return nil, activityToOutput(activity), nil
}

type AddAttachmentInput struct {
	EntityType string `json:"entity_type" jsonschema:"Entity type: lead or deal (required)"`
	EntityID   string `json:"entity_id" jsonschema:"Entity ID (required)"`
	Name       string `json:"name" jsonschema:"File name (required)"`
	URL        string `json:"url,omitempty" jsonschema:"File location"`
	Size       int64  `json:"size,omitempty" jsonschema:"File size in bytes"`
	UploadedBy string `json:"uploaded_by,omitempty" jsonschema:"Uploading user (default System)"`
}

type AttachmentOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	Size       int64  `json:"size,omitempty"`
	UploadedAt string `json:"uploaded_at"`
	UploadedBy string `json:"uploaded_by"`
}

func (h *ActivityHandlers) AddAttachment(_ context.Context, request *mcp.CallToolRequest, input AddAttachmentInput) (*mcp.CallToolResult, AttachmentOutput, error) {
	entity, id, err := parseEntityRef(input.EntityType, input.EntityID)
	if err != nil {
		return nil, AttachmentOutput{}, err
	}
	if input.Name == "" {
		return nil, AttachmentOutput{}, fmt.Errorf("name is required")
	}

	att, err := h.store.AddAttachment(entity, id, models.Attachment{
		Name:       input.Name,
		URL:        input.URL,
		Size:       input.Size,
		UploadedBy: input.UploadedBy,
	})
	if err != nil {
		return nil, AttachmentOutput{}, fmt.Errorf("failed to add attachment: %w", err)
	}

	return nil, AttachmentOutput{
		ID:         att.ID,
		Name:       att.Name,
		URL:        att.URL,
		Size:       att.Size,
		UploadedAt: att.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		UploadedBy: att.UploadedBy,
	}, nil
}

type RemoveAttachmentInput struct {
	EntityType string `json:"entity_type" jsonschema:"Entity type: lead or deal (required)"`
	EntityID   string `json:"entity_id" jsonschema:"Entity ID (required)"`
	FileID     string `json:"file_id" jsonschema:"Attachment ID (required)"`
	Actor      string `json:"actor,omitempty" jsonschema:"Acting user recorded on the removal"`
}

func (h *ActivityHandlers) RemoveAttachment(_ context.Context, request *mcp.CallToolRequest, input RemoveAttachmentInput) (*mcp.CallToolResult, DeleteOutput, error) {
	entity, id, err := parseEntityRef(input.EntityType, input.EntityID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if input.FileID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("file_id is required")
	}

	if err := h.store.RemoveAttachment(entity, id, input.FileID, input.Actor); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to remove attachment: %w", err)
	}

	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Attachment %s removed successfully", input.FileID)}, nil
}

func parseEntityRef(entityType, entityID string) (models.EntityType, uuid.UUID, error) {
	if entityID == "" {
		return "", uuid.Nil, fmt.Errorf("entity_id is required")
	}
	id, err := uuid.Parse(entityID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid entity_id: %w", err)
	}
	switch entityType {
	case string(models.EntityLead):
		return models.EntityLead, id, nil
	case string(models.EntityDeal):
		return models.EntityDeal, id, nil
	default:
		return "", uuid.Nil, fmt.Errorf("invalid entity_type: %s (valid: lead, deal)", entityType)
	}
}

func isValidActivityType(t string) bool {
	validTypes := []string{
		string(models.ActivityNote),
		string(models.ActivityCall),
		string(models.ActivityEmail),
		string(models.ActivityMeeting),
		string(models.ActivityTask),
	}
	for _, valid := range validTypes {
		if t == valid {
			return true
		}
	}
	return false
}

func activityToOutput(activity models.Activity) ActivityOutput {
	return ActivityOutput{
		ID:          activity.ID,
		Type:        string(activity.Type),
		Description: activity.Description,
		User:        activity.User,
		Date:        activity.Date.Format("2006-01-02T15:04:05Z07:00"),
	}
}
