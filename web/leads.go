// ABOUTME: Lead JSON API routes
// ABOUTME: CRUD, conversion, activity log, and attachment endpoints
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
)

type leadRequest struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone"`
	Company      string              `json:"company"`
	Position     string              `json:"position"`
	Source       string              `json:"source"`
	Status       string              `json:"status"`
	Description  string              `json:"description"`
	Tags         []string            `json:"tags"`
	CustomFields models.CustomFields `json:"customFields"`
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads := s.store.Leads()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := leads[:0]
		for _, lead := range leads {
			if string(lead.Status) == status {
				filtered = append(filtered, lead)
			}
		}
		leads = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lead, err := s.store.Lead(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	form := validation.ValidateLeadForm(map[string]string{
		"name":  req.Name,
		"email": req.Email,
		"phone": req.Phone,
	})
	if !form.IsValid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": form.Errors})
		return
	}

	lead, err := s.store.AddLead(models.Lead{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Position:     req.Position,
		Source:       models.LeadSource(req.Source),
		Status:       models.LeadStatus(req.Status),
		Description:  req.Description,
		Tags:         req.Tags,
		CustomFields: req.CustomFields,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

type leadUpdateRequest struct {
	Name         *string             `json:"name"`
	Email        *string             `json:"email"`
	Phone        *string             `json:"phone"`
	Company      *string             `json:"company"`
	Position     *string             `json:"position"`
	Source       *string             `json:"source"`
	Status       *string             `json:"status"`
	Description  *string             `json:"description"`
	Tags         *[]string           `json:"tags"`
	CustomFields models.CustomFields `json:"customFields"`
	Actor        string              `json:"actor"`
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lead, err := s.store.Lead(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req leadUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email != nil && *req.Email != "" {
		if msg := validation.ValidateEmail(*req.Email); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if req.Phone != nil && *req.Phone != "" {
		if msg := validation.ValidatePhone(*req.Phone); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	// Required custom fields gate the save at the target status, judged
	// against the fields as they will be after the save.
	targetStatus := string(lead.Status)
	if req.Status != nil {
		targetStatus = *req.Status
	}
	effective := lead.CustomFields
	if req.CustomFields != nil {
		effective = req.CustomFields
	}
	required := s.store.RequiredFieldsFor(models.EntityLead, targetStatus)
	if missing := validation.MissingRequiredFields(required, effective); len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, validation.RequiredFieldsError(missing))
		return
	}

	upd := store.LeadUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Position:     req.Position,
		Description:  req.Description,
		Tags:         req.Tags,
		CustomFields: req.CustomFields,
	}
	if req.Source != nil {
		source := models.LeadSource(*req.Source)
		upd.Source = &source
	}
	if req.Status != nil {
		status := models.LeadStatus(*req.Status)
		upd.Status = &status
	}

	updated, err := s.store.UpdateLead(id, upd, req.Actor)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteLead(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConvertLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deal, err := s.store.ConvertLeadToDeal(id)
	if err != nil {
		if errors.Is(err, store.ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

func (s *Server) handleAddLeadActivity(w http.ResponseWriter, r *http.Request) {
	s.addActivity(w, r, models.EntityLead)
}

func (s *Server) handleAddLeadAttachment(w http.ResponseWriter, r *http.Request) {
	s.addAttachment(w, r, models.EntityLead)
}

func (s *Server) handleRemoveLeadAttachment(w http.ResponseWriter, r *http.Request) {
	s.removeAttachment(w, r, models.EntityLead)
}

type activityRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	User        string `json:"user"`
}

func (s *Server) addActivity(w http.ResponseWriter, r *http.Request, entity models.EntityType) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Type == "" {
		req.Type = string(models.ActivityNote)
	}

	activity, err := s.store.AddActivity(entity, id, models.Activity{
		Type:        models.ActivityType(req.Type),
		Description: req.Description,
		User:        req.User,
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

type attachmentRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	UploadedBy string `json:"uploadedBy"`
}

func (s *Server) addAttachment(w http.ResponseWriter, r *http.Request, entity models.EntityType) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req attachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	att, err := s.store.AddAttachment(entity, id, models.Attachment{
		Name:       req.Name,
		URL:        req.URL,
		Size:       req.Size,
		UploadedBy: req.UploadedBy,
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) removeAttachment(w http.ResponseWriter, r *http.Request, entity models.EntityType) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fileID := r.PathValue("fileID")
	actor := r.URL.Query().Get("actor")
	if err := s.store.RemoveAttachment(entity, id, fileID, actor); err != nil {
		if errors.Is(err, store.ErrAttachmentNotFound) ||
			errors.Is(err, store.ErrLeadNotFound) || errors.Is(err, store.ErrDealNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
