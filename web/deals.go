// ABOUTME: Deal JSON API routes
// ABOUTME: CRUD, board move, activity log, and attachment endpoints
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
)

type dealRequest struct {
	Title         string              `json:"title"`
	Company       string              `json:"company"`
	Contact       string              `json:"contact"`
	Amount        float64             `json:"amount"`
	Probability   int                 `json:"probability"`
	Stage         string              `json:"stage"`
	ExpectedClose string              `json:"expectedClose"`
	Description   string              `json:"description"`
	CustomFields  models.CustomFields `json:"customFields"`
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	deals := s.store.Deals()
	if stage := r.URL.Query().Get("stage"); stage != "" {
		filtered := deals[:0]
		for _, deal := range deals {
			if deal.Stage == stage {
				filtered = append(filtered, deal)
			}
		}
		deals = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"deals": deals})
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deal, err := s.store.Deal(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var req dealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	form := validation.ValidateDealForm(map[string]string{
		"title":         req.Title,
		"amount":        strconv.FormatFloat(req.Amount, 'f', -1, 64),
		"probability":   strconv.Itoa(req.Probability),
		"expectedClose": req.ExpectedClose,
	})
	if !form.IsValid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": form.Errors})
		return
	}
	expectedClose, err := time.Parse("2006-01-02", req.ExpectedClose)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expectedClose date")
		return
	}

	deal, err := s.store.AddDeal(models.Deal{
		Title:         req.Title,
		Company:       req.Company,
		Contact:       req.Contact,
		Amount:        req.Amount,
		Probability:   req.Probability,
		Stage:         req.Stage,
		ExpectedClose: expectedClose,
		Description:   req.Description,
		CustomFields:  req.CustomFields,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

type dealUpdateRequest struct {
	Title         *string             `json:"title"`
	Company       *string             `json:"company"`
	Contact       *string             `json:"contact"`
	Amount        *float64            `json:"amount"`
	Probability   *int                `json:"probability"`
	Stage         *string             `json:"stage"`
	ExpectedClose *string             `json:"expectedClose"`
	Description   *string             `json:"description"`
	CustomFields  models.CustomFields `json:"customFields"`
	Actor         string              `json:"actor"`
}

func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deal, err := s.store.Deal(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req dealUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount != nil && *req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "Amount must be a non-negative number")
		return
	}
	if req.Probability != nil && (*req.Probability < 0 || *req.Probability > 100) {
		writeError(w, http.StatusBadRequest, "Probability must be between 0 and 100")
		return
	}
	if req.Stage != nil && !s.stageExists(*req.Stage) {
		writeError(w, http.StatusBadRequest, "unknown stage: "+*req.Stage)
		return
	}

	// Required custom fields gate the save at the target stage, judged
	// against the fields as they will be after the save.
	targetStage := deal.Stage
	if req.Stage != nil {
		targetStage = *req.Stage
	}
	effective := deal.CustomFields
	if req.CustomFields != nil {
		effective = req.CustomFields
	}
	required := s.store.RequiredFieldsFor(models.EntityDeal, targetStage)
	if missing := validation.MissingRequiredFields(required, effective); len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, validation.RequiredFieldsError(missing))
		return
	}

	upd := store.DealUpdate{
		Title:        req.Title,
		Company:      req.Company,
		Contact:      req.Contact,
		Amount:       req.Amount,
		Probability:  req.Probability,
		Stage:        req.Stage,
		Description:  req.Description,
		CustomFields: req.CustomFields,
	}
	if req.ExpectedClose != nil {
		parsed, err := time.Parse("2006-01-02", *req.ExpectedClose)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expectedClose date")
			return
		}
		upd.ExpectedClose = &parsed
	}

	updated, err := s.store.UpdateDeal(id, upd, req.Actor)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteDeal(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveDealRequest struct {
	Stage string `json:"stage"`
	Actor string `json:"actor"`
}

func (s *Server) handleMoveDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req moveDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Stage == "" {
		writeError(w, http.StatusBadRequest, "stage is required")
		return
	}
	if !s.stageExists(req.Stage) {
		writeError(w, http.StatusBadRequest, "unknown stage: "+req.Stage)
		return
	}

	deal, err := s.store.Deal(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	required := s.store.RequiredFieldsFor(models.EntityDeal, req.Stage)
	if missing := validation.MissingRequiredFields(required, deal.CustomFields); len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, validation.RequiredFieldsError(missing))
		return
	}

	if err := s.store.MoveDeal(id, req.Stage, req.Actor); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	moved, err := s.store.Deal(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *Server) handleAddDealActivity(w http.ResponseWriter, r *http.Request) {
	s.addActivity(w, r, models.EntityDeal)
}

func (s *Server) handleAddDealAttachment(w http.ResponseWriter, r *http.Request) {
	s.addAttachment(w, r, models.EntityDeal)
}

func (s *Server) handleRemoveDealAttachment(w http.ResponseWriter, r *http.Request) {
	s.removeAttachment(w, r, models.EntityDeal)
}

func (s *Server) stageExists(stageID string) bool {
	for _, f := range s.store.Funnels() {
		if f.StageIndex(stageID) >= 0 {
			return true
		}
	}
	return false
}
