// ABOUTME: JSON API server for the CRM frontend
// ABOUTME: Session auth plus lead, deal, funnel, field, and dashboard routes
package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/indik4/crm/auth"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
	"github.com/indik4/crm/viz"
)

type Server struct {
	store *store.Store
	auth  *auth.Manager
	mux   *http.ServeMux
}

func NewServer(s *store.Store, authMgr *auth.Manager) *Server {
	srv := &Server{
		store: s,
		auth:  authMgr,
		mux:   http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.requireAuth(s.handleLogout))
	s.mux.HandleFunc("GET /api/session", s.handleSession)

	s.mux.HandleFunc("GET /api/leads", s.requireAuth(s.handleListLeads))
	s.mux.HandleFunc("POST /api/leads", s.requireAuth(s.handleCreateLead))
	s.mux.HandleFunc("GET /api/leads/{id}", s.requireAuth(s.handleGetLead))
	s.mux.HandleFunc("PUT /api/leads/{id}", s.requireAuth(s.handleUpdateLead))
	s.mux.HandleFunc("DELETE /api/leads/{id}", s.requireAuth(s.handleDeleteLead))
	s.mux.HandleFunc("POST /api/leads/{id}/convert", s.requireAuth(s.handleConvertLead))
	s.mux.HandleFunc("POST /api/leads/{id}/activities", s.requireAuth(s.handleAddLeadActivity))
	s.mux.HandleFunc("POST /api/leads/{id}/attachments", s.requireAuth(s.handleAddLeadAttachment))
	s.mux.HandleFunc("DELETE /api/leads/{id}/attachments/{fileID}", s.requireAuth(s.handleRemoveLeadAttachment))

	s.mux.HandleFunc("GET /api/deals", s.requireAuth(s.handleListDeals))
	s.mux.HandleFunc("POST /api/deals", s.requireAuth(s.handleCreateDeal))
	s.mux.HandleFunc("GET /api/deals/{id}", s.requireAuth(s.handleGetDeal))
	s.mux.HandleFunc("PUT /api/deals/{id}", s.requireAuth(s.handleUpdateDeal))
	s.mux.HandleFunc("DELETE /api/deals/{id}", s.requireAuth(s.handleDeleteDeal))
	s.mux.HandleFunc("POST /api/deals/{id}/move", s.requireAuth(s.handleMoveDeal))
	s.mux.HandleFunc("POST /api/deals/{id}/activities", s.requireAuth(s.handleAddDealActivity))
	s.mux.HandleFunc("POST /api/deals/{id}/attachments", s.requireAuth(s.handleAddDealAttachment))
	s.mux.HandleFunc("DELETE /api/deals/{id}/attachments/{fileID}", s.requireAuth(s.handleRemoveDealAttachment))

	s.mux.HandleFunc("GET /api/funnels", s.requireAuth(s.handleGetFunnels))
	s.mux.HandleFunc("PUT /api/funnels", s.requireAuth(s.handleUpdateFunnels))

	s.mux.HandleFunc("GET /api/fields", s.requireAuth(s.handleGetFields))
	s.mux.HandleFunc("POST /api/fields", s.requireAuth(s.handleAddField))
	s.mux.HandleFunc("DELETE /api/fields/{name}", s.requireAuth(s.handleRemoveField))
	s.mux.HandleFunc("PUT /api/required-fields", s.requireAuth(s.handleSetRequiredFields))

	s.mux.HandleFunc("GET /api/dashboard", s.requireAuth(s.handleDashboard))
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting CRM API server at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Session().IsAuthenticated {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next(w, r)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	form := validation.ValidateLoginForm(map[string]string{
		"email":    req.Email,
		"password": req.Password,
	})
	if !form.IsValid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": form.Errors})
		return
	}

	sess, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout()
	writeJSON(w, http.StatusOK, s.auth.Session())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Session())
}

func (s *Server) handleGetFunnels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"funnels": s.store.Funnels()})
}

func (s *Server) handleUpdateFunnels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Funnels []models.Funnel `json:"funnels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Funnels) == 0 {
		writeError(w, http.StatusBadRequest, "at least one funnel is required")
		return
	}
	for _, f := range req.Funnels {
		if f.ID == "" || f.Name == "" || len(f.Stages) == 0 {
			writeError(w, http.StatusBadRequest, "every funnel needs an id, a name, and at least one stage")
			return
		}
	}
	if err := s.store.UpdateFunnels(req.Funnels); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"funnels": s.store.Funnels()})
}

func (s *Server) handleGetFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"globalDealFields": s.store.GlobalDealFields()})
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !models.FieldType(req.Type).Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid field type: %s", req.Type))
		return
	}
	if err := s.store.AddGlobalDealField(req.Name, models.FieldType(req.Type)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"globalDealFields": s.store.GlobalDealFields()})
}

func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.RemoveGlobalDealField(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"globalDealFields": s.store.GlobalDealFields()})
}

func (s *Server) handleSetRequiredFields(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType    string   `json:"entityType"`
		StageOrStatus string   `json:"stageOrStatus"`
		Fields        []string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entity := models.EntityType(req.EntityType)
	if entity != models.EntityLead && entity != models.EntityDeal {
		writeError(w, http.StatusBadRequest, "entityType must be lead or deal")
		return
	}
	if req.StageOrStatus == "" {
		writeError(w, http.StatusBadRequest, "stageOrStatus is required")
		return
	}
	if err := s.store.SetRequiredFields(entity, req.StageOrStatus, req.Fields); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requiredFields": s.store.RequiredFieldsFor(entity, req.StageOrStatus),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats := viz.GenerateDashboardStats(s.store)
	writeJSON(w, http.StatusOK, map[string]any{
		"totalLeads":     stats.TotalLeads,
		"totalDeals":     stats.TotalDeals,
		"pipeline":       stats.PipelineByStage,
		"recentActivity": len(stats.RecentActivity),
		"staleLeads":     len(stats.StaleLeads),
		"staleDeals":     len(stats.StaleDeals),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
