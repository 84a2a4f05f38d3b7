// ABOUTME: Store read accessors, snapshot type, and internal helpers
// ABOUTME: Snapshot covers the persisted partition: deals, leads, funnels, schema
package store

import (
	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/scoring"
)

// Snapshot is the persisted subset of store state. Required-field rules
// are session configuration and deliberately excluded, as in the client.
type Snapshot struct {
	Deals            []models.Deal                    `json:"deals"`
	Leads            []models.Lead                    `json:"leads"`
	Funnels          []models.Funnel                  `json:"funnels"`
	GlobalDealFields map[string]models.GlobalFieldDef `json:"globalDealFields"`
}

// Snapshot returns a copy of the persisted state subset.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Restore replaces the persisted collections from a snapshot. Custom
// field positions are re-normalized and scores recomputed, since both
// are derivable from the loaded values. Restore does not fire the change
// hook.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Deals = make([]models.Deal, len(snap.Deals))
	for i := range snap.Deals {
		s.state.Deals[i] = snap.Deals[i].Clone()
	}
	s.state.Leads = make([]models.Lead, len(snap.Leads))
	for i := range snap.Leads {
		s.state.Leads[i] = snap.Leads[i].Clone()
	}
	if len(snap.Funnels) > 0 {
		s.state.Funnels = make([]models.Funnel, len(snap.Funnels))
		for i := range snap.Funnels {
			s.state.Funnels[i] = snap.Funnels[i].Clone()
		}
	} else {
		s.state.Funnels = models.DefaultFunnels()
	}
	s.state.GlobalDealFields = make(map[string]models.GlobalFieldDef, len(snap.GlobalDealFields))
	for name, def := range snap.GlobalDealFields {
		s.state.GlobalDealFields[name] = def
	}
	now := s.now()
	for i := range s.state.Leads {
		lead := &s.state.Leads[i]
		lead.CustomFields.Normalize()
		lead.Score = scoring.LeadScore(*lead, now)
	}
	for i := range s.state.Deals {
		deal := &s.state.Deals[i]
		deal.CustomFields.Normalize()
		deal.Score = s.dealScoreLocked(*deal)
	}
}

// Leads returns a copy of the lead collection.
func (s *Store) Leads() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lead, len(s.state.Leads))
	for i := range s.state.Leads {
		out[i] = s.state.Leads[i].Clone()
	}
	return out
}

// Deals returns a copy of the deal collection.
func (s *Store) Deals() []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Deal, len(s.state.Deals))
	for i := range s.state.Deals {
		out[i] = s.state.Deals[i].Clone()
	}
	return out
}

// Funnels returns a copy of the funnel collection.
func (s *Store) Funnels() []models.Funnel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Funnel, len(s.state.Funnels))
	for i := range s.state.Funnels {
		out[i] = s.state.Funnels[i].Clone()
	}
	return out
}

// GlobalDealFields returns a copy of the shared deal field schema.
func (s *Store) GlobalDealFields() map[string]models.GlobalFieldDef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.GlobalFieldDef, len(s.state.GlobalDealFields))
	for name, def := range s.state.GlobalDealFields {
		out[name] = def
	}
	return out
}

// RequiredFieldsFor returns the required custom field names configured
// for the stage or status.
func (s *Store) RequiredFieldsFor(entity models.EntityType, stageOrStatus string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.state.RequiredFields.For(entity, stageOrStatus)...)
}

// Lead looks up one lead by id.
func (s *Store) Lead(id uuid.UUID) (models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead := s.findLeadLocked(id); lead != nil {
		return lead.Clone(), nil
	}
	return models.Lead{}, ErrLeadNotFound
}

// Deal looks up one deal by id.
func (s *Store) Deal(id uuid.UUID) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deal := s.findDealLocked(id); deal != nil {
		return deal.Clone(), nil
	}
	return models.Deal{}, ErrDealNotFound
}

// DefaultStage returns the first stage of the first funnel, the landing
// stage for new and converted deals.
func (s *Store) DefaultStage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultStageLocked()
}

// snapshotLocked deep-copies the persisted subset. The change hook reads
// the snapshot after the lock is released, so it must not alias any map
// or slice the store keeps mutating.
func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Deals:            make([]models.Deal, len(s.state.Deals)),
		Leads:            make([]models.Lead, len(s.state.Leads)),
		Funnels:          make([]models.Funnel, len(s.state.Funnels)),
		GlobalDealFields: make(map[string]models.GlobalFieldDef, len(s.state.GlobalDealFields)),
	}
	for i := range s.state.Deals {
		snap.Deals[i] = s.state.Deals[i].Clone()
	}
	for i := range s.state.Leads {
		snap.Leads[i] = s.state.Leads[i].Clone()
	}
	for i := range s.state.Funnels {
		snap.Funnels[i] = s.state.Funnels[i].Clone()
	}
	for name, def := range s.state.GlobalDealFields {
		snap.GlobalDealFields[name] = def
	}
	return snap
}

func (s *Store) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Store) findLeadLocked(id uuid.UUID) *models.Lead {
	for i := range s.state.Leads {
		if s.state.Leads[i].ID == id {
			return &s.state.Leads[i]
		}
	}
	return nil
}

func (s *Store) findDealLocked(id uuid.UUID) *models.Deal {
	for i := range s.state.Deals {
		if s.state.Deals[i].ID == id {
			return &s.state.Deals[i]
		}
	}
	return nil
}

func (s *Store) newActivityLocked(t models.ActivityType, description, user string) models.Activity {
	if user == "" {
		user = systemUser
	}
	return models.Activity{
		ID:          models.NewLogID(),
		Type:        t,
		Description: description,
		User:        user,
		Date:        s.now(),
	}
}

func (s *Store) defaultStageLocked() string {
	if len(s.state.Funnels) == 0 || len(s.state.Funnels[0].Stages) == 0 {
		return ""
	}
	return s.state.Funnels[0].Stages[0].ID
}

func (s *Store) stageExistsLocked(stageID string) bool {
	for _, f := range s.state.Funnels {
		if f.StageIndex(stageID) >= 0 {
			return true
		}
	}
	return false
}

// funnelForStageLocked finds the funnel containing the stage; an empty
// funnel means no stage bonus in scoring.
func (s *Store) funnelForStageLocked(stageID string) models.Funnel {
	for _, f := range s.state.Funnels {
		if f.StageIndex(stageID) >= 0 {
			return f
		}
	}
	return models.Funnel{}
}

func (s *Store) dealScoreLocked(deal models.Deal) int {
	return scoring.DealScore(deal, s.funnelForStageLocked(deal.Stage), s.now())
}

// seededDealFieldsLocked merges the global schema's defaults into the
// given fields, keeping values already present.
func (s *Store) seededDealFieldsLocked(fields models.CustomFields) models.CustomFields {
	merged := fields.Clone()
	if merged == nil {
		merged = models.CustomFields{}
	}
	for name, def := range s.state.GlobalDealFields {
		if _, ok := merged[name]; !ok {
			merged.Set(name, models.CustomField{Type: def.Type, Value: def.DefaultValue})
		}
	}
	merged.Normalize()
	return merged
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
