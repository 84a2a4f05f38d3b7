// ABOUTME: In-memory CRM domain store owning all entity collections
// ABOUTME: Every mutation is a single synchronous state change under one lock
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/scoring"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrDealNotFound       = errors.New("deal not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

const systemUser = "System"

// State holds every collection the store owns. RequiredFields is session
// configuration and is not part of persisted snapshots.
type State struct {
	Leads            []models.Lead
	Deals            []models.Deal
	Funnels          []models.Funnel
	GlobalDealFields map[string]models.GlobalFieldDef
	RequiredFields   models.RequiredFieldsConfig
}

// Store is the sole owner of CRM state. Operations mutate under one lock;
// no operation partially applies. An optional change hook receives a
// snapshot after each successful mutation for best-effort persistence.
type Store struct {
	mu       sync.Mutex
	state    State
	now      func() time.Time
	onChange func(Snapshot)
}

// New creates a store seeded with the default funnels and empty
// collections.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		state: State{
			Funnels:          models.DefaultFunnels(),
			GlobalDealFields: make(map[string]models.GlobalFieldDef),
			RequiredFields:   make(models.RequiredFieldsConfig),
		},
		now: now,
	}
}

// OnChange registers the post-mutation snapshot hook. The hook is invoked
// synchronously after the lock is released and the snapshot it receives
// owns all of its memory, so it may be read while other mutations run.
// Failures are the hook's problem (persistence is fire-and-forget).
func (s *Store) OnChange(fn func(Snapshot)) {
	s.onChange = fn
}

// AddLead assigns identity and timestamps, initializes empty logs, and
// appends the lead.
func (s *Store) AddLead(lead models.Lead) (models.Lead, error) {
	s.mu.Lock()
	now := s.now()
	lead.ID = uuid.New()
	lead.CreatedAt = now
	lead.LastContact = now
	lead.Activities = []models.Activity{}
	lead.Attachments = append([]models.Attachment{}, lead.Attachments...)
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.CustomFields == nil {
		lead.CustomFields = models.CustomFields{}
	} else {
		lead.CustomFields = lead.CustomFields.Clone()
	}
	lead.CustomFields.Normalize()
	lead.Score = scoring.LeadScore(lead, now)
	s.state.Leads = append(s.state.Leads, lead)
	out := lead.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return out, nil
}

// LeadUpdate carries the fields of a lead save. Nil members are left
// untouched.
type LeadUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	Company      *string
	Position     *string
	Source       *models.LeadSource
	Status       *models.LeadStatus
	Description  *string
	Tags         *[]string
	CustomFields models.CustomFields
}

// UpdateLead merges the update into the lead. A status change is logged
// as a status_change activity naming the acting user. Every save
// refreshes last contact.
func (s *Store) UpdateLead(id uuid.UUID, upd LeadUpdate, actor string) (models.Lead, error) {
	s.mu.Lock()
	lead := s.findLeadLocked(id)
	if lead == nil {
		s.mu.Unlock()
		return models.Lead{}, ErrLeadNotFound
	}
	now := s.now()
	prevStatus := lead.Status
	applyString(&lead.Name, upd.Name)
	applyString(&lead.Email, upd.Email)
	applyString(&lead.Phone, upd.Phone)
	applyString(&lead.Company, upd.Company)
	applyString(&lead.Position, upd.Position)
	applyString(&lead.Description, upd.Description)
	if upd.Source != nil {
		lead.Source = *upd.Source
	}
	if upd.Status != nil {
		lead.Status = *upd.Status
	}
	if upd.Tags != nil {
		lead.Tags = *upd.Tags
	}
	if upd.CustomFields != nil {
		lead.CustomFields = upd.CustomFields.Clone()
		lead.CustomFields.Normalize()
	}
	lead.LastContact = now
	if upd.Status != nil && *upd.Status != prevStatus {
		lead.Activities = append(lead.Activities, s.newActivityLocked(
			models.ActivityStatusChange,
			fmt.Sprintf("Status: %s → %s", prevStatus, *upd.Status),
			actor,
		))
	}
	lead.Score = scoring.LeadScore(*lead, now)
	out := lead.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return out, nil
}

// DeleteLead removes the lead. Deleting an unknown id is a no-op, as in
// the client.
func (s *Store) DeleteLead(id uuid.UUID) error {
	s.mu.Lock()
	kept := s.state.Leads[:0]
	for _, l := range s.state.Leads {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	s.state.Leads = kept
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ConvertLeadToDeal creates a deal seeded from the lead's contact info,
// description, and activity history, and flips the lead to converted.
// The deal lands in the default stage of the default funnel. Conversion
// is irreversible.
func (s *Store) ConvertLeadToDeal(leadID uuid.UUID) (models.Deal, error) {
	s.mu.Lock()
	lead := s.findLeadLocked(leadID)
	if lead == nil {
		s.mu.Unlock()
		return models.Deal{}, ErrLeadNotFound
	}
	now := s.now()

	deal := models.Deal{
		ID:            uuid.New(),
		Title:         fmt.Sprintf("Deal with %s", lead.Name),
		Company:       lead.Company,
		Contact:       lead.Name,
		Amount:        0,
		Probability:   10,
		Stage:         s.defaultStageLocked(),
		ExpectedClose: now,
		Description:   lead.Description,
		CustomFields:  s.seededDealFieldsLocked(nil),
		Activities:    append([]models.Activity{}, lead.Activities...),
		Attachments:   []models.Attachment{},
		LastActivity:  now,
		CreatedAt:     now,
	}
	deal.Score = s.dealScoreLocked(deal)
	s.state.Deals = append(s.state.Deals, deal)

	prevStatus := lead.Status
	lead.Status = models.LeadStatusConverted
	lead.Activities = append(lead.Activities, s.newActivityLocked(
		models.ActivityStatusChange,
		fmt.Sprintf("Status: %s → %s", prevStatus, models.LeadStatusConverted),
		systemUser,
	))
	lead.Score = scoring.LeadScore(*lead, now)

	out := deal.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return out, nil
}

// AddDeal assigns identity and timestamps, back-fills the global field
// schema, and appends the deal.
func (s *Store) AddDeal(deal models.Deal) (models.Deal, error) {
	s.mu.Lock()
	now := s.now()
	deal.ID = uuid.New()
	deal.CreatedAt = now
	deal.LastActivity = now
	deal.Activities = []models.Activity{}
	deal.Attachments = append([]models.Attachment{}, deal.Attachments...)
	if deal.Stage == "" {
		deal.Stage = s.defaultStageLocked()
	}
	deal.CustomFields = s.seededDealFieldsLocked(deal.CustomFields)
	deal.Score = s.dealScoreLocked(deal)
	s.state.Deals = append(s.state.Deals, deal)
	out := deal.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return out, nil
}

// DealUpdate carries the fields of a deal save. Nil members are left
// untouched.
type DealUpdate struct {
	Title         *string
	Company       *string
	Contact       *string
	Amount        *float64
	Probability   *int
	Stage         *string
	ExpectedClose *time.Time
	Description   *string
	CustomFields  models.CustomFields
}

// UpdateDeal merges the update into the deal and always refreshes last
// activity. A stage change through a save is logged the same way a board
// move is.
func (s *Store) UpdateDeal(id uuid.UUID, upd DealUpdate, actor string) (models.Deal, error) {
	s.mu.Lock()
	deal := s.findDealLocked(id)
	if deal == nil {
		s.mu.Unlock()
		return models.Deal{}, ErrDealNotFound
	}
	now := s.now()
	prevStage := deal.Stage
	applyString(&deal.Title, upd.Title)
	applyString(&deal.Company, upd.Company)
	applyString(&deal.Contact, upd.Contact)
	applyString(&deal.Description, upd.Description)
	if upd.Amount != nil {
		deal.Amount = *upd.Amount
	}
	if upd.Probability != nil {
		deal.Probability = *upd.Probability
	}
	if upd.Stage != nil {
		deal.Stage = *upd.Stage
	}
	if upd.ExpectedClose != nil {
		deal.ExpectedClose = *upd.ExpectedClose
	}
	if upd.CustomFields != nil {
		deal.CustomFields = upd.CustomFields.Clone()
		deal.CustomFields.Normalize()
	}
	deal.LastActivity = now
	if upd.Stage != nil && *upd.Stage != prevStage {
		deal.Activities = append(deal.Activities, s.newActivityLocked(
			models.ActivityStatusChange,
			fmt.Sprintf("Moved: %s → %s", prevStage, *upd.Stage),
			actor,
		))
	}
	deal.Score = s.dealScoreLocked(*deal)
	out := deal.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return out, nil
}

// DeleteDeal removes the deal. Unknown ids are a no-op.
func (s *Store) DeleteDeal(id uuid.UUID) error {
	s.mu.Lock()
	kept := s.state.Deals[:0]
	for _, d := range s.state.Deals {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.state.Deals = kept
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// MoveDeal sets the deal's stage and logs the move as a status_change
// activity recording the before and after stage ids. Moving an unknown
// deal is a silent no-op.
func (s *Store) MoveDeal(dealID uuid.UUID, newStageID, actor string) error {
	s.mu.Lock()
	deal := s.findDealLocked(dealID)
	if deal == nil {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	from := deal.Stage
	deal.Stage = newStageID
	deal.LastActivity = now
	deal.Activities = append(deal.Activities, s.newActivityLocked(
		models.ActivityStatusChange,
		fmt.Sprintf("Moved: %s → %s", from, newStageID),
		actor,
	))
	deal.Score = s.dealScoreLocked(*deal)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// AddActivity assigns an id and date and appends the activity to the
// entity's log. Lead activities refresh last contact; deal activities
// refresh last activity.
func (s *Store) AddActivity(entity models.EntityType, id uuid.UUID, activity models.Activity) (models.Activity, error) {
	s.mu.Lock()
	now := s.now()
	activity.ID = models.NewLogID()
	activity.Date = now
	if activity.User == "" {
		activity.User = systemUser
	}
	switch entity {
	case models.EntityDeal:
		deal := s.findDealLocked(id)
		if deal == nil {
			s.mu.Unlock()
			return models.Activity{}, ErrDealNotFound
		}
		deal.Activities = append(deal.Activities, activity)
		deal.LastActivity = now
		deal.Score = s.dealScoreLocked(*deal)
	case models.EntityLead:
		lead := s.findLeadLocked(id)
		if lead == nil {
			s.mu.Unlock()
			return models.Activity{}, ErrLeadNotFound
		}
		lead.Activities = append(lead.Activities, activity)
		lead.LastContact = now
		lead.Score = scoring.LeadScore(*lead, now)
	default:
		s.mu.Unlock()
		return models.Activity{}, fmt.Errorf("unknown entity type %q", entity)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return activity, nil
}

// AddAttachment appends an uploaded file record and logs a correlated
// file_add activity.
func (s *Store) AddAttachment(entity models.EntityType, id uuid.UUID, att models.Attachment) (models.Attachment, error) {
	s.mu.Lock()
	now := s.now()
	att.ID = models.NewLogID()
	att.UploadedAt = now
	if att.UploadedBy == "" {
		att.UploadedBy = systemUser
	}
	activity := s.newActivityLocked(models.ActivityFileAdd,
		fmt.Sprintf("File added: %s", att.Name), att.UploadedBy)
	switch entity {
	case models.EntityDeal:
		deal := s.findDealLocked(id)
		if deal == nil {
			s.mu.Unlock()
			return models.Attachment{}, ErrDealNotFound
		}
		deal.Attachments = append(deal.Attachments, att)
		deal.Activities = append(deal.Activities, activity)
		deal.LastActivity = now
		deal.Score = s.dealScoreLocked(*deal)
	case models.EntityLead:
		lead := s.findLeadLocked(id)
		if lead == nil {
			s.mu.Unlock()
			return models.Attachment{}, ErrLeadNotFound
		}
		lead.Attachments = append(lead.Attachments, att)
		lead.Activities = append(lead.Activities, activity)
		lead.LastContact = now
		lead.Score = scoring.LeadScore(*lead, now)
	default:
		s.mu.Unlock()
		return models.Attachment{}, fmt.Errorf("unknown entity type %q", entity)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return att, nil
}

// RemoveAttachment drops the file record and logs a correlated
// file_remove activity.
func (s *Store) RemoveAttachment(entity models.EntityType, id uuid.UUID, fileID, actor string) error {
	s.mu.Lock()
	if actor == "" {
		actor = systemUser
	}
	removeFrom := func(list []models.Attachment) ([]models.Attachment, string, bool) {
		kept := list[:0]
		name := ""
		found := false
		for _, a := range list {
			if a.ID == fileID {
				name = a.Name
				found = true
				continue
			}
			kept = append(kept, a)
		}
		return kept, name, found
	}
	now := s.now()
	switch entity {
	case models.EntityDeal:
		deal := s.findDealLocked(id)
		if deal == nil {
			s.mu.Unlock()
			return ErrDealNotFound
		}
		kept, name, found := removeFrom(deal.Attachments)
		if !found {
			s.mu.Unlock()
			return ErrAttachmentNotFound
		}
		deal.Attachments = kept
		deal.Activities = append(deal.Activities, s.newActivityLocked(
			models.ActivityFileRemove, fmt.Sprintf("File removed: %s", name), actor))
		deal.LastActivity = now
	case models.EntityLead:
		lead := s.findLeadLocked(id)
		if lead == nil {
			s.mu.Unlock()
			return ErrLeadNotFound
		}
		kept, name, found := removeFrom(lead.Attachments)
		if !found {
			s.mu.Unlock()
			return ErrAttachmentNotFound
		}
		lead.Attachments = kept
		lead.Activities = append(lead.Activities, s.newActivityLocked(
			models.ActivityFileRemove, fmt.Sprintf("File removed: %s", name), actor))
		lead.LastContact = now
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown entity type %q", entity)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// AddGlobalDealField adds a field to the shared deal schema and
// back-fills every existing deal with the type's default value.
func (s *Store) AddGlobalDealField(name string, fieldType models.FieldType) error {
	s.mu.Lock()
	now := s.now()
	def := models.GlobalFieldDef{
		Type:         fieldType,
		DefaultValue: models.DefaultValue(fieldType, now),
	}
	s.state.GlobalDealFields[name] = def
	for i := range s.state.Deals {
		deal := &s.state.Deals[i]
		if deal.CustomFields == nil {
			deal.CustomFields = models.CustomFields{}
		}
		deal.CustomFields.Set(name, models.CustomField{
			Type:  fieldType,
			Value: def.DefaultValue,
		})
		deal.Score = s.dealScoreLocked(*deal)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// RemoveGlobalDealField drops the field from the schema and from every
// deal's custom fields.
func (s *Store) RemoveGlobalDealField(name string) error {
	s.mu.Lock()
	delete(s.state.GlobalDealFields, name)
	for i := range s.state.Deals {
		deal := &s.state.Deals[i]
		if _, ok := deal.CustomFields[name]; ok {
			delete(deal.CustomFields, name)
			deal.CustomFields.Normalize()
			deal.Score = s.dealScoreLocked(*deal)
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetRequiredFields replaces the required-field set for the stage or
// status with a de-duplicated list.
func (s *Store) SetRequiredFields(entity models.EntityType, stageOrStatus string, fields []string) error {
	s.mu.Lock()
	seen := make(map[string]bool, len(fields))
	deduped := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			deduped = append(deduped, f)
		}
	}
	if s.state.RequiredFields[entity] == nil {
		s.state.RequiredFields[entity] = make(map[string][]string)
	}
	s.state.RequiredFields[entity][stageOrStatus] = deduped
	s.mu.Unlock()
	return nil
}

// UpdateFunnels replaces the funnel collection wholesale. Deals whose
// stage no longer exists anywhere are reassigned to the default stage of
// the first funnel, with the move logged.
func (s *Store) UpdateFunnels(funnels []models.Funnel) error {
	s.mu.Lock()
	s.state.Funnels = make([]models.Funnel, len(funnels))
	for i := range funnels {
		s.state.Funnels[i] = funnels[i].Clone()
	}
	fallback := s.defaultStageLocked()
	for i := range s.state.Deals {
		deal := &s.state.Deals[i]
		if s.stageExistsLocked(deal.Stage) {
			deal.Score = s.dealScoreLocked(*deal)
			continue
		}
		if fallback == "" {
			continue
		}
		from := deal.Stage
		deal.Stage = fallback
		deal.Activities = append(deal.Activities, s.newActivityLocked(
			models.ActivityStatusChange,
			fmt.Sprintf("Moved: %s → %s (stage removed)", from, fallback),
			systemUser,
		))
		deal.LastActivity = s.now()
		deal.Score = s.dealScoreLocked(*deal)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}
