// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Lead, Deal, Funnel, Activity, and Attachment structs
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// LeadStatus tracks a lead through its lifecycle. converted and lost are
// terminal; converted is reached only through lead-to-deal conversion.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

type LeadSource string

const (
	SourceWebsite        LeadSource = "website"
	SourceLinkedIn       LeadSource = "linkedin"
	SourceConference     LeadSource = "conference"
	SourceRecommendation LeadSource = "recommendation"
	SourceAdvertising    LeadSource = "advertising"
)

// ActivityType constants.
type ActivityType string

const (
	ActivityNote         ActivityType = "note"
	ActivityCall         ActivityType = "call"
	ActivityEmail        ActivityType = "email"
	ActivityMeeting      ActivityType = "meeting"
	ActivityTask         ActivityType = "task"
	ActivityStatusChange ActivityType = "status_change"
	ActivityUpdate       ActivityType = "update"
	ActivityFileAdd      ActivityType = "file_add"
	ActivityFileRemove   ActivityType = "file_remove"
)

// EntityType selects which collection an activity, attachment, or
// required-field rule applies to.
type EntityType string

const (
	EntityDeal EntityType = "deal"
	EntityLead EntityType = "lead"
)

// Activity is an immutable log entry. Entries are appended and never
// edited or removed.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	User        string       `json:"user"`
	Date        time.Time    `json:"date"`
}

type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

type Lead struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Company      string       `json:"company,omitempty"`
	Position     string       `json:"position,omitempty"`
	Source       LeadSource   `json:"source,omitempty"`
	Status       LeadStatus   `json:"status"`
	Score        int          `json:"score"`
	Description  string       `json:"description,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	CustomFields CustomFields `json:"custom_fields,omitempty"`
	Activities   []Activity   `json:"activities"`
	Attachments  []Attachment `json:"attachments"`
	LastContact  time.Time    `json:"last_contact"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Clone returns a copy sharing no mutable memory with the receiver.
// Store boundaries hand out clones so that callers and the persistence
// hook never alias live state.
func (l Lead) Clone() Lead {
	if l.Tags != nil {
		l.Tags = append([]string{}, l.Tags...)
	}
	l.CustomFields = l.CustomFields.Clone()
	if l.Activities != nil {
		l.Activities = append([]Activity{}, l.Activities...)
	}
	if l.Attachments != nil {
		l.Attachments = append([]Attachment{}, l.Attachments...)
	}
	return l
}

type Deal struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Company       string       `json:"company,omitempty"`
	Contact       string       `json:"contact,omitempty"`
	Amount        float64      `json:"amount"`
	Probability   int          `json:"probability"`
	Stage         string       `json:"stage"`
	ExpectedClose time.Time    `json:"expected_close"`
	Description   string       `json:"description,omitempty"`
	Score         int          `json:"score"`
	CustomFields  CustomFields `json:"custom_fields,omitempty"`
	Activities    []Activity   `json:"activities"`
	Attachments   []Attachment `json:"attachments"`
	LastActivity  time.Time    `json:"last_activity"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Clone returns a copy sharing no mutable memory with the receiver.
func (d Deal) Clone() Deal {
	d.CustomFields = d.CustomFields.Clone()
	if d.Activities != nil {
		d.Activities = append([]Activity{}, d.Activities...)
	}
	if d.Attachments != nil {
		d.Attachments = append([]Attachment{}, d.Attachments...)
	}
	return d
}

// Stage is one step of a funnel. Deals reference stages by id.
type Stage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Funnel struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Color  string  `json:"color,omitempty"`
	Stages []Stage `json:"stages"`
}

// Clone returns a copy with its own stage slice.
func (f Funnel) Clone() Funnel {
	if f.Stages != nil {
		f.Stages = append([]Stage{}, f.Stages...)
	}
	return f
}

// StageIndex returns the position of a stage within the funnel, or -1.
func (f Funnel) StageIndex(stageID string) int {
	for i, s := range f.Stages {
		if s.ID == stageID {
			return i
		}
	}
	return -1
}

// RequiredFieldsConfig maps entity type -> stage or status id -> custom
// field names that must be filled before a save is accepted there.
type RequiredFieldsConfig map[EntityType]map[string][]string

// For returns the required field names for a stage or status id.
func (c RequiredFieldsConfig) For(entity EntityType, stageOrStatus string) []string {
	if c == nil || c[entity] == nil {
		return nil
	}
	return c[entity][stageOrStatus]
}

// DefaultFunnels seeds the two pipelines every fresh install starts with.
func DefaultFunnels() []Funnel {
	return []Funnel{
		{
			ID:    "sales",
			Name:  "Sales pipeline",
			Color: "from-blue-500 to-purple-600",
			Stages: []Stage{
				{ID: "new", Name: "New leads", Color: "bg-gray-100 text-gray-800"},
				{ID: "qualified", Name: "Qualified", Color: "bg-blue-100 text-blue-800"},
				{ID: "proposal", Name: "Proposal", Color: "bg-yellow-100 text-yellow-800"},
				{ID: "negotiation", Name: "Negotiation", Color: "bg-orange-100 text-orange-800"},
				{ID: "won", Name: "Won", Color: "bg-green-100 text-green-800"},
				{ID: "lost", Name: "Lost", Color: "bg-red-100 text-red-800"},
			},
		},
		{
			ID:    "partners",
			Name:  "Partner pipeline",
			Color: "from-green-500 to-emerald-600",
			Stages: []Stage{
				{ID: "contact", Name: "First contact", Color: "bg-gray-100 text-gray-800"},
				{ID: "meeting", Name: "Meeting", Color: "bg-blue-100 text-blue-800"},
				{ID: "agreement", Name: "Agreement", Color: "bg-green-100 text-green-800"},
				{ID: "active", Name: "Active", Color: "bg-purple-100 text-purple-800"},
			},
		},
	}
}

// NewLogID mints a sortable id for activity and attachment log entries.
func NewLogID() string {
	return ulid.Make().String()
}
