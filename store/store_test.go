// ABOUTME: Tests for store mutations, conversion, and funnel maintenance
// ABOUTME: Exercises activity logging, scoring refresh, and snapshot round-trips
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewWithClock(func() time.Time { return testNow })
}

func TestAddLeadDefaults(t *testing.T) {
	s := newTestStore()

	lead, err := s.AddLead(models.Lead{Name: "Anna"})
	if err != nil {
		t.Fatalf("AddLead failed: %v", err)
	}

	if lead.ID == uuid.Nil {
		t.Error("lead ID not assigned")
	}
	if lead.Status != models.LeadStatusNew {
		t.Errorf("status = %s, want new", lead.Status)
	}
	if lead.Activities == nil || lead.Attachments == nil {
		t.Error("logs not initialized")
	}
	if !lead.CreatedAt.Equal(testNow) || !lead.LastContact.Equal(testNow) {
		t.Error("timestamps not set")
	}
	// round(1/4*25) + 5 for new
	if lead.Score != 11 {
		t.Errorf("score = %d, want 11", lead.Score)
	}
}

func TestUpdateLeadLogsStatusChange(t *testing.T) {
	s := newTestStore()
	lead, _ := s.AddLead(models.Lead{Name: "Anna"})

	status := models.LeadStatusQualified
	updated, err := s.UpdateLead(lead.ID, LeadUpdate{Status: &status}, "Manager")
	if err != nil {
		t.Fatalf("UpdateLead failed: %v", err)
	}

	if updated.Status != models.LeadStatusQualified {
		t.Errorf("status = %s, want qualified", updated.Status)
	}
	if len(updated.Activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(updated.Activities))
	}
	a := updated.Activities[0]
	if a.Type != models.ActivityStatusChange {
		t.Errorf("activity type = %s, want status_change", a.Type)
	}
	if a.Description != "Status: new → qualified" {
		t.Errorf("description = %q", a.Description)
	}
	if a.User != "Manager" {
		t.Errorf("user = %q, want Manager", a.User)
	}
	if a.ID == "" {
		t.Error("activity ID not assigned")
	}
}

func TestUpdateLeadSameStatusNotLogged(t *testing.T) {
	s := newTestStore()
	lead, _ := s.AddLead(models.Lead{Name: "Anna"})

	status := models.LeadStatusNew
	name := "Anna Petrova"
	updated, err := s.UpdateLead(lead.ID, LeadUpdate{Name: &name, Status: &status}, "Manager")
	if err != nil {
		t.Fatalf("UpdateLead failed: %v", err)
	}
	if len(updated.Activities) != 0 {
		t.Errorf("activities = %d, want 0", len(updated.Activities))
	}
	if updated.Name != "Anna Petrova" {
		t.Errorf("name = %q", updated.Name)
	}
}

func TestUpdateLeadNotFound(t *testing.T) {
	s := newTestStore()
	if _, err := s.UpdateLead(uuid.New(), LeadUpdate{}, ""); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestDeleteLeadUnknownIsNoOp(t *testing.T) {
	s := newTestStore()
	if err := s.DeleteLead(uuid.New()); err != nil {
		t.Errorf("DeleteLead returned %v", err)
	}
}

func TestConvertLeadToDeal(t *testing.T) {
	s := newTestStore()
	lead, _ := s.AddLead(models.Lead{
		Name:        "Anna",
		Company:     "Acme",
		Description: "Met at conference",
	})
	_, _ = s.AddActivity(models.EntityLead, lead.ID, models.Activity{
		Type:        models.ActivityCall,
		Description: "Intro call",
	})

	deal, err := s.ConvertLeadToDeal(lead.ID)
	if err != nil {
		t.Fatalf("ConvertLeadToDeal failed: %v", err)
	}

	if deal.Title != "Deal with Anna" {
		t.Errorf("title = %q", deal.Title)
	}
	if deal.Contact != "Anna" {
		t.Errorf("contact = %q, want lead name", deal.Contact)
	}
	if deal.Company != "Acme" {
		t.Errorf("company = %q", deal.Company)
	}
	if deal.Probability != 10 {
		t.Errorf("probability = %d, want 10", deal.Probability)
	}
	if deal.Stage != "new" {
		t.Errorf("stage = %q, want default stage", deal.Stage)
	}
	if deal.Description != "Met at conference" {
		t.Errorf("description = %q", deal.Description)
	}
	// Activity history carries over
	if len(deal.Activities) != 1 || deal.Activities[0].Description != "Intro call" {
		t.Errorf("activities not copied: %v", deal.Activities)
	}

	converted, _ := s.Lead(lead.ID)
	if converted.Status != models.LeadStatusConverted {
		t.Errorf("lead status = %s, want converted", converted.Status)
	}
	last := converted.Activities[len(converted.Activities)-1]
	if last.Type != models.ActivityStatusChange || !strings.Contains(last.Description, "converted") {
		t.Errorf("conversion not logged: %+v", last)
	}
}

func TestConvertLeadNotFound(t *testing.T) {
	s := newTestStore()
	if _, err := s.ConvertLeadToDeal(uuid.New()); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestConvertedDealGetsGlobalFields(t *testing.T) {
	s := newTestStore()
	_ = s.AddGlobalDealField("budget", models.FieldNumber)
	lead, _ := s.AddLead(models.Lead{Name: "Anna"})

	deal, err := s.ConvertLeadToDeal(lead.ID)
	if err != nil {
		t.Fatalf("ConvertLeadToDeal failed: %v", err)
	}
	f, ok := deal.CustomFields["budget"]
	if !ok {
		t.Fatal("global field not seeded on converted deal")
	}
	if f.Type != models.FieldNumber || f.Value.Number != 0 {
		t.Errorf("field = %+v", f)
	}
}

func TestMoveDealThereAndBack(t *testing.T) {
	s := newTestStore()
	deal, _ := s.AddDeal(models.Deal{Title: "Contract"})

	if err := s.MoveDeal(deal.ID, "qualified", "Manager"); err != nil {
		t.Fatalf("MoveDeal failed: %v", err)
	}
	if err := s.MoveDeal(deal.ID, "new", "Manager"); err != nil {
		t.Fatalf("MoveDeal back failed: %v", err)
	}

	moved, _ := s.Deal(deal.ID)
	if moved.Stage != "new" {
		t.Errorf("stage = %q, want new", moved.Stage)
	}
	if len(moved.Activities) != 2 {
		t.Fatalf("activities = %d, want 2", len(moved.Activities))
	}
	if moved.Activities[0].Description != "Moved: new → qualified" {
		t.Errorf("first move = %q", moved.Activities[0].Description)
	}
	if moved.Activities[1].Description != "Moved: qualified → new" {
		t.Errorf("second move = %q", moved.Activities[1].Description)
	}
}

func TestMoveDealUnknownIsSilentNoOp(t *testing.T) {
	s := newTestStore()
	if err := s.MoveDeal(uuid.New(), "qualified", ""); err != nil {
		t.Errorf("MoveDeal returned %v", err)
	}
}

func TestUpdateDealStageChangeLogged(t *testing.T) {
	s := newTestStore()
	deal, _ := s.AddDeal(models.Deal{Title: "Contract"})

	stage := "proposal"
	updated, err := s.UpdateDeal(deal.ID, DealUpdate{Stage: &stage}, "Manager")
	if err != nil {
		t.Fatalf("UpdateDeal failed: %v", err)
	}
	if len(updated.Activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(updated.Activities))
	}
	if updated.Activities[0].Description != "Moved: new → proposal" {
		t.Errorf("description = %q", updated.Activities[0].Description)
	}
}

func TestAddActivityDefaultsUser(t *testing.T) {
	s := newTestStore()
	lead, _ := s.AddLead(models.Lead{Name: "Anna"})

	activity, err := s.AddActivity(models.EntityLead, lead.ID, models.Activity{
		Type:        models.ActivityNote,
		Description: "Followed up",
	})
	if err != nil {
		t.Fatalf("AddActivity failed: %v", err)
	}
	if activity.User != "System" {
		t.Errorf("user = %q, want System", activity.User)
	}
	if activity.ID == "" {
		t.Error("activity ID not assigned")
	}
	if !activity.Date.Equal(testNow) {
		t.Error("date not set")
	}
}

func TestAddActivityUnknownEntity(t *testing.T) {
	s := newTestStore()
	if _, err := s.AddActivity(models.EntityDeal, uuid.New(), models.Activity{Type: models.ActivityNote}); !errors.Is(err, ErrDealNotFound) {
		t.Errorf("err = %v, want ErrDealNotFound", err)
	}
}

func TestAttachmentLifecycle(t *testing.T) {
	s := newTestStore()
	deal, _ := s.AddDeal(models.Deal{Title: "Contract"})

	att, err := s.AddAttachment(models.EntityDeal, deal.ID, models.Attachment{
		Name: "quote.pdf",
		URL:  "/files/quote.pdf",
		Size: 1024,
	})
	if err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}
	if att.ID == "" {
		t.Error("attachment ID not assigned")
	}

	withFile, _ := s.Deal(deal.ID)
	if len(withFile.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(withFile.Attachments))
	}
	last := withFile.Activities[len(withFile.Activities)-1]
	if last.Type != models.ActivityFileAdd || last.Description != "File added: quote.pdf" {
		t.Errorf("file_add not logged: %+v", last)
	}

	if err := s.RemoveAttachment(models.EntityDeal, deal.ID, att.ID, "Manager"); err != nil {
		t.Fatalf("RemoveAttachment failed: %v", err)
	}
	removed, _ := s.Deal(deal.ID)
	if len(removed.Attachments) != 0 {
		t.Errorf("attachments = %d, want 0", len(removed.Attachments))
	}
	last = removed.Activities[len(removed.Activities)-1]
	if last.Type != models.ActivityFileRemove || last.Description != "File removed: quote.pdf" {
		t.Errorf("file_remove not logged: %+v", last)
	}

	if err := s.RemoveAttachment(models.EntityDeal, deal.ID, "missing", ""); !errors.Is(err, ErrAttachmentNotFound) {
		t.Errorf("err = %v, want ErrAttachmentNotFound", err)
	}
}

func TestGlobalDealFieldBackfill(t *testing.T) {
	s := newTestStore()
	first, _ := s.AddDeal(models.Deal{Title: "First"})
	second, _ := s.AddDeal(models.Deal{Title: "Second"})

	if err := s.AddGlobalDealField("budget", models.FieldNumber); err != nil {
		t.Fatalf("AddGlobalDealField failed: %v", err)
	}

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		deal, _ := s.Deal(id)
		f, ok := deal.CustomFields["budget"]
		if !ok {
			t.Fatalf("deal %s missing budget field", deal.Title)
		}
		if f.Type != models.FieldNumber || f.Value.Number != 0 {
			t.Errorf("field = %+v", f)
		}
	}

	// Deals created afterwards get the field too
	third, _ := s.AddDeal(models.Deal{Title: "Third"})
	if _, ok := third.CustomFields["budget"]; !ok {
		t.Error("new deal missing global field")
	}

	if err := s.RemoveGlobalDealField("budget"); err != nil {
		t.Fatalf("RemoveGlobalDealField failed: %v", err)
	}
	for _, id := range []uuid.UUID{first.ID, second.ID, third.ID} {
		deal, _ := s.Deal(id)
		if _, ok := deal.CustomFields["budget"]; ok {
			t.Errorf("deal %s still has budget field", deal.Title)
		}
	}
}

func TestSetRequiredFieldsDeduplicates(t *testing.T) {
	s := newTestStore()
	if err := s.SetRequiredFields(models.EntityDeal, "won", []string{"budget", "contract", "budget"}); err != nil {
		t.Fatalf("SetRequiredFields failed: %v", err)
	}
	got := s.RequiredFieldsFor(models.EntityDeal, "won")
	if len(got) != 2 || got[0] != "budget" || got[1] != "contract" {
		t.Errorf("required fields = %v", got)
	}
}

func TestUpdateFunnelsReassignsOrphanedDeals(t *testing.T) {
	s := newTestStore()
	deal, _ := s.AddDeal(models.Deal{Title: "Contract", Stage: "proposal"})

	err := s.UpdateFunnels([]models.Funnel{{
		ID:   "simple",
		Name: "Simple pipeline",
		Stages: []models.Stage{
			{ID: "open", Name: "Open"},
			{ID: "closed", Name: "Closed"},
		},
	}})
	if err != nil {
		t.Fatalf("UpdateFunnels failed: %v", err)
	}

	moved, _ := s.Deal(deal.ID)
	if moved.Stage != "open" {
		t.Errorf("stage = %q, want open", moved.Stage)
	}
	last := moved.Activities[len(moved.Activities)-1]
	if last.Description != "Moved: proposal → open (stage removed)" {
		t.Errorf("reassignment not logged: %q", last.Description)
	}
	if last.User != "System" {
		t.Errorf("user = %q, want System", last.User)
	}
}

func TestUpdateFunnelsKeepsValidStages(t *testing.T) {
	s := newTestStore()
	deal, _ := s.AddDeal(models.Deal{Title: "Contract", Stage: "qualified"})

	funnels := s.Funnels()
	if err := s.UpdateFunnels(funnels); err != nil {
		t.Fatalf("UpdateFunnels failed: %v", err)
	}

	kept, _ := s.Deal(deal.ID)
	if kept.Stage != "qualified" {
		t.Errorf("stage = %q, want qualified", kept.Stage)
	}
	if len(kept.Activities) != 0 {
		t.Errorf("unexpected activities: %v", kept.Activities)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddLead(models.Lead{Name: "Anna", Email: "anna@example.com"})
	_, _ = s.AddDeal(models.Deal{Title: "Contract", Amount: 200_000})
	_ = s.AddGlobalDealField("budget", models.FieldNumber)

	snap := s.Snapshot()

	restored := newTestStore()
	restored.Restore(snap)

	if len(restored.Leads()) != 1 || restored.Leads()[0].Name != "Anna" {
		t.Errorf("leads = %v", restored.Leads())
	}
	if len(restored.Deals()) != 1 || restored.Deals()[0].Title != "Contract" {
		t.Errorf("deals = %v", restored.Deals())
	}
	if _, ok := restored.GlobalDealFields()["budget"]; !ok {
		t.Error("global field not restored")
	}
	// Scores are recomputed on restore
	if restored.Deals()[0].Score != s.Deals()[0].Score {
		t.Errorf("score = %d, want %d", restored.Deals()[0].Score, s.Deals()[0].Score)
	}
}

func TestRestoreEmptyFunnelsFallsBackToDefaults(t *testing.T) {
	s := newTestStore()
	s.Restore(Snapshot{})
	funnels := s.Funnels()
	if len(funnels) != 2 || funnels[0].ID != "sales" {
		t.Errorf("funnels = %v", funnels)
	}
}

func TestOnChangeFiresAfterMutations(t *testing.T) {
	s := newTestStore()
	var snaps []Snapshot
	s.OnChange(func(snap Snapshot) { snaps = append(snaps, snap) })

	lead, _ := s.AddLead(models.Lead{Name: "Anna"})
	_ = s.DeleteLead(lead.ID)

	if len(snaps) != 2 {
		t.Fatalf("hook fired %d times, want 2", len(snaps))
	}
	if len(snaps[0].Leads) != 1 {
		t.Errorf("first snapshot leads = %d, want 1", len(snaps[0].Leads))
	}
	if len(snaps[1].Leads) != 0 {
		t.Errorf("second snapshot leads = %d, want 0", len(snaps[1].Leads))
	}
}

func TestSnapshotIsolatedFromGlobalFieldChanges(t *testing.T) {
	s := newTestStore()
	if _, err := s.AddDeal(models.Deal{Title: "Contract"}); err != nil {
		t.Fatalf("AddDeal: %v", err)
	}

	before := s.Snapshot()
	if err := s.AddGlobalDealField("budget", models.FieldNumber); err != nil {
		t.Fatalf("AddGlobalDealField: %v", err)
	}
	if _, ok := before.Deals[0].CustomFields["budget"]; ok {
		t.Error("snapshot picked up a field added after it was taken")
	}

	withField := s.Snapshot()
	if err := s.RemoveGlobalDealField("budget"); err != nil {
		t.Fatalf("RemoveGlobalDealField: %v", err)
	}
	if _, ok := withField.Deals[0].CustomFields["budget"]; !ok {
		t.Error("snapshot lost a field removed after it was taken")
	}
}

// The persist hook marshals its snapshot outside the store lock, so the
// snapshot must not share maps with deals other goroutines keep mutating.
// Run with -race.
func TestPersistHookSafeUnderConcurrentWrites(t *testing.T) {
	s := newTestStore()
	if _, err := s.AddDeal(models.Deal{Title: "Contract"}); err != nil {
		t.Fatalf("AddDeal: %v", err)
	}
	s.OnChange(func(snap Snapshot) {
		if _, err := json.Marshal(snap); err != nil {
			t.Errorf("marshal snapshot: %v", err)
		}
	})

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				name := fmt.Sprintf("field-%d-%d", w, i)
				if err := s.AddGlobalDealField(name, models.FieldNumber); err != nil {
					t.Errorf("AddGlobalDealField: %v", err)
				}
				if err := s.RemoveGlobalDealField(name); err != nil {
					t.Errorf("RemoveGlobalDealField: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestAddLeadKeepsProvidedAttachments(t *testing.T) {
	s := newTestStore()

	lead, err := s.AddLead(models.Lead{
		Name:        "Anna",
		Attachments: []models.Attachment{{ID: "f1", Name: "brief.pdf"}},
	})
	if err != nil {
		t.Fatalf("AddLead failed: %v", err)
	}

	if len(lead.Attachments) != 1 || lead.Attachments[0].Name != "brief.pdf" {
		t.Errorf("attachments = %v, want the provided record kept", lead.Attachments)
	}
}

func TestUpdateFunnelsCopiesInput(t *testing.T) {
	s := newTestStore()

	funnels := []models.Funnel{{
		ID:     "simple",
		Name:   "Simple pipeline",
		Stages: []models.Stage{{ID: "open", Name: "Open"}},
	}}
	if err := s.UpdateFunnels(funnels); err != nil {
		t.Fatalf("UpdateFunnels failed: %v", err)
	}

	funnels[0].Name = "Hijacked"
	funnels[0].Stages[0].Name = "Hijacked stage"

	stored := s.Funnels()
	if stored[0].Name != "Simple pipeline" {
		t.Errorf("funnel name = %q, caller mutation leaked in", stored[0].Name)
	}
	if stored[0].Stages[0].Name != "Open" {
		t.Errorf("stage name = %q, caller mutation leaked in", stored[0].Stages[0].Name)
	}
}
