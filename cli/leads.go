// ABOUTME: Lead CLI commands
// ABOUTME: Human-friendly commands for managing leads
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
)

// AddLeadCommand adds a new lead.
func AddLeadCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("add-lead", flag.ExitOnError)
	name := fs.String("name", "", "Lead name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	position := fs.String("position", "", "Contact's position")
	source := fs.String("source", "", "Source (website, linkedin, conference, recommendation, advertising)")
	status := fs.String("status", "new", "Status (new, contacted, qualified)")
	description := fs.String("description", "", "Free-form description")
	_ = fs.Parse(args)

	form := validation.ValidateLeadForm(map[string]string{
		"name":  *name,
		"email": *email,
		"phone": *phone,
	})
	if !form.IsValid {
		for field, msg := range form.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
		}
		return fmt.Errorf("lead is not valid")
	}

	lead, err := s.AddLead(models.Lead{
		Name:        *name,
		Email:       *email,
		Phone:       *phone,
		Company:     *company,
		Position:    *position,
		Source:      models.LeadSource(*source),
		Status:      models.LeadStatus(*status),
		Description: *description,
	})
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	fmt.Printf("✓ Lead created: %s (ID: %s)\n", lead.Name, lead.ID)
	if lead.Company != "" {
		fmt.Printf("  Company: %s\n", lead.Company)
	}
	fmt.Printf("  Status: %s\n", lead.Status)
	fmt.Printf("  Score: %d\n", lead.Score)
	return nil
}

// ListLeadsCommand lists leads.
func ListLeadsCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("list-leads", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status")
	query := fs.String("query", "", "Match against name, email, or company")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	var matched []models.Lead
	for _, lead := range s.Leads() {
		if *status != "" && string(lead.Status) != *status {
			continue
		}
		if *query != "" && !leadContains(lead, *query) {
			continue
		}
		matched = append(matched, lead)
		if len(matched) >= *limit {
			break
		}
	}

	if len(matched) == 0 {
		fmt.Println("No leads found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tSTATUS\tSCORE\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t------\t-----\t--")
	for _, lead := range matched {
		company := lead.Company
		if company == "" {
			company = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			lead.Name, company, lead.Status, lead.Score, lead.ID.String()[:8])
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d lead(s)\n", len(matched))
	return nil
}

// ConvertLeadCommand converts a lead into a deal.
func ConvertLeadCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("convert-lead", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: convert-lead <id>")
	}
	leadID, err := resolveLeadID(s, fs.Arg(0))
	if err != nil {
		return err
	}

	deal, err := s.ConvertLeadToDeal(leadID)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Lead converted: %s (deal ID: %s)\n", deal.Title, deal.ID)
	fmt.Printf("  Stage: %s\n", deal.Stage)
	fmt.Printf("  Probability: %d%%\n", deal.Probability)
	return nil
}

// DeleteLeadCommand deletes a lead.
func DeleteLeadCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("delete-lead", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: delete-lead <id>")
	}
	leadID, err := resolveLeadID(s, fs.Arg(0))
	if err != nil {
		return err
	}

	if err := s.DeleteLead(leadID); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted lead: %s\n", leadID)
	return nil
}

// resolveLeadID accepts a full UUID or an unambiguous prefix.
func resolveLeadID(s *store.Store, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	var matches []uuid.UUID
	for _, lead := range s.Leads() {
		if strings.HasPrefix(lead.ID.String(), ref) {
			matches = append(matches, lead.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return uuid.Nil, fmt.Errorf("no lead matching %q", ref)
	default:
		return uuid.Nil, fmt.Errorf("ambiguous lead ID %q (%d matches)", ref, len(matches))
	}
}

func leadContains(lead models.Lead, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(lead.Name), q) ||
		strings.Contains(strings.ToLower(lead.Email), q) ||
		strings.Contains(strings.ToLower(lead.Company), q)
}
