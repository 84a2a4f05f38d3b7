// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for managing deals and the pipeline
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/validation"
)

// AddDealCommand adds a new deal.
func AddDealCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	title := fs.String("title", "", "Deal title (required)")
	company := fs.String("company", "", "Company name")
	contact := fs.String("contact", "", "Contact person")
	amount := fs.Float64("amount", 0, "Deal amount")
	probability := fs.Int("probability", 50, "Close probability 0-100")
	stage := fs.String("stage", "", "Stage ID (default: first stage of first funnel)")
	expectedClose := fs.String("close", time.Now().AddDate(0, 1, 0).Format("2006-01-02"), "Expected close date (YYYY-MM-DD)")
	description := fs.String("description", "", "Free-form description")
	_ = fs.Parse(args)

	form := validation.ValidateDealForm(map[string]string{
		"title":         *title,
		"amount":        fmt.Sprintf("%g", *amount),
		"probability":   fmt.Sprintf("%d", *probability),
		"expectedClose": *expectedClose,
	})
	if !form.IsValid {
		for field, msg := range form.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
		}
		return fmt.Errorf("deal is not valid")
	}
	closeDate, err := time.Parse("2006-01-02", *expectedClose)
	if err != nil {
		return fmt.Errorf("invalid --close date: %w", err)
	}

	deal, err := s.AddDeal(models.Deal{
		Title:         *title,
		Company:       *company,
		Contact:       *contact,
		Amount:        *amount,
		Probability:   *probability,
		Stage:         *stage,
		ExpectedClose: closeDate,
		Description:   *description,
	})
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	fmt.Printf("✓ Deal created: %s (ID: %s)\n", deal.Title, deal.ID)
	fmt.Printf("  Amount: %.2f\n", deal.Amount)
	fmt.Printf("  Stage: %s\n", deal.Stage)
	fmt.Printf("  Score: %d\n", deal.Score)
	return nil
}

// ListDealsCommand lists deals.
func ListDealsCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ExitOnError)
	stage := fs.String("stage", "", "Filter by stage ID")
	query := fs.String("query", "", "Match against title, company, or contact")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	var matched []models.Deal
	for _, deal := range s.Deals() {
		if *stage != "" && deal.Stage != *stage {
			continue
		}
		if *query != "" && !dealContains(deal, *query) {
			continue
		}
		matched = append(matched, deal)
		if len(matched) >= *limit {
			break
		}
	}

	if len(matched) == 0 {
		fmt.Println("No deals found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tCOMPANY\tAMOUNT\tSTAGE\tSCORE\tID")
	_, _ = fmt.Fprintln(w, "-----\t-------\t------\t-----\t-----\t--")
	for _, deal := range matched {
		company := deal.Company
		if company == "" {
			company = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%d\t%s\n",
			deal.Title, company, deal.Amount, deal.Stage, deal.Score, deal.ID.String()[:8])
	}
	_ = w.Flush()

	var total float64
	for _, deal := range matched {
		total += deal.Amount
	}
	fmt.Printf("\nTotal: %d deal(s) - %.2f\n", len(matched), total)
	return nil
}

// MoveDealCommand moves a deal to another stage.
func MoveDealCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("move-deal", flag.ExitOnError)
	actor := fs.String("actor", "", "Acting user recorded on the move")
	_ = fs.Parse(args)

	if len(fs.Args()) != 2 {
		return fmt.Errorf("usage: move-deal <id> <stage>")
	}
	dealID, err := resolveDealID(s, fs.Arg(0))
	if err != nil {
		return err
	}
	stage := fs.Arg(1)
	if !stageExists(s, stage) {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	deal, err := s.Deal(dealID)
	if err != nil {
		return err
	}
	required := s.RequiredFieldsFor(models.EntityDeal, stage)
	if missing := validation.MissingRequiredFields(required, deal.CustomFields); len(missing) > 0 {
		return fmt.Errorf("%s", validation.RequiredFieldsError(missing))
	}

	if err := s.MoveDeal(dealID, stage, *actor); err != nil {
		return err
	}
	fmt.Printf("✓ Deal moved: %s → %s\n", deal.Title, stage)
	return nil
}

// DeleteDealCommand deletes a deal.
func DeleteDealCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: delete-deal <id>")
	}
	dealID, err := resolveDealID(s, fs.Arg(0))
	if err != nil {
		return err
	}

	if err := s.DeleteDeal(dealID); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted deal: %s\n", dealID)
	return nil
}

// ListFunnelsCommand prints the configured funnels and their stages.
func ListFunnelsCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("list-funnels", flag.ExitOnError)
	_ = fs.Parse(args)

	dealsByStage := make(map[string]int)
	for _, deal := range s.Deals() {
		dealsByStage[deal.Stage]++
	}

	for _, funnel := range s.Funnels() {
		fmt.Printf("%s (%s)\n", funnel.Name, funnel.ID)
		for _, stage := range funnel.Stages {
			fmt.Printf("  %-14s %s  (%d deals)\n", stage.ID, stage.Name, dealsByStage[stage.ID])
		}
	}
	return nil
}

// resolveDealID accepts a full UUID or an unambiguous prefix.
func resolveDealID(s *store.Store, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	var matches []uuid.UUID
	for _, deal := range s.Deals() {
		if strings.HasPrefix(deal.ID.String(), ref) {
			matches = append(matches, deal.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return uuid.Nil, fmt.Errorf("no deal matching %q", ref)
	default:
		return uuid.Nil, fmt.Errorf("ambiguous deal ID %q (%d matches)", ref, len(matches))
	}
}

func stageExists(s *store.Store, stageID string) bool {
	for _, f := range s.Funnels() {
		if f.StageIndex(stageID) >= 0 {
			return true
		}
	}
	return false
}

func dealContains(deal models.Deal, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(deal.Title), q) ||
		strings.Contains(strings.ToLower(deal.Company), q) ||
		strings.Contains(strings.ToLower(deal.Contact), q)
}
