// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and pipeline graph generation
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/indik4/crm/store"
	"github.com/indik4/crm/viz"
)

// VizGraphPipelineCommand generates a funnel pipeline graph.
func VizGraphPipelineCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("viz graph pipeline", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	generator := viz.NewGraphGenerator(s)

	funnelID := ""
	if fs.NArg() > 0 {
		funnelID = fs.Arg(0)
	}

	dot, err := generator.GeneratePipelineGraph(funnelID)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Println(dot)
	return nil
}

// VizDashboardCommand renders the terminal dashboard.
func VizDashboardCommand(s *store.Store, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats := viz.GenerateDashboardStats(s)
	fmt.Print(viz.RenderDashboard(stats))
	return nil
}
