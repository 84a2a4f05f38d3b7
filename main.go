// ABOUTME: Entry point for the CRM API server, MCP server, and CLI
// ABOUTME: Routes to server or CLI commands based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/indik4/crm/auth"
	"github.com/indik4/crm/cli"
	"github.com/indik4/crm/storage"
	"github.com/indik4/crm/store"
	"github.com/indik4/crm/web"
	"github.com/joho/godotenv"
)

const version = "0.1.0"

func main() {
	// Optional .env for local overrides
	_ = godotenv.Load()

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dataPath := flag.String("data-path", "", "Database path (default: ~/.local/share/crm/crm.db)")
	port := flag.Int("port", 8080, "API server port (serve command)")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("crm version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	db, s, authMgr := openCRM(*dataPath)
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	switch command {
	case "serve":
		server := web.NewServer(s, authMgr)
		if err := server.Start(*port); err != nil {
			log.Fatalf("Server failed: %v", err)
		}

	case "mcp":
		if err := cli.MCPCommand(s); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	case "crm":
		if len(commandArgs) == 0 {
			fmt.Println("Error: crm requires a subcommand")
			printUsage()
			os.Exit(1)
		}
		runCRMCommand(s, commandArgs[0], commandArgs[1:])

	case "viz":
		if len(commandArgs) == 0 {
			fmt.Println("Error: viz requires a subcommand")
			printUsage()
			os.Exit(1)
		}
		runVizCommand(s, commandArgs[0], commandArgs[1:])

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// openCRM opens persistence, restores state into a fresh store, and hooks
// saves to every mutation. Save failures are logged, never fatal.
func openCRM(dataPath string) (*storage.DB, *store.Store, *auth.Manager) {
	if dataPath == "" {
		dataPath = storage.DefaultPath()
	}
	db, err := storage.Open(dataPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	log.Printf("CRM database: %s", dataPath)

	s := store.New()
	snap, err := db.LoadState()
	if err != nil {
		log.Printf("Failed to load state, starting empty: %v", err)
	} else {
		s.Restore(snap)
	}
	s.OnChange(func(snap store.Snapshot) {
		if err := db.SaveState(snap); err != nil {
			log.Printf("Failed to persist state: %v", err)
		}
	})

	return db, s, auth.NewManager(db)
}

func runCRMCommand(s *store.Store, command string, args []string) {
	var err error
	switch command {
	// Lead commands
	case "add-lead":
		err = cli.AddLeadCommand(s, args)
	case "list-leads":
		err = cli.ListLeadsCommand(s, args)
	case "convert-lead":
		err = cli.ConvertLeadCommand(s, args)
	case "delete-lead":
		err = cli.DeleteLeadCommand(s, args)

	// Deal commands
	case "add-deal":
		err = cli.AddDealCommand(s, args)
	case "list-deals":
		err = cli.ListDealsCommand(s, args)
	case "move-deal":
		err = cli.MoveDealCommand(s, args)
	case "delete-deal":
		err = cli.DeleteDealCommand(s, args)

	// Pipeline commands
	case "list-funnels":
		err = cli.ListFunnelsCommand(s, args)

	default:
		fmt.Printf("Unknown crm command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runVizCommand(s *store.Store, command string, args []string) {
	var err error
	switch command {
	case "dashboard":
		err = cli.VizDashboardCommand(s, args)
	case "graph":
		if len(args) == 0 || args[0] != "pipeline" {
			fmt.Println("Error: viz graph requires the type 'pipeline'")
			printUsage()
			os.Exit(1)
		}
		err = cli.VizGraphPipelineCommand(s, args[1:])
	default:
		fmt.Printf("Unknown viz command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func printUsage() {
	fmt.Printf(`crm v%s - Indik4 CRM

USAGE:
  crm [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --data-path <path>     Database path (default: ~/.local/share/crm/crm.db)
  --port <n>             API server port (default: 8080, with 'serve')

COMMANDS:
  serve                  Start the JSON API server
  mcp                    Start MCP server for assistant integration
  crm                    CRM management commands
  viz                    Visualization commands

CRM COMMANDS:
  crm crm add-lead          Add a new lead
    --name <name>             Lead name (required)
    --email <email>           Email address
    --phone <phone>           Phone number
    --company <company>       Company name
    --source <source>         website, linkedin, conference, recommendation, advertising
    --status <status>         new, contacted, qualified (default: new)

  crm crm list-leads        List leads
    --query <text>            Search by name, email, or company
    --status <status>         Filter by status
    --limit <n>               Max results (default: 50)

  crm crm convert-lead <id>  Convert a lead into a deal
  crm crm delete-lead <id>   Delete a lead

  crm crm add-deal          Add a new deal
    --title <title>           Deal title (required)
    --amount <n>              Deal amount
    --probability <n>         Close probability 0-100 (default: 50)
    --stage <stage>           Stage ID (default: first stage)
    --close <date>            Expected close date YYYY-MM-DD

  crm crm list-deals        List deals
    --stage <stage>           Filter by stage ID
    --query <text>            Search by title, company, or contact
    --limit <n>               Max results (default: 50)

  crm crm move-deal <id> <stage>  Move a deal to another stage
  crm crm delete-deal <id>        Delete a deal
  crm crm list-funnels            Show funnels and stages

VIZ COMMANDS:
  crm viz dashboard              Terminal pipeline dashboard
  crm viz graph pipeline [id]    Pipeline graph in DOT format
    --output <file>               Write to file instead of stdout
`, version)
}
