// ABOUTME: MCP server subcommand
// ABOUTME: Exposes the CRM over stdio for assistant integration
package cli

import (
	"context"
	"log"

	"github.com/indik4/crm/handlers"
	"github.com/indik4/crm/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(s *store.Store) error {
	log.Println("Starting CRM MCP Server...")

	leadHandlers := handlers.NewLeadHandlers(s)
	dealHandlers := handlers.NewDealHandlers(s)
	activityHandlers := handlers.NewActivityHandlers(s)
	funnelHandlers := handlers.NewFunnelHandlers(s)
	fieldHandlers := handlers.NewFieldHandlers(s)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "crm",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_lead",
		Description: "Add a new lead to the CRM",
	}, leadHandlers.CreateLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_lead",
		Description: "Update an existing lead's information including status",
	}, leadHandlers.UpdateLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_leads",
		Description: "Search for leads by name, email, or company, with optional status filter",
	}, leadHandlers.FindLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_lead",
		Description: "Convert a lead into a deal in the default pipeline stage",
	}, leadHandlers.ConvertLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_lead",
		Description: "Delete a lead from the CRM",
	}, leadHandlers.DeleteLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal with amount, probability, and stage",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update an existing deal's information including stage and amount",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another pipeline stage",
	}, dealHandlers.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_deals",
		Description: "Search for deals by title, company, or contact, with stage and funnel filters",
	}, dealHandlers.FindDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal from the CRM",
	}, dealHandlers.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_activity",
		Description: "Log an activity (note, call, email, meeting, task) on a lead or deal",
	}, activityHandlers.AddActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_attachment",
		Description: "Attach a file record to a lead or deal",
	}, activityHandlers.AddAttachment)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_attachment",
		Description: "Remove a file record from a lead or deal",
	}, activityHandlers.RemoveAttachment)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_funnels",
		Description: "List configured funnels with their stages and deal counts",
	}, funnelHandlers.ListFunnels)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_funnels",
		Description: "Replace the funnel configuration; orphaned deals move to the default stage",
	}, funnelHandlers.UpdateFunnels)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_global_deal_field",
		Description: "Add a custom field to every deal with a type default",
	}, fieldHandlers.AddGlobalDealField)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_global_deal_field",
		Description: "Remove a custom field from every deal",
	}, fieldHandlers.RemoveGlobalDealField)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_required_fields",
		Description: "Require custom fields to be filled before saves at a stage or status",
	}, fieldHandlers.SetRequiredFields)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crm_dashboard",
		Description: "Render a pipeline and activity overview of the CRM",
	}, funnelHandlers.Dashboard)

	log.Println("MCP server ready on stdio")
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		return err
	}
	return nil
}
