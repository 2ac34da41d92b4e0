package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools adds all khata MCP tools to the server.
func RegisterTools(s *server.MCPServer, svc *Service) {
	registerListCustomers(s, svc)
	registerCustomerSummary(s, svc)
	registerCustomerEntries(s, svc)
	registerLedgerSummary(s, svc)
}

func registerListCustomers(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("list_customers",
		mcp.WithDescription("List khata customers, newest first, with their town and phone number."),
		mcp.WithString("query",
			mcp.Description("Filter by name or town (case-insensitive, partial match)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := mcp.ParseString(request, "query", "")
		result, err := svc.ListCustomers(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}

func registerCustomerSummary(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("customer_summary",
		mcp.WithDescription("Get unpaid and paid principal and interest for one customer, as of a date."),
		mcp.WithString("customer",
			mcp.Required(),
			mcp.Description("Customer ID or name (case-insensitive, partial match supported)"),
		),
		mcp.WithString("as_of",
			mcp.Description("Compute interest as of this date (YYYY-MM-DD or RFC 3339). Defaults to now."),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		customer, err := request.RequireString("customer")
		if err != nil {
			return mcp.NewToolResultError("customer is required"), nil
		}
		asOf := mcp.ParseString(request, "as_of", "")
		result, err := svc.CustomerSummary(ctx, customer, asOf)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}

func registerCustomerEntries(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("customer_entries",
		mcp.WithDescription("List a customer's entries with every sub-entry, its accrued interest and elapsed time."),
		mcp.WithString("customer",
			mcp.Required(),
			mcp.Description("Customer ID or name (case-insensitive, partial match supported)"),
		),
		mcp.WithString("as_of",
			mcp.Description("Compute interest as of this date (YYYY-MM-DD or RFC 3339). Defaults to now."),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		customer, err := request.RequireString("customer")
		if err != nil {
			return mcp.NewToolResultError("customer is required"), nil
		}
		asOf := mcp.ParseString(request, "as_of", "")
		result, err := svc.CustomerEntries(ctx, customer, asOf)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}

func registerLedgerSummary(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("ledger_summary",
		mcp.WithDescription("Get unpaid and paid principal and interest across all customers, as of a date."),
		mcp.WithString("as_of",
			mcp.Description("Compute interest as of this date (YYYY-MM-DD or RFC 3339). Defaults to now."),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		asOf := mcp.ParseString(request, "as_of", "")
		result, err := svc.LedgerSummary(ctx, asOf)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}
