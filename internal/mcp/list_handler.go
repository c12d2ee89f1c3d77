package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/llm-compare/internal/server"
)

func registerCatalogTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// list_use_cases
	useCasesTool := mcp.NewTool("list_use_cases",
		mcp.WithDescription("List the use cases a comparison can run, with their test counts"),
	)
	s.AddTool(useCasesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListUseCases(ctx, request, sc)
	})

	// list_models
	modelsTool := mcp.NewTool("list_models",
		mcp.WithDescription("List the models that can be selected for a comparison"),
	)
	s.AddTool(modelsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListModels(ctx, request, sc)
	})

	// list_dimensions
	dimensionsTool := mcp.NewTool("list_dimensions",
		mcp.WithDescription("List the dimensions responses are scored on"),
	)
	s.AddTool(dimensionsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListDimensions(ctx, request, sc)
	})

	return nil
}

func handleListUseCases(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	type useCaseInfo struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		TestCount   int    `json:"test_count"`
	}

	useCases := sc.Catalog.UseCases()
	infos := make([]useCaseInfo, 0, len(useCases))
	for _, uc := range useCases {
		infos = append(infos, useCaseInfo{
			ID:          uc.ID,
			Name:        uc.Name,
			Description: uc.Description,
			TestCount:   len(uc.TestCases),
		})
	}
	return jsonResult(infos, "use cases")
}

func handleListModels(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return jsonResult(sc.Catalog.Models(), "models")
}

func handleListDimensions(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return jsonResult(sc.Catalog.Dimensions(), "dimensions")
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
