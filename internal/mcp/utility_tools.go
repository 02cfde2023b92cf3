package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// EmptyInput is used by tools that take no arguments.
type EmptyInput struct{}

// MappingsOutput holds the department and location name-to-ID maps used when
// building job filters.
type MappingsOutput struct {
	Departments map[string]string `json:"departments"`
	Locations   map[string]string `json:"locations"`
}

// FieldDefinitionsOutput is the raw candidate custom-field schema.
type FieldDefinitionsOutput struct {
	Definitions json.RawMessage `json:"definitions"`
}

func registerUtilityTools(s *Server, client DirectoryClient, lookups Lookups) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_department_location_mappings",
		Description: "Return the department and location name-to-ID maps used in job filters.",
	}, s.mappingsHandler(lookups))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_custom_fields_definitions",
		Description: "Return the candidate custom-field definitions from the ATS.",
	}, s.fieldDefinitionsHandler(client))
}

func (s *Server) mappingsHandler(lookups Lookups) mcp.ToolHandlerFor[EmptyInput, MappingsOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, MappingsOutput, error) {
		return nil, MappingsOutput{
			Departments: lookups.Departments,
			Locations:   lookups.Locations,
		}, nil
	}
}

func (s *Server) fieldDefinitionsHandler(client DirectoryClient) mcp.ToolHandlerFor[EmptyInput, FieldDefinitionsOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, FieldDefinitionsOutput, error) {
		start := time.Now()
		definitions, err := client.CustomFieldDefinitions(ctx)
		s.observe("get_custom_fields_definitions", start, err)
		if err != nil {
			return nil, FieldDefinitionsOutput{}, err
		}
		return nil, FieldDefinitionsOutput{Definitions: definitions}, nil
	}
}
