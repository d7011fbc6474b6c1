// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package shuttle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ToolSearchHit is the minimal shape the executor needs back from a tool
// registry search in order to dynamically register a tool it doesn't
// already know about. Source is one of "builtin", "mcp", "custom".
type ToolSearchHit struct {
	Name        string
	Description string
	Source      string
	McpServer   string
	InputSchema string // JSON-encoded JSONSchema, empty if none
}

// ToolRegistry looks up a single tool by name for dynamic registration.
// This interface is defined here (not in pkg/tools/registry) so that
// package can depend on pkg/shuttle without creating an import cycle;
// pkg/tools/registry provides the concrete adapter.
type ToolRegistry interface {
	SearchTool(ctx context.Context, name string) (*ToolSearchHit, error)
}

// MCPManager is an interface for getting MCP clients.
// This avoids import cycles with pkg/mcp/manager.
type MCPManager interface {
	GetClient(serverName string) (interface{}, error)
}

// BuiltinToolProvider is an interface for getting builtin tools.
// This avoids import cycles with pkg/shuttle/builtin.
type BuiltinToolProvider interface {
	GetTool(name string) Tool
}

// Executor executes tools with tracking and error handling.
type Executor struct {
	registry            *Registry
	permissionChecker   *PermissionChecker
	toolRegistry        ToolRegistry        // Tool registry for dynamic tool discovery
	mcpManager          MCPManager          // MCP manager for dynamic MCP tool registration
	builtinToolProvider BuiltinToolProvider // Builtin tool provider for dynamic builtin tool registration
}

// NewExecutor creates a new tool executor.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// SetPermissionChecker configures permission checking for tool execution.
func (e *Executor) SetPermissionChecker(checker *PermissionChecker) {
	e.permissionChecker = checker
}

// SetToolRegistry configures the tool registry for dynamic tool discovery.
// When a tool is not found in the local registry, the executor will check
// the tool registry and dynamically register MCP or builtin tools if found.
func (e *Executor) SetToolRegistry(registry ToolRegistry) {
	e.toolRegistry = registry
}

// SetMCPManager configures the MCP manager for dynamic MCP tool registration.
func (e *Executor) SetMCPManager(manager MCPManager) {
	e.mcpManager = manager
}

// SetBuiltinToolProvider configures the builtin tool provider for dynamic builtin tool registration.
func (e *Executor) SetBuiltinToolProvider(provider BuiltinToolProvider) {
	e.builtinToolProvider = provider
}

// Execute executes a tool by name with the given parameters.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		dynamicTool, err := e.tryDynamicRegistration(ctx, toolName)
		if err != nil {
			return nil, fmt.Errorf("tool not found: %s (dynamic registration failed: %w)", toolName, err)
		}
		if dynamicTool == nil {
			return nil, fmt.Errorf("tool not found: %s", toolName)
		}
		tool = dynamicTool
	}

	if e.permissionChecker != nil {
		if err := e.permissionChecker.CheckPermission(ctx, toolName, params); err != nil {
			return &Result{
				Success: false,
				Error:   &Error{Code: "permission_denied", Message: err.Error(), Retryable: false},
			}, nil
		}
	}

	// LLMs naturally use snake_case, but some tools expect camelCase.
	normalizedParams := normalizeParametersToSchema(tool, params)

	return e.run(ctx, tool, normalizedParams)
}

// ExecuteWithTool executes a specific tool instance (not from registry).
func (e *Executor) ExecuteWithTool(ctx context.Context, tool Tool, params map[string]interface{}) (*Result, error) {
	if e.permissionChecker != nil {
		if err := e.permissionChecker.CheckPermission(ctx, tool.Name(), params); err != nil {
			return &Result{
				Success: false,
				Error:   &Error{Code: "permission_denied", Message: err.Error(), Retryable: false},
			}, nil
		}
	}

	return e.run(ctx, tool, params)
}

func (e *Executor) run(ctx context.Context, tool Tool, params map[string]interface{}) (*Result, error) {
	start := time.Now()
	result, err := tool.Execute(ctx, params)
	duration := time.Since(start)

	if err != nil {
		return &Result{
			Success:         false,
			Error:           &Error{Code: "execution_failed", Message: err.Error(), Retryable: false},
			ExecutionTimeMs: duration.Milliseconds(),
		}, nil
	}

	if result == nil {
		return &Result{Success: true, ExecutionTimeMs: duration.Milliseconds()}, nil
	}

	// Executor timing is authoritative, even if the tool already set one.
	result.ExecutionTimeMs = duration.Milliseconds()
	return result, nil
}

// ListAvailableTools returns all tools available in the executor's registry.
func (e *Executor) ListAvailableTools() []Tool {
	return e.registry.ListTools()
}

// ListToolsByBackend returns all tools for a specific backend.
func (e *Executor) ListToolsByBackend(backend string) []Tool {
	return e.registry.ListByBackend(backend)
}

// normalizeParametersToSchema attempts to normalize parameter names to match the tool's schema.
// This handles the common issue where LLMs use snake_case but tools expect camelCase (or vice versa).
func normalizeParametersToSchema(tool Tool, params map[string]interface{}) map[string]interface{} {
	if len(params) == 0 {
		return params
	}

	schema := tool.InputSchema()
	if schema == nil || schema.Properties == nil {
		return params // No schema to normalize against
	}

	// Build a mapping of lowercase parameter names to actual schema names
	schemaKeys := make(map[string]string)
	for key := range schema.Properties {
		schemaKeys[toLowerUnderscore(key)] = key
	}

	normalized := make(map[string]interface{}, len(params))
	for key, value := range params {
		normalizedKey := toLowerUnderscore(key)
		if schemaKey, exists := schemaKeys[normalizedKey]; exists {
			normalized[schemaKey] = value
		} else {
			normalized[key] = value
		}
	}

	return normalized
}

// toLowerUnderscore converts any naming convention to lowercase with underscores.
// This allows matching camelCase, snake_case, PascalCase, etc.
func toLowerUnderscore(s string) string {
	if s == "" {
		return ""
	}

	var result []rune
	for i, r := range s {
		lower := unicode.ToLower(r)
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '_')
		}
		result = append(result, lower)
	}

	return string(result)
}

// tryDynamicRegistration attempts to dynamically register a tool from the tool registry.
// This enables agents to use tools they discover via tool_search without explicit registration.
// Returns the registered tool, or nil if registration fails or tool not found.
func (e *Executor) tryDynamicRegistration(ctx context.Context, toolName string) (Tool, error) {
	if e.toolRegistry == nil {
		return nil, fmt.Errorf("tool registry not configured")
	}

	hit, err := e.toolRegistry.SearchTool(ctx, toolName)
	if err != nil {
		return nil, fmt.Errorf("failed to search tool registry: %w", err)
	}
	if hit == nil {
		return nil, fmt.Errorf("tool not found in registry")
	}

	switch hit.Source {
	case "mcp":
		return e.registerMCPTool(hit)
	case "builtin":
		return e.registerBuiltinTool(hit)
	case "custom":
		return nil, fmt.Errorf("custom tools not yet supported for dynamic registration")
	default:
		return nil, fmt.Errorf("unknown tool source: %s", hit.Source)
	}
}

// registerMCPTool dynamically registers an MCP tool from the tool registry.
func (e *Executor) registerMCPTool(hit *ToolSearchHit) (Tool, error) {
	if e.mcpManager == nil {
		return nil, fmt.Errorf("MCP manager not configured")
	}
	if hit.McpServer == "" {
		return nil, fmt.Errorf("MCP tool missing server name")
	}

	client, err := e.mcpManager.GetClient(hit.McpServer)
	if err != nil {
		return nil, fmt.Errorf("failed to get MCP client for server %s: %w", hit.McpServer, err)
	}

	var inputSchema *JSONSchema
	if hit.InputSchema != "" {
		if err := json.Unmarshal([]byte(hit.InputSchema), &inputSchema); err != nil {
			inputSchema = &JSONSchema{Type: "object", Properties: map[string]*JSONSchema{}}
		}
	}

	mcpTool := &mcpToolWrapper{
		name:        hit.Name,
		description: hit.Description,
		inputSchema: inputSchema,
		client:      client,
		serverName:  hit.McpServer,
	}

	e.registry.Register(mcpTool)

	return mcpTool, nil
}

// registerBuiltinTool dynamically registers a builtin tool from the builtin tool provider.
func (e *Executor) registerBuiltinTool(hit *ToolSearchHit) (Tool, error) {
	if e.builtinToolProvider == nil {
		return nil, fmt.Errorf("builtin tool provider not configured")
	}

	tool := e.builtinToolProvider.GetTool(hit.Name)
	if tool == nil {
		return nil, fmt.Errorf("builtin tool not found: %s", hit.Name)
	}

	e.registry.Register(tool)

	return tool, nil
}

// mcpToolWrapper wraps an MCP client to implement the Tool interface.
type mcpToolWrapper struct {
	name        string
	description string
	inputSchema *JSONSchema
	client      interface{} // MCP client interface
	serverName  string
}

func (t *mcpToolWrapper) Name() string {
	return t.name
}

func (t *mcpToolWrapper) Description() string {
	return t.description
}

func (t *mcpToolWrapper) InputSchema() *JSONSchema {
	return t.inputSchema
}

func (t *mcpToolWrapper) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	// Matches the actual MCP client CallTool signature; kept as a local
	// interface (rather than importing pkg/mcp/client) to avoid a cycle.
	type mcpClient interface {
		CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error)
	}

	client, ok := t.client.(mcpClient)
	if !ok {
		actualType := fmt.Sprintf("%T", t.client)
		return &Result{
			Success: false,
			Error: &Error{
				Code:    "MCP_CLIENT_ERROR",
				Message: fmt.Sprintf("MCP client does not support CallTool method (actual type: %s, server: %s)", actualType, t.serverName),
			},
		}, nil
	}

	result, err := client.CallTool(ctx, t.name, params)
	if err != nil {
		return &Result{
			Success: false,
			Error: &Error{
				Code:      "MCP_EXECUTION_FAILED",
				Message:   fmt.Sprintf("MCP tool execution failed: %v", err),
				Retryable: true,
			},
		}, nil
	}

	cleanData := extractMCPContentData(result)

	return &Result{
		Success: true,
		Data:    cleanData,
	}, nil
}

func (t *mcpToolWrapper) Backend() string {
	return "" // MCP tools don't have a specific backend
}

// extractMCPContentData extracts clean data from MCP CallToolResult structures.
// This handles the Content array format and attempts to parse SQL results directly.
func extractMCPContentData(result interface{}) interface{} {
	if result == nil {
		return nil
	}

	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return result
	}

	contentRaw, hasContent := resultMap["content"]
	if !hasContent {
		return result
	}

	contentArray, ok := contentRaw.([]interface{})
	if !ok || len(contentArray) == 0 {
		return result
	}

	if len(contentArray) == 1 {
		contentItem, ok := contentArray[0].(map[string]interface{})
		if !ok {
			return result
		}

		contentType, _ := contentItem["type"].(string)
		if contentType == "text" {
			text, _ := contentItem["text"].(string)

			// Many MCP tools return JSON in the text field, possibly with a
			// message prefix like "Success\n\n{...}" - so find the first brace.
			text = strings.TrimSpace(text)
			jsonStart := strings.Index(text, "{")
			if jsonStart >= 0 {
				jsonText := text[jsonStart:]
				var parsed map[string]interface{}
				if err := json.Unmarshal([]byte(jsonText), &parsed); err == nil {
					return parsed
				}
			}

			return text
		}
	}

	results := make([]map[string]interface{}, len(contentArray))
	for i, c := range contentArray {
		if contentItem, ok := c.(map[string]interface{}); ok {
			results[i] = contentItem
		}
	}
	return results
}
