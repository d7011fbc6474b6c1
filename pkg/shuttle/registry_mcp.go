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
	"fmt"
	"strings"
	"time"
)

// QualifiedMCPName builds the "mcp__<server>_<tool>" name MCP tools are
// keyed by in the registry, distinct from whatever name convention an
// individual Tool implementation (e.g. pkg/mcp/adapter.MCPToolAdapter)
// uses for its own Name().
func QualifiedMCPName(server, tool string) string {
	return fmt.Sprintf("mcp__%s_%s", server, tool)
}

// McpToolMeta is metadata-only information about one MCP tool: enough to
// list and search over, without an executable backing it. SchemaChars is
// the serialized size of the tool's input schema, used by
// McpDescriptionChars.
type McpToolMeta struct {
	Name        string
	Description string
	SchemaChars int
}

// mcpServerState tracks one MCP server's registered tools: always has
// metadata, optionally has executables (until DeferMCPToolDefinitions
// removes them while keeping metadata for search).
type mcpServerState struct {
	meta       map[string]McpToolMeta
	executable map[string]bool
}

// RegisterWithAlias registers tool under its own name and an additional
// alias, both resolvable via Get.
func (r *Registry) RegisterWithAlias(tool Tool, alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aliases == nil {
		r.aliases = make(map[string]string)
	}
	r.tools[tool.Name()] = tool
	r.aliases[alias] = tool.Name()
}

// RegisterMCPServer records metadata-only entries for server's tools,
// without making them executable. Used for deferred/search-discovered MCP
// tools (see DeferMCPToolDefinitions).
func (r *Registry) RegisterMCPServer(server string, tools []McpToolMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureMCPState(server)
	for _, t := range tools {
		r.mcpServers[server].meta[t.Name] = t
	}
}

// RegisterMCPToolsExecutable wraps each of server's tools as an executable
// registry entry under its qualified name ("mcp__<server>_<tool>"),
// alongside recording its metadata. clientHandle is retained only for
// caller bookkeeping (e.g. reference counting a shared MCP client); the
// registry itself doesn't dereference it.
func (r *Registry) RegisterMCPToolsExecutable(server string, tools []Tool, clientHandle interface{}, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureMCPState(server)
	for _, t := range tools {
		qualified := QualifiedMCPName(server, t.Name())
		r.tools[qualified] = t
		r.mcpServers[server].executable[qualified] = true

		schemaChars := 0
		if schema := t.InputSchema(); schema != nil {
			schemaChars = len(schema.Type) + len(schema.Description)
			for prop := range schema.Properties {
				schemaChars += len(prop)
			}
		}
		r.mcpServers[server].meta[t.Name()] = McpToolMeta{
			Name:        t.Name(),
			Description: t.Description(),
			SchemaChars: schemaChars,
		}
	}
}

// UnregisterMCPServer removes both the executable and metadata entries
// registered for server.
func (r *Registry) UnregisterMCPServer(server string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.mcpServers[server]
	if !ok {
		return
	}
	for qualified := range state.executable {
		delete(r.tools, qualified)
	}
	delete(r.mcpServers, server)
}

// DeferMCPToolDefinitions removes server's tools from the executable map
// (so they no longer appear in the per-request tool set) while preserving
// their metadata for on-demand search/discovery.
func (r *Registry) DeferMCPToolDefinitions(server string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.mcpServers[server]
	if !ok {
		return
	}
	for qualified := range state.executable {
		delete(r.tools, qualified)
	}
	state.executable = make(map[string]bool)
}

// McpDescriptionChars sums the qualified-name + description + schema size
// across every currently-registered (non-deferred) MCP tool.
func (r *Registry) McpDescriptionChars() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for server, state := range r.mcpServers {
		for qualified := range state.executable {
			toolName := strings.TrimPrefix(qualified, QualifiedMCPName(server, ""))
			meta := state.meta[toolName]
			total += len(qualified) + len(meta.Description) + meta.SchemaChars
		}
	}
	return total
}

// ToolDefinition is the per-request tool shape handed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *JSONSchema
}

// DefinitionsFiltered returns builtin tool definitions, excluding any tool
// whose FeatureGate() names a feature not present in enabledFeatures. MCP
// tools (executable entries under an mcpServers key) have no feature gate
// and are always included.
func (r *Registry) DefinitionsFiltered(enabledFeatures map[string]bool) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.tools))
	for name, tool := range r.tools {
		if gated, ok := tool.(FeatureGated); ok {
			feature := gated.FeatureGate()
			if feature != "" && !enabledFeatures[feature] {
				continue
			}
		}
		defs = append(defs, ToolDefinition{
			Name:        name,
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return defs
}

func (r *Registry) ensureMCPState(server string) {
	if r.mcpServers == nil {
		r.mcpServers = make(map[string]*mcpServerState)
	}
	if _, ok := r.mcpServers[server]; !ok {
		r.mcpServers[server] = &mcpServerState{
			meta:       make(map[string]McpToolMeta),
			executable: make(map[string]bool),
		}
	}
}

// resolve looks up name directly, then as an alias.
func (r *Registry) resolve(name string) (Tool, bool) {
	if tool, ok := r.tools[name]; ok {
		return tool, true
	}
	if target, ok := r.aliases[name]; ok {
		return r.tools[target], true
	}
	return nil, false
}
