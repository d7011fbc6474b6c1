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
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/cocode/internal/version"
	"github.com/teradata-labs/cocode/pkg/mcp/adapter"
	"github.com/teradata-labs/cocode/pkg/mcp/client"
	"github.com/teradata-labs/cocode/pkg/mcp/protocol"
	"github.com/teradata-labs/cocode/pkg/mcp/transport"
	"github.com/teradata-labs/cocode/pkg/shuttle"
)

var mcpServerName string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "inspect tools exposed by an MCP server",
}

var mcpListCmd = &cobra.Command{
	Use:   "list -- <command> [args...]",
	Short: "spawn an MCP server over stdio and list its tools, as the session loop would register them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMCPList,
}

func init() {
	mcpListCmd.Flags().StringVar(&mcpServerName, "name", "local", "name this server is qualified under (mcp__<name>_<tool>)")
	mcpCmd.AddCommand(mcpListCmd)
}

func runMCPList(cmd *cobra.Command, args []string) error {
	tr, err := transport.NewStdioTransport(transport.StdioConfig{
		Command: args[0],
		Args:    args[1:],
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("starting MCP server: %w", err)
	}
	defer tr.Close()

	mcpClient := client.NewClient(client.Config{
		Transport: tr,
		Logger:    logger,
		Name:      "cocode",
		Version:   version.Get(),
	})
	defer mcpClient.Close()

	ctx := cmd.Context()
	if err := mcpClient.Initialize(ctx, protocol.Implementation{Name: "cocode", Version: version.Get()}); err != nil {
		return fmt.Errorf("initializing MCP session: %w", err)
	}

	tools, err := adapter.AdaptMCPTools(ctx, mcpClient, mcpServerName)
	if err != nil {
		return fmt.Errorf("adapting MCP tools: %w", err)
	}

	registry := shuttle.NewRegistry()
	registry.RegisterMCPToolsExecutable(mcpServerName, tools, mcpClient, 0)

	fmt.Printf("server %q exposes %d tool(s), costing %d description chars:\n", mcpServerName, len(tools), registry.McpDescriptionChars())
	for _, t := range tools {
		fmt.Printf("  %s  %s\n", shuttle.QualifiedMCPName(mcpServerName, t.Name()), t.Description())
	}
	return nil
}
