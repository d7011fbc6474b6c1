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
package registry

import (
	"context"
	"fmt"

	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// ExecutorAdapter lets a shuttle.Executor dynamically register tools it
// doesn't already know about by searching this registry's index. It
// satisfies shuttle.ToolRegistry.
type ExecutorAdapter struct {
	registry *Registry
}

// NewExecutorAdapter wraps registry for use as a shuttle.Executor's dynamic
// tool lookup source.
func NewExecutorAdapter(registry *Registry) *ExecutorAdapter {
	return &ExecutorAdapter{registry: registry}
}

// SearchTool finds the single best match for name and converts it to the
// minimal shape shuttle.Executor needs to dynamically register it.
func (a *ExecutorAdapter) SearchTool(ctx context.Context, name string) (*shuttle.ToolSearchHit, error) {
	resp, err := a.registry.Search(ctx, &SearchToolsRequest{
		Query:         name,
		Mode:          SearchModeFast,
		MaxResults:    1,
		IncludeSchema: true,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("tool not found in registry: %s", name)
	}

	tool := resp.Results[0].Tool
	return &shuttle.ToolSearchHit{
		Name:        tool.Name,
		Description: tool.Description,
		Source:      tool.Source.String(),
		McpServer:   tool.McpServer,
		InputSchema: tool.InputSchema,
	}, nil
}

var _ shuttle.ToolRegistry = (*ExecutorAdapter)(nil)
