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

// Package builtin provides the tools the runtime ships without any MCP
// server: shell execution, file I/O, and patch application.
package builtin

import (
	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// All creates all builtin tools. The promptRegistry parameter is accepted for
// call-site compatibility with indexers that pass one in; it is currently
// unused since builtin tool descriptions are hardcoded.
func All(promptRegistry interface{}) []shuttle.Tool {
	return []shuttle.Tool{
		NewFileReadTool(""),
		NewFileWriteTool(""),
		NewApplyPatchTool(""),
		NewShellExecuteTool(""),
	}
}

// ByName returns a builtin tool by name, or nil if not found.
func ByName(name string) shuttle.Tool {
	switch name {
	case "file_read":
		return NewFileReadTool("")
	case "file_write":
		return NewFileWriteTool("")
	case "apply_patch":
		return NewApplyPatchTool("")
	case "shell_execute":
		return NewShellExecuteTool("")
	default:
		return nil
	}
}

// Names returns the names of all builtin tools.
func Names() []string {
	return []string{"file_read", "file_write", "apply_patch", "shell_execute"}
}

// RegisterAll registers all builtin tools with a registry.
func RegisterAll(registry *shuttle.Registry) {
	for _, tool := range All(nil) {
		registry.Register(tool)
	}
}

// RegisterByNames registers only the specified builtin tools.
func RegisterByNames(registry *shuttle.Registry, names []string) {
	for _, name := range names {
		if tool := ByName(name); tool != nil {
			registry.Register(tool)
		}
	}
}
