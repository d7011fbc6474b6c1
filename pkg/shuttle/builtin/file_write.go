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
package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// MaxSafeContentSize prevents LLM output limit errors when writing via the
// direct API path (as opposed to the patch tool, which streams diffs).
const MaxSafeContentSize = 50 * 1024

// FileWriteTool writes content to files on the local filesystem, creating
// parent directories automatically. Safe by default: won't touch system paths.
type FileWriteTool struct {
	baseDir string
}

// NewFileWriteTool creates a file write tool. If baseDir is empty, relative
// paths resolve against the current working directory.
func NewFileWriteTool(baseDir string) *FileWriteTool {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &FileWriteTool{baseDir: baseDir}
}

func (t *FileWriteTool) Name() string { return "file_write" }

func (t *FileWriteTool) Description() string {
	return `Writes content to files on the local filesystem. Creates parent directories automatically.

Use this tool to:
- Save results to files
- Create data files
- Generate output files

For large or structured edits to existing files, prefer the patch tool.`
}

func (t *FileWriteTool) InputSchema() *shuttle.JSONSchema {
	maxContentLen := MaxSafeContentSize
	return shuttle.NewObjectSchema(
		"Parameters for writing files",
		map[string]*shuttle.JSONSchema{
			"path": shuttle.NewStringSchema("File path to write (required). Relative paths are safe."),
			"content": shuttle.NewStringSchema("Content to write to the file (required). Max 50KB per call - use append mode for larger content.").
				WithLength(nil, &maxContentLen),
			"mode": shuttle.NewStringSchema("Write mode: 'create' (fail if exists), 'overwrite', or 'append' (default: create)").
				WithEnum("create", "overwrite", "append").
				WithDefault("create"),
		},
		[]string{"path", "content"},
	)
}

func (t *FileWriteTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	path, ok := params["path"].(string)
	if !ok || path == "" {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "path is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	content, ok := params["content"].(string)
	if !ok {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "content is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if len(content) > MaxSafeContentSize {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:       "CONTENT_TOO_LARGE",
				Message:    fmt.Sprintf("content parameter exceeds %d byte limit (actual: %d bytes)", MaxSafeContentSize, len(content)),
				Suggestion: "write incrementally using append mode, or split across multiple files",
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	mode := "create"
	if m, ok := params["mode"].(string); ok && m != "" {
		mode = m
	}

	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		cleanPath = filepath.Join(t.baseDir, cleanPath)
	}

	if isSensitivePath(cleanPath) {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "UNSAFE_PATH", Message: fmt.Sprintf("cannot write to sensitive location: %s", cleanPath)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	_, statErr := os.Stat(cleanPath)
	fileExists := statErr == nil
	if fileExists && mode == "create" {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "FILE_EXISTS", Message: fmt.Sprintf("file already exists: %s", cleanPath), Suggestion: "use mode='overwrite' to replace, or mode='append' to add content"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "MKDIR_FAILED", Message: fmt.Sprintf("failed to create directory: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	var writeErr error
	var bytesWritten int
	switch mode {
	case "append":
		f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			writeErr = err
		} else {
			n, err := f.WriteString(content)
			bytesWritten = n
			writeErr = err
			f.Close()
		}
	default:
		data := []byte(content)
		writeErr = os.WriteFile(cleanPath, data, 0o600)
		bytesWritten = len(data)
	}

	if writeErr != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "WRITE_FAILED", Message: fmt.Sprintf("failed to write file: %v", writeErr)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return &shuttle.Result{
		Success: true,
		Data: map[string]interface{}{
			"path":          cleanPath,
			"bytes_written": bytesWritten,
			"mode":          mode,
			"created":       !fileExists,
		},
		Metadata:        map[string]interface{}{"file_path": cleanPath, "size": bytesWritten},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (t *FileWriteTool) Backend() string { return "" }

func isSensitivePath(path string) bool {
	sensitive := []string{
		"/etc", "/bin", "/sbin", "/usr/bin", "/usr/sbin",
		"/System", "/Library", "/boot", "/dev", "/proc", "/sys",
	}
	for _, prefix := range sensitive {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
