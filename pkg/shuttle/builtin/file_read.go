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
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teradata-labs/cocode/pkg/shuttle"
)

const (
	// MaxFileReadSize caps how much of a file we'll read in one call (10MB).
	MaxFileReadSize = 10 * 1024 * 1024

	// DefaultMaxLines limits text output to prevent context bloat.
	DefaultMaxLines = 1000
)

// FileReadTool reads file content from the local filesystem, so an agent can
// ground its answers in real data instead of guessing.
type FileReadTool struct {
	baseDir string
}

// NewFileReadTool creates a file read tool. If baseDir is empty, relative
// paths resolve against the current working directory.
func NewFileReadTool(baseDir string) *FileReadTool {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &FileReadTool{baseDir: baseDir}
}

func (t *FileReadTool) Name() string { return "file_read" }

func (t *FileReadTool) Description() string {
	return `Reads content from files on the local filesystem.

Use this tool to:
- Read data files saved by previous steps
- Verify file contents before summarizing
- Load configuration or results files

Safety: won't read sensitive system files. Max file size: 10MB.`
}

func (t *FileReadTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for reading files",
		map[string]*shuttle.JSONSchema{
			"path": shuttle.NewStringSchema("File path to read (required). Relative paths are resolved from the working directory."),
			"encoding": shuttle.NewStringSchema("Output encoding: 'text' (default) or 'base64' for binary files").
				WithEnum("text", "base64").
				WithDefault("text"),
			"max_lines":  shuttle.NewNumberSchema("Maximum lines to return for text files (default: 1000, 0 = unlimited)"),
			"start_line": shuttle.NewNumberSchema("Start reading from this line number (1-based, default: 1)"),
		},
		[]string{"path"},
	)
}

func (t *FileReadTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	path, ok := params["path"].(string)
	if !ok || path == "" {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "path is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	encoding := "text"
	if e, ok := params["encoding"].(string); ok && e != "" {
		encoding = e
	}
	maxLines := DefaultMaxLines
	if m, ok := params["max_lines"].(float64); ok {
		maxLines = int(m)
	}
	startLine := 1
	if s, ok := params["start_line"].(float64); ok && s > 0 {
		startLine = int(s)
	}

	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		cleanPath = filepath.Join(t.baseDir, cleanPath)
	}

	if isSensitiveReadPath(cleanPath) {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "UNSAFE_PATH", Message: fmt.Sprintf("cannot read from sensitive location: %s", cleanPath)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "FILE_NOT_FOUND", Message: fmt.Sprintf("file not found: %s", cleanPath)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "STAT_FAILED", Message: fmt.Sprintf("failed to stat file: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if info.IsDir() {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "IS_DIRECTORY", Message: fmt.Sprintf("path is a directory, not a file: %s", cleanPath)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if info.Size() > MaxFileReadSize {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "FILE_TOO_LARGE", Message: fmt.Sprintf("file too large: %d bytes (max: %d)", info.Size(), MaxFileReadSize), Suggestion: "use start_line and max_lines to read a portion of large files"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "READ_FAILED", Message: fmt.Sprintf("failed to read file: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	var content string
	var totalLines, returnedLines int
	var truncated bool

	if encoding == "base64" {
		content = base64.StdEncoding.EncodeToString(data)
	} else {
		lines := strings.Split(string(data), "\n")
		totalLines = len(lines)
		if startLine > 1 {
			if startLine > len(lines) {
				lines = []string{}
			} else {
				lines = lines[startLine-1:]
			}
		}
		if maxLines > 0 && len(lines) > maxLines {
			lines = lines[:maxLines]
			truncated = true
		}
		returnedLines = len(lines)
		content = strings.Join(lines, "\n")
	}

	return &shuttle.Result{
		Success: true,
		Data: map[string]interface{}{
			"path":        cleanPath,
			"content":     content,
			"encoding":    encoding,
			"size_bytes":  info.Size(),
			"total_lines": totalLines,
			"lines_read":  returnedLines,
			"start_line":  startLine,
			"truncated":   truncated,
			"modified_at": info.ModTime().Format(time.RFC3339),
		},
		Metadata:        map[string]interface{}{"file_path": cleanPath, "size": info.Size()},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (t *FileReadTool) Backend() string { return "" }

func isSensitiveReadPath(path string) bool {
	sensitive := []string{
		"/etc/shadow", "/etc/passwd", "/etc/sudoers",
		"/private/etc/shadow", "/private/etc/passwd", "/private/etc/sudoers",
	}
	for _, s := range sensitive {
		if path == s {
			return true
		}
	}
	protectedDirs := []string{"/proc", "/sys", "/dev"}
	for _, prefix := range protectedDirs {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}
	return false
}
