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
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// ApplyPatchTool applies a unified-diff-style patch to an existing file.
// It's the preferred way to make targeted edits: the patch carries its own
// context lines, so a stale view of the file produces a clean rejection
// instead of silently clobbering changes made since the file was last read.
type ApplyPatchTool struct {
	baseDir string
}

// NewApplyPatchTool creates a patch-apply tool. If baseDir is empty, relative
// paths resolve against the current working directory.
func NewApplyPatchTool(baseDir string) *ApplyPatchTool {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &ApplyPatchTool{baseDir: baseDir}
}

func (t *ApplyPatchTool) Name() string { return "apply_patch" }

func (t *ApplyPatchTool) Description() string {
	return `Applies a unified diff patch to an existing file.

The patch text must be in the standard unified diff format (as produced by
'diff -u' or 'git diff'), with enough context lines for each hunk to locate
itself unambiguously in the target file. Hunks that no longer match the
file's current content are rejected individually and reported back.`
}

func (t *ApplyPatchTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for applying a patch",
		map[string]*shuttle.JSONSchema{
			"path":  shuttle.NewStringSchema("Path of the file to patch (required)"),
			"patch": shuttle.NewStringSchema("Unified diff text to apply (required)"),
		},
		[]string{"path", "patch"},
	)
}

func (t *ApplyPatchTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	path, ok := params["path"].(string)
	if !ok || path == "" {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "path is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	patchText, ok := params["patch"].(string)
	if !ok || patchText == "" {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "patch is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		cleanPath = filepath.Join(t.baseDir, cleanPath)
	}
	if isSensitivePath(cleanPath) {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "UNSAFE_PATH", Message: fmt.Sprintf("cannot patch sensitive location: %s", cleanPath)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	original, err := os.ReadFile(cleanPath)
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "FILE_NOT_FOUND", Message: fmt.Sprintf("cannot read target file: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PATCH", Message: fmt.Sprintf("cannot parse patch: %v", err), Suggestion: "provide a unified diff as produced by 'diff -u' or 'git diff'"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	patched, applied := dmp.PatchApply(patches, string(original))
	rejected := 0
	for _, ok := range applied {
		if !ok {
			rejected++
		}
	}
	if rejected > 0 {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:       "PATCH_REJECTED",
				Message:    fmt.Sprintf("%d of %d hunks did not apply cleanly", rejected, len(applied)),
				Suggestion: "re-read the file and regenerate the patch against its current content",
			},
			Data:            map[string]interface{}{"hunks_applied": len(applied) - rejected, "hunks_rejected": rejected},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if err := os.WriteFile(cleanPath, []byte(patched), 0o600); err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "WRITE_FAILED", Message: fmt.Sprintf("failed to write patched file: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return &shuttle.Result{
		Success: true,
		Data: map[string]interface{}{
			"path":          cleanPath,
			"hunks_applied": len(applied),
			"bytes_written": len(patched),
		},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (t *ApplyPatchTool) Backend() string { return "" }
