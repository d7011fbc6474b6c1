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
package turn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/cocode/internal/approval"
	"github.com/teradata-labs/cocode/internal/llm"
	"github.com/teradata-labs/cocode/pkg/shuttle/builtin"
)

func newShellTestLoop(t *testing.T, sandbox approval.SandboxPolicy) *Loop {
	t.Helper()
	loop := newTestLoop(t, &fakeProvider{})
	loop.opts.Registry.Register(builtin.NewShellExecuteTool(t.TempDir()))
	loop.opts.SandboxPolicy = sandbox
	loop.opts.SandboxLauncher = approval.NewSandboxLauncher(nil, "", "")
	loop.opts.Supervisor = approval.NewSupervisor(nil)
	return loop
}

func TestRunShellExec_ForegroundDangerFullAccessReturnsOutput(t *testing.T) {
	loop := newShellTestLoop(t, approval.SandboxPolicy{Kind: approval.SandboxDangerFullAccess})

	tc := llm.ToolCallResult{ID: "1", Name: ShellExecToolName, Input: `{"command":"echo hello"}`}
	loop.runOne(context.Background(), "turn-1", tc)

	items := loop.Conversation.Items()
	require.Len(t, items, 1)
	assert.False(t, items[0].IsError)
	assert.Contains(t, items[0].Content, "hello")
}

func TestRunShellExec_DeniedCommandNeverRuns(t *testing.T) {
	loop := newShellTestLoop(t, approval.SandboxPolicy{Kind: approval.SandboxDangerFullAccess})

	tc := llm.ToolCallResult{ID: "1", Name: ShellExecToolName, Input: `{"command":"rm -rf /"}`}
	loop.runOne(context.Background(), "turn-1", tc)

	items := loop.Conversation.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsError)
}

func TestRunShellExec_ReadOnlySandboxEscalationAsksUser(t *testing.T) {
	loop := newShellTestLoop(t, approval.SandboxPolicy{Kind: approval.SandboxReadOnly})
	loop.opts.ApprovalPolicy = approval.ApprovalOnRequest

	// Escalation out of a read-only sandbox, not yet session-approved, with
	// a policy that allows prompting, arbitrates to AskUser. No reviewer is
	// wired into the loop, so the call surfaces as an error result.
	tc := llm.ToolCallResult{ID: "1", Name: ShellExecToolName, Input: `{"command":"echo hi","with_escalated_permissions":true}`}
	loop.runOne(context.Background(), "turn-1", tc)

	items := loop.Conversation.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsError)
	assert.Contains(t, items[0].Content, "approval")
}

func TestRunShellExec_BackgroundStartsSupervisedProcess(t *testing.T) {
	loop := newShellTestLoop(t, approval.SandboxPolicy{Kind: approval.SandboxDangerFullAccess})

	tc := llm.ToolCallResult{ID: "1", Name: ShellExecToolName, Input: `{"command":"sleep 0.05","background":true}`}
	loop.runOne(context.Background(), "turn-1", tc)

	items := loop.Conversation.Items()
	require.Len(t, items, 1)
	assert.False(t, items[0].IsError)
	assert.Contains(t, items[0].Content, "background_id")
	assert.Equal(t, 1, loop.opts.Supervisor.RunningCount())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, loop.opts.Supervisor.RunningCount())
}
