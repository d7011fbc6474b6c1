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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teradata-labs/cocode/internal/approval"
	"github.com/teradata-labs/cocode/internal/llm"
	"github.com/teradata-labs/cocode/internal/safety"
)

// runShellExec implements step 5.b: the shell-exec tool is routed through
// the safety analyzer (§4.D), approval arbitration (§4.E.1), then spawned
// either in the foreground (via the sandbox launcher, blocking for the
// result) or in the background (via the supervisor, returning immediately
// with a bg-N id) depending on the call's "background" parameter.
func (l *Loop) runShellExec(ctx context.Context, turnID string, tc llm.ToolCallResult, params map[string]interface{}) {
	command, _ := params["command"].(string)
	if command == "" {
		l.appendToolResult(tc, nil, fmt.Errorf("command is required"))
		return
	}
	background, _ := params["background"].(bool)
	withEscalated, _ := params["with_escalated_permissions"].(bool)

	verdict := safety.AnalyzeCommandSafety(command)
	if verdict.Status == safety.StatusDenied {
		l.appendToolResult(tc, nil, fmt.Errorf("command denied: %s", verdict.Reason))
		return
	}

	l.mu.Lock()
	decision := approval.AssessCommandSafety(l.opts.ApprovalPolicy, l.opts.SandboxPolicy, l.sessionApprovedCmds, command, withEscalated)
	l.mu.Unlock()

	switch decision.Kind {
	case approval.DecisionReject:
		l.appendToolResult(tc, nil, fmt.Errorf("command rejected: %s", decision.RejectReason))
		return
	case approval.DecisionAskUser:
		l.Bus.Publish(Event{Kind: EventExecApprovalRequest, TurnID: turnID, ToolCallID: tc.ID, Command: command})
		// No interactive reviewer is wired into the loop itself; without one
		// the call can't proceed past an AskUser arbitration outcome.
		l.appendToolResult(tc, nil, fmt.Errorf("command requires approval and no reviewer is attached to this session"))
		return
	}

	env := map[string]string{}
	if e, ok := params["env"].(map[string]interface{}); ok {
		for k, v := range e {
			if s, ok := v.(string); ok {
				env[k] = s
			}
		}
	}
	if decision.NetworkDisabledEnv {
		env["CODEX_SANDBOX_NETWORK_DISABLED"] = "1"
	}

	l.Bus.Publish(Event{Kind: EventExecCommandBegin, TurnID: turnID, ToolCallID: tc.ID, Command: command})

	commandArgv := []string{"/bin/sh", "-c", command}

	if background {
		l.runShellBackground(ctx, turnID, tc, commandArgv, env)
		return
	}
	l.runShellForeground(ctx, turnID, tc, decision, commandArgv, env)
}

func (l *Loop) runShellForeground(ctx context.Context, turnID string, tc llm.ToolCallResult, decision approval.Decision, commandArgv []string, env map[string]string) {
	result, err := l.opts.SandboxLauncher.Run(ctx, decision.SandboxType, commandArgv, env)
	exitCode := 0
	if result != nil {
		exitCode = result.ExitCode
	}
	l.Bus.Publish(Event{Kind: EventExecCommandEnd, TurnID: turnID, ToolCallID: tc.ID, ExitCode: &exitCode})

	if err != nil {
		l.appendToolResult(tc, nil, err)
		return
	}
	payload := map[string]interface{}{
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"exit_code": result.ExitCode,
	}
	data, _ := json.Marshal(payload)
	l.Conversation.Append(Item{
		Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name,
		IsError: result.ExitCode != 0, Content: string(data),
	})
}

func (l *Loop) runShellBackground(ctx context.Context, turnID string, tc llm.ToolCallResult, commandArgv []string, env map[string]string) {
	proc, err := l.opts.Supervisor.Start(ctx, commandArgv, env, "")
	if err != nil {
		l.appendToolResult(tc, nil, err)
		return
	}
	l.Bus.Publish(Event{Kind: EventBackgroundProcessCount, TurnID: turnID, Running: l.opts.Supervisor.RunningCount()})
	payload := map[string]interface{}{"background_id": proc.ID, "command": strings.Join(commandArgv, " ")}
	data, _ := json.Marshal(payload)
	l.Conversation.Append(Item{Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name, Content: string(data)})
}
