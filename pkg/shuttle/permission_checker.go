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
	"fmt"

	"github.com/teradata-labs/cocode/internal/approval"
)

// PermissionChecker gates which tools the registry will let the loop invoke
// at all, ahead of and independent from approval.AssessCommandSafety's
// per-shell-exec-call sandbox arbitration. A tool denied here never reaches
// the executor; a tool allowed here may still have its shell-exec calls
// escalated to a human by the approval supervisor.
type PermissionChecker struct {
	policy        approval.ApprovalPolicy
	allowedTools  map[string]bool // always allowed regardless of policy
	disabledTools map[string]bool // never allowed regardless of policy
}

// PermissionConfig holds permission configuration.
type PermissionConfig struct {
	Policy        approval.ApprovalPolicy
	AllowedTools  []string
	DisabledTools []string
}

// NewPermissionChecker creates a new permission checker.
func NewPermissionChecker(config PermissionConfig) *PermissionChecker {
	allowedMap := make(map[string]bool)
	for _, tool := range config.AllowedTools {
		allowedMap[tool] = true
	}

	disabledMap := make(map[string]bool)
	for _, tool := range config.DisabledTools {
		disabledMap[tool] = true
	}

	return &PermissionChecker{
		policy:        config.Policy,
		allowedTools:  allowedMap,
		disabledTools: disabledMap,
	}
}

// CheckPermission reports whether a tool call may proceed. It returns nil
// for approval.DecisionAutoApprove and an error describing the rejection or
// pending-approval state otherwise; CheckPermission never blocks waiting for
// a human, since that arbitration belongs to the approval.Supervisor once
// the call reaches a shell-exec tool.
func (pc *PermissionChecker) CheckPermission(ctx context.Context, toolName string, params map[string]interface{}) error {
	switch pc.Decide(toolName) {
	case approval.DecisionAutoApprove:
		return nil
	case approval.DecisionAskUser:
		return fmt.Errorf("tool %q requires approval under the configured approval policy; approve it explicitly or add it to allowed_tools", toolName)
	default:
		return fmt.Errorf("tool %q is disabled or rejected by the configured approval policy", toolName)
	}
}

// Decide classifies a tool call into the same three-way outcome
// approval.AssessCommandSafety uses for shell-exec calls, so callers that
// want to surface a pending approval (rather than a hard error) can branch
// on DecisionKind directly.
func (pc *PermissionChecker) Decide(toolName string) approval.DecisionKind {
	if pc.disabledTools[toolName] {
		return approval.DecisionReject
	}
	if pc.allowedTools[toolName] {
		return approval.DecisionAutoApprove
	}
	if pc.policy == approval.ApprovalNever {
		return approval.DecisionReject
	}
	return approval.DecisionAskUser
}

// IsToolAllowed returns true if a tool is explicitly allowed (whitelist).
func (pc *PermissionChecker) IsToolAllowed(toolName string) bool {
	return pc.allowedTools[toolName]
}

// IsToolDisabled returns true if a tool is explicitly disabled (blacklist).
func (pc *PermissionChecker) IsToolDisabled(toolName string) bool {
	return pc.disabledTools[toolName]
}

// Policy returns the approval policy tool calls are gated under.
func (pc *PermissionChecker) Policy() approval.ApprovalPolicy {
	return pc.policy
}
