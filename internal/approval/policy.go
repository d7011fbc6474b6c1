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

// Package approval arbitrates human approval for shell-exec calls, selects
// and launches the sandbox that runs them, and supervises the resulting
// foreground and background processes.
package approval

// ApprovalPolicy controls how often the supervisor prompts a human.
type ApprovalPolicy int

const (
	// ApprovalNever never prompts; any action that would need one fails.
	ApprovalNever ApprovalPolicy = iota
	// ApprovalOnRequest prompts only when the model explicitly escalates.
	ApprovalOnRequest
	// ApprovalOnFailure prompts after a sandbox denial.
	ApprovalOnFailure
	// ApprovalUnlessTrusted prompts except for an allow-listed command.
	ApprovalUnlessTrusted
)

// SandboxType is the concrete execution boundary a command runs under.
type SandboxType int

const (
	SandboxNone SandboxType = iota
	SandboxMacosSeatbelt
	SandboxLinuxSeccomp
)

func (s SandboxType) String() string {
	switch s {
	case SandboxMacosSeatbelt:
		return "macos_seatbelt"
	case SandboxLinuxSeccomp:
		return "linux_seccomp"
	default:
		return "none"
	}
}

// SandboxPolicyKind is the closed set of sandbox policies a session can run under.
type SandboxPolicyKind int

const (
	// SandboxDangerFullAccess disables all sandboxing and network restriction.
	SandboxDangerFullAccess SandboxPolicyKind = iota
	// SandboxReadOnly confines the filesystem to reads and disables network.
	SandboxReadOnly
	// SandboxWorkspaceWrite confines writes to a set of roots, network per flag.
	SandboxWorkspaceWrite
)

// SandboxPolicy is the resolved sandbox policy for a session.
type SandboxPolicy struct {
	Kind                SandboxPolicyKind
	WritableRoots       []string
	NetworkAccess       bool
	ExcludeTmpdirEnvVar bool
	ExcludeSlashTmp     bool
}

// Decision is the outcome of approval arbitration for one shell-exec call.
type Decision struct {
	Kind                   DecisionKind
	SandboxType            SandboxType
	UserExplicitlyApproved bool
	RejectReason           string
	NetworkDisabledEnv     bool
}

// DecisionKind distinguishes the three arbitration outcomes.
type DecisionKind int

const (
	DecisionAutoApprove DecisionKind = iota
	DecisionAskUser
	DecisionReject
)

// ReviewDecision is the user's response to an AskUser prompt.
type ReviewDecision int

const (
	ReviewApproved ReviewDecision = iota
	ReviewApprovedForSession
	ReviewDenied
	ReviewAbort
)

// platformSandbox picks the sandbox backend for the running OS via
// defaultPlatformSandbox; it is a variable so the selection can be replaced.
var platformSandbox = func() SandboxType {
	return defaultPlatformSandbox()
}

// AssessCommandSafety implements the §4.E.1 approval_policy × sandbox_policy
// matrix. withEscalatedPermissions is the model's request to bypass the
// normal sandbox for this one call.
func AssessCommandSafety(policy ApprovalPolicy, sandbox SandboxPolicy, sessionApprovedSet map[string]bool, command string, withEscalatedPermissions bool) Decision {
	if sandbox.Kind == SandboxDangerFullAccess {
		return Decision{Kind: DecisionAutoApprove, SandboxType: SandboxNone}
	}

	if sandbox.Kind == SandboxReadOnly {
		if !withEscalatedPermissions {
			return Decision{Kind: DecisionAutoApprove, SandboxType: platformSandbox(), NetworkDisabledEnv: true}
		}
		if sessionApprovedSet[command] {
			return Decision{Kind: DecisionAutoApprove, SandboxType: SandboxNone, UserExplicitlyApproved: true}
		}
		if policy == ApprovalNever {
			return Decision{Kind: DecisionReject, RejectReason: "policy disallows prompting"}
		}
		return Decision{Kind: DecisionAskUser}
	}

	// SandboxWorkspaceWrite
	if policy == ApprovalNever && withEscalatedPermissions {
		return Decision{Kind: DecisionReject, RejectReason: "policy disallows prompting"}
	}
	return Decision{
		Kind:               DecisionAutoApprove,
		SandboxType:        platformSandbox(),
		NetworkDisabledEnv: !sandbox.NetworkAccess,
	}
}

// ResolveEscalationApproval applies the user's ReviewDecision for an
// AskUser arbitration, updating the session's approved-command set when the
// decision is ApprovedForSession.
func ResolveEscalationApproval(decision ReviewDecision, command string, sessionApprovedSet map[string]bool) (approved bool) {
	switch decision {
	case ReviewApproved:
		return true
	case ReviewApprovedForSession:
		sessionApprovedSet[command] = true
		return true
	default:
		return false
	}
}
