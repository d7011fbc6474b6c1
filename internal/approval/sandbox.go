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
package approval

import (
	"context"
	"fmt"
	"runtime"

	"github.com/teradata-labs/cocode/pkg/docker"
)

// defaultPlatformSandbox picks the sandbox backend for the host OS. Darwin
// would use the Seatbelt profile; everywhere else falls back to the
// Docker-backed LinuxSeccomp boundary, since this codebase carries no direct
// seccomp-bpf binding.
func defaultPlatformSandbox() SandboxType {
	if runtime.GOOS == "darwin" {
		return SandboxMacosSeatbelt
	}
	return SandboxLinuxSeccomp
}

// SandboxLauncher starts a sandboxed command under the SandboxType chosen by
// AssessCommandSafety. SandboxNone runs directly on the host; SandboxLinuxSeccomp
// runs inside a per-session Docker container; SandboxMacosSeatbelt is not
// implemented by this backend and Run returns an error for it.
type SandboxLauncher struct {
	dockerExec    *docker.Executor
	containerName string
	workDir       string
}

// NewSandboxLauncher wires dockerExec as the LinuxSeccomp execution boundary
// for one session. dockerExec may be nil if the session's sandbox policy
// never resolves to SandboxLinuxSeccomp (e.g. DangerFullAccess only).
func NewSandboxLauncher(dockerExec *docker.Executor, containerName, workDir string) *SandboxLauncher {
	return &SandboxLauncher{dockerExec: dockerExec, containerName: containerName, workDir: workDir}
}

// Run executes command under the given sandbox type and returns its result.
func (l *SandboxLauncher) Run(ctx context.Context, sandboxType SandboxType, command []string, env map[string]string) (*docker.ExecResult, error) {
	switch sandboxType {
	case SandboxNone:
		return l.runHost(ctx, command, env)
	case SandboxLinuxSeccomp:
		if l.dockerExec == nil {
			return nil, fmt.Errorf("linux seccomp sandbox requested but no docker executor configured")
		}
		containerID, err := l.dockerExec.EnsureContainer(ctx, l.containerName, l.workDir)
		if err != nil {
			return nil, fmt.Errorf("ensure sandbox container: %w", err)
		}
		return l.dockerExec.Exec(ctx, containerID, command, env, l.workDir)
	case SandboxMacosSeatbelt:
		return nil, fmt.Errorf("macos seatbelt sandbox is not available on this runner")
	default:
		return nil, fmt.Errorf("unknown sandbox type: %v", sandboxType)
	}
}

// runHost runs command directly on the host with no sandbox boundary,
// used for SandboxNone (DangerFullAccess, or an approved escalation).
func (l *SandboxLauncher) runHost(ctx context.Context, command []string, env map[string]string) (*docker.ExecResult, error) {
	return runLocal(ctx, command, env, l.workDir)
}
