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
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/cocode/pkg/shuttle"
)

const (
	// DefaultShellTimeout is the default execution timeout (5 minutes).
	DefaultShellTimeout = 300

	// MaxShellTimeout is the maximum allowed timeout (10 minutes).
	MaxShellTimeout = 600

	// DefaultMaxOutputBytes limits output size to prevent memory issues (1MB).
	DefaultMaxOutputBytes = 1024 * 1024
)

// ShellExecuteTool runs shell commands on the local system with a bounded
// timeout, capped output, and filtered environment. The safety analyzer and
// approval supervisor decide whether a given invocation runs at all; this
// tool only handles the mechanics of actually running it.
type ShellExecuteTool struct {
	baseDir string
}

// NewShellExecuteTool creates a shell execution tool. If baseDir is empty,
// uses the current working directory.
func NewShellExecuteTool(baseDir string) *ShellExecuteTool {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &ShellExecuteTool{baseDir: baseDir}
}

func (t *ShellExecuteTool) Name() string { return "shell_execute" }

func (t *ShellExecuteTool) Description() string {
	return `Executes shell commands on the local system with real-time output capture.
Supports bash/sh on Unix and PowerShell/cmd on Windows.

Use this tool to run build commands, tests, linters, and other local automation.`
}

func (t *ShellExecuteTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for shell command execution",
		map[string]*shuttle.JSONSchema{
			"command":     shuttle.NewStringSchema("Shell command to execute (required)"),
			"working_dir": shuttle.NewStringSchema("Working directory for command execution (default: current directory)"),
			"env":         shuttle.NewObjectSchema("Environment variables to set (merged with system environment)", nil, nil),
			"timeout_seconds": shuttle.NewNumberSchema("Maximum execution time in seconds (default: 300, max: 600)").
				WithDefault(DefaultShellTimeout).
				WithRange(floatPtr(1), floatPtr(MaxShellTimeout)),
			"shell": shuttle.NewStringSchema("Shell to use (default: auto-detect, bash/sh on Unix, powershell/cmd on Windows)").
				WithEnum("default", "bash", "sh", "powershell", "cmd").
				WithDefault("default"),
			"max_output_bytes": shuttle.NewNumberSchema("Maximum output size in bytes (default: 1048576 = 1MB)").
				WithDefault(DefaultMaxOutputBytes),
		},
		[]string{"command"},
	)
}

func (t *ShellExecuteTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	command, ok := params["command"].(string)
	if !ok || command == "" {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "command is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	workingDir := t.baseDir
	if wd, ok := params["working_dir"].(string); ok && wd != "" {
		workingDir = wd
	}

	timeoutSeconds := DefaultShellTimeout
	if ts, ok := params["timeout_seconds"].(float64); ok {
		timeoutSeconds = int(ts)
		if timeoutSeconds < 1 {
			timeoutSeconds = 1
		}
		if timeoutSeconds > MaxShellTimeout {
			timeoutSeconds = MaxShellTimeout
		}
	}

	shellType := "default"
	if st, ok := params["shell"].(string); ok && st != "" {
		shellType = st
	}

	maxOutputBytes := int64(DefaultMaxOutputBytes)
	if mob, ok := params["max_output_bytes"].(float64); ok && mob > 0 {
		maxOutputBytes = int64(mob)
	}

	envVars := make(map[string]string)
	if env, ok := params["env"].(map[string]interface{}); ok {
		for k, v := range env {
			if vStr, ok := v.(string); ok {
				envVars[k] = vStr
			}
		}
	}

	cleanWorkingDir, err := resolveWorkingDir(workingDir, t.baseDir)
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "INVALID_WORKDIR", Message: fmt.Sprintf("invalid working directory: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if isBlockedWorkingDir(cleanWorkingDir) {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "UNSAFE_PATH", Message: fmt.Sprintf("cannot execute commands in system directory: %s", cleanWorkingDir)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	shellBinary, shellArgs, actualShellType, err := detectShell(shellType, command)
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "SHELL_NOT_FOUND", Message: fmt.Sprintf("shell not found: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	cmd := exec.Command(shellBinary, shellArgs...)
	cmd.Dir = cleanWorkingDir
	cmd.Env = os.Environ()
	for k, v := range filterSensitiveEnvVars(envVars) {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "EXECUTION_FAILED", Message: fmt.Sprintf("failed to create stdout pipe: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "EXECUTION_FAILED", Message: fmt.Sprintf("failed to create stderr pipe: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if err := cmd.Start(); err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "EXECUTION_FAILED", Message: fmt.Sprintf("failed to start command: %v", err)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	var stdoutLines, stderrLines []string
	var outputBytes int64
	var outputErr error
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	collect := func(r *bufio.Scanner, dst *[]string) {
		defer wg.Done()
		buf := make([]byte, 64*1024)
		r.Buffer(buf, 1024*1024)
		for r.Scan() {
			line := r.Text()
			mu.Lock()
			outputBytes += int64(len(line)) + 1
			if outputBytes > maxOutputBytes {
				outputErr = fmt.Errorf("output exceeded maximum size (%d bytes)", maxOutputBytes)
				mu.Unlock()
				break
			}
			*dst = append(*dst, line)
			mu.Unlock()
		}
	}
	go collect(bufio.NewScanner(stdoutPipe), &stdoutLines)
	go collect(bufio.NewScanner(stderrPipe), &stderrLines)

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	timedOut := false
	timer := time.NewTimer(time.Duration(timeoutSeconds) * time.Second)
	defer timer.Stop()

	kill := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		select {
		case waitErr = <-waitDone:
		case <-time.After(500 * time.Millisecond):
		}
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	select {
	case waitErr = <-waitDone:
		wg.Wait()
	case <-timer.C:
		timedOut = true
		kill()
	case <-ctx.Done():
		timedOut = true
		kill()
	}

	if outputErr != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return &shuttle.Result{
			Success:         false,
			Error:           &shuttle.Error{Code: "OUTPUT_OVERFLOW", Message: outputErr.Error(), Suggestion: "increase max_output_bytes or reduce command output"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	exitCode := 0
	if !timedOut && waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return &shuttle.Result{
				Success:         false,
				Error:           &shuttle.Error{Code: "EXECUTION_FAILED", Message: fmt.Sprintf("command execution error: %v", waitErr)},
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	if timedOut {
		return &shuttle.Result{
			Success: false,
			Error:   &shuttle.Error{Code: "TIMEOUT", Message: fmt.Sprintf("command execution timeout after %d seconds", timeoutSeconds)},
			Data: map[string]interface{}{
				"stdout": strings.Join(stdoutLines, "\n"), "stderr": strings.Join(stderrLines, "\n"),
				"exit_code": -1, "shell": actualShellType, "working_dir": cleanWorkingDir, "timed_out": true,
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	success := exitCode == 0
	result := &shuttle.Result{
		Success: success,
		Data: map[string]interface{}{
			"stdout": strings.Join(stdoutLines, "\n"), "stderr": strings.Join(stderrLines, "\n"),
			"exit_code": exitCode, "shell": actualShellType, "working_dir": cleanWorkingDir, "timed_out": false,
		},
		Metadata: map[string]interface{}{
			"command": sanitizeCommandForTracing(command), "shell_type": actualShellType,
			"shell_os": runtime.GOOS, "output_bytes": outputBytes, "exit_code": exitCode,
		},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
	if !success {
		result.Error = &shuttle.Error{Code: "EXIT_ERROR", Message: fmt.Sprintf("command exited with code %d", exitCode), Retryable: true}
	}
	return result, nil
}

func (t *ShellExecuteTool) Backend() string { return "" }

func detectShell(shellType, command string) (binary string, args []string, actualType string, err error) {
	switch shellType {
	case "bash":
		if binary, err = exec.LookPath("bash"); err != nil {
			return "", nil, "", fmt.Errorf("bash not found")
		}
		return binary, []string{"-c", command}, "bash", nil
	case "sh":
		if binary, err = exec.LookPath("sh"); err != nil {
			return "", nil, "", fmt.Errorf("sh not found")
		}
		return binary, []string{"-c", command}, "sh", nil
	case "powershell":
		if binary, err = exec.LookPath("powershell.exe"); err != nil {
			binary, err = exec.LookPath("powershell")
		}
		if err != nil {
			return "", nil, "", fmt.Errorf("powershell not found")
		}
		return binary, []string{"-NoProfile", "-NonInteractive", "-Command", command}, "powershell", nil
	case "cmd":
		if binary, err = exec.LookPath("cmd.exe"); err != nil {
			binary, err = exec.LookPath("cmd")
		}
		if err != nil {
			return "", nil, "", fmt.Errorf("cmd not found")
		}
		return binary, []string{"/C", command}, "cmd", nil
	case "default":
		switch runtime.GOOS {
		case "windows":
			if binary, err = exec.LookPath("powershell.exe"); err == nil {
				return binary, []string{"-NoProfile", "-NonInteractive", "-Command", command}, "powershell", nil
			}
			if binary, err = exec.LookPath("cmd.exe"); err == nil {
				return binary, []string{"/C", command}, "cmd", nil
			}
			return "", nil, "", fmt.Errorf("no shell found (tried powershell, cmd)")
		default:
			if binary, err = exec.LookPath("bash"); err == nil {
				return binary, []string{"-c", command}, "bash", nil
			}
			if binary, err = exec.LookPath("sh"); err == nil {
				return binary, []string{"-c", command}, "sh", nil
			}
			return "", nil, "", fmt.Errorf("no shell found (tried bash, sh)")
		}
	default:
		return "", nil, "", fmt.Errorf("unknown shell type: %s", shellType)
	}
}

func resolveWorkingDir(workingDir, baseDir string) (string, error) {
	if workingDir == "" {
		return baseDir, nil
	}
	cleanDir := filepath.Clean(workingDir)
	if !filepath.IsAbs(cleanDir) {
		cleanDir = filepath.Join(baseDir, cleanDir)
	}
	info, err := os.Stat(cleanDir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("directory does not exist: %s", cleanDir)
	}
	if err != nil {
		return "", fmt.Errorf("cannot access directory: %v", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", cleanDir)
	}
	return cleanDir, nil
}

func isBlockedWorkingDir(path string) bool {
	blockedDirs := []string{
		"/etc", "/bin", "/sbin", "/boot", "/sys", "/proc",
		"/private/etc", "/System", "/Library",
		`C:\Windows\System32`, `C:\Windows\SysWOW64`, `C:\Windows\WinSxS`,
	}
	cleanPath := filepath.Clean(path)
	for _, blocked := range blockedDirs {
		if cleanPath == blocked || strings.HasPrefix(cleanPath, blocked+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func filterSensitiveEnvVars(envVars map[string]string) map[string]string {
	blockedVars := map[string]bool{
		"AWS_SECRET_ACCESS_KEY": true, "AWS_SESSION_TOKEN": true, "GITHUB_TOKEN": true,
		"ANTHROPIC_API_KEY": true, "OPENAI_API_KEY": true, "DATABASE_PASSWORD": true,
		"DB_PASSWORD": true, "DB_PASS": true, "MYSQL_PASSWORD": true, "POSTGRES_PASSWORD": true,
	}
	filtered := make(map[string]string)
	for k, v := range envVars {
		keyUpper := strings.ToUpper(k)
		if !blockedVars[keyUpper] && !strings.Contains(keyUpper, "SECRET") && !strings.Contains(keyUpper, "PASSWORD") {
			filtered[k] = v
		}
	}
	return filtered
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key)[=\s:]+[^\s'";]+`),
	regexp.MustCompile(`(?i)(password)[=\s:]+[^\s'";]+`),
	regexp.MustCompile(`(?i)(token)[=\s:]+[^\s'";]+`),
	regexp.MustCompile(`(?i)(secret)[=\s:]+[^\s'";]+`),
	regexp.MustCompile(`(?i)(key)[=\s:]+[^\s'";]+`),
}

func sanitizeCommandForTracing(command string) string {
	sanitized := command
	for _, pattern := range secretPatterns {
		sanitized = pattern.ReplaceAllString(sanitized, "***")
	}
	if len(sanitized) > 200 {
		return sanitized[:197] + "..."
	}
	return sanitized
}

func floatPtr(i int) *float64 {
	f := float64(i)
	return &f
}
