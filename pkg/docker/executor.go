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
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/teradata-labs/cocode/pkg/observability"
	"go.uber.org/zap"
)

// Executor runs approved shell commands inside a Docker container instead of
// directly on the host. It backs the LinuxSeccomp sandbox type: rather than
// wiring true Linux seccomp-bpf syscall filters (nothing in this codebase's
// dependency set speaks that), isolation comes from the container boundary
// itself. A container created by EnsureContainer keeps running until
// RemoveContainer is called for it.
type Executor struct {
	client *client.Client
	logger *zap.Logger
	tracer observability.Tracer

	image string
}

// ExecutorConfig configures a Executor.
type ExecutorConfig struct {
	// DockerHost is the daemon endpoint. Empty means auto-detect
	// (DOCKER_HOST env var, falling back to the default Unix socket).
	DockerHost string

	// Image is the container image commands run in (e.g. "ubuntu:24.04").
	Image string

	Logger *zap.Logger
	Tracer observability.Tracer
}

// NewExecutor creates a Executor and verifies the Docker daemon is reachable.
func NewExecutor(ctx context.Context, cfg ExecutorConfig) (*Executor, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Image == "" {
		cfg.Image = "ubuntu:24.04"
	}
	host := cfg.DockerHost
	if host == "" {
		host = detectDockerHost()
	}

	cfg.Logger.Info("creating docker sandbox executor", zap.String("docker_host", host), zap.String("image", cfg.Image))

	dockerClient, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if _, err := dockerClient.Ping(ctx); err != nil {
		dockerClient.Close()
		return nil, fmt.Errorf("ping docker daemon: %w", err)
	}

	return &Executor{client: dockerClient, logger: cfg.Logger, tracer: cfg.Tracer, image: cfg.Image}, nil
}

func detectDockerHost() string {
	if h := os.Getenv("DOCKER_HOST"); h != "" {
		return h
	}
	return client.DefaultDockerHost
}

// EnsureContainer returns a running container for containerName, creating and
// starting one from e.image if it does not already exist. The caller (the
// session-scoped sandbox) is responsible for removing it when done.
func (e *Executor) EnsureContainer(ctx context.Context, containerName string, workDir string) (string, error) {
	inspect, err := e.client.ContainerInspect(ctx, containerName)
	if err == nil {
		if !inspect.State.Running {
			if err := e.client.ContainerStart(ctx, inspect.ID, container.StartOptions{}); err != nil {
				return "", fmt.Errorf("start existing container: %w", err)
			}
		}
		return inspect.ID, nil
	}

	if _, _, pullErr := e.client.ImageInspectWithRaw(ctx, e.image); pullErr != nil {
		reader, pullErr := e.client.ImagePull(ctx, e.image, image.PullOptions{})
		if pullErr != nil {
			return "", fmt.Errorf("pull image %s: %w", e.image, pullErr)
		}
		_, _ = io.Copy(io.Discard, reader)
		reader.Close()
	}

	resp, err := e.client.ContainerCreate(ctx, &container.Config{
		Image:      e.image,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: workDir,
		Tty:        false,
	}, &container.HostConfig{
		AutoRemove:  false,
		NetworkMode: "bridge",
	}, nil, nil, containerName)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}
	e.logger.Info("sandbox container started", zap.String("container_id", resp.ID), zap.String("name", containerName))
	return resp.ID, nil
}

// ExecResult is the outcome of running a command inside a sandbox container.
type ExecResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMs int64
}

// Exec runs command inside containerID and captures its output.
func (e *Executor) Exec(ctx context.Context, containerID string, command []string, env map[string]string, workingDir string) (*ExecResult, error) {
	start := time.Now()

	var span *observability.Span
	if e.tracer != nil {
		ctx, span = e.tracer.StartSpan(ctx, observability.SpanSandboxExec,
			observability.WithAttribute("container_id", containerID),
			observability.WithAttribute("command", strings.Join(command, " ")),
		)
		defer e.tracer.EndSpan(span)
	}

	envVars := make([]string, 0, len(env))
	for k, v := range env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", k, v))
	}

	execCfg := container.ExecOptions{
		Cmd:          command,
		Env:          envVars,
		WorkingDir:   workingDir,
		AttachStdout: true,
		AttachStderr: true,
	}
	execID, err := e.client.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return nil, fmt.Errorf("create exec: %w", err)
	}

	attachResp, err := e.client.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attachResp.Close()

	var stdoutBuf, stderrBuf strings.Builder
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, attachResp.Reader); err != nil && err != io.EOF {
		if span != nil {
			span.RecordError(err)
		}
		return nil, fmt.Errorf("read exec output: %w", err)
	}

	inspectResp, err := e.client.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec: %w", err)
	}

	return &ExecResult{
		Stdout:     stdoutBuf.String(),
		Stderr:     stderrBuf.String(),
		ExitCode:   inspectResp.ExitCode,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// RemoveContainer force-stops and removes containerID.
func (e *Executor) RemoveContainer(ctx context.Context, containerID string) error {
	return e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

// Close releases the underlying Docker client connection.
func (e *Executor) Close() error {
	return e.client.Close()
}
