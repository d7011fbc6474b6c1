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
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/cocode/internal/approval"
	"github.com/teradata-labs/cocode/internal/config"
	"github.com/teradata-labs/cocode/internal/llm"
	llmanthropic "github.com/teradata-labs/cocode/internal/llm/anthropic"
	llmbedrock "github.com/teradata-labs/cocode/internal/llm/bedrock"
	llmgemini "github.com/teradata-labs/cocode/internal/llm/gemini"
	llmopenai "github.com/teradata-labs/cocode/internal/llm/openai"
	"github.com/teradata-labs/cocode/internal/storage"
	"github.com/teradata-labs/cocode/internal/turn"
	"github.com/teradata-labs/cocode/pkg/docker"
	pkganthropic "github.com/teradata-labs/cocode/pkg/llm/anthropic"
	pkgbedrock "github.com/teradata-labs/cocode/pkg/llm/bedrock"
	pkggemini "github.com/teradata-labs/cocode/pkg/llm/gemini"
	pkgopenai "github.com/teradata-labs/cocode/pkg/llm/openai"
	"github.com/teradata-labs/cocode/pkg/shuttle"
	"github.com/teradata-labs/cocode/pkg/shuttle/builtin"
)

var (
	dockerImage     string
	saveBlueprintID string
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "run a single turn to completion against the configured model",
	Args:  cobra.ArbitraryArgs,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&dockerImage, "docker-image", "", "image to run sandboxed commands in (required for read-only/workspace-write sandboxes on Linux)")
	runCmd.Flags().StringVar(&saveBlueprintID, "save-blueprint", "", "persist the completed turn's conversation as a blueprint record under this id")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil || len(data) == 0 {
			return fmt.Errorf("no prompt given: pass it as an argument or pipe it on stdin")
		}
		prompt = string(data)
	}

	store, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configDir, err)
	}
	ensureProviderRecord(store)

	modelSlug := model
	if modelSlug == "" {
		modelSlug = store.App.DefaultModel
	}
	if modelSlug == "" {
		modelSlug = defaultModelSlug(provider)
	}

	resolvedProvider, err := store.ResolveProvider(provider)
	if err != nil {
		return fmt.Errorf("resolving provider %s: %w", provider, err)
	}

	adapter, err := buildAdapter(provider, resolvedProvider, modelSlug)
	if err != nil {
		return err
	}
	llmClient := llm.NewClient(adapter, llm.DefaultRetryPolicy(), logger)

	registry := shuttle.NewRegistry()
	registry.Register(builtin.NewFileReadTool(workDir))
	registry.Register(builtin.NewFileWriteTool(workDir))
	registry.Register(builtin.NewApplyPatchTool(workDir))
	registry.Register(builtin.NewShellExecuteTool(workDir))

	apprPolicy, err := parseApprovalPolicy(approvalPolicy)
	if err != nil {
		return err
	}
	sbxPolicy, err := parseSandboxPolicy(sandboxPolicy, networkAccess)
	if err != nil {
		return err
	}

	var dockerExec *docker.Executor
	if sbxPolicy.Kind != approval.SandboxDangerFullAccess {
		dockerExec, err = newDockerExecutor(cmd.Context(), dockerImage)
		if err != nil {
			logger.Warn("continuing without a sandboxed docker executor; sandboxed shell-exec calls will fail", zap.Error(err))
		}
	}

	loop := turn.NewLoop(turn.Options{
		Registry:        registry,
		LLMClient:       llmClient,
		Store:           store,
		Supervisor:      approval.NewSupervisor(logger),
		SandboxLauncher: approval.NewSandboxLauncher(dockerExec, "", workDir),
		ApprovalPolicy:  apprPolicy,
		SandboxPolicy:   sbxPolicy,
		Provider:        provider,
		Model:           modelSlug,
		Features:        map[string]bool{},
		Logger:          logger,
	})

	unsub := subscribeAndPrint(loop)
	defer unsub()

	if err := loop.RunTurn(cmd.Context(), "", prompt); err != nil {
		return err
	}

	if saveBlueprintID != "" {
		if err := saveBlueprint(cmd.Context(), saveBlueprintID, loop.Conversation.Items()); err != nil {
			logger.Warn("failed to save blueprint", zap.String("id", saveBlueprintID), zap.Error(err))
		}
	}

	for _, item := range loop.Conversation.Items() {
		if item.Kind == turn.ItemAssistantMessage && item.Content != "" {
			fmt.Println(item.Content)
		}
	}
	return nil
}

// subscribeAndPrint mirrors tool-call and exec lifecycle events to stderr so
// a terminal user sees activity while the assistant's own text streams to
// stdout via EventAssistantDelta.
func subscribeAndPrint(loop *turn.Loop) func() {
	ch, unsubscribe := loop.Bus.Subscribe()
	go func() {
		for e := range ch {
			switch e.Kind {
			case turn.EventAssistantDelta:
				fmt.Print(e.Text)
			case turn.EventToolCallStart:
				fmt.Fprintf(os.Stderr, "\n[tool] %s (%s)\n", e.ToolName, e.ToolCallID)
			case turn.EventExecCommandBegin:
				fmt.Fprintf(os.Stderr, "[exec] %s\n", e.Command)
			case turn.EventExecCommandEnd:
				if e.ExitCode != nil {
					fmt.Fprintf(os.Stderr, "[exec] exit=%d\n", *e.ExitCode)
				}
			case turn.EventExecApprovalRequest:
				fmt.Fprintf(os.Stderr, "[approval] requires review: %s\n", e.Command)
			}
		}
	}()
	return unsubscribe
}

// ensureProviderRecord synthesizes a config.ProviderRecord from CLI flags
// when config-dir has no *.provider.json for the --provider name, so the
// CLI works unattended without a config directory present.
func ensureProviderRecord(store *config.Store) {
	if _, ok := store.Providers[provider]; ok {
		return
	}
	switch provider {
	case "anthropic":
		store.Providers[provider] = config.ProviderRecord{Name: provider, EnvVar: "ANTHROPIC_API_KEY", InlineAPIKey: anthropicKey}
	case "openai":
		store.Providers[provider] = config.ProviderRecord{Name: provider, EnvVar: "OPENAI_API_KEY", InlineAPIKey: openaiKey, BaseURL: openaiBaseURL}
	case "gemini":
		store.Providers[provider] = config.ProviderRecord{Name: provider, EnvVar: "GEMINI_API_KEY", InlineAPIKey: geminiKey}
	case "bedrock":
		store.Providers[provider] = config.ProviderRecord{Name: provider, EnvVar: "AWS_ACCESS_KEY_ID", InlineAPIKey: "iam"}
	}
}

func defaultModelSlug(providerName string) string {
	switch providerName {
	case "anthropic":
		return "claude-sonnet-4-5-20250929"
	case "openai":
		return "gpt-4o"
	case "gemini":
		return "gemini-2.5-flash"
	case "bedrock":
		return "anthropic.claude-3-5-sonnet-20241022-v2:0"
	default:
		return ""
	}
}

func buildAdapter(providerName string, resolved config.ResolvedProvider, modelSlug string) (interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Response, error)
	Stream(ctx context.Context, req llm.Request, stream *llm.UnifiedStream) error
}, error) {
	switch providerName {
	case "anthropic":
		client := pkganthropic.NewClient(pkganthropic.Config{APIKey: resolved.APIKey, Model: modelSlug})
		return llmanthropic.New(client), nil
	case "openai":
		client := pkgopenai.NewClient(pkgopenai.Config{APIKey: resolved.APIKey, Model: modelSlug, Endpoint: resolved.BaseURL})
		return llmopenai.New(client), nil
	case "gemini":
		client := pkggemini.NewClient(pkggemini.Config{APIKey: resolved.APIKey, Model: modelSlug})
		return llmgemini.New(client), nil
	case "bedrock":
		client, err := pkgbedrock.NewClient(pkgbedrock.Config{Region: bedrockRegion, ModelID: modelSlug})
		if err != nil {
			return nil, fmt.Errorf("constructing bedrock client: %w", err)
		}
		return llmbedrock.New(client), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
}

func parseApprovalPolicy(s string) (approval.ApprovalPolicy, error) {
	switch s {
	case "never":
		return approval.ApprovalNever, nil
	case "on-request":
		return approval.ApprovalOnRequest, nil
	case "on-failure":
		return approval.ApprovalOnFailure, nil
	case "unless-trusted":
		return approval.ApprovalUnlessTrusted, nil
	default:
		return 0, fmt.Errorf("unknown approval policy %q", s)
	}
}

func parseSandboxPolicy(s string, networkAccess bool) (approval.SandboxPolicy, error) {
	switch s {
	case "danger-full-access":
		return approval.SandboxPolicy{Kind: approval.SandboxDangerFullAccess}, nil
	case "read-only":
		return approval.SandboxPolicy{Kind: approval.SandboxReadOnly}, nil
	case "workspace-write":
		return approval.SandboxPolicy{Kind: approval.SandboxWorkspaceWrite, WritableRoots: []string{workDir}, NetworkAccess: networkAccess}, nil
	default:
		return approval.SandboxPolicy{}, fmt.Errorf("unknown sandbox policy %q", s)
	}
}

func newDockerExecutor(ctx context.Context, image string) (*docker.Executor, error) {
	return docker.NewExecutor(ctx, docker.ExecutorConfig{Image: image, Logger: logger})
}

// saveBlueprint persists a completed turn's conversation items as an
// execution-plan record (spec.md §6's <home>/blueprints/<id>.json).
func saveBlueprint(ctx context.Context, id string, items []turn.Item) error {
	backend, err := storage.NewBackend(storage.Config{Type: storageType, Root: configDir, DSN: storageDSN})
	if err != nil {
		return fmt.Errorf("opening storage backend: %w", err)
	}
	defer backend.Close()

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling conversation: %w", err)
	}
	return backend.Save(ctx, storage.KindBlueprint, id, data)
}
