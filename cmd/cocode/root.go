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
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/cocode/internal/version"
)

var (
	configDir      string
	workDir        string
	provider       string
	model          string
	approvalPolicy string
	sandboxPolicy  string
	networkAccess  bool
	logLevel       string
	logJSON        bool

	storageType string
	storageDSN  string

	anthropicKey  string
	openaiKey     string
	openaiBaseURL string
	geminiKey     string
	bedrockRegion string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "cocode",
	Short:   "cocode - a sandboxed coding-agent runtime",
	Version: version.Get(),
	Long: heredoc.Doc(`
		cocode drives a single coding-agent session: it resolves provider and
		model configuration, streams a turn against the configured model,
		dispatches any tool calls the model requests, and arbitrates
		shell-exec calls through a safety analyzer and an approval/sandbox
		supervisor before they ever touch the host.
	`),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".cocode")

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir, "directory of *.model.json / *.provider.json / app.json records")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", ".", "working directory for shell-exec and file tools")

	rootCmd.PersistentFlags().StringVar(&provider, "provider", "anthropic", "provider name (anthropic, bedrock, gemini, openai)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model slug to resolve from config-dir (defaults to the provider's app.json default_model)")

	rootCmd.PersistentFlags().StringVar(&approvalPolicy, "approval-policy", "on-request", "never|on-request|on-failure|unless-trusted")
	rootCmd.PersistentFlags().StringVar(&sandboxPolicy, "sandbox", "workspace-write", "danger-full-access|read-only|workspace-write")
	rootCmd.PersistentFlags().BoolVar(&networkAccess, "network-access", false, "allow network access from workspace-write sandboxed commands")

	rootCmd.PersistentFlags().StringVar(&anthropicKey, "anthropic-key", "", "Anthropic API key (or ANTHROPIC_API_KEY / OS keyring)")
	rootCmd.PersistentFlags().StringVar(&openaiKey, "openai-key", "", "OpenAI-compatible API key (or OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&openaiBaseURL, "openai-base-url", "", "OpenAI-compatible endpoint base URL")
	rootCmd.PersistentFlags().StringVar(&geminiKey, "gemini-key", "", "Gemini API key (or GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&bedrockRegion, "bedrock-region", "us-east-1", "AWS region for the Bedrock provider")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit structured JSON logs instead of console-formatted ones")

	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "json", "blueprint/thread persistence backend: json|postgres|mysql|sqlite")
	rootCmd.PersistentFlags().StringVar(&storageDSN, "storage-dsn", "", "data source name for postgres/mysql/sqlite storage backends")

	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("approval_policy", rootCmd.PersistentFlags().Lookup("approval-policy"))
	_ = viper.BindPFlag("sandbox", rootCmd.PersistentFlags().Lookup("sandbox"))
	viper.SetEnvPrefix("COCODE")
	viper.AutomaticEnv()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(blueprintCmd)
}

func initLogger() {
	cfg := zap.NewProductionConfig()
	if !logJSON {
		cfg = zap.NewDevelopmentConfig()
	}
	switch logLevel {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	built, err := cfg.Build()
	if err != nil {
		built = zap.NewNop()
	}
	logger = built
}
