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
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AppConfig is the merged contents of app.json / config.json.
type AppConfig struct {
	DefaultProvider string          `json:"default_provider,omitempty"`
	DefaultModel    string          `json:"default_model,omitempty"`
	Logging         LoggingConfig   `json:"logging,omitempty"`
	Docker          DockerConfig    `json:"docker,omitempty"`
	Scheduler       SchedulerConfig `json:"scheduler,omitempty"`
}

// LoggingConfig, DockerConfig, and SchedulerConfig are ambient sub-config
// groups that SPEC_FULL.md adds alongside the spec's app_config, not in
// place of it.
type LoggingConfig struct {
	Level string `json:"level,omitempty"`
	JSON  bool   `json:"json,omitempty"`
}

type DockerConfig struct {
	Image         string `json:"image,omitempty"`
	ContainerName string `json:"container_name,omitempty"`
}

type SchedulerConfig struct {
	ModelsCacheTTLSeconds int `json:"models_cache_ttl_seconds,omitempty"`
}

// Store holds the discovered-and-merged raw records for a root directory,
// prior to resolution against a specific provider/model pair.
type Store struct {
	Root      string
	Models    map[string]ModelRecord
	Providers map[string]ProviderRecord
	App       AppConfig
}

// Load scans root for *model.json / *provider.json files (lexicographic
// discovery order) plus app.json / config.json, and merges them into a
// Store. A missing root, missing files, or empty files are not errors and
// yield defaults; a present file that fails to parse is fatal. Duplicate
// slugs/names across files are fatal, reporting both source paths.
func Load(root string) (*Store, error) {
	store := &Store{
		Root:      root,
		Models:    map[string]ModelRecord{},
		Providers: map[string]ProviderRecord{},
	}

	entries, err := listFiles(root)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	modelSource := map[string]string{}
	providerSource := map[string]string{}

	for _, name := range entries {
		full := filepath.Join(root, name)
		switch {
		case strings.HasSuffix(name, "model.json"):
			var rec ModelRecord
			if err := parseJSONC(full, &rec); err != nil {
				return nil, err
			}
			if rec.Slug == "" {
				continue
			}
			if prior, ok := modelSource[rec.Slug]; ok {
				return nil, fmt.Errorf("duplicate model slug %q in %s and %s", rec.Slug, prior, full)
			}
			modelSource[rec.Slug] = full
			store.Models[rec.Slug] = rec

		case strings.HasSuffix(name, "provider.json"):
			var rec ProviderRecord
			if err := parseJSONC(full, &rec); err != nil {
				return nil, err
			}
			if rec.Name == "" {
				continue
			}
			if prior, ok := providerSource[rec.Name]; ok {
				return nil, fmt.Errorf("duplicate provider name %q in %s and %s", rec.Name, prior, full)
			}
			providerSource[rec.Name] = full
			store.Providers[rec.Name] = rec

		case name == "app.json" || name == "config.json":
			var app AppConfig
			if err := parseJSONC(full, &app); err != nil {
				return nil, err
			}
			store.App = app
		}
	}

	return store, nil
}

// listFiles returns the lexicographically sorted file names directly in
// root (discovery order is by suffix match, not a full filename, so e.g.
// "claude-model.json" and "gpt-model.json" both qualify).
func listFiles(root string) ([]string, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
