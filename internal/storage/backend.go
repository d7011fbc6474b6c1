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

// Package storage persists the two record kinds named in the external
// interfaces (blueprints and per-thread history) behind a small backend
// interface, mirroring the config store's env/host-resolved-path story.
package storage

import (
	"context"
	"fmt"
)

// Kind distinguishes the two persisted record families.
type Kind string

const (
	KindBlueprint Kind = "blueprint"
	KindThread    Kind = "thread"
)

// Backend persists opaque JSON blobs keyed by (kind, id). Implementations
// must be safe for concurrent use.
type Backend interface {
	Save(ctx context.Context, kind Kind, id string, data []byte) error
	Load(ctx context.Context, kind Kind, id string) ([]byte, error)
	List(ctx context.Context, kind Kind) ([]string, error)
	Close() error
}

// Config selects and parameterizes a Backend. Type defaults to "json" (the
// literal spec.md §6 behavior: one JSON file per record under <home>).
type Config struct {
	Type string // "json" | "postgres" | "mysql" | "sqlite"
	Root string // <home> directory; required for Type == "json"
	DSN  string // driver-specific data source name; required for SQL backends
}

// NewBackend constructs the configured Backend.
func NewBackend(cfg Config) (Backend, error) {
	switch cfg.Type {
	case "", "json":
		if cfg.Root == "" {
			return nil, fmt.Errorf("storage: json backend requires Root")
		}
		return newJSONBackend(cfg.Root)
	case "postgres", "mysql", "sqlite":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage: %s backend requires DSN", cfg.Type)
		}
		return newSQLBackend(cfg.Type, cfg.DSN)
	default:
		return nil, fmt.Errorf("storage: unknown backend type %q (supported: json, postgres, mysql, sqlite)", cfg.Type)
	}
}
