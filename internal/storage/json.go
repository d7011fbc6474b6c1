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
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// jsonBackend is the default backend: one JSON file per record, under
// <home>/blueprints/ and <home>/slack_threads/ per spec.md §6.
type jsonBackend struct {
	root string
}

func newJSONBackend(root string) (*jsonBackend, error) {
	return &jsonBackend{root: root}, nil
}

func (b *jsonBackend) dir(kind Kind) string {
	switch kind {
	case KindThread:
		return filepath.Join(b.root, "slack_threads")
	default:
		return filepath.Join(b.root, "blueprints")
	}
}

// sanitizeID rejects ids that would escape the record's directory.
func sanitizeID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.Contains(id, "..") {
		return fmt.Errorf("storage: invalid record id %q", id)
	}
	return nil
}

func (b *jsonBackend) Save(_ context.Context, kind Kind, id string, data []byte) error {
	if err := sanitizeID(id); err != nil {
		return err
	}
	dir := b.dir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return nil
}

func (b *jsonBackend) Load(_ context.Context, kind Kind, id string) ([]byte, error) {
	if err := sanitizeID(id); err != nil {
		return nil, err
	}
	path := filepath.Join(b.dir(kind), id+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("storage: %w", os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: reading %s: %w", path, err)
	}
	return data, nil
}

func (b *jsonBackend) List(_ context.Context, kind Kind) ([]string, error) {
	dir := b.dir(kind)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: listing %s: %w", dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (b *jsonBackend) Close() error { return nil }
