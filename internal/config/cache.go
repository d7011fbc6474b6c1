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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// defaultModelsCacheTTLSeconds is used when AppConfig.Scheduler doesn't
// specify one.
const defaultModelsCacheTTLSeconds = 300

// FetchModelsFunc fetches the current upstream model catalog, typically via
// an HTTP call to a provider's model-listing endpoint.
type FetchModelsFunc func(ctx context.Context) ([]ModelRecord, error)

// ModelsRefresher periodically refreshes models_cache.json under a root
// directory on a cron schedule. It does not itself know how to fetch
// models; the caller supplies that via FetchModelsFunc, and this type owns
// only the on-disk cache file and the schedule that refreshes it.
type ModelsRefresher struct {
	root   string
	fetch  FetchModelsFunc
	ttl    time.Duration
	logger *zap.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// NewModelsRefresher creates a refresher for root's models_cache.json. A
// ttlSeconds of 0 falls back to defaultModelsCacheTTLSeconds.
func NewModelsRefresher(root string, ttlSeconds int, fetch FetchModelsFunc, logger *zap.Logger) *ModelsRefresher {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultModelsCacheTTLSeconds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelsRefresher{
		root:   root,
		fetch:  fetch,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: logger,
		cron:   cron.New(),
	}
}

// cachePath returns the models_cache.json path under root.
func (r *ModelsRefresher) cachePath() string {
	return filepath.Join(r.root, "models_cache.json")
}

// Start schedules a refresh every ttl and runs one immediately.
func (r *ModelsRefresher) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", r.ttl)
	entryID, err := r.cron.AddFunc(spec, func() {
		if err := r.refreshOnce(ctx); err != nil {
			r.logger.Warn("models cache refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling models cache refresh: %w", err)
	}
	r.entryID = entryID
	r.cron.Start()

	if err := r.refreshOnce(ctx); err != nil {
		r.logger.Warn("initial models cache refresh failed", zap.Error(err))
	}
	return nil
}

func (r *ModelsRefresher) refreshOnce(ctx context.Context) error {
	models, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.cachePath(), data, 0o644)
}

// Stop removes the scheduled job and waits for the cron engine to drain.
func (r *ModelsRefresher) Stop() {
	r.cron.Remove(r.entryID)
	ctx := r.cron.Stop()
	<-ctx.Done()
}
