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
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher debounces filesystem changes under a root directory and marks a
// reload as pending; the session loop decides when it's safe to actually
// reload (never mid-stream, only at a turn boundary) by calling
// ReloadIfPending.
type Watcher struct {
	root       string
	debounceMs int
	logger     *zap.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
	timer   *time.Timer

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a Watcher over root. debounceMs of 0 defaults to 500ms,
// matching the teacher's pattern hot-reloader.
func NewWatcher(root string, debounceMs int, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounceMs == 0 {
		debounceMs = 500
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		root:       root,
		debounceMs: debounceMs,
		logger:     logger,
		fsw:        fsw,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevantConfigFile(event.Name) {
				continue
			}
			w.debounce()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.stopCh:
			return
		}
	}
}

func relevantConfigFile(name string) bool {
	base := name
	return strings.HasSuffix(base, "model.json") ||
		strings.HasSuffix(base, "provider.json") ||
		strings.HasSuffix(base, "app.json") ||
		strings.HasSuffix(base, "config.json")
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(time.Duration(w.debounceMs)*time.Millisecond, func() {
		w.mu.Lock()
		w.pending = true
		w.mu.Unlock()
	})
}

// ReloadIfPending reloads the Store from disk if a debounced change has
// settled since the last call, returning the fresh Store (or nil if no
// reload was due). Callers must invoke this only at a turn boundary.
func (w *Watcher) ReloadIfPending() (*Store, error) {
	w.mu.Lock()
	due := w.pending
	w.pending = false
	w.mu.Unlock()
	if !due {
		return nil, nil
	}
	store, err := Load(w.root)
	if err != nil {
		w.logger.Warn("config reload failed", zap.Error(err))
		return nil, err
	}
	return store, nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fsw.Close()
}
