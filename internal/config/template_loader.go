package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/reconcile"
	"github.com/rajibrjb/AiResumeParserApi/internal/types"
)

// TemplateStore serves the default resume template. When a template file is
// configured it is loaded at startup and hot-reloaded on change; otherwise the
// built-in template is used. A reload that fails to parse keeps the previous
// template in place.
type TemplateStore struct {
	mu       sync.RWMutex
	file     string
	template map[string]any

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	stopChan      chan struct{}
	running       bool

	logger *errors.Logger
}

// NewTemplateStore creates a template store. file may be empty, in which case
// the built-in template is served and nothing is watched.
func NewTemplateStore(file string, logger *errors.Logger) (*TemplateStore, error) {
	ts := &TemplateStore{
		file:          file,
		template:      types.DefaultResumeTemplate(),
		debounceDelay: time.Second,
		stopChan:      make(chan struct{}),
		logger:        logger,
	}

	if file != "" {
		if err := ts.loadFromFile(); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// Get returns the current default template. Callers own the returned map.
func (ts *TemplateStore) Get() map[string]any {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return reconcile.Clone(ts.template).(map[string]any)
}

// Start begins watching the template file for changes. No-op when no file is
// configured.
func (ts *TemplateStore) Start() error {
	if ts.file == "" {
		return nil
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.running {
		return fmt.Errorf("template watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(ts.file); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch template file %s: %w", ts.file, err)
	}

	ts.fsWatcher = watcher
	ts.running = true
	go ts.watchLoop()

	if ts.logger != nil {
		ts.logger.Info("Template file watcher started", "file", ts.file)
	}
	return nil
}

// Stop terminates the watcher goroutine.
func (ts *TemplateStore) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.running {
		return
	}
	close(ts.stopChan)
	if ts.fsWatcher != nil {
		ts.fsWatcher.Close()
	}
	ts.running = false
}

func (ts *TemplateStore) watchLoop() {
	for {
		select {
		case event, ok := <-ts.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			ts.scheduleReload()
		case err, ok := <-ts.fsWatcher.Errors:
			if !ok {
				return
			}
			if ts.logger != nil {
				ts.logger.Warn("Template file watcher error", "error", err.Error())
			}
		case <-ts.stopChan:
			return
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (ts *TemplateStore) scheduleReload() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.debounceTimer != nil {
		ts.debounceTimer.Stop()
	}
	ts.debounceTimer = time.AfterFunc(ts.debounceDelay, func() {
		if err := ts.loadFromFile(); err != nil {
			if ts.logger != nil {
				ts.logger.LogError(err, "Template reload failed, keeping previous template", "file", ts.file)
			}
			return
		}
		if ts.logger != nil {
			ts.logger.Info("Default template reloaded", "file", ts.file)
		}
	})
}

func (ts *TemplateStore) loadFromFile() error {
	data, err := os.ReadFile(ts.file)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", ts.file, err)
	}

	var template map[string]any
	if err := json.Unmarshal(data, &template); err != nil {
		return fmt.Errorf("template file %s is not a JSON object: %w", ts.file, err)
	}
	if len(template) == 0 {
		return fmt.Errorf("template file %s contains no fields", ts.file)
	}

	ts.mu.Lock()
	ts.template = template
	ts.mu.Unlock()
	return nil
}
