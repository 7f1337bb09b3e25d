package config

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	gLock   sync.RWMutex
	gConfig *Config
)

// FromFile reads a YAML file over the defaults. Unknown keys are errors. The
// result is not validated; callers apply flags first.
func FromFile(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parsing %v", path)
	}
	log.Debugf("Loaded configuration: %v", spew.Sdump(config))
	return config, nil
}

// Get returns the current configuration.
func Get() *Config {
	gLock.RLock()
	defer gLock.RUnlock()
	return gConfig
}

// Set replaces the current configuration.
func Set(c *Config) {
	gLock.Lock()
	defer gLock.Unlock()
	gConfig = c
}

// Load reads and validates path into the current configuration.
func Load(path string) (*Config, error) {
	config, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %v", path)
	}
	Set(config)
	return config, nil
}

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-watcher.Events:
	}
	// Editors often write in several steps.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

// Watch reloads path whenever it changes until ctx is done. modify is
// applied to each reloaded config before it becomes current, so command line
// overrides survive a reload. Invalid files are logged and ignored.
func Watch(ctx context.Context, path string, modify func(*Config)) {
	for ctx.Err() == nil {
		if err := waitForChange(ctx, path); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("Error waiting for file change: %v", err)
			// The file may be mid-replace; retry shortly.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		config, err := FromFile(path)
		if err != nil {
			log.Errorf("Failed to load new config: %v", err)
			continue
		}
		if modify != nil {
			modify(config)
		}
		if err := config.Validate(); err != nil {
			log.Errorf("Reloaded config is invalid: %v", err)
			continue
		}
		Set(config)
		log.Infof("Reloaded configuration from %v", path)
	}
}
