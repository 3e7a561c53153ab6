// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package meta holds display metadata for proposals: images and descriptions
// the contract does not store.
package meta

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// DefaultImages cycle over proposals that have no configured image.
var DefaultImages = []string{
	"/assets/sam.png",
	"/assets/mark.png",
	"/assets/elon.png",
}

// Proposal is the display metadata of one proposal.
type Proposal struct {
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
}

// File is the YAML layout of a metadata file.
type File struct {
	Proposals     map[string]Proposal `yaml:"proposals"`
	DefaultImages []string            `yaml:"default_images"`
}

// Catalog serves proposal metadata, optionally reloading it from disk.
type Catalog struct {
	mu   sync.RWMutex
	file File
	path string

	debounce time.Duration
}

// NewCatalog returns a catalog with only the default images.
func NewCatalog() *Catalog {
	return &Catalog{debounce: 200 * time.Millisecond}
}

// LoadCatalog reads path into a new catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	c.path = path
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes a metadata document.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return f, nil
}

// Reload re-reads the catalog file. On error the previous contents stay.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.file = f
	c.mu.Unlock()
	return nil
}

// Lookup returns the metadata for the proposal at index in contract order.
func (c *Catalog) Lookup(proposal string, index int) Proposal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.file.Proposals[proposal]
	if p.Image == "" {
		images := c.file.DefaultImages
		if len(images) == 0 {
			images = DefaultImages
		}
		if index < 0 {
			index = 0
		}
		p.Image = images[index%len(images)]
	}
	return p
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.path, err)
	}

	target := filepath.Clean(c.path)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(c.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("metadata watcher error", "error", err)
		case <-pending:
			pending = nil
			if err := c.Reload(); err != nil {
				slog.Warn("metadata reload failed, keeping previous", "path", c.path, "error", err)
				continue
			}
			slog.Info("metadata reloaded", "path", c.path)
		}
	}
}
