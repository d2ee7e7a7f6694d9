// Package presets stores named channel configurations in a JSON file and
// hot-reloads it when edited out-of-band.
package presets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/edgehw/pwmd/internal/models"
)

const presetsFileName = "presets.json"

// Store is a JSON-file-backed preset store. Writes are atomic (temp file +
// rename); external edits to the file are picked up via fsnotify.
type Store struct {
	mu      sync.RWMutex
	path    string
	presets map[string]models.Preset
	watcher *fsnotify.Watcher
}

// NewStore loads (or initializes) the preset file in configDir and starts
// watching it for changes.
func NewStore(configDir string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(configDir, presetsFileName),
		presets: make(map[string]models.Preset),
	}

	// Missing file is fine — first Save creates it.
	if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("presets: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	s.watcher = watcher
	if err := watcher.Add(configDir); err != nil {
		slog.Warn("presets: could not watch config dir", "err", err)
	}
	go s.watchLoop()
	return s, nil
}

// Path returns the file path used by this store.
func (s *Store) Path() string { return s.path }

// Reload re-reads the preset file from disk.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.presets = make(map[string]models.Preset)
			s.mu.Unlock()
			return nil
		}
		return err
	}

	var list []models.Preset
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}

	presets := make(map[string]models.Preset, len(list))
	for _, p := range list {
		presets[p.Name] = p
	}
	s.mu.Lock()
	s.presets = presets
	s.mu.Unlock()
	slog.Debug("presets: reloaded", "count", len(presets))
	return nil
}

// List returns all presets sorted by name.
func (s *Store) List() []models.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the preset with the given name.
func (s *Store) Get(name string) (models.Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[name]
	return p, ok
}

// Save inserts or replaces a preset and writes the file.
func (s *Store) Save(p models.Preset) error {
	s.mu.Lock()
	s.presets[p.Name] = p
	err := s.writeLocked()
	s.mu.Unlock()
	return err
}

// Delete removes a preset and writes the file. Deleting a preset that does
// not exist is not an error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	delete(s.presets, name)
	err := s.writeLocked()
	s.mu.Unlock()
	return err
}

// writeLocked writes the preset list to disk atomically. Caller holds mu.
func (s *Store) writeLocked() error {
	list := make([]models.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Close stops the file watcher.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Store) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name == s.path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				if err := s.Reload(); err != nil {
					slog.Warn("presets: failed to reload", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("presets: watcher error", "err", err)
		}
	}
}
