package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-mapbox/internal/toggle"
)

// VisibilityStore holds per-layer visibility and implements toggle.Map.
// Layers it has never seen read as visible, matching a freshly built style.
type VisibilityStore struct {
	dataDir string
	vis     map[string]toggle.Visibility
	bus     *EventBus
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// NewVisibilityStore creates a store persisted under dataDir. An empty
// dataDir keeps state in memory only.
func NewVisibilityStore(dataDir string, bus *EventBus, logger zerolog.Logger) *VisibilityStore {
	s := &VisibilityStore{
		dataDir: dataDir,
		vis:     make(map[string]toggle.Visibility),
		bus:     bus,
		logger:  logger,
	}
	s.loadFromDisk()
	return s
}

// Visibility returns the stored visibility of a layer.
func (s *VisibilityStore) Visibility(layerID string) toggle.Visibility {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.vis[layerID]; ok {
		return v
	}
	return toggle.Visible
}

// SetVisibility stores v for a layer, persists the store and publishes a
// "toggled" event. Persistence failures are logged, not returned.
func (s *VisibilityStore) SetVisibility(layerID string, v toggle.Visibility) {
	s.mu.Lock()
	s.vis[layerID] = v
	err := s.saveToDisk()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("layer", layerID).Msg("failed to persist visibility")
	}
	s.bus.Publish(Event{Resource: "layers", Action: "toggled", ID: layerID, Value: string(v)})
}

// List returns a copy of every stored visibility.
func (s *VisibilityStore) List() map[string]toggle.Visibility {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]toggle.Visibility, len(s.vis))
	for k, v := range s.vis {
		result[k] = v
	}
	return result
}

// Prune drops stored layers that are not in keep, so a rebuilt style does
// not inherit state for layers it no longer has.
func (s *VisibilityStore) Prune(keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}
	for id := range s.vis {
		if !wanted[id] {
			delete(s.vis, id)
		}
	}
	return s.saveToDisk()
}

// configFile returns the path to the visibility file.
func (s *VisibilityStore) configFile() string {
	return filepath.Join(s.dataDir, "visibility.json")
}

// loadFromDisk loads stored visibility from disk.
func (s *VisibilityStore) loadFromDisk() {
	if s.dataDir == "" {
		return
	}
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var vis map[string]toggle.Visibility
	if err := json.Unmarshal(data, &vis); err != nil {
		s.logger.Warn().Err(err).Str("path", s.configFile()).Msg("ignoring unreadable visibility file")
		return
	}
	for id, v := range vis {
		if v != toggle.Visible && v != toggle.None {
			continue
		}
		s.vis[id] = v
	}
}

// saveToDisk persists visibility. Callers hold s.mu.
func (s *VisibilityStore) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.vis, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}
