package settings

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/edgewatch/zonefilter/zones"
)

// MemStore is an in-memory Store. It backs tests and one-shot tooling that
// has no database on disk. Values are stored as their JSON encoding so reads
// return snapshots rather than aliases of caller-held structs.
type MemStore struct {
	mu      sync.RWMutex
	configs map[string][]byte
	presets map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		configs: map[string][]byte{},
		presets: map[string][]byte{},
	}
}

// NotifierConfig loads the stored configuration for a notifier.
func (s *MemStore) NotifierConfig(_ context.Context, id string) (*zones.NotifierConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	var cfg zones.NotifierConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode notifier config %q", id)
	}
	return &cfg, nil
}

// SaveNotifierConfig stores the configuration for a notifier.
func (s *MemStore) SaveNotifierConfig(_ context.Context, id string, cfg *zones.NotifierConfig) error {
	if id == "" {
		return errors.New("notifier id required")
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrapf(err, "encode notifier config %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[id] = raw
	return nil
}

// Presets loads every stored preset, ordered by ID.
func (s *MemStore) Presets(_ context.Context) ([]*zones.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.presets))
	for id := range s.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*zones.Preset, 0, len(ids))
	for _, id := range ids {
		var preset zones.Preset
		if err := json.Unmarshal(s.presets[id], &preset); err != nil {
			return nil, errors.Wrapf(err, "decode preset %q", id)
		}
		out = append(out, &preset)
	}
	return out, nil
}

// SavePreset stores a preset keyed by its ID.
func (s *MemStore) SavePreset(_ context.Context, preset *zones.Preset) error {
	if preset == nil || preset.ID == "" {
		return errors.New("preset id required")
	}
	raw, err := json.Marshal(preset)
	if err != nil {
		return errors.Wrapf(err, "encode preset %q", preset.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[preset.ID] = raw
	return nil
}

// DeletePreset removes a preset.
func (s *MemStore) DeletePreset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presets[id]; !ok {
		return ErrNotFound
	}
	delete(s.presets, id)
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error {
	return nil
}
