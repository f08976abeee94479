// Package presets manages the library of named zone presets shared by every
// notifier. A preset bundles per-camera zone profiles under a stable ID so a
// notifier can switch between layouts ("Home", "Away") without re-drawing
// zones.
package presets

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/settings"
	"github.com/edgewatch/zonefilter/zones"
)

// Registry holds the preset library in memory and writes every mutation
// through to the settings store. Reads are served from memory so the
// notification hot path never touches the database.
type Registry struct {
	logger logging.Logger
	store  settings.Store

	mu      sync.RWMutex
	presets map[string]*zones.Preset
}

// NewRegistry loads all stored presets into a new registry. A stored preset
// that fails validation aborts the load so a corrupt store is caught at
// startup rather than surfacing as missing zones later.
func NewRegistry(ctx context.Context, store settings.Store, logger logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.Global()
	}
	stored, err := store.Presets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load presets")
	}

	presets := make(map[string]*zones.Preset, len(stored))
	for _, preset := range stored {
		if err := preset.Validate("preset"); err != nil {
			return nil, errors.Wrapf(err, "stored preset %q", preset.ID)
		}
		presets[preset.ID] = preset
	}
	logger.Infow("presets loaded", "count", len(presets))

	return &Registry{
		logger:  logger,
		store:   store,
		presets: presets,
	}, nil
}

// List returns a copy of every preset, sorted by name then ID.
func (r *Registry) List() []*zones.Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*zones.Preset, 0, len(r.presets))
	for _, preset := range r.presets {
		out = append(out, preset.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Names returns the preset names in the same order as List.
func (r *Registry) Names() []string {
	return lo.Map(r.List(), func(preset *zones.Preset, _ int) string {
		return preset.Name
	})
}

// Get returns a copy of the preset with the given ID.
func (r *Registry) Get(id string) (*zones.Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	preset, ok := r.presets[id]
	if !ok {
		return nil, errors.Wrapf(zones.ErrPresetNotFound, "preset %q", id)
	}
	return preset.Clone(), nil
}

// Create adds a new empty preset with the given name and returns it.
func (r *Registry) Create(ctx context.Context, name string) (*zones.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("preset name required")
	}

	preset := &zones.Preset{
		ID:       newPresetID(),
		Name:     name,
		Profiles: zones.ProfileSet{},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.SavePreset(ctx, preset); err != nil {
		return nil, errors.Wrapf(err, "create preset %q", name)
	}
	r.presets[preset.ID] = preset
	r.logger.Infow("preset created", "id", preset.ID, "name", name)
	return preset.Clone(), nil
}

// Rename changes the display name of a preset.
func (r *Registry) Rename(ctx context.Context, id, name string) (*zones.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("preset name required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	preset, ok := r.presets[id]
	if !ok {
		return nil, errors.Wrapf(zones.ErrPresetNotFound, "preset %q", id)
	}

	updated := preset.Clone()
	updated.Name = name
	if err := r.store.SavePreset(ctx, updated); err != nil {
		return nil, errors.Wrapf(err, "rename preset %q", id)
	}
	r.presets[id] = updated
	r.logger.Infow("preset renamed", "id", id, "name", name)
	return updated.Clone(), nil
}

// SetProfile replaces the zone profile a preset holds for one camera. A nil
// profile removes the camera from the preset.
func (r *Registry) SetProfile(ctx context.Context, id, camera string, profile *zones.Profile) (*zones.Preset, error) {
	if camera == "" {
		return nil, errors.New("camera required")
	}
	if profile != nil {
		if err := profile.Validate("profile"); err != nil {
			return nil, errors.Wrapf(err, "profile for camera %q", camera)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	preset, ok := r.presets[id]
	if !ok {
		return nil, errors.Wrapf(zones.ErrPresetNotFound, "preset %q", id)
	}

	updated := preset.Clone()
	if updated.Profiles == nil {
		updated.Profiles = zones.ProfileSet{}
	}
	if profile == nil {
		delete(updated.Profiles, camera)
	} else {
		stored := profile.Clone()
		stored.Camera = camera
		updated.Profiles[camera] = stored
	}

	if err := r.store.SavePreset(ctx, updated); err != nil {
		return nil, errors.Wrapf(err, "update preset %q", id)
	}
	r.presets[id] = updated
	if profile == nil {
		r.logger.Infow("preset profile removed", "id", id, "camera", camera)
	} else {
		r.logger.Infow("preset profile updated", "id", id, "camera", camera, "zones", len(profile.Zones))
	}
	return updated.Clone(), nil
}

// Delete removes a preset. Notifier configs that still select the deleted ID
// fall back to forwarding until they are repointed.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.presets[id]; !ok {
		return errors.Wrapf(zones.ErrPresetNotFound, "preset %q", id)
	}
	if err := r.store.DeletePreset(ctx, id); err != nil && !errors.Is(err, settings.ErrNotFound) {
		return errors.Wrapf(err, "delete preset %q", id)
	}
	delete(r.presets, id)
	r.logger.Infow("preset deleted", "id", id)
	return nil
}

// Lookup returns a PresetLookup backed by the registry's live state. The
// returned presets are the registry's own copies; callers must not mutate
// them.
func (r *Registry) Lookup() zones.PresetLookup {
	return func(id string) (*zones.Preset, bool) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		preset, ok := r.presets[id]
		return preset, ok
	}
}

// newPresetID returns a fresh preset identifier. IDs are hex strings so they
// survive the snooze ID token splitting notifiers perform downstream.
func newPresetID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
