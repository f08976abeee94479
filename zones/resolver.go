package zones

import "github.com/pkg/errors"

// Resolution failures are ordinary configuration states, not faults. Callers
// map them to fail-open forwarding decisions with errors.Is.
var (
	// ErrNoPresetSelected means the notifier neither uses custom zones nor
	// has a preset selected.
	ErrNoPresetSelected = errors.New("no preset selected")
	// ErrPresetNotFound means the selected preset no longer exists, for
	// example because it was deleted after the notifier selected it.
	ErrPresetNotFound = errors.New("preset not found")
)

// PresetLookup resolves a preset id to its current definition.
type PresetLookup func(id string) (*Preset, bool)

// Resolve picks the zone profile a notifier should filter a camera's events
// with. Custom zones take priority over the selected preset, even when the
// custom profile for the camera is empty. The returned profile is never nil
// when the error is nil.
func Resolve(cfg *NotifierConfig, camera string, lookup PresetLookup) (*Profile, error) {
	if cfg == nil {
		cfg = &NotifierConfig{}
	}
	if cfg.UseCustomZones {
		return cfg.Custom.For(camera), nil
	}
	if cfg.SelectedPreset == "" {
		return nil, ErrNoPresetSelected
	}
	if lookup == nil {
		return nil, errors.Wrapf(ErrPresetNotFound, "no preset lookup for %q", cfg.SelectedPreset)
	}
	preset, ok := lookup(cfg.SelectedPreset)
	if !ok {
		return nil, errors.Wrapf(ErrPresetNotFound, "preset %q", cfg.SelectedPreset)
	}
	return preset.ProfileFor(camera), nil
}
