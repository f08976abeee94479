package inject

import (
	"context"

	"github.com/edgewatch/zonefilter/settings"
	"github.com/edgewatch/zonefilter/zones"
)

// SettingsStore is an injected settings store.
type SettingsStore struct {
	settings.Store
	NotifierConfigFunc     func(ctx context.Context, id string) (*zones.NotifierConfig, error)
	SaveNotifierConfigFunc func(ctx context.Context, id string, cfg *zones.NotifierConfig) error
	PresetsFunc            func(ctx context.Context) ([]*zones.Preset, error)
	SavePresetFunc         func(ctx context.Context, preset *zones.Preset) error
	DeletePresetFunc       func(ctx context.Context, id string) error
	CloseFunc              func() error
}

// NotifierConfig calls the injected NotifierConfig or the real version.
func (s *SettingsStore) NotifierConfig(ctx context.Context, id string) (*zones.NotifierConfig, error) {
	if s.NotifierConfigFunc == nil {
		return s.Store.NotifierConfig(ctx, id)
	}
	return s.NotifierConfigFunc(ctx, id)
}

// SaveNotifierConfig calls the injected SaveNotifierConfig or the real version.
func (s *SettingsStore) SaveNotifierConfig(ctx context.Context, id string, cfg *zones.NotifierConfig) error {
	if s.SaveNotifierConfigFunc == nil {
		return s.Store.SaveNotifierConfig(ctx, id, cfg)
	}
	return s.SaveNotifierConfigFunc(ctx, id, cfg)
}

// Presets calls the injected Presets or the real version.
func (s *SettingsStore) Presets(ctx context.Context) ([]*zones.Preset, error) {
	if s.PresetsFunc == nil {
		return s.Store.Presets(ctx)
	}
	return s.PresetsFunc(ctx)
}

// SavePreset calls the injected SavePreset or the real version.
func (s *SettingsStore) SavePreset(ctx context.Context, preset *zones.Preset) error {
	if s.SavePresetFunc == nil {
		return s.Store.SavePreset(ctx, preset)
	}
	return s.SavePresetFunc(ctx, preset)
}

// DeletePreset calls the injected DeletePreset or the real version.
func (s *SettingsStore) DeletePreset(ctx context.Context, id string) error {
	if s.DeletePresetFunc == nil {
		return s.Store.DeletePreset(ctx, id)
	}
	return s.DeletePresetFunc(ctx, id)
}

// Close calls the injected Close or the real version.
func (s *SettingsStore) Close() error {
	if s.CloseFunc == nil {
		return s.Store.Close()
	}
	return s.CloseFunc()
}
