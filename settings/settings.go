// Package settings persists the zone filter's user-editable state: per
// notifier zone configurations and the shared preset library.
package settings

import (
	"context"

	"github.com/pkg/errors"

	"github.com/edgewatch/zonefilter/zones"
)

// ErrNotFound is returned when a requested notifier config or preset does not
// exist in the store.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for zone filter settings. Implementations
// must be safe for concurrent use.
type Store interface {
	// NotifierConfig loads the stored configuration for a notifier, or
	// ErrNotFound when none was saved.
	NotifierConfig(ctx context.Context, id string) (*zones.NotifierConfig, error)
	// SaveNotifierConfig stores the configuration for a notifier, replacing
	// any previous one.
	SaveNotifierConfig(ctx context.Context, id string, cfg *zones.NotifierConfig) error

	// Presets loads every stored preset.
	Presets(ctx context.Context) ([]*zones.Preset, error)
	// SavePreset stores a preset keyed by its ID, replacing any previous
	// version.
	SavePreset(ctx context.Context, preset *zones.Preset) error
	// DeletePreset removes a preset, or returns ErrNotFound when absent.
	DeletePreset(ctx context.Context, id string) error

	Close() error
}
