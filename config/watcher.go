package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/edgewatch/zonefilter/logging"
)

// A Watcher is responsible for watching for changes to a config from some
// source and delivering those changes to some destination.
type Watcher interface {
	Config() <-chan *Config
	Close() error
}

// NewWatcher returns an optimally selected Watcher based on the given config.
func NewWatcher(ctx context.Context, config *Config, logger logging.Logger) (Watcher, error) {
	if config.ConfigFilePath != "" {
		return newFSWatcher(ctx, config.ConfigFilePath, logger)
	}
	return noopWatcher{}, nil
}

// A fsConfigWatcher fetches config changes from an underlying file system.
type fsConfigWatcher struct {
	fsWatcher     *fsnotify.Watcher
	configCh      chan *Config
	watcherDoneCh chan struct{}
	cancel        func()
}

// newFSWatcher returns a new watcher for the config file at the given path.
// The parent directory is watched rather than the file itself; editors and
// config management tools usually replace the file by rename.
func newFSWatcher(ctx context.Context, configPath string, logger logging.Logger) (*fsConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(configPath)); err != nil {
		return nil, multierr.Combine(err, fsWatcher.Close())
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	configCh := make(chan *Config)
	watcherDoneCh := make(chan struct{})

	utils.ManagedGo(func() {
		debounced := debounce.New(time.Millisecond * 500)
		for {
			if cancelCtx.Err() != nil {
				return
			}
			select {
			case <-cancelCtx.Done():
				return
			case event := <-fsWatcher.Events:
				if event.Name == configPath {
					debounced(func() {
						newConfig, err := Read(cancelCtx, configPath, logger)
						if err != nil {
							logger.Errorw("error reading config after update", "error", err)
							return
						}
						select {
						case <-cancelCtx.Done():
							return
						case configCh <- newConfig:
						}
					})
				}
			}
		}
	}, func() {
		close(watcherDoneCh)
	})

	return &fsConfigWatcher{
		fsWatcher:     fsWatcher,
		configCh:      configCh,
		watcherDoneCh: watcherDoneCh,
		cancel:        cancel,
	}, nil
}

// Config returns the channel of config updates.
func (w *fsConfigWatcher) Config() <-chan *Config {
	return w.configCh
}

// Close stops the watcher and frees its resources.
func (w *fsConfigWatcher) Close() error {
	w.cancel()
	<-w.watcherDoneCh
	return w.fsWatcher.Close()
}

// A noopWatcher does nothing. It backs configs that did not come from a
// watchable source.
type noopWatcher struct{}

func (w noopWatcher) Config() <-chan *Config {
	return nil
}

// Close does nothing.
func (w noopWatcher) Close() error {
	return nil
}
