// Package main provides the zone filter daemon, serving the admin and
// dry-run evaluation API over HTTP and persisting notifier settings.
package main

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.viam.com/utils"

	"github.com/edgewatch/zonefilter/config"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/presets"
	"github.com/edgewatch/zonefilter/settings/sqlite"
	"github.com/edgewatch/zonefilter/web"
)

var logger = logging.NewLogger("zonefilterd")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=daemon config file"`
	Debug      bool   `flag:"debug"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	if argsParsed.Debug {
		logging.GlobalLogLevel.SetLevel(zap.DebugLevel)
	}

	initialReadCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	cfg, err := config.Read(initialReadCtx, argsParsed.ConfigFile, logger)
	if err != nil {
		cancel()
		return err
	}
	cancel()

	return runDaemon(ctx, cfg, logger)
}

func runDaemon(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	defer func() {
		if err != nil {
			err = utils.FilterOutError(err, context.Canceled)
			if err != nil {
				logger.Errorw("error running daemon", "error", err)
			}
		}
	}()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.SetLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		fileAppender := logging.NewFileAppender(cfg.Log.File)
		defer func() {
			err = multierr.Combine(err, fileAppender.Close())
		}()
		logger.AddAppender(fileAppender)
	}
	if cfg.Log.Console != nil {
		netAppender, err := logging.NewNetAppender(cfg.Log.Console)
		if err != nil {
			return err
		}
		defer netAppender.Close()
		logger.AddAppender(netAppender)
	}

	store, err := sqlite.NewStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, store.Close())
	}()
	logger.Infow("settings store open", "path", cfg.StorePath)

	registry, err := presets.NewRegistry(ctx, store, logger)
	if err != nil {
		return err
	}

	server := web.NewServer(store, registry, nil, logger)
	if err := server.Start(ctx, web.Options{
		BindAddress:    cfg.BindAddress,
		AllowedOrigins: cfg.AllowedOrigins,
	}); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, server.Stop())
	}()

	watcher, err := config.NewWatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, watcher.Close())
	}()
	onWatchDone := make(chan struct{})
	utils.ManagedGo(func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			select {
			case <-ctx.Done():
				return
			case newCfg := <-watcher.Config():
				// Only the log settings apply without a restart.
				logger.SetLevel(newCfg.Log.Level)
				logger.Infow("config reloaded", "log_level", newCfg.Log.Level)
			}
		}
	}, func() {
		close(onWatchDone)
	})
	defer func() {
		<-onWatchDone
	}()
	defer cancel()

	<-ctx.Done()
	return ctx.Err()
}
