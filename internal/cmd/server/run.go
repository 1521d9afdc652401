package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/brandon-schabel/Promptliano-sub009/internal/config"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
	"github.com/brandon-schabel/Promptliano-sub009/internal/runtime"
	httpserver "github.com/brandon-schabel/Promptliano-sub009/internal/server/http"
	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	logpkg "github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

type Options struct {
	DataDir       string
	HTTPAddr      string
	ConfigPath    string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the HTTP server and blocks until ctx is cancelled or a
// component fails.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so plain contexts
	// still get clean shutdown on SIGINT/SIGTERM.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")

	logCfg := &logpkg.Config{Level: opts.Config.Log.Level, Format: opts.Config.Log.Format}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(logCfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	// Redirect stdlib logs (e.g. Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.EnsureDefaultProject(); err != nil {
		return err
	}

	procLogger.Info("starting flow server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
		logpkg.Bool("reaper", opts.Config.Reaper.Enabled),
	)

	hsrv := httpserver.New(rt, procLogger)

	var reaper *flow.Reaper
	if opts.Config.Reaper.Enabled {
		reaper = flow.NewReaper(rt.Engine(), opts.Config.Reaper, procLogger)
		reaper.Start()
	}

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return hsrv.ListenAndServe(gctx, opts.HTTPAddr)
	})
	if opts.ConfigPath != "" {
		g.Go(func() error {
			return watchConfig(gctx, opts.ConfigPath, procLogger)
		})
	}

	err = g.Wait()
	if reaper != nil {
		reaper.Stop()
	}
	hsrv.Close()
	return err
}

// watchConfig reloads the log level when the config file changes. Other
// settings need a restart.
func watchConfig(ctx context.Context, path string, logger logpkg.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace files on save, which drops a
	// watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			evAbs, err := filepath.Abs(ev.Name)
			if err != nil || evAbs != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := cfgpkg.Load(path)
			if err != nil {
				logger.Warn("config reload failed", logpkg.Err(err))
				continue
			}
			lvl, err := logpkg.ParseLevel(cfg.Log.Level)
			if err != nil {
				logger.Warn("config reload: bad log level", logpkg.Str("level", cfg.Log.Level))
				continue
			}
			logger.SetLevel(lvl)
			logger.Info("log level reloaded", logpkg.Str("level", cfg.Log.Level))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", logpkg.Err(err))
		}
	}
}
