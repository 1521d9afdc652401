package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/brandon-schabel/Promptliano-sub009/internal/config"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/internal/items"
	"github.com/brandon-schabel/Promptliano-sub009/internal/project"
	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        log.Logger
}

// Runtime owns the store and the domain components built on it.
type Runtime struct {
	db       *pebblestore.DB
	config   cfgpkg.Config
	gen      *id.Generator
	projects *project.Registry
	items    *items.Store
	events   *flowevent.Log
	engine   *flow.Engine
}

// Open initializes storage and wires the domain components.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval})
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	gen := id.NewGenerator()
	projects, err := project.NewRegistry(db, gen, opts.Config.ProjectNameRegex)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store := items.NewStore(db, gen)
	events := flowevent.NewLog(db, gen)
	engine := flow.NewEngine(db, store, events, gen, logger, opts.Config.QueueDefaults)

	return &Runtime{
		db:       db,
		config:   opts.Config,
		gen:      gen,
		projects: projects,
		items:    store,
		events:   events,
		engine:   engine,
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// EnsureDefaultProject creates the configured default project if absent.
func (r *Runtime) EnsureDefaultProject() (project.Meta, error) {
	return r.projects.Ensure(r.config.DefaultProjectName)
}

// DB exposes the underlying store for internal use.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Projects returns the project registry.
func (r *Runtime) Projects() *project.Registry { return r.projects }

// Items returns the ticket/task store.
func (r *Runtime) Items() *items.Store { return r.items }

// Events returns the audit log.
func (r *Runtime) Events() *flowevent.Log { return r.events }

// Engine returns the Flow engine.
func (r *Runtime) Engine() *flow.Engine { return r.engine }
