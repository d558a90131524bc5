// Package runner is the trigger entry point: it decides whether tracked schema
// sources changed since the last successful run and, if so, compiles and
// reconciles every one of them against its connection.
package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"schemasync/internal/apply"
	"schemasync/internal/config"
	"schemasync/internal/core"
	"schemasync/internal/migration"
	"schemasync/internal/parser"
	"schemasync/internal/provider"
	"schemasync/internal/reconcile"
	"schemasync/internal/registry"
	"schemasync/internal/resolve"
	"schemasync/internal/state"
)

// Target is one tracked schema source and the connection it belongs to.
type Target struct {
	Source     string
	Connection string
}

// TargetsFromConfig returns the schemas configured in cfg, in declaration order.
func TargetsFromConfig(cfg *config.Config) []Target {
	targets := make([]Target, 0, len(cfg.Schemas))
	for _, s := range cfg.Schemas {
		targets = append(targets, Target{Source: s.Source, Connection: s.Connection})
	}
	return targets
}

// Options struct contains the settings of a Runner.
type Options struct {
	// DryRun prints the planned statements instead of executing them. State is
	// not saved on dry runs.
	DryRun bool

	// Out receives human-readable progress. Nil discards it.
	Out io.Writer

	// Logger receives structured events. Nil means slog.Default().
	Logger *slog.Logger
}

// Report describes one CheckAll call.
type Report struct {
	RunID      string
	Checked    bool
	Migrations []*migration.Migration
	Applied    int
}

// Runner reconciles configured schemas against their connections.
type Runner struct {
	cfg    *config.Config
	store  *state.FileStore
	opts   Options
	logger *slog.Logger
}

// New returns a runner for cfg persisting its state in store.
func New(cfg *config.Config, store *state.FileStore, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, store: store, opts: opts, logger: logger}
}

// CheckAll reconciles every target when any source changed since the last
// successful run, when the saved state is missing or unreadable, or when force
// is set. Otherwise it does nothing. The new modification times are saved only
// after every target succeeded.
func (r *Runner) CheckAll(ctx context.Context, targets []Target, force bool) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := r.logger.With("run", report.RunID)

	saved, err := r.store.Load()
	if err != nil {
		logger.Warn("state unreadable, checking every schema", "path", r.store.Path(), "error", err)
		force = true
	}

	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		paths = append(paths, t.Source)
	}
	current, err := state.Stat(paths)
	if err != nil {
		return report, err
	}

	if !force && saved.Equal(current) {
		logger.Info("schema sources unchanged", "schemas", len(targets))
		return report, nil
	}

	report.Checked = true
	logger.Info("checking schemas", "schemas", len(targets), "forced", force)

	migrations, applied, err := r.run(ctx, logger, targets, true)
	report.Migrations = migrations
	report.Applied = applied
	if err != nil {
		return report, err
	}

	if r.opts.DryRun {
		return report, nil
	}
	if err := r.store.Save(current); err != nil {
		return report, err
	}
	logger.Info("schemas in sync", "statements", applied)
	return report, nil
}

// Plan compiles targets and returns the statements each would need, without
// executing anything or touching saved state.
func (r *Runner) Plan(ctx context.Context, targets []Target) ([]*migration.Migration, error) {
	logger := r.logger.With("run", uuid.NewString())
	migrations, _, err := r.run(ctx, logger, targets, false)
	return migrations, err
}

// Compile parses and resolves every target, registering each schema so later
// targets may reference it. No database is contacted. A target that fails
// leaves a nil entry and is not registered, so targets referencing it fail
// too; the others compile normally and the failures are returned joined.
func Compile(targets []Target) ([]*core.SchemaDefinition, error) {
	reg := registry.New()
	schemas := make([]*core.SchemaDefinition, len(targets))
	var errs []error
	for i, t := range targets {
		s, err := compile(reg, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		schemas[i] = s
	}
	return schemas, errors.Join(errs...)
}

func compile(reg *registry.Registry, t Target) (*core.SchemaDefinition, error) {
	s, err := parser.ParseFile(t.Source)
	if err != nil {
		return nil, err
	}
	if err := resolve.New(reg, t.Connection).Resolve(s); err != nil {
		return nil, err
	}
	if err := reg.Register(t.Connection, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, targets []Target, execute bool) ([]*migration.Migration, int, error) {
	schemas, compileErr := Compile(targets)
	if compileErr != nil {
		logger.Error("schemas failed to compile", "error", compileErr)
	}

	pool := newPool(r.cfg, logger)
	defer pool.close()

	var migrations []*migration.Migration
	applied := 0
	for i, t := range targets {
		s := schemas[i]
		if s == nil {
			logger.Warn("skipping schema", "source", t.Source)
			continue
		}
		logger := logger.With("schema", s.Name, "source", t.Source)

		conn, err := pool.get(ctx, t.Connection)
		if err != nil {
			return migrations, applied, errors.Join(compileErr, err)
		}

		// Snapshot after earlier targets on the same connection were applied.
		p, err := provider.Load(ctx, conn.dialect, conn.db, conn.prefix)
		if err != nil {
			return migrations, applied, errors.Join(compileErr, err)
		}

		m, err := reconcile.New(p, conn.name, logger).Reconcile(s)
		if err != nil {
			logProviderError(logger, err)
			return migrations, applied, errors.Join(compileErr, fmt.Errorf("schema %s: %w", s.Name, err))
		}
		migrations = append(migrations, m)

		if !execute || m.IsEmpty() {
			for _, note := range m.InfoNotes() {
				logger.Info(note)
			}
			continue
		}

		applier := apply.NewApplier(conn.db, conn.dialect, apply.Options{
			DryRun: r.opts.DryRun,
			Out:    r.opts.Out,
			Logger: logger,
		})
		result, err := applier.Apply(ctx, m)
		if result != nil {
			applied += result.Applied
		}
		if err != nil {
			logProviderError(logger, err)
			return migrations, applied, errors.Join(compileErr, fmt.Errorf("schema %s: %w", s.Name, err))
		}
	}
	return migrations, applied, compileErr
}

func logProviderError(logger *slog.Logger, err error) {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		logger.Error("database error", "dialect", pe.Dialect, "op", pe.Op, "code", pe.Code)
	}
}

// connection is an open database shared by every target on one configured
// connection, locked for the duration of the run.
type connection struct {
	name    string
	dialect core.Dialect
	prefix  string
	db      *sql.DB
	release func()
}

type pool struct {
	cfg    *config.Config
	logger *slog.Logger
	open   map[string]*connection
	order  []*connection
	held   map[string]bool
}

func newPool(cfg *config.Config, logger *slog.Logger) *pool {
	return &pool{cfg: cfg, logger: logger, open: make(map[string]*connection), held: make(map[string]bool)}
}

func (p *pool) get(ctx context.Context, name string) (*connection, error) {
	name = registry.NormalizeConnection(name)
	if c, ok := p.open[name]; ok {
		return c, nil
	}

	cc, err := p.cfg.Connection(name)
	if err != nil {
		return nil, err
	}
	dialect := cc.DialectOf()
	driver, err := provider.Lookup(dialect)
	if err != nil {
		return nil, err
	}

	db, err := provider.Open(ctx, dialect, cc.DSN)
	if err != nil {
		return nil, err
	}

	key, err := lockKey(driver, name, cc.DSN)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection %s: %w", name, err)
	}

	// A second connection name for an already locked database runs under
	// the lock taken for the first one.
	release := func() {}
	if driver.NewLocker != nil && !p.held[key] {
		release, err = driver.NewLocker(db).Acquire(ctx, key)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		p.held[key] = true
	}

	c := &connection{name: name, dialect: dialect, prefix: cc.Prefix, db: db, release: release}
	p.open[name] = c
	p.order = append(p.order, c)
	p.logger.Debug("connection opened", "connection", name, "dialect", dialect)
	return c, nil
}

func lockKey(driver provider.Driver, name, dsn string) (string, error) {
	if driver.LockKey == nil {
		return "schemasync:" + name, nil
	}
	target, err := driver.LockKey(dsn)
	if err != nil {
		return "", err
	}
	return "schemasync:" + target, nil
}

func (p *pool) close() {
	for i := len(p.order) - 1; i >= 0; i-- {
		c := p.order[i]
		c.release()
		if err := c.db.Close(); err != nil {
			p.logger.Warn("closing connection", "connection", c.name, "error", err)
		}
	}
}
