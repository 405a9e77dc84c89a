// Package engine is the anonymization engine: given a parsed strategy, a
// driver, and a fake generator, it seeds a working table of fake values and
// dispatches set-based UPDATE/TRUNCATE/DELETE statements with bounded
// table-level concurrency.
package engine

import (
	"context"
	"fmt"
	"sync"

	"nonymizer/internal/dialect"
	"nonymizer/internal/driver"
	"nonymizer/internal/fake"
	"nonymizer/internal/strategy"
)

// SeedTableName is the fixed name of the seed table, matching the source
// ecosystem's naming so operators inspecting a halted run recognize it.
const SeedTableName = "_nonymizer_seed_fake_data"

// Reporter receives optional, orthogonal progress events; a nil Reporter is
// always safe to call into (see noopReporter).
type Reporter interface {
	TableStarted(table string)
	TableFinished(table string, err error)
	SeedRowInserted(n, total int)
}

// Options configures one engine run.
type Options struct {
	Workers                   int  // default 1
	SeedRows                  int  // default 150
	IgnoreAnonymizationErrors bool
	Reporter                  Reporter
}

// Engine drives the seed/before/update/after/drop phases described by the
// anonymization engine component.
type Engine struct {
	driver        driver.Driver
	workerFactory func(ctx context.Context) (driver.Driver, error)
	factory       dialect.Factory
	fakeGen       *fake.Generator
	opts          Options
}

// New builds an Engine. workerFactory opens one fresh connection/subprocess
// per table worker, per the one-connection-per-worker resource rule; it may
// be nil to reuse driver for every worker (acceptable for backends whose
// native driver pools connections internally).
func New(d driver.Driver, workerFactory func(ctx context.Context) (driver.Driver, error), factory dialect.Factory, fakeGen *fake.Generator, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.SeedRows < 1 {
		opts.SeedRows = 150
	}
	if opts.Reporter == nil {
		opts.Reporter = noopReporter{}
	}
	return &Engine{driver: d, workerFactory: workerFactory, factory: factory, fakeGen: fakeGen, opts: opts}
}

// Run executes the full seed → before-scripts → per-table anonymize →
// after-scripts → drop-seed sequence described by §4.5.
func (e *Engine) Run(ctx context.Context, db *strategy.Database) error {
	qualifierMap := db.FakeTypes()

	if len(qualifierMap) > 0 {
		if err := e.buildSeedTable(ctx, qualifierMap); err != nil {
			return fmt.Errorf("build seed table: %w", err)
		}
	}

	for _, script := range db.BeforeScripts {
		if err := e.driver.DBExecute(ctx, script); err != nil {
			return fmt.Errorf("before-script: %w", err)
		}
	}

	tableErrs := e.anonymizeTables(ctx, db.Tables)

	if len(tableErrs) > 0 && !e.opts.IgnoreAnonymizationErrors {
		return &AnonymizationError{Errors: tableErrs}
	}

	for _, script := range db.AfterScripts {
		if err := e.driver.DBExecute(ctx, script); err != nil {
			return fmt.Errorf("after-script: %w", err)
		}
	}

	if len(qualifierMap) > 0 {
		if err := e.driver.DBExecute(ctx, e.factory.DropSeedTable(SeedTableName)); err != nil {
			return fmt.Errorf("drop seed table: %w", err)
		}
	}
	return nil
}

func (e *Engine) buildSeedTable(ctx context.Context, qualifierMap map[string]fake.Spec) error {
	qualifiers := make([]string, 0, len(qualifierMap))
	for q := range qualifierMap {
		qualifiers = append(qualifiers, q)
	}

	createStmt, err := e.factory.CreateSeedTable(SeedTableName, qualifiers)
	if err != nil {
		return err
	}
	if err := e.driver.DBExecute(ctx, createStmt); err != nil {
		return err
	}

	for i := 0; i < e.opts.SeedRows; i++ {
		values := make(map[string]any, len(qualifierMap))
		for q, spec := range qualifierMap {
			v, err := e.fakeGen.Value(spec.Method, spec.Args)
			if err != nil {
				return fmt.Errorf("fake value for %q: %w", spec.Method, err)
			}
			values[q] = v
		}
		insertStmt := e.factory.InsertSeedRow(SeedTableName, values)
		if err := e.driver.DBExecute(ctx, insertStmt); err != nil {
			return err
		}
		e.opts.Reporter.SeedRowInserted(i+1, e.opts.SeedRows)
	}
	return nil
}

func (e *Engine) anonymizeTables(ctx context.Context, tables []strategy.Table) []*TableError {
	type job struct {
		table strategy.Table
	}

	jobs := make(chan job, len(tables))
	for _, t := range tables {
		jobs <- job{table: t}
	}
	close(jobs)

	var (
		mu   sync.Mutex
		errs []*TableError
		wg   sync.WaitGroup
	)

	workers := e.opts.Workers
	if workers > len(tables) {
		workers = len(tables)
	}
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				d, closeFn := e.connectionFor(ctx)
				name := j.table.QualifiedName()
				e.opts.Reporter.TableStarted(name)
				err := e.anonymizeTable(ctx, d, j.table)
				e.opts.Reporter.TableFinished(name, err)
				closeFn()
				if err != nil {
					mu.Lock()
					errs = append(errs, &TableError{Table: name, Err: err})
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return errs
}

func (e *Engine) connectionFor(ctx context.Context) (driver.Driver, func()) {
	if e.workerFactory == nil {
		return e.driver, func() {}
	}
	d, err := e.workerFactory(ctx)
	if err != nil {
		return e.driver, func() {}
	}
	return d, func() { _ = d.Close() }
}

func (e *Engine) anonymizeTable(ctx context.Context, d driver.Driver, table strategy.Table) error {
	switch table.Kind {
	case strategy.TableTruncate:
		return d.DBExecute(ctx, e.factory.TruncateTable(table))
	case strategy.TableDelete:
		return d.DBExecute(ctx, e.factory.DeleteTable(table))
	case strategy.TableUpdateColumns:
		stmts, err := e.factory.UpdateTable(SeedTableName, table)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if err := d.DBExecute(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported table strategy for %q", table.TableName)
	}
}

type noopReporter struct{}

func (noopReporter) TableStarted(string)          {}
func (noopReporter) TableFinished(string, error)   {}
func (noopReporter) SeedRowInserted(int, int)      {}
