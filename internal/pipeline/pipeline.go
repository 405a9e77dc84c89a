package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"nonymizer/internal/dialect"
	mssqldialect "nonymizer/internal/dialect/mssql"
	"nonymizer/internal/driver"
	"nonymizer/internal/engine"
	"nonymizer/internal/fake"
	"nonymizer/internal/iocodec"
	"nonymizer/internal/strategy"
)

// ArgumentError is the exit-2 error kind: missing/invalid user input.
type ArgumentError struct {
	Messages []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument validation failed: %s", strings.Join(e.Messages, "; "))
}

// Options configures one pipeline run. It carries every CLI setting except
// the logging flags (--verbose, --log-file), which the caller handles.
type Options struct {
	InputPath    string
	StrategyPath string
	OutputPath   string

	DBType dialect.Type
	DB     driver.Config

	StartAt   Step
	StopAt    Step
	OnlyStep  Step
	SkipSteps []Step
	DryRun    bool

	Workers                   int
	SeedRows                  int
	IgnoreAnonymizationErrors bool

	MSSQLConnectionString  string
	MSSQLBackupCompression bool
	MSSQLAnsiWarningsOff   bool
}

// DriverOpener opens a Driver for the configured DBType.
type DriverOpener func(ctx context.Context, cfg driver.Config) (driver.Driver, error)

// Pipeline coordinates the strategy parser, anonymization engine, database
// driver, and I/O codec for one run.
type Pipeline struct {
	opts   Options
	open   DriverOpener
	logger Logger
}

// Logger is the minimal structured-logging surface the pipeline needs;
// cmd/nonymizer wires this to zap.
type Logger interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// New builds a Pipeline. open is backend-specific connection construction,
// supplied by the caller so this package stays free of per-backend imports.
func New(opts Options, open DriverOpener, logger Logger) *Pipeline {
	return &Pipeline{opts: opts, open: open, logger: logger}
}

// Validate applies the step-aware argument validation rules from §4.7: a
// missing path is fatal only when the step that consumes it is not skipped.
func (p *Pipeline) Validate(actions StepActionMap) error {
	var msgs []string

	if !actions.Skipped(RestoreDB) && p.opts.InputPath == "" {
		msgs = append(msgs, "--input is required unless RESTORE_DB is skipped")
	}
	if !actions.Skipped(AnonymizeDB) && p.opts.StrategyPath == "" {
		msgs = append(msgs, "--strategy is required unless ANONYMIZE_DB is skipped")
	}
	if !actions.Skipped(DumpDB) && p.opts.OutputPath == "" {
		msgs = append(msgs, "--output is required unless DUMP_DB is skipped")
	}
	if len(msgs) > 0 {
		return &ArgumentError{Messages: msgs}
	}
	return nil
}

func (p *Pipeline) resolveDBName() string {
	if p.opts.DB.Name != "" {
		return p.opts.DB.Name
	}
	base := strings.TrimSuffix(filepath.Base(p.opts.StrategyPath), filepath.Ext(p.opts.StrategyPath))
	if base == "" {
		base = "nonymizer"
	}
	return fmt.Sprintf("%s_%s", base, strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// Run computes the StepActionMap and drives every non-skipped step in
// order, per §4.7 and §8's testable properties (a dry run issues no driver
// calls beyond TestConnection).
func (p *Pipeline) Run(ctx context.Context) error {
	actions := Actions(p.opts.StartAt, p.opts.StopAt, p.opts.OnlyStep, p.opts.SkipSteps, p.opts.DryRun)
	if err := p.Validate(actions); err != nil {
		return err
	}
	for _, line := range actions.Summary() {
		p.logger.Info(line)
	}

	if !actions.Skipped(AnonymizeDB) && p.opts.DB.Name == "" {
		p.opts.DB.Name = p.resolveDBName()
	}
	p.opts.DB.MSSQLBackupCompression = p.opts.MSSQLBackupCompression

	d, err := p.open(ctx, p.opts.DB)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer d.Close()

	if !d.TestConnection(ctx) {
		return fmt.Errorf("database connection test failed")
	}
	if p.opts.DryRun {
		p.logger.Info("dry run: no further driver calls will be issued")
		return nil
	}

	factory, err := dialect.Get(p.opts.DBType)
	if err != nil {
		return err
	}
	// The registry hands back a zero-value factory; MSSQL's per-run flags
	// have no home in the generic dialect.Factory interface, so they're
	// patched in here via a type assertion.
	if mf, ok := factory.(*mssqldialect.Factory); ok {
		mf.AnsiWarningsOff = p.opts.MSSQLAnsiWarningsOff
	}

	if !actions.Skipped(CreateDB) {
		if err := d.Execute(ctx, factory.CreateDatabase(p.opts.DB.Name)); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
	}

	if !actions.Skipped(RestoreDB) {
		if err := p.restore(ctx, d); err != nil {
			return fmt.Errorf("restore database: %w", err)
		}
	}

	if !actions.Skipped(AnonymizeDB) {
		if err := p.anonymize(ctx, d, factory); err != nil {
			return fmt.Errorf("anonymize database: %w", err)
		}
	}

	if !actions.Skipped(DumpDB) {
		if err := p.dump(ctx, d); err != nil {
			return fmt.Errorf("dump database: %w", err)
		}
	}

	if !actions.Skipped(DropDB) {
		for _, stmt := range factory.DropDatabase(p.opts.DB.Name) {
			if err := d.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("drop database: %w", err)
			}
		}
	}
	return nil
}

func (p *Pipeline) restore(ctx context.Context, d driver.Driver) error {
	if !d.Streamable() {
		return d.RestoreFromPath(ctx, p.opts.InputPath)
	}
	src, err := iocodec.ResolveInput(p.opts.InputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	sink, err := d.OpenRestoreSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()

	_, err = iocodec.Copy(sink, src, nil)
	return err
}

func (p *Pipeline) dump(ctx context.Context, d driver.Driver) error {
	if !d.Streamable() {
		return d.DumpToPath(ctx, p.opts.OutputPath)
	}
	source, err := d.OpenDumpSource(ctx)
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := iocodec.ResolveOutput(p.opts.OutputPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	_, err = iocodec.Copy(sink, source, nil)
	return err
}

func (p *Pipeline) anonymize(ctx context.Context, d driver.Driver, factory dialect.Factory) error {
	root, err := strategy.DecodeFile(p.opts.StrategyPath)
	if err != nil {
		return err
	}
	locale, providers := strategy.PeekLocaleAndProviders(root)

	fakeGen, err := fake.NewGenerator(locale, providers)
	if err != nil {
		return err
	}
	parser := strategy.NewParser(fakeGen)
	db, err := parser.Parse(root)
	if err != nil {
		return err
	}

	workerFactory := func(ctx context.Context) (driver.Driver, error) {
		return p.open(ctx, p.opts.DB)
	}
	e := engine.New(d, workerFactory, factory, fakeGen, engine.Options{
		Workers:                   p.opts.Workers,
		SeedRows:                  p.opts.SeedRows,
		IgnoreAnonymizationErrors: p.opts.IgnoreAnonymizationErrors,
	})
	return e.Run(ctx, db)
}
