// Command nonymizer restores a production dump into a temporary working
// database, rewrites it per a declarative strategy file, dumps the
// anonymized result, and drops the working database.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nonymizer/internal/dialect"
	"nonymizer/internal/driver"
	mssqldriver "nonymizer/internal/driver/mssql"
	mysqldriver "nonymizer/internal/driver/mysql"
	postgresdriver "nonymizer/internal/driver/postgres"
	"nonymizer/internal/logging"
	"nonymizer/internal/pipeline"

	_ "nonymizer/internal/dialect/mssql"
	_ "nonymizer/internal/dialect/mysql"
	_ "nonymizer/internal/dialect/postgres"
	_ "nonymizer/internal/fake/providers"
)

// runFlags holds the CLI surface: input/strategy/output paths, database
// connection, process control, and backend-specific passthroughs. Paths are
// taken from flags only; positional arguments are ignored.
type runFlags struct {
	input    string
	strategy string
	output   string

	dbType     string
	dbHost     string
	dbPort     string
	dbName     string
	dbUser     string
	dbPassword string

	startAt                   string
	stopAt                    string
	onlyStep                  string
	skipSteps                 []string
	dryRun                    bool
	workers                   int
	seedRows                  int
	ignoreAnonymizationErrors bool
	verbose                   bool
	logFile                   string

	mysqlCmdOpts    string
	mysqlDumpOpts   string
	postgresCmdOpts string
	postgresDumpOpts string

	mssqlConnectionString  string
	mssqlBackupCompression bool
	mssqlAnsiWarningsOff   bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := &runFlags{}
	rootCmd := buildRootCmd(flags)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		if _, ok := err.(*pipeline.ArgumentError); ok {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func buildRootCmd(flags *runFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nonymizer",
		Short: "Restore, anonymize, and dump a production database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), flags)
		},
	}

	fs := rootCmd.Flags()
	fs.StringVarP(&flags.input, "input", "i", envOr("INPUT", ""), "input dump path, or - for stdin")
	fs.StringVarP(&flags.strategy, "strategy", "s", envOr("STRATEGY", ""), "strategy file path (.yml/.json/.toml)")
	fs.StringVarP(&flags.output, "output", "o", envOr("OUTPUT", ""), "output dump path, or - for stdout")

	fs.StringVar(&flags.dbType, "db-type", envOr("DB_TYPE", "mysql"), "mysql|postgres|mssql")
	fs.StringVar(&flags.dbHost, "db-host", envOr("DB_HOST", ""), "database host")
	fs.StringVar(&flags.dbPort, "db-port", envOr("DB_PORT", ""), "database port")
	fs.StringVar(&flags.dbName, "db-name", envOr("DB_NAME", ""), "working database name (auto-generated if empty)")
	fs.StringVar(&flags.dbUser, "db-user", envOr("DB_USER", ""), "database user")
	fs.StringVar(&flags.dbPassword, "db-password", envOr("DB_PASS", ""), "database password")

	fs.StringVar(&flags.startAt, "start-at", "", "first step to run")
	fs.StringVar(&flags.stopAt, "stop-at", "", "last step to run")
	fs.StringVar(&flags.onlyStep, "only-step", "", "run exactly this step")
	fs.StringSliceVar(&flags.skipSteps, "skip-steps", nil, "comma-separated steps to skip")
	fs.BoolVar(&flags.dryRun, "dry-run", false, "validate and connect only")
	fs.IntVar(&flags.workers, "workers", 1, "table-level worker pool size")
	fs.IntVar(&flags.seedRows, "seed-rows", 150, "seed table row count")
	fs.BoolVar(&flags.ignoreAnonymizationErrors, "ignore-anonymization-errors", false, "continue past per-table anonymize errors")
	fs.BoolVar(&flags.verbose, "verbose", false, "debug-level logging")
	fs.StringVar(&flags.logFile, "log-file", "", "optional rotating JSON log file")

	fs.StringVar(&flags.mysqlCmdOpts, "mysql-cmd-opts", "", "extra args spliced into the mysql client invocation")
	fs.StringVar(&flags.mysqlDumpOpts, "mysql-dump-opts", "", "extra args spliced into the mysqldump invocation")
	fs.StringVar(&flags.postgresCmdOpts, "postgres-cmd-opts", "", "extra args spliced into the psql invocation")
	fs.StringVar(&flags.postgresDumpOpts, "postgres-dump-opts", "", "extra args spliced into the pg_dump invocation")

	fs.StringVar(&flags.mssqlConnectionString, "mssql-connection-string", "", "full MSSQL connection string override")
	fs.BoolVar(&flags.mssqlBackupCompression, "mssql-backup-compression", false, "WITH COMPRESSION on BACKUP DATABASE")
	fs.BoolVar(&flags.mssqlAnsiWarningsOff, "mssql-ansi-warnings-off", true, "wrap UPDATEs in SET ANSI_WARNINGS OFF/ON")

	return rootCmd
}

// envOr resolves flag defaults from the environment, preferring the
// PYNONYMIZER_<FLAG> prefixed form and falling back to the legacy unprefixed
// variable only when the prefixed form is absent.
func envOr(legacyName, def string) string {
	prefixed := "PYNONYMIZER_" + legacyName
	if v, ok := os.LookupEnv(prefixed); ok {
		return v
	}
	if v, ok := os.LookupEnv(legacyName); ok {
		return v
	}
	if v, ok := os.LookupEnv("FAKE_LOCALE"); ok && legacyName == "FAKE_LOCALE" {
		return v
	}
	return def
}

func parseStep(name string) (pipeline.Step, error) {
	if name == "" {
		return 0, nil
	}
	return pipeline.ParseStep(name)
}

func executeRun(ctx context.Context, flags *runFlags) error {
	logger := logging.New(flags.verbose, flags.logFile)
	defer logger.Sync()

	dbType := dialect.Type(strings.ToLower(flags.dbType))

	startAt, err := parseStep(flags.startAt)
	if err != nil {
		return &pipeline.ArgumentError{Messages: []string{err.Error()}}
	}
	stopAt, err := parseStep(flags.stopAt)
	if err != nil {
		return &pipeline.ArgumentError{Messages: []string{err.Error()}}
	}
	onlyStep, err := parseStep(flags.onlyStep)
	if err != nil {
		return &pipeline.ArgumentError{Messages: []string{err.Error()}}
	}
	skipSteps := make([]pipeline.Step, 0, len(flags.skipSteps))
	for _, s := range flags.skipSteps {
		step, err := pipeline.ParseStep(s)
		if err != nil {
			return &pipeline.ArgumentError{Messages: []string{err.Error()}}
		}
		skipSteps = append(skipSteps, step)
	}

	opts := pipeline.Options{
		InputPath:                 flags.input,
		StrategyPath:              flags.strategy,
		OutputPath:                flags.output,
		DBType:                    dbType,
		StartAt:                   startAt,
		StopAt:                    stopAt,
		OnlyStep:                  onlyStep,
		SkipSteps:                 skipSteps,
		DryRun:                    flags.dryRun,
		Workers:                   flags.workers,
		SeedRows:                  flags.seedRows,
		IgnoreAnonymizationErrors: flags.ignoreAnonymizationErrors,
		MSSQLConnectionString:     flags.mssqlConnectionString,
		MSSQLBackupCompression:    flags.mssqlBackupCompression,
		MSSQLAnsiWarningsOff:      flags.mssqlAnsiWarningsOff,
		DB: driver.Config{
			Host:     flags.dbHost,
			Port:     flags.dbPort,
			Name:     flags.dbName,
			User:     flags.dbUser,
			Password: flags.dbPassword,
		},
	}

	switch dbType {
	case dialect.MySQL:
		opts.DB.ExtraCmdOpts = flags.mysqlCmdOpts
		opts.DB.ExtraDumpOpts = flags.mysqlDumpOpts
	case dialect.PostgreSQL:
		opts.DB.ExtraCmdOpts = flags.postgresCmdOpts
		opts.DB.ExtraDumpOpts = flags.postgresDumpOpts
	}

	p := pipeline.New(opts, openerFor(dbType, flags), logger)
	return p.Run(ctx)
}

func openerFor(dbType dialect.Type, flags *runFlags) pipeline.DriverOpener {
	return func(ctx context.Context, cfg driver.Config) (driver.Driver, error) {
		switch dbType {
		case dialect.MySQL:
			return mysqldriver.New(ctx, cfg)
		case dialect.PostgreSQL:
			return postgresdriver.New(ctx, cfg)
		case dialect.MSSQL:
			return mssqldriver.New(ctx, cfg, flags.mssqlConnectionString)
		default:
			return nil, fmt.Errorf("unknown db-type %q", dbType)
		}
	}
}
