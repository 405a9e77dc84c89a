// Package postgres implements the Driver contract for PostgreSQL, wrapping
// lib/pq for statement execution and the psql/pg_dump client tools for
// streaming restore/dump.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/google/shlex"
	_ "github.com/lib/pq"

	"nonymizer/internal/driver"
)

// maintenanceDB is the database every standard PostgreSQL install carries,
// used for the admin connection since CREATE/DROP DATABASE cannot run on a
// connection bound to the database being created or dropped.
const maintenanceDB = "postgres"

// Driver implements driver.Driver for PostgreSQL. adminDB is bound to
// maintenanceDB for Execute (CREATE/DROP DATABASE); db is bound to the
// working database and opened lazily on first DBExecute/SingleResult call,
// once CREATE_DB/RESTORE_DB have actually created it.
type Driver struct {
	cfg     driver.Config
	adminDB *sql.DB
	db      *sql.DB
}

// New opens the admin connection used for Execute.
func New(ctx context.Context, cfg driver.Config) (*Driver, error) {
	adminDB, err := sql.Open("postgres", dsnFor(cfg, maintenanceDB))
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := adminDB.PingContext(ctx); err != nil {
		_ = adminDB.Close()
		return nil, &driver.DependencyError{Tool: "postgres (network)", Err: err}
	}
	return &Driver{cfg: cfg, adminDB: adminDB}, nil
}

func dsnFor(cfg driver.Config, dbName string) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, cfg.User, cfg.Password, dbName,
	)
}

func (d *Driver) Execute(ctx context.Context, stmt string) error {
	_, err := d.adminDB.ExecContext(ctx, stmt)
	return err
}

// workingDB lazily opens and caches the connection bound to the working
// database, deferred until after CREATE_DB/RESTORE_DB so New doesn't have to
// connect to a database that doesn't exist yet.
func (d *Driver) workingDB(ctx context.Context) (*sql.DB, error) {
	if d.db != nil {
		return d.db, nil
	}
	db, err := sql.Open("postgres", dsnFor(d.cfg, d.cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("open postgres working-database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &driver.DependencyError{Tool: "postgres (network)", Err: err}
	}
	d.db = db
	return db, nil
}

func (d *Driver) DBExecute(ctx context.Context, stmt string) error {
	db, err := d.workingDB(ctx)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, stmt)
	return err
}

func (d *Driver) SingleResult(ctx context.Context, stmt string) (string, error) {
	db, err := d.workingDB(ctx)
	if err != nil {
		return "", err
	}
	var out sql.NullString
	if err := db.QueryRowContext(ctx, stmt).Scan(&out); err != nil {
		return "", err
	}
	return out.String, nil
}

func (d *Driver) TestConnection(ctx context.Context) bool {
	return d.adminDB.PingContext(ctx) == nil
}

func (d *Driver) Close() error {
	var err error
	if d.db != nil {
		err = d.db.Close()
	}
	if cerr := d.adminDB.Close(); err == nil {
		err = cerr
	}
	return err
}

func (d *Driver) Streamable() bool { return true }

func (d *Driver) env() []string {
	env := os.Environ()
	if d.cfg.Password != "" {
		env = append(env, "PGPASSWORD="+d.cfg.Password)
	}
	return env
}

func (d *Driver) baseArgs() []string {
	var args []string
	if d.cfg.Host != "" {
		args = append(args, "-h", d.cfg.Host)
	}
	if d.cfg.Port != "" {
		args = append(args, "-p", d.cfg.Port)
	}
	if d.cfg.User != "" {
		args = append(args, "-U", d.cfg.User)
	}
	return args
}

func (d *Driver) extraArgs(extraOpts string) ([]string, error) {
	if extraOpts == "" {
		return nil, nil
	}
	extra, err := shlex.Split(extraOpts)
	if err != nil {
		return nil, fmt.Errorf("split extra postgres options: %w", err)
	}
	return extra, nil
}

func (d *Driver) OpenRestoreSink(ctx context.Context) (io.WriteCloser, error) {
	extra, err := d.extraArgs(d.cfg.ExtraCmdOpts)
	if err != nil {
		return nil, err
	}
	args := append(d.baseArgs(), "-d", d.cfg.Name, "-v", "ON_ERROR_STOP=1")
	args = append(args, extra...)
	cmd := exec.CommandContext(ctx, "psql", args...)
	cmd.Env = d.env()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &driver.DependencyError{Tool: "psql", Err: err}
	}
	return &processSink{cmd: cmd, stdin: stdin}, nil
}

func (d *Driver) OpenDumpSource(ctx context.Context) (io.ReadCloser, error) {
	extra, err := d.extraArgs(d.cfg.ExtraDumpOpts)
	if err != nil {
		return nil, err
	}
	args := append(d.baseArgs(), "-d", d.cfg.Name)
	args = append(args, extra...)
	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	cmd.Env = d.env()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &driver.DependencyError{Tool: "pg_dump", Err: err}
	}
	return &processSource{cmd: cmd, stdout: stdout}, nil
}

func (d *Driver) RestoreFromPath(ctx context.Context, path string) error {
	return fmt.Errorf("postgres: file-level restore not supported, use OpenRestoreSink")
}

func (d *Driver) DumpToPath(ctx context.Context, path string) error {
	return fmt.Errorf("postgres: file-level dump not supported, use OpenDumpSource")
}

func (d *Driver) DumpSizeEstimate(ctx context.Context) (int64, bool) {
	var size sql.NullInt64
	err := d.adminDB.QueryRowContext(ctx, "SELECT pg_database_size($1)", d.cfg.Name).Scan(&size)
	if err != nil || !size.Valid {
		return 0, false
	}
	return size.Int64, true
}

type processSink struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func (s *processSink) Write(p []byte) (int, error) { return s.stdin.Write(p) }

func (s *processSink) Close() error {
	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return &driver.DependencyError{Tool: "psql", Err: err}
	}
	return nil
}

type processSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (s *processSource) Read(p []byte) (int, error) { return s.stdout.Read(p) }

func (s *processSource) Close() error {
	_ = s.stdout.Close()
	if err := s.cmd.Wait(); err != nil {
		return &driver.DependencyError{Tool: "pg_dump", Err: err}
	}
	return nil
}
