// Package mysql implements the Driver contract for MySQL, wrapping the
// go-sql-driver/mysql network driver for statement execution and the mysql/
// mysqldump client tools for streaming restore/dump.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os/exec"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/shlex"

	"nonymizer/internal/driver"
)

// Driver implements driver.Driver for MySQL. It holds two connections: adminDB
// carries no default database, for Execute (CREATE/DROP DATABASE, run before
// the working database exists or after it's gone); db is bound to the working
// database and opened lazily on first DBExecute/SingleResult call, once
// CREATE_DB/RESTORE_DB have actually created it.
type Driver struct {
	cfg     driver.Config
	adminDB *sql.DB
	db      *sql.DB
}

// New opens the admin connection used for Execute. Streaming restore/dump are
// separate mysql/mysqldump subprocess invocations.
func New(ctx context.Context, cfg driver.Config) (*Driver, error) {
	adminDB, err := sql.Open("mysql", dsnFor(cfg, ""))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	if err := adminDB.PingContext(ctx); err != nil {
		_ = adminDB.Close()
		return nil, &driver.DependencyError{Tool: "mysql (network)", Err: err}
	}
	return &Driver{cfg: cfg, adminDB: adminDB}, nil
}

// dsnFor builds a DSN bound to exactly dbName, with no fallback — an empty
// dbName yields a connection with no default database selected, the shape
// the admin connection needs so it can run outside any particular database.
func dsnFor(cfg driver.Config, dbName string) string {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", cfg.User, cfg.Password, host, port, dbName)
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
	db, err := sql.Open("mysql", dsnFor(d.cfg, d.cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("open mysql working-database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &driver.DependencyError{Tool: "mysql (network)", Err: err}
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
	// Fixed 200ms settle delay before the connections are closed. It runs
	// whenever the driver is closed (after the dump, for the pipeline's
	// driver); it does not separate the seed-table drop from the dump.
	time.Sleep(200 * time.Millisecond)
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

func (d *Driver) argv(baseArgs []string, extraOpts string) ([]string, error) {
	args := append([]string(nil), baseArgs...)
	if d.cfg.Host != "" {
		args = append(args, "-h", d.cfg.Host)
	}
	if d.cfg.Port != "" {
		args = append(args, "-P", d.cfg.Port)
	}
	if d.cfg.User != "" {
		args = append(args, "-u", d.cfg.User)
	}
	if d.cfg.Password != "" {
		args = append(args, fmt.Sprintf("-p%s", d.cfg.Password))
	}
	if extraOpts != "" {
		extra, err := shlex.Split(extraOpts)
		if err != nil {
			return nil, fmt.Errorf("split extra mysql options: %w", err)
		}
		args = append(args, extra...)
	}
	return args, nil
}

// OpenRestoreSink spawns `mysql <db>` and returns its stdin; the engine
// writes raw dump bytes to it.
func (d *Driver) OpenRestoreSink(ctx context.Context) (io.WriteCloser, error) {
	args, err := d.argv([]string{d.cfg.Name}, d.cfg.ExtraCmdOpts)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "mysql", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &driver.DependencyError{Tool: "mysql", Err: err}
	}
	return &processSink{cmd: cmd, stdin: stdin, password: d.cfg.Password}, nil
}

// OpenDumpSource spawns `mysqldump <db>` and returns its stdout.
func (d *Driver) OpenDumpSource(ctx context.Context) (io.ReadCloser, error) {
	args, err := d.argv([]string{d.cfg.Name}, d.cfg.ExtraDumpOpts)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &driver.DependencyError{Tool: "mysqldump", Err: err}
	}
	return &processSource{cmd: cmd, stdout: stdout, password: d.cfg.Password}, nil
}

func (d *Driver) RestoreFromPath(ctx context.Context, path string) error {
	return fmt.Errorf("mysql: file-level restore not supported, use OpenRestoreSink")
}

func (d *Driver) DumpToPath(ctx context.Context, path string) error {
	return fmt.Errorf("mysql: file-level dump not supported, use OpenDumpSource")
}

func (d *Driver) DumpSizeEstimate(ctx context.Context) (int64, bool) {
	var size sql.NullInt64
	err := d.adminDB.QueryRowContext(
		ctx,
		"SELECT SUM(data_length + index_length) FROM information_schema.tables WHERE table_schema = ?",
		d.cfg.Name,
	).Scan(&size)
	if err != nil || !size.Valid {
		return 0, false
	}
	return size.Int64, true
}

type processSink struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	password string
}

func (s *processSink) Write(p []byte) (int, error) { return s.stdin.Write(p) }

func (s *processSink) Close() error {
	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return &driver.DependencyError{Tool: "mysql", Err: scrubExitErr(err, s.cmd.Args, s.password)}
	}
	return nil
}

type processSource struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	password string
}

func (s *processSource) Read(p []byte) (int, error) { return s.stdout.Read(p) }

func (s *processSource) Close() error {
	_ = s.stdout.Close()
	if err := s.cmd.Wait(); err != nil {
		return &driver.DependencyError{Tool: "mysqldump", Err: scrubExitErr(err, s.cmd.Args, s.password)}
	}
	return nil
}

func scrubExitErr(err error, argv []string, password string) error {
	scrubbed := driver.ScrubPassword(argv, fmt.Sprintf("-p%s", password))
	return fmt.Errorf("%v (command: %v)", err, scrubbed)
}
