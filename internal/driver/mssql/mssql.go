// Package mssql implements the Driver contract for MSSQL. Backup/restore
// are file-level operations against paths on the SQL Server host; there is
// no streaming sink/source, only RestoreFromPath/DumpToPath.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"nonymizer/internal/driver"
)

// Driver implements driver.Driver for MSSQL. adminDB carries no database=
// clause (defaulting to master) and is used for Execute plus every
// restore/backup operation, since those can't run bound to a database that
// may not exist yet (pre-restore) or must be replaced (RESTORE ... REPLACE).
// db is bound to the working database and opened lazily, once CREATE_DB/
// RESTORE_DB have actually created it.
type Driver struct {
	cfg         driver.Config
	adminDB     *sql.DB
	db          *sql.DB
	dbName      string
	connString  string
	compression bool
}

// New opens the admin connection. A non-empty connectionString is used
// verbatim for the working connection (user-supplied keys are never
// overridden). The admin connection is always built from cfg with no
// database= clause, so it defaults to master and does not use the override,
// since CREATE/RESTORE/DROP DATABASE must run outside the working database.
func New(ctx context.Context, cfg driver.Config, connectionString string) (*Driver, error) {
	workingCS := connectionString
	if workingCS == "" {
		workingCS = buildConnString(cfg, cfg.Name)
	}
	adminCS := buildConnString(cfg, "")

	adminDB, err := sql.Open("sqlserver", adminCS)
	if err != nil {
		return nil, fmt.Errorf("open mssql connection: %w", err)
	}
	if err := adminDB.PingContext(ctx); err != nil {
		_ = adminDB.Close()
		return nil, &driver.DependencyError{Tool: "mssql (native driver)", Err: err}
	}
	return &Driver{
		cfg: cfg, adminDB: adminDB, dbName: cfg.Name, connString: workingCS,
		compression: cfg.MSSQLBackupCompression,
	}, nil
}

func buildConnString(cfg driver.Config, dbName string) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	parts := []string{fmt.Sprintf("server=%s", host)}
	if cfg.Port != "" {
		parts = append(parts, fmt.Sprintf("port=%s", cfg.Port))
	}
	if cfg.User != "" {
		parts = append(parts, fmt.Sprintf("user id=%s", cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	} else {
		parts = append(parts, "integrated security=true")
	}
	if dbName != "" {
		parts = append(parts, fmt.Sprintf("database=%s", dbName))
	}
	return strings.Join(parts, ";")
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
	db, err := sql.Open("sqlserver", d.connString)
	if err != nil {
		return nil, fmt.Errorf("open mssql working-database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &driver.DependencyError{Tool: "mssql (native driver)", Err: err}
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

func (d *Driver) Streamable() bool { return false }

func (d *Driver) OpenRestoreSink(ctx context.Context) (io.WriteCloser, error) {
	return nil, fmt.Errorf("mssql: restore is file-level, use RestoreFromPath")
}

func (d *Driver) OpenDumpSource(ctx context.Context) (io.ReadCloser, error) {
	return nil, fmt.Errorf("mssql: dump is file-level, use DumpToPath")
}

// logicalFile is one row of a RESTORE FILELISTONLY result set.
type logicalFile struct {
	LogicalName string
	PhysicalName string
	Type         string // 'D' data, 'L' log
}

func (d *Driver) enumerateFiles(ctx context.Context, backupPath string) ([]logicalFile, error) {
	rows, err := d.adminDB.QueryContext(ctx, "RESTORE FILELISTONLY FROM DISK = @p1", backupPath)
	if err != nil {
		return nil, &driver.DependencyError{Tool: "mssql RESTORE FILELISTONLY", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var files []logicalFile
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		lf := logicalFile{}
		for i, c := range cols {
			switch strings.ToLower(c) {
			case "logicalname":
				lf.LogicalName, _ = vals[i].(string)
			case "physicalname":
				lf.PhysicalName, _ = vals[i].(string)
			case "type":
				lf.Type, _ = vals[i].(string)
			}
		}
		files = append(files, lf)
	}
	return files, rows.Err()
}

// defaultFolders discovers the server's default data/log folders via
// sys.master_files for the model database.
func (d *Driver) defaultFolders(ctx context.Context) (dataDir, logDir string, err error) {
	rows, err := d.adminDB.QueryContext(ctx, `
		SELECT mf.physical_name, mf.type
		FROM sys.master_files mf
		JOIN sys.databases db ON db.database_id = mf.database_id
		WHERE db.name = 'model'
	`)
	if err != nil {
		return "", "", err
	}
	defer rows.Close()

	for rows.Next() {
		var physical string
		var typ int
		if err := rows.Scan(&physical, &typ); err != nil {
			return "", "", err
		}
		dir := filepath.Dir(physical)
		if typ == 0 {
			dataDir = dir
		} else if typ == 1 {
			logDir = dir
		}
	}
	return dataDir, logDir, rows.Err()
}

// RestoreFromPath enumerates the backup's logical files, builds MOVE clauses
// redirecting data files to the default data folder and log files to the
// default log folder (each renamed "<dbname>_<basename>"), and issues the
// RESTORE with STATS = 5 for progress.
func (d *Driver) RestoreFromPath(ctx context.Context, path string) error {
	files, err := d.enumerateFiles(ctx, path)
	if err != nil {
		return err
	}
	dataDir, logDir, err := d.defaultFolders(ctx)
	if err != nil {
		return err
	}

	moves := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f.PhysicalName)
		dir := dataDir
		if strings.EqualFold(filepath.Ext(base), ".ldf") || strings.EqualFold(f.Type, "L") {
			dir = logDir
		}
		target := filepath.Join(dir, fmt.Sprintf("%s_%s", d.dbName, base))
		moves = append(moves, fmt.Sprintf("MOVE %s TO %s",
			quoteString(f.LogicalName), quoteString(target)))
	}

	stmt := fmt.Sprintf(
		"RESTORE DATABASE %s FROM DISK = %s WITH %s, STATS = 5",
		quoteIdentifier(d.dbName), quoteString(path), strings.Join(append(moves, "REPLACE"), ", "),
	)
	_, err = d.adminDB.ExecContext(ctx, stmt)
	if err != nil {
		return &driver.DependencyError{Tool: "mssql RESTORE DATABASE", Err: err}
	}
	return nil
}

// DumpToPath issues a BACKUP DATABASE to the given server-local path.
func (d *Driver) DumpToPath(ctx context.Context, path string) error {
	with := "STATS = 5"
	if d.compression {
		with += ", COMPRESSION"
	}
	stmt := fmt.Sprintf(
		"BACKUP DATABASE %s TO DISK = %s WITH %s",
		quoteIdentifier(d.dbName), quoteString(path), with,
	)
	if _, err := d.adminDB.ExecContext(ctx, stmt); err != nil {
		return &driver.DependencyError{Tool: "mssql BACKUP DATABASE", Err: err}
	}
	return nil
}

func (d *Driver) DumpSizeEstimate(ctx context.Context) (int64, bool) {
	var size sql.NullInt64
	err := d.adminDB.QueryRowContext(
		ctx,
		"SELECT SUM(size) * 8 * 1024 FROM sys.master_files WHERE database_id = DB_ID(@p1)",
		d.dbName,
	).Scan(&size)
	if err != nil || !size.Valid {
		return 0, false
	}
	return size.Int64, true
}

func quoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
