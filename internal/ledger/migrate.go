package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

type DBDriver string

const (
	DBSQLite   DBDriver = "sqlite"
	DBPostgres DBDriver = "postgres"
)

// dialect holds what differs between the SQL backends of the local ledger.
type dialect struct {
	dir     string
	table   string
	ddl     string
	record  string
	stampAt func(time.Time) any
}

var dialects = map[DBDriver]dialect{
	DBSQLite: {
		dir:     "migrations/sqlite",
		table:   "schema_migrations",
		ddl:     "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL)",
		record:  "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?) ON CONFLICT(version) DO NOTHING",
		stampAt: func(t time.Time) any { return t.Format(time.RFC3339) },
	},
	DBPostgres: {
		dir:     "migrations/postgres",
		table:   "courseledger_schema_migrations",
		ddl:     "CREATE TABLE IF NOT EXISTS courseledger_schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL)",
		record:  "INSERT INTO courseledger_schema_migrations(version, applied_at) VALUES($1, $2) ON CONFLICT(version) DO NOTHING",
		stampAt: func(t time.Time) any { return t },
	},
}

func dialectFor(driver DBDriver) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported db driver: %q", driver)
	}
	return d, nil
}

// Migrate brings the course record schema up to date and returns the
// versions it applied. Each version is claimed and applied in one
// transaction, so concurrent gateways starting on one database apply it once.
func Migrate(ctx context.Context, db *sql.DB, driver DBDriver) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("missing db")
	}
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, d.ddl); err != nil {
		return nil, fmt.Errorf("create %s: %w", d.table, err)
	}

	versions, err := pendingVersions(d.dir)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, version := range versions {
		ok, err := applyVersion(ctx, db, d, version)
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", version, err)
		}
		if ok {
			applied = append(applied, version)
		}
	}
	return applied, nil
}

func applyVersion(ctx context.Context, db *sql.DB, d dialect, version string) (bool, error) {
	body, err := migrationsFS.ReadFile(path.Join(d.dir, version+".sql"))
	if err != nil {
		return false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, d.record, version, d.stampAt(time.Now().UTC()))
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// pendingVersions lists the embedded migration versions under dir in
// lexical order, which is also their apply order.
func pendingVersions(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), ".sql"))
	}
	sort.Strings(versions)
	return versions, nil
}
