package repos

import (
	"database/sql"
	"embed"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"litledger/internal/domain"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

//go:embed migrations
var migrations embed.FS

// OpenDB connects to the configured backend and brings the schema up to date.
// dialect is "sqlite" (default) or "postgres".
func OpenDB(dialect, dsn string) (*sqlx.DB, error) {
	if dialect == "" {
		dialect = DialectSQLite
	}
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", dialect)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// one connection: writers are serialised and :memory: stays a single database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if dialect == DialectSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := ensureSchema(db, dialect); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate schema")
	}
	log.Printf("[db] %s ready", dialect)
	return db, nil
}

func ensureSchema(db *sqlx.DB, dialect string) error {
	src, err := iofs.New(migrations, "migrations/"+dialect)
	if err != nil {
		return err
	}

	var drv database.Driver
	switch dialect {
	case DialectPostgres:
		drv, err = pgxmigrate.WithInstance(db.DB, &pgxmigrate.Config{})
	default:
		drv, err = sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	}
	if err != nil {
		return err
	}

	// m.Close would close db as well, so the migrator is simply dropped.
	m, err := migrate.NewWithInstance("iofs", src, dialect, drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// storeErr maps driver errors onto the domain taxonomy.
func storeErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(domain.ErrNotFound, format, args...)
	}
	return errors.Wrapf(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err), format, args...)
}

func isPostgres(db *sqlx.DB) bool { return db.DriverName() == "pgx" }
