package csql

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // load database driver for mysql
	_ "github.com/lib/pq"              // load database driver for postgres
	_ "modernc.org/sqlite"             // load database driver for sqlite
)

// Dialect encapsulates database-engine-specific behavior.
type Dialect interface {
	// DriverName returns the database/sql driver name
	DriverName() string

	// Placeholder returns the parameter placeholder for the n-th parameter (1-based)
	Placeholder(n int) string

	// TableExistsQuery returns SQL which selects one row if the table passed as
	// the only parameter exists in the current database, and no row otherwise
	TableExistsQuery() string

	// SupportsLastInsertID returns true if the driver reports generated row identifiers
	SupportsLastInsertID() bool
}

// DialectFor returns the dialect for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "mariadb":
		return mysqlDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q: supported drivers are mysql, postgres, sqlite", driver)
}

type mysqlDialect struct{}

func (mysqlDialect) DriverName() string         { return "mysql" }
func (mysqlDialect) Placeholder(int) string     { return "?" }
func (mysqlDialect) SupportsLastInsertID() bool { return true }
func (mysqlDialect) TableExistsQuery() string {
	return "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?"
}

type postgresDialect struct{}

func (postgresDialect) DriverName() string         { return "postgres" }
func (postgresDialect) Placeholder(n int) string   { return "$" + strconv.Itoa(n) }
func (postgresDialect) SupportsLastInsertID() bool { return false }
func (postgresDialect) TableExistsQuery() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) Placeholder(int) string     { return "?" }
func (sqliteDialect) SupportsLastInsertID() bool { return true }
func (sqliteDialect) TableExistsQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?"
}
