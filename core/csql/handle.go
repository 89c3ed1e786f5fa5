package csql

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Handle is a live connection to one target, scoped to a single request.
//
// A handle must be released exactly once on every path. Release is
// idempotent, additional calls do nothing.
type Handle struct {
	Target  Target
	Dialect Dialect

	conn    *sqlx.Conn
	release func() error
	once    sync.Once
	err     error
}

// NewHandle wraps a connection. The release function is called by the first Release
func NewHandle(target Target, dialect Dialect, conn *sqlx.Conn, release func() error) *Handle {
	return &Handle{
		Target:  target,
		Dialect: dialect,
		conn:    conn,
		release: release,
	}
}

// Release returns the connection. It is safe to call Release more than once.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if h.release != nil {
			h.err = h.release()
		}
	})
	return h.err
}

// Exec executes a statement which does not return rows
func (h *Handle) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.conn.ExecContext(ctx, query, args...)
}

// Query executes a statement and returns all rows, each row as a map from column name
// to normalized value
func (h *Handle) Query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := h.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// TableExists returns true if the table exists in this target's current database.
// The comparison is exact, case sensitivity follows the database's collation.
func (h *Handle) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := h.conn.QueryRowxContext(ctx, h.Dialect.TableExistsQuery(), table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
