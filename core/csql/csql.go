/*
Package csql provides the database handles of the gateway.

The gateway talks to exactly two independent relational databases, the targets
G3 and CIMS. Each target is opened once at startup with Open and shared through
a Pool. Requests never use the pool directly, they acquire a dedicated
connection wrapped in a Handle and release it when they are done:

	h, err := pool.Acquire(ctx, csql.TargetG3)
	if err != nil {
		return err // csql.ErrUnavailable
	}
	defer h.Release()
*/
package csql

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/relabs-tech/tablegate/core/logger"
)

// Target names one of the two independent databases
type Target string

// the two targets of the gateway
const (
	TargetG3   Target = "G3"
	TargetCIMS Target = "CIMS"
)

// DB encapsulates a sqlx.DB with the target it serves and its SQL dialect
type DB struct {
	*sqlx.DB
	Target  Target
	Dialect Dialect
}

// Open opens the database for a target. Supported drivers are "mysql",
// "postgres" and "sqlite", see DialectFor.
//
// Open does not connect yet. A target which cannot be reached is reported
// when a connection is acquired, so that the gateway can keep serving the
// other target.
func Open(target Target, driver, dataSourceName string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	nillog := logger.FromContext(nil).WithField("target", target)
	switch dialect.DriverName() {
	case "mysql":
		cfg, err := mysqldriver.ParseDSN(dataSourceName)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn for target %s: %w", target, err)
		}
		nillog.Infof("connecting to mysql database %s at %s", cfg.DBName, cfg.Addr)
	default:
		nillog.Infof("connecting to %s database", dialect.DriverName())
	}

	db, err := sqlx.Open(dialect.DriverName(), dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("cannot open database for target %s: %w", target, err)
	}
	return &DB{DB: db, Target: target, Dialect: dialect}, nil
}
