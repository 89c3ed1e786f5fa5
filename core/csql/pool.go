package csql

import (
	"context"
	"errors"
	"fmt"

	"github.com/relabs-tech/tablegate/core/logger"
)

// ErrUnavailable is returned when a connection to a target cannot be established
var ErrUnavailable = errors.New("database unavailable")

// Provider hands out request scoped connections to the targets
type Provider interface {
	Acquire(ctx context.Context, target Target) (*Handle, error)
}

// Pool is the Provider for a set of opened databases, one per target
type Pool struct {
	dbs map[Target]*DB
}

// NewPool returns a pool for the databases. Later databases replace earlier ones
// for the same target.
func NewPool(dbs ...*DB) *Pool {
	p := &Pool{dbs: map[Target]*DB{}}
	for _, db := range dbs {
		if db != nil {
			p.dbs[db.Target] = db
		}
	}
	return p
}

// Acquire opens a dedicated connection to the target and verifies it is alive.
// All failures wrap ErrUnavailable.
func (p *Pool) Acquire(ctx context.Context, target Target) (*Handle, error) {
	db, ok := p.dbs[target]
	if !ok {
		return nil, fmt.Errorf("%w: no database configured for target %s", ErrUnavailable, target)
	}
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, target, err)
	}
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, target, err)
	}
	return NewHandle(target, db.Dialect, conn, conn.Close), nil
}

// Ping checks every target and returns the error per target, nil for healthy ones
func (p *Pool) Ping(ctx context.Context) map[Target]error {
	result := map[Target]error{}
	for target, db := range p.dbs {
		result[target] = db.PingContext(ctx)
	}
	return result
}

// Targets returns the configured targets
func (p *Pool) Targets() []Target {
	targets := []Target{}
	for _, target := range []Target{TargetG3, TargetCIMS} {
		if _, ok := p.dbs[target]; ok {
			targets = append(targets, target)
		}
	}
	return targets
}

// Close closes all databases
func (p *Pool) Close() {
	for target, db := range p.dbs {
		if err := db.Close(); err != nil {
			logger.Default().WithError(err).Errorf("Error 4730: cannot close database for target %s", target)
		}
	}
}
