package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

const catalogCacheSize = 1024

// Resolver determines which target hosts a table.
//
// Targets are probed in priority order and the first target whose catalog lists
// the table wins. A table which exists in several targets is therefore always
// served by the one with the highest priority.
type Resolver struct {
	provider  csql.Provider
	priority  []csql.Target
	allowList map[string]bool
	cache     *expirable.LRU[string, csql.Target]
}

// ResolverOptions configures the optional behavior of a Resolver
type ResolverOptions struct {
	// AllowList restricts resolution to these tables. Empty means all tables.
	AllowList []string
	// CacheTTL caches resolved targets for this long. Zero disables the cache.
	CacheTTL time.Duration
}

// NewResolver returns a resolver probing the targets in the given priority
func NewResolver(provider csql.Provider, priority []csql.Target, options ResolverOptions) *Resolver {
	r := &Resolver{
		provider: provider,
		priority: priority,
	}
	if len(options.AllowList) > 0 {
		r.allowList = map[string]bool{}
		for _, table := range options.AllowList {
			r.allowList[table] = true
		}
	}
	if options.CacheTTL > 0 {
		r.cache = expirable.NewLRU[string, csql.Target](catalogCacheSize, nil, options.CacheTTL)
	}
	return r
}

func tableNotFound(table string) *Error {
	return &Error{Kind: KindTableNotFound, Message: fmt.Sprintf("Table '%s' not found in either database.", table)}
}

// Resolve returns a live handle to the target which hosts the table. The caller
// owns the handle and must release it.
//
// An unreachable target counts as "not found there". If no target is reachable,
// Resolve fails with KindDatabaseUnavailable, otherwise a table which is in none
// of the targets fails with KindTableNotFound. All handles acquired on the way are
// released before Resolve returns.
func (r *Resolver) Resolve(ctx context.Context, table string) (*csql.Handle, error) {
	rlog := logger.FromContext(ctx).WithField("table", table)

	if r.allowList != nil && !r.allowList[table] {
		rlog.Warnln("table is not in the allow-list")
		return nil, tableNotFound(table)
	}

	if r.cache != nil {
		if target, ok := r.cache.Get(table); ok {
			h, err := r.provider.Acquire(ctx, target)
			if err == nil {
				return h, nil
			}
			rlog.WithError(err).Warnf("cached target %s is not reachable", target)
			r.cache.Remove(table)
		}
	}

	unreachable := 0
	var lastErr error
	for _, target := range r.priority {
		h, err := r.provider.Acquire(ctx, target)
		if err != nil {
			rlog.WithError(err).Warnf("target %s is not reachable", target)
			unreachable++
			lastErr = err
			continue
		}
		exists, err := h.TableExists(ctx, table)
		if err != nil {
			rlog.WithError(err).Errorf("Error 5701: cannot query catalog of target %s", target)
			h.Release()
			unreachable++
			lastErr = err
			continue
		}
		if exists {
			if r.cache != nil {
				r.cache.Add(table, target)
			}
			return h, nil
		}
		h.Release()
	}

	if unreachable == len(r.priority) && unreachable > 0 {
		return nil, newError(KindDatabaseUnavailable, "Database unavailable", lastErr)
	}
	return nil, tableNotFound(table)
}
