package gateway

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

// MutationEvent is the payload sent to the notifier after a successful mutation
type MutationEvent struct {
	Operation core.Operation `json:"operation"`
	Table     string         `json:"table"`
	Database  csql.Target    `json:"database"`
	Identity  string         `json:"identity,omitempty"`
	Affected  int64          `json:"affected"`
}

func (g *Gateway) notify(ctx context.Context, auth *access.Authorization, table string, operation core.Operation, database csql.Target, affected int64) {
	if g.notifier == nil {
		return
	}
	event := MutationEvent{
		Operation: operation,
		Table:     table,
		Database:  database,
		Affected:  affected,
	}
	if auth != nil {
		event.Identity = auth.Identity
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 5703: cannot marshal mutation event")
		return
	}
	g.notifier.Notify(ctx, table, operation, payload)
}
