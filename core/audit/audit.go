// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package audit provides notifiers for the mutations executed by the gateway.

The LogNotifier writes every event to the request logger. The KafkaNotifier
publishes every event to a Kafka topic, keyed by table name, so that events
for one table keep their order.
*/
package audit

import (
	"context"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/logger"
)

// LogNotifier logs mutation events
type LogNotifier struct{}

// Notify implements core.Notifier
func (LogNotifier) Notify(ctx context.Context, table string, operation core.Operation, payload []byte) {
	logger.FromContext(ctx).WithField("table", table).WithField("operation", operation).Infof("mutation %s", payload)
}

// MultiNotifier fans out events to several notifiers
type MultiNotifier []core.Notifier

// Notify implements core.Notifier
func (m MultiNotifier) Notify(ctx context.Context, table string, operation core.Operation, payload []byte) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, table, operation, payload)
		}
	}
}
