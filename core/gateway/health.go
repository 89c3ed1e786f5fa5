// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"context"
	"net/http"

	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

// Health reports for every target whether a connection can be acquired
func (g *Gateway) Health(ctx context.Context) (map[csql.Target]string, bool) {
	status := map[csql.Target]string{}
	healthy := true
	for _, target := range g.priority {
		h, err := g.provider.Acquire(ctx, target)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warnf("target %s is down", target)
			status[target] = "down"
			healthy = false
			continue
		}
		h.Release()
		status[target] = "up"
	}
	return status, healthy
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()
	status, healthy := g.Health(ctx)
	if !healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}
