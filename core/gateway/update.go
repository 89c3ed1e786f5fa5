// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

// UpdateResult is the response of an update
type UpdateResult struct {
	Message     string      `json:"message"`
	RowsUpdated int64       `json:"rows_updated"`
	Database    csql.Target `json:"database"`
}

const updateBadRequest = `Both "attributes" and "attributes_changed" are required`

// Update sets the changed attributes on all rows matching the filter attributes.
// Requires a role permitted to update.
//
// An update which matches no row fails with KindNotFound. The result is returned
// together with that error and reports zero rows.
func (g *Gateway) Update(ctx context.Context, auth *access.Authorization, table string, request UpdateRequest) (*UpdateResult, error) {
	if err := g.authorize(ctx, auth, core.OperationUpdate); err != nil {
		return nil, err
	}
	if len(request.Attributes) == 0 || len(request.AttributesChanged) == 0 {
		return nil, &Error{Kind: KindBadRequest, Message: `Empty "attributes" or "attributes_changed"`}
	}

	h, err := g.resolver.Resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	rlog := logger.FromContext(ctx).WithField("table", table).WithField("database", h.Target)
	statement, err := BuildUpdate(h.Dialect, table, request.Attributes, request.AttributesChanged)
	if err != nil {
		return nil, newError(KindBadRequest, updateBadRequest, err)
	}
	res, err := h.Exec(ctx, statement.SQL, statement.Params...)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5711: cannot execute update `%s`", statement.SQL)
		return nil, executionFailed("Database update failed", h.Target, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rlog.WithError(err).Errorf("Error 5712: cannot read affected rows")
		return nil, executionFailed("Database update failed", h.Target, err)
	}

	if affected == 0 {
		rlog.Infoln("update matched no row")
		return &UpdateResult{Message: "No matching record found to update", Database: h.Target},
			&Error{Kind: KindNotFound, Message: "No matching record found to update", Database: h.Target}
	}
	rlog.Infof("updated %d row(s)", affected)
	g.notify(ctx, auth, table, core.OperationUpdate, h.Target, affected)
	return &UpdateResult{Message: "Update successful", RowsUpdated: affected, Database: h.Target}, nil
}

type updateNotFoundResponse struct {
	Error       string      `json:"error"`
	RowsUpdated int64       `json:"rows_updated"`
	Database    csql.Target `json:"database"`
}

func (g *Gateway) handleUpdate(w http.ResponseWriter, r *http.Request) {
	auth, err := g.beginRequest(r, core.OperationUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var request UpdateRequest
	if err = g.decodeRequest(r, updateSchemaID, updateBadRequest, &request); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := g.requestContext(r)
	defer cancel()
	result, err := g.Update(ctx, auth, mux.Vars(r)["table"], request)
	if errors.Is(err, ErrNotFound) && result != nil {
		writeJSON(w, r, http.StatusNotFound, updateNotFoundResponse{
			Error:       result.Message,
			RowsUpdated: result.RowsUpdated,
			Database:    result.Database,
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
