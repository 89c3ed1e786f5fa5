// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

// InsertResult is the response of a successful insert
type InsertResult struct {
	Message string `json:"message"`
	// InsertedID is the generated row identifier, nil if the target does not report one
	InsertedID *int64      `json:"inserted_id"`
	Database   csql.Target `json:"database"`
}

// Insert inserts a single row into the table. Requires a role permitted to insert.
func (g *Gateway) Insert(ctx context.Context, auth *access.Authorization, table string, request InsertRequest) (*InsertResult, error) {
	if err := g.authorize(ctx, auth, core.OperationInsert); err != nil {
		return nil, err
	}
	if len(request.Attributes) == 0 {
		return nil, &Error{Kind: KindBadRequest, Message: "Missing attributes in request"}
	}

	h, err := g.resolver.Resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	rlog := logger.FromContext(ctx).WithField("table", table).WithField("database", h.Target)
	statement, err := BuildInsert(h.Dialect, table, request.Attributes)
	if err != nil {
		return nil, newError(KindBadRequest, "Missing attributes in request", err)
	}
	res, err := h.Exec(ctx, statement.SQL, statement.Params...)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5710: cannot execute insert `%s`", statement.SQL)
		return nil, executionFailed("Database insert failed", h.Target, err)
	}

	result := &InsertResult{Message: "Insert successful", Database: h.Target}
	if h.Dialect.SupportsLastInsertID() {
		if id, err := res.LastInsertId(); err == nil {
			result.InsertedID = &id
		}
	}
	rlog.Infoln("inserted row")
	g.notify(ctx, auth, table, core.OperationInsert, h.Target, 1)
	return result, nil
}

func (g *Gateway) handleInsert(w http.ResponseWriter, r *http.Request) {
	auth, err := g.beginRequest(r, core.OperationInsert)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var request InsertRequest
	if err = g.decodeRequest(r, insertSchemaID, "Missing attributes in request", &request); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := g.requestContext(r)
	defer cancel()
	result, err := g.Insert(ctx, auth, mux.Vars(r)["table"], request)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}
