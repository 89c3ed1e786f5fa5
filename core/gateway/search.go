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

// SearchResult is the response of a search. The rows come in the order the
// target returns them.
type SearchResult struct {
	Results  []csql.Row  `json:"results"`
	Database csql.Target `json:"database"`
}

const searchBadRequest = "Missing attributes_like in request"

// Search returns all rows where every given column contains its value as a substring
func (g *Gateway) Search(ctx context.Context, auth *access.Authorization, table string, request SearchRequest) (*SearchResult, error) {
	if err := g.authorize(ctx, auth, core.OperationSearch); err != nil {
		return nil, err
	}
	if len(request.AttributesLike) == 0 {
		return nil, &Error{Kind: KindBadRequest, Message: "attributes_like must be a non-empty dictionary"}
	}

	h, err := g.resolver.Resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	rlog := logger.FromContext(ctx).WithField("table", table).WithField("database", h.Target)
	statement, err := BuildLike(h.Dialect, table, request.AttributesLike)
	if err != nil {
		return nil, newError(KindBadRequest, searchBadRequest, err)
	}
	rows, err := h.Query(ctx, statement.SQL, statement.Params...)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5730: cannot execute search `%s`", statement.SQL)
		return nil, executionFailed("Search failed", h.Target, err)
	}
	rlog.Debugf("search found %d row(s)", len(rows))
	return &SearchResult{Results: rows, Database: h.Target}, nil
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	auth, err := g.beginRequest(r, core.OperationSearch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var request SearchRequest
	if err = g.decodeRequest(r, searchSchemaID, searchBadRequest, &request); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := g.requestContext(r)
	defer cancel()
	result, err := g.Search(ctx, auth, mux.Vars(r)["table"], request)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
