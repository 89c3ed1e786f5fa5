// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

/*
Deletion is a two phase protocol without server side state. A request without
confirmation returns a preview of the matching rows and never mutates data. A
confirmed request deletes whatever matches the filter at that moment; it is not
linked to an earlier preview, the caller has to resend the same filter.
*/

// DeletePreview is the response of an unconfirmed delete
type DeletePreview struct {
	Preview         string      `json:"preview"`
	MatchingRows    []csql.Row  `json:"matching_rows"`
	Count           int         `json:"count"`
	ConfirmRequired bool        `json:"confirm_required"`
	Database        csql.Target `json:"database"`
}

// DeleteResult is the response of a confirmed delete
type DeleteResult struct {
	Message     string      `json:"message"`
	RowsDeleted int64       `json:"rows_deleted"`
	Database    csql.Target `json:"database"`
}

const deleteBadRequest = "Missing check_attributes in request"

// beginDelete authorizes the caller and resolves the table
func (g *Gateway) beginDelete(ctx context.Context, auth *access.Authorization, table string, filters Attributes) (*csql.Handle, error) {
	if err := g.authorize(ctx, auth, core.OperationDelete); err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, &Error{Kind: KindBadRequest, Message: "check_attributes must be a non-empty dictionary"}
	}
	return g.resolver.Resolve(ctx, table)
}

// PreviewDelete returns all rows matching the filter, without deleting them.
// Requires a role permitted to delete.
func (g *Gateway) PreviewDelete(ctx context.Context, auth *access.Authorization, table string, filters Attributes) (*DeletePreview, error) {
	h, err := g.beginDelete(ctx, auth, table, filters)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	rlog := logger.FromContext(ctx).WithField("table", table).WithField("database", h.Target)
	statement, err := BuildSelect(h.Dialect, table, filters)
	if err != nil {
		return nil, newError(KindBadRequest, deleteBadRequest, err)
	}
	rows, err := h.Query(ctx, statement.SQL, statement.Params...)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5720: cannot execute delete preview `%s`", statement.SQL)
		return nil, executionFailed("Delete operation failed", h.Target, err)
	}
	rlog.Infof("delete preview matched %d row(s)", len(rows))
	return &DeletePreview{
		Preview:         fmt.Sprintf("%d row(s) will be deleted", len(rows)),
		MatchingRows:    rows,
		Count:           len(rows),
		ConfirmRequired: true,
		Database:        h.Target,
	}, nil
}

// ConfirmDelete deletes all rows matching the filter and returns their count.
// Requires a role permitted to delete.
func (g *Gateway) ConfirmDelete(ctx context.Context, auth *access.Authorization, table string, filters Attributes) (*DeleteResult, error) {
	h, err := g.beginDelete(ctx, auth, table, filters)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	rlog := logger.FromContext(ctx).WithField("table", table).WithField("database", h.Target)
	statement, err := BuildDelete(h.Dialect, table, filters)
	if err != nil {
		return nil, newError(KindBadRequest, deleteBadRequest, err)
	}
	res, err := h.Exec(ctx, statement.SQL, statement.Params...)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5721: cannot execute delete `%s`", statement.SQL)
		return nil, executionFailed("Delete operation failed", h.Target, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		rlog.WithError(err).Errorf("Error 5722: cannot read affected rows")
		return nil, executionFailed("Delete operation failed", h.Target, err)
	}
	rlog.Infof("deleted %d row(s)", deleted)
	g.notify(ctx, auth, table, core.OperationDelete, h.Target, deleted)
	return &DeleteResult{
		Message:     fmt.Sprintf("%d row(s) deleted successfully", deleted),
		RowsDeleted: deleted,
		Database:    h.Target,
	}, nil
}

// Delete previews or, with Confirm set, executes the deletion
func (g *Gateway) Delete(ctx context.Context, auth *access.Authorization, table string, request DeleteRequest) (interface{}, error) {
	if request.Confirm {
		return g.ConfirmDelete(ctx, auth, table, request.CheckAttributes)
	}
	return g.PreviewDelete(ctx, auth, table, request.CheckAttributes)
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	auth, err := g.beginRequest(r, core.OperationDelete)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var request DeleteRequest
	if err = g.decodeRequest(r, deleteSchemaID, deleteBadRequest, &request); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := g.requestContext(r)
	defer cancel()
	result, err := g.Delete(ctx, auth, mux.Vars(r)["table"], request)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
