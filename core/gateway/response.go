package gateway

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

type errorResponse struct {
	Error    string      `json:"error"`
	Details  string      `json:"details,omitempty"`
	Database csql.Target `json:"database,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	jsonData, err := json.MarshalWithOption(body, json.DisableHTMLEscape())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 5702: cannot marshal response")
		http.Error(w, "Error 5702", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// writeError writes the structured error body. Errors which are not gateway
// errors are reported as OperationFailed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = newError(KindOperationFailed, "Internal server error", err)
	}
	message := e.Message
	if message == "" {
		message = e.Kind.String()
	}
	writeJSON(w, r, e.Status(), errorResponse{
		Error:    message,
		Details:  e.Details,
		Database: e.Database,
	})
}
