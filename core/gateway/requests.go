package gateway

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/tablegate/core/schema"
)

//go:embed schemas
var schemasFS embed.FS

// the request body schemas
const (
	insertSchemaID = "http://tablegate/schemas/insert.json"
	updateSchemaID = "http://tablegate/schemas/update.json"
	deleteSchemaID = "http://tablegate/schemas/delete.json"
	searchSchemaID = "http://tablegate/schemas/search.json"
)

// maximum accepted request body
const maxBodySize = 1 << 20

// InsertRequest is the body of POST /insert/{table}
type InsertRequest struct {
	Attributes Attributes `json:"attributes"`
}

// UpdateRequest is the body of POST /update/{table}
type UpdateRequest struct {
	Attributes        Attributes `json:"attributes"`
	AttributesChanged Attributes `json:"attributes_changed"`
}

// DeleteRequest is the body of POST /delete/{table}. Confirm defaults to false.
type DeleteRequest struct {
	CheckAttributes Attributes `json:"check_attributes"`
	Confirm         bool       `json:"confirm"`
}

// SearchRequest is the body of POST /search/{table} and of the teaching staff join
type SearchRequest struct {
	AttributesLike Attributes `json:"attributes_like"`
}

func newRequestValidator() *schema.Validator {
	sub, err := fs.Sub(schemasFS, "schemas")
	if err != nil {
		panic(err)
	}
	validator, err := schema.NewValidatorFromFS(sub)
	if err != nil {
		panic(err)
	}
	return validator
}

// decodeRequest validates the body against the schema and decodes it. Any failure is
// a KindBadRequest error with the given message.
func (g *Gateway) decodeRequest(r *http.Request, schemaID, message string, request interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return newError(KindBadRequest, message, err)
	}
	if err = g.validator.ValidateBytes(body, schemaID); err != nil {
		e := &Error{Kind: KindBadRequest, Message: message, Err: err}
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			e.Details = strings.Join(verr.Details, "; ")
		} else {
			e.Details = err.Error()
		}
		return e
	}
	if err = json.Unmarshal(body, request); err != nil {
		return newError(KindBadRequest, message, err)
	}
	return nil
}
