/*
Package access provides utilities for access control
*/
package access

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/logger"
)

// RoleAdmin is the role which is permitted to mutate tables
const RoleAdmin = "admin"

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

/*
Authorization is a context object which stores the session identity of
the caller: a user identity and exactly one role.

Authorizations are added to a request context with

	ctx = access.ContextWithAuthorization(ctx, auth)

and retrieved with

	auth := access.AuthorizationFromContext(ctx)

Authorization objects are added to the context by different middleware
implementations, depending on the bearer token in the HTTP request. The
gateway consumes them read-only.
*/
type Authorization struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

// Permit grants a role the right to execute a list of operations.
// The special role "everybody" applies to every authenticated caller.
type Permit struct {
	Role       string           `json:"role"`
	Operations []core.Operation `json:"operations"`
}

// HasRole returns true if the authorization carries the requested role;
// otherwise it returns false.
func (a *Authorization) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return a.Role == role
}

// IsAuthorized returns true if the authorization is authorized for the requested
// operation according to the passed permits.
//
// The "admin" role is always authorized by default, unless permits are specified
// for it explicitly. An unauthenticated (nil) authorization is never authorized.
func (a *Authorization) IsAuthorized(operation core.Operation, permits []Permit) bool {
	if a == nil {
		return false
	}
	adminPermitted := false
	for _, permit := range permits {
		if permit.Role == RoleAdmin {
			adminPermitted = true
		}
		if permit.Role != a.Role && permit.Role != "everybody" {
			continue
		}
		for _, o := range permit.Operations {
			if o == operation {
				return true
			}
		}
	}
	return a.Role == RoleAdmin && !adminPermitted
}

// ContextWithAuthorization returns a new context with this authorization added to it
func ContextWithAuthorization(ctx context.Context, auth *Authorization) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, auth)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// HandleAuthorizationRoute adds a route /authorization GET to the router
//
// The route returns the current authorization for provided bearer token.
func HandleAuthorizationRoute(router *mux.Router) {
	logger.Default().Debugln("authorization")
	logger.Default().Debugln("  handle route: /authorization GET")
	router.HandleFunc("/authorization", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		auth := AuthorizationFromContext(r.Context())
		if auth == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		jsonData, _ := json.Marshal(auth)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(jsonData)
	}).Methods(http.MethodGet)
}

// writeError writes a structured error body, the way the gateway answers
func writeError(w http.ResponseWriter, status int, message string) {
	jsonData, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}
