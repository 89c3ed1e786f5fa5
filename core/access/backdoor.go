package access

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core/logger"
)

// BackdoorMiddlewareBuilder is a helper builder for BackdoorMiddleware
type BackdoorMiddlewareBuilder struct {
	// Backdoors is a mapping from a bearer token to an actual authorization
	Backdoors map[string]Authorization
}

// NewBackdoorMiddleware returns a middleware handler for a backdoor
//
// The key for the backdoors map is the bearer token passed with the request.
//
// Example: if you specify the backdoor
//
//	"please": Authorization{Identity: "operator", Role: "admin"}
//
// then any request with an authorization bearer token consisting of the single
// magic word "please" will be authorized with the admin role.
//
// With curl, use -H 'Authorization: Bearer please'.
//
// Install the backdoor before the jwt middleware; unknown tokens are passed on.
func NewBackdoorMiddleware(bmb *BackdoorMiddlewareBuilder) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized?
				h.ServeHTTP(w, r)
				return
			}
			tokenString := bearerToken(r)
			if len(tokenString) == 0 || bmb.Backdoors == nil {
				h.ServeHTTP(w, r)
				return
			}

			tryAuth, ok := bmb.Backdoors[tokenString]
			if !ok {
				h.ServeHTTP(w, r)
				return
			}
			auth := tryAuth
			ctx, rlog := logger.ContextWithLoggerIdentity(r.Context(), auth.Identity)
			rlog.Debugln("authorized through backdoor")
			ctx = ContextWithAuthorization(ctx, &auth)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
