package access

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core/logger"
)

// JwtMiddlewareBuilder is a helper builder for JwtMiddleware
type JwtMiddlewareBuilder struct {
	// Secret is the HMAC secret the tokens are signed with. This is mandatory.
	Secret []byte
	// Issuer is the accepted issuer for the token. If empty, the issuer is not checked.
	Issuer string
}

// Claims are the claims of a gateway bearer token. The user identity is taken from
// "user_id", or from the standard subject if "user_id" is absent.
type Claims struct {
	UserID interface{} `json:"user_id,omitempty"`
	Role   string      `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the user identity carried by the claims
func (c *Claims) Identity() string {
	if c.UserID != nil {
		switch id := c.UserID.(type) {
		case float64:
			// JSON numbers arrive as float64, user ids are integral
			if id == float64(int64(id)) {
				return fmt.Sprintf("%d", int64(id))
			}
		case string:
			return id
		}
		return fmt.Sprint(c.UserID)
	}
	return c.Subject
}

// NewJwtMiddleware returns a middleware handler to validate
// HMAC signed JWT bearer tokens.
//
// Tokens are accepted as "Authorization: Bearer <token>" header, or as plain
// "Authorization: <token>" header.
//
// Requests without a token pass through unauthenticated; the handlers decide
// what unauthenticated callers may do. A token which is present but invalid,
// expired, or carries no identity is answered with http.StatusUnauthorized.
func NewJwtMiddleware(jmb *JwtMiddlewareBuilder) mux.MiddlewareFunc {
	if len(jmb.Secret) == 0 {
		panic("jwt middleware requires a secret")
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jmb.Secret, nil
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized
				h.ServeHTTP(w, r)
				return
			}

			tokenString := bearerToken(r)
			if len(tokenString) == 0 {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}

			rlog := logger.FromContext(r.Context())
			claims := Claims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc)
			if err != nil || !token.Valid {
				rlog.WithError(err).Warnln("rejected bearer token")
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if len(jmb.Issuer) > 0 && claims.Issuer != jmb.Issuer {
				writeError(w, http.StatusUnauthorized, "invalid token issuer")
				return
			}

			identity := claims.Identity()
			if len(identity) == 0 {
				writeError(w, http.StatusUnauthorized, "token carries no user identity")
				return
			}

			auth := &Authorization{Identity: identity, Role: claims.Role}
			ctx, _ := logger.ContextWithLoggerIdentity(r.Context(), identity)
			ctx = ContextWithAuthorization(ctx, auth)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	bearer := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(bearer) == 0 || bearer == "null" {
		return ""
	}
	if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
		return strings.TrimSpace(bearer[7:])
	}
	return bearer
}
