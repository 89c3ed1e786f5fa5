package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/tablegate/core"
)

var readPermits = []Permit{
	{
		Role:       "everybody",
		Operations: []core.Operation{core.OperationSearch, core.OperationJoin},
	},
}

func TestAuthorization_Admin(t *testing.T) {
	auth := &Authorization{Identity: "1", Role: RoleAdmin}
	if !auth.IsAuthorized(core.OperationInsert, readPermits) {
		t.Fatal("admin not authorized")
	}
	if !auth.IsAuthorized(core.OperationSearch, readPermits) {
		t.Fatal("admin not authorized for search")
	}
}

func TestAuthorization_Everybody(t *testing.T) {
	auth := &Authorization{Identity: "2", Role: "student"}
	assert.True(t, auth.IsAuthorized(core.OperationSearch, readPermits))
	assert.True(t, auth.IsAuthorized(core.OperationJoin, readPermits))
	assert.False(t, auth.IsAuthorized(core.OperationInsert, readPermits))
	assert.False(t, auth.IsAuthorized(core.OperationDelete, readPermits))
}

func TestAuthorization_Unauthenticated(t *testing.T) {
	var auth *Authorization
	assert.False(t, auth.IsAuthorized(core.OperationSearch, readPermits))
	assert.False(t, auth.HasRole(RoleAdmin))
}

func TestAuthorization_ExplicitAdminPermits(t *testing.T) {
	permits := []Permit{{Role: RoleAdmin, Operations: []core.Operation{core.OperationSearch}}}
	auth := &Authorization{Identity: "1", Role: RoleAdmin}
	assert.True(t, auth.IsAuthorized(core.OperationSearch, permits))
	assert.False(t, auth.IsAuthorized(core.OperationDelete, permits))
}

func TestAuthorizationContext(t *testing.T) {
	auth := &Authorization{Identity: "7", Role: "staff"}
	ctx := ContextWithAuthorization(context.Background(), auth)
	assert.Equal(t, auth, AuthorizationFromContext(ctx))
	assert.Nil(t, AuthorizationFromContext(context.Background()))
}

func TestAuthorizationRoute(t *testing.T) {
	router := mux.NewRouter()
	HandleAuthorizationRoute(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/authorization", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	r := httptest.NewRequest(http.MethodGet, "/authorization", nil)
	r = r.WithContext(ContextWithAuthorization(r.Context(), &Authorization{Identity: "7", Role: "staff"}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"identity":"7","role":"staff"}`, rec.Body.String())
}
