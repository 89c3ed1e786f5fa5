package client

import (
	"io"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tablegate/core/access"
)

func TestObjectKeepsOrder(t *testing.T) {
	body, err := object("check_attributes", []byte(`{"b":1,"a":2}`), "confirm", true)
	require.NoError(t, err)
	assert.Equal(t, `{"check_attributes":{"b":1,"a":2},"confirm":true}`, string(body))
}

func TestClientTable(t *testing.T) {
	router := mux.NewRouter()
	var seenBody string
	var seenAuth *access.Authorization
	router.HandleFunc("/search/{table}", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
		seenAuth = access.AuthorizationFromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Table 'x' not found in either database."}`))
	}).Methods(http.MethodPost)

	client := NewWithRouter(router).WithRole("viewer")
	var result map[string]interface{}
	status, err := client.Table("staff").Search([]byte(`{"name":"An"}`), &result)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Table 'x' not found in either database.", result["error"])
	assert.Equal(t, `{"attributes_like":{"name":"An"}}`, seenBody)
	require.NotNil(t, seenAuth)
	assert.Equal(t, "viewer", seenAuth.Role)

	var raw []byte
	status, err = NewWithRouter(router).Table("staff").Search(map[string]string{"name": "An"}, &raw)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(raw), "not found")
	assert.Nil(t, seenAuth)
}
