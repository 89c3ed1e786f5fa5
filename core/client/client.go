// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides easy and fast in-process access to the gateway's REST api

Instead of marshalling HTTP, the client talks directly to the mux router. The client
is perfectly suited for unit tests. With NewWithURL the same calls go over the network.

Unlike a typical REST client, the client decodes the response body for every status,
so that callers can inspect the structured error responses of the gateway.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core/access"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	auth       *access.Authorization
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the gateway,
// through the mux router
//
// WithAuthorization() adds an authorization to the request context.
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the gateway
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := map[string]string{key: value}
	for k, v := range c.defaultHeaders {
		if k != key {
			headers[k] = v
		}
	}
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which sends a bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithAdminAuthorization returns a new client with admin authorization
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithAdminAuthorization() Client {
	return c.WithRole(access.RoleAdmin)
}

// WithRole returns a new client with role authorization
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithRole(role string) Client {
	c.auth = &access.Authorization{
		Identity: "client-" + role,
		Role:     role,
	}
	return c
}

// WithAuthorization returns a new client with a specific authorization
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithAuthorization(auth *access.Authorization) Client {
	c.auth = auth
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context, including the authorization if any
func (c Client) Context() context.Context {
	ctx := c.ctx
	if c.ctx == nil {
		ctx = context.Background()
	}
	if c.auth != nil {
		ctx = access.ContextWithAuthorization(ctx, c.auth)
	}
	return ctx
}

// Table addresses a table through the gateway
type Table struct {
	client Client
	name   string
}

// Table returns a client for the named table
func (c Client) Table(name string) Table {
	return Table{client: c, name: name}
}

func (t Table) path(operation string) string {
	return "/" + operation + "/" + url.PathEscape(t.name)
}

// Insert inserts one row. Expects http.StatusCreated on success.
//
// attributes can be a map or a raw []byte JSON object.
func (t Table) Insert(attributes interface{}, result interface{}) (int, error) {
	body, err := object("attributes", attributes)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return t.client.RawPost(t.path("insert"), body, result)
}

// Update sets changed on all rows matching filters. Expects http.StatusOK on success.
func (t Table) Update(filters, changed interface{}, result interface{}) (int, error) {
	body, err := object("attributes", filters, "attributes_changed", changed)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return t.client.RawPost(t.path("update"), body, result)
}

// Delete previews a deletion, or deletes with confirm set. Expects http.StatusOK on success.
func (t Table) Delete(filters interface{}, confirm bool, result interface{}) (int, error) {
	body, err := object("check_attributes", filters, "confirm", confirm)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return t.client.RawPost(t.path("delete"), body, result)
}

// Search searches by substrings. Expects http.StatusOK on success.
func (t Table) Search(likes interface{}, result interface{}) (int, error) {
	body, err := object("attributes_like", likes)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return t.client.RawPost(t.path("search"), body, result)
}

// TeachingStaff searches the teaching staff directory. Expects http.StatusOK on success.
func (c Client) TeachingStaff(likes interface{}, result interface{}) (int, error) {
	body, err := object("attributes_like", likes)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return c.RawPost("/search/teaching_staff_info", body, result)
}

// object builds a JSON object from key value pairs, keeping the key order.
// Values which are []byte are embedded as raw JSON.
func object(keyValues ...interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i+1 < len(keyValues); i += 2 {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(keyValues[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, ok := keyValues[i+1].([]byte)
		if !ok {
			value, err = json.Marshal(keyValues[i+1])
			if err != nil {
				return nil, err
			}
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RawGet gets a resource from path. Returns the actual http status code.
//
// result can also be raw *[]byte. result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.do(http.MethodGet, path, nil, result)
}

// RawPost posts body to path. Returns the actual http status code. The response is
// decoded into result for every status.
//
// body can also be a []byte, result can also be raw *[]byte.
// result can be nil.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	j, ok := body.([]byte)
	if !ok {
		var err error
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("POST to %s: %w", path, err)
		}
	}
	return c.do(http.MethodPost, path, j, result)
}

func (c Client) do(method, path string, body []byte, result interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}

	var res *http.Response
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res = rec.Result()
		resBody = rec.Body.Bytes()
	} else {
		if c.token != "" {
			r.Header.Add("Authorization", "Bearer "+c.token)
		}
		res, err = c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, err
		}
		defer res.Body.Close()
		resBody, _ = io.ReadAll(res.Body)
	}
	status := res.StatusCode

	if len(resBody) == 0 || result == nil {
		return status, nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return status, nil
	}
	if err = json.Unmarshal(resBody, result); err != nil {
		return status, fmt.Errorf("%s %s: cannot decode response with status %d: %w", method, path, status, err)
	}
	return status, nil
}
