package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/groups/grp-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"id": "grp-1", "name": "docs"}}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	resp, err := api.Get("/groups/grp-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "grp-1", "name": "docs"}`, string(resp.Data))
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data": {"id": "grp-2"}}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	resp, err := api.Post("/groups", map[string]string{"name": "docs"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "grp-2"}`, string(resp.Data))
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "group not found"}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	_, err := api.Get("/groups/missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "group not found", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	_, err := api.Get("/groups")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}
