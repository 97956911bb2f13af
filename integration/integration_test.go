package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_Invoke(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"accepted":true}`)
	}))
	defer srv.Close()

	w := NewWebhook("crm", srv.URL)
	require.NoError(t, w.Connect(context.Background()))

	out, err := w.Invoke(context.Background(), map[string]any{"contact": "jo"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out["status"])
	assert.JSONEq(t, `{"accepted":true}`, out["body"].(string))
	assert.Equal(t, "jo", received["contact"])
}

func TestWebhook_ConnectMissingEndpoint(t *testing.T) {
	w := NewWebhook("crm", "")
	assert.Error(t, w.Connect(context.Background()))
}

func TestWebhook_InvokeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewWebhook("crm", srv.URL)
	_, err := w.Invoke(context.Background(), nil)
	assert.ErrorContains(t, err, "status 503")
}
