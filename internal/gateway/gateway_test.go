package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/gateway"
)

func TestClientInvoke(t *testing.T) {
	t.Run("posts json and decodes the response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/functions/v1/track-page-view", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "/", body["path"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		client := gateway.NewClient(server.URL+"/", gateway.WithToken("secret"))
		var out struct {
			Success bool `json:"success"`
		}
		err := client.Invoke(context.Background(), gateway.FunctionTrackPageView, map[string]string{"path": "/"}, &out)
		require.NoError(t, err)
		assert.True(t, out.Success)
	})

	t.Run("returns function errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Forbidden: admin access required"}`))
		}))
		defer server.Close()

		err := gateway.NewClient(server.URL).Invoke(context.Background(), gateway.FunctionResetAnalytics, nil, nil)

		var fnErr *gateway.FunctionError
		require.True(t, errors.As(err, &fnErr))
		assert.Equal(t, http.StatusForbidden, fnErr.Status)
		assert.Equal(t, "Forbidden: admin access required", fnErr.Message)
		assert.Equal(t, gateway.FunctionResetAnalytics, fnErr.Function)
	})

	t.Run("plain text errors keep their body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer server.Close()

		err := gateway.NewClient(server.URL).Invoke(context.Background(), "anything", nil, nil)
		var fnErr *gateway.FunctionError
		require.ErrorAs(t, err, &fnErr)
		assert.Equal(t, "bad gateway", fnErr.Message)
	})

	t.Run("transport failures are wrapped", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		err := gateway.NewClient(server.URL).Invoke(context.Background(), "anything", nil, nil)
		require.Error(t, err)
		var fnErr *gateway.FunctionError
		assert.False(t, errors.As(err, &fnErr))
	})
}

func TestClientGet(t *testing.T) {
	t.Run("reads an admin path with the token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, gateway.PathEventTotals, r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.Write([]byte(`{"pageViews":12,"whatsappClicks":3}`))
		}))
		defer server.Close()

		var out struct {
			PageViews      int64 `json:"pageViews"`
			WhatsAppClicks int64 `json:"whatsappClicks"`
		}
		err := gateway.NewClient(server.URL, gateway.WithToken("secret")).Get(context.Background(), gateway.PathEventTotals, &out)
		require.NoError(t, err)
		assert.Equal(t, int64(12), out.PageViews)
		assert.Equal(t, int64(3), out.WhatsAppClicks)
	})

	t.Run("returns the status of rejected reads", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
		}))
		defer server.Close()

		err := gateway.NewClient(server.URL).Get(context.Background(), gateway.PathEventTotals, nil)
		var fnErr *gateway.FunctionError
		require.ErrorAs(t, err, &fnErr)
		assert.Equal(t, http.StatusUnauthorized, fnErr.Status)
		assert.Equal(t, "Unauthorized", fnErr.Message)
	})
}
