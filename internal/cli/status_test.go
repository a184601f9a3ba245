package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/obiverse/dojo/pkg/hokage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		out, err := executeCommand(t, nil, "status", "--help")
		require.NoError(t, err)

		assert.Contains(t, out, "/status")
	})

	t.Run("running server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/status", r.URL.Path)
			json.NewEncoder(w).Encode(hokage.Status{
				Status:          "ready",
				CoordinatorName: "Hokage",
				Workers:         []string{"Writer", "Parser"},
				CompletedCount:  7,
			})
		}))
		defer srv.Close()

		out, err := executeCommand(t, nil, "status", "--addr", srv.URL)
		require.NoError(t, err)

		assert.Contains(t, out, "ready")
		assert.Contains(t, out, "Coordinator: Hokage")
		assert.Contains(t, out, "Completed invocations: 7")
		assert.Contains(t, out, "Workers: 2")
		assert.Less(t, strings.Index(out, "Parser"), strings.Index(out, "Writer"))
	})
}

func TestFetchStatus(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := fetchStatus(srv.Client(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{"))
		}))
		defer srv.Close()

		_, err := fetchStatus(srv.Client(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid status response")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := fetchStatus(http.DefaultClient, addr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to reach dojo")
	})
}
