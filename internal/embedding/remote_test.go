package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/errs"
)

func TestRemoteBackendEmbedParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a red bicycle", req.Text)
		assert.Equal(t, int64(4), req.Dimension)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"output":{"embeddings":[{"embedding":[0.1,0.2,0.3,0.4]}]}}`))
	}))
	defer srv.Close()

	backend := NewRemoteBackend(srv.URL, "test-key", 4, 5*time.Second)
	vec, err := backend.Embed(context.Background(), Input{Text: "a red bicycle"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, vec)
}

func TestRemoteBackendRetriesOnServerError(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"output":{"embeddings":[{"embedding":[1,2]}]}}`))
	}))
	defer srv.Close()

	backend := NewRemoteBackend(srv.URL, "test-key", 2, 5*time.Second)
	vec, err := backend.Embed(context.Background(), Input{Text: "retry me"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vec)
	assert.Equal(t, 3, attempts)
}

func TestRemoteBackendRejectsEmptyInput(t *testing.T) {
	backend := NewRemoteBackend("http://unused", "key", 4, time.Second)
	_, err := backend.Embed(context.Background(), Input{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidInput))
}

func TestRemoteBackendClientErrorNotRetried(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad dimension"}`))
	}))
	defer srv.Close()

	backend := NewRemoteBackend(srv.URL, "key", 4, time.Second)
	_, err := backend.Embed(context.Background(), Input{Text: "x"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidInput))
	assert.Equal(t, 1, attempts)
}
