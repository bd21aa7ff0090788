package pointcloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
)

type fakeImageSource struct {
	bytes     []byte
	mediaType string
}

func (f fakeImageSource) Get(id string) ([]byte, string, error) {
	return f.bytes, f.mediaType, nil
}

func newFake3DGSServer(t *testing.T, plyBody []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(10 << 20)
		resp := map[string]any{
			"success":      true,
			"download_url": "/api/v1/download/abc.ply",
			"view_url":     "/viewer/abc",
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/v1/download/abc.ply", func(w http.ResponseWriter, r *http.Request) {
		w.Write(plyBody)
	})
	return httptest.NewServer(mux)
}

func TestClientGenerateDownloadsPLY(t *testing.T) {
	plyBody := make([]byte, 450)
	server := newFake3DGSServer(t, plyBody)
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 5*time.Second)
	result, err := client.Generate(context.Background(), []byte("fake-image-bytes"), ".jpg", model.PointCloudQualityBalanced)
	require.NoError(t, err)
	assert.Equal(t, plyBody, result.PLYData)
	assert.Equal(t, server.URL+"/viewer/abc", result.ViewURL)
}

func TestClientGenerateFailsOnServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 5*time.Second)
	_, err := client.Generate(context.Background(), []byte("x"), ".jpg", model.PointCloudQualityFast)
	require.Error(t, err)
	assert.Equal(t, errs.ProviderUnavailable, errs.KindOf(err))
}

func TestManagerRunCompletesTask(t *testing.T) {
	plyBody := make([]byte, 900)
	server := newFake3DGSServer(t, plyBody)
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 5*time.Second)
	mgr, err := NewManager(t.TempDir(), client, fakeImageSource{bytes: []byte("img"), mediaType: "image/jpeg"})
	require.NoError(t, err)

	task := mgr.CreateTask("source-image-1", model.PointCloudQualityBalanced)
	assert.Equal(t, model.PointCloudPending, task.Status)

	mgr.Run(context.Background(), task.ID)

	got, ok := mgr.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, model.PointCloudCompleted, got.Status)
	assert.Equal(t, int64(len(plyBody)), got.FileSize)
	assert.Equal(t, model.EstimatePointCount(int64(len(plyBody))), got.PointCount)
	assert.NotNil(t, got.CompletedAt)
}

func TestManagerRunFailsOnServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 5*time.Second)
	mgr, err := NewManager(t.TempDir(), client, fakeImageSource{bytes: []byte("img"), mediaType: "image/jpeg"})
	require.NoError(t, err)

	task := mgr.CreateTask("source-image-1", model.PointCloudQualityFast)
	mgr.Run(context.Background(), task.ID)

	got, ok := mgr.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, model.PointCloudFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestManagerGetReconstructsFromDisk(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root, NewClient("", time.Second, time.Second), fakeImageSource{})
	require.NoError(t, err)

	id := "00000000-0000-0000-0000-000000000001"
	dir := filepath.Join(root, "2026", "07", "30")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	plyPath := filepath.Join(dir, id+".ply")
	require.NoError(t, os.WriteFile(plyPath, make([]byte, 90), 0o644))

	task, ok := mgr.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.PointCloudCompleted, task.Status)
	assert.Equal(t, int64(90), task.FileSize)

	second, ok := mgr.Get(id)
	require.True(t, ok)
	assert.Same(t, task, second)
}

func TestManagerGetMissingReturnsFalse(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), NewClient("", time.Second, time.Second), fakeImageSource{})
	require.NoError(t, err)
	_, ok := mgr.Get("does-not-exist")
	assert.False(t, ok)
}
