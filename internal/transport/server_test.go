package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/indexer"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/pkg/xsync"
	"github.com/lingxi-album/backend/internal/search"
	"github.com/lingxi-album/backend/internal/vectorstore/localfs"
)

func redSquarePNG() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41, 0x54, 0x08, 0xD7, 0x63, 0xF8, 0xCF, 0xC0, 0x00,
		0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xDD, 0x8D, 0xB0, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
		0x44, 0xAE, 0x42, 0x60, 0x82,
	}
}

func newTestServer(t *testing.T) (*Server, *objectstore.Store) {
	t.Helper()
	dir := t.TempDir()
	objects, err := objectstore.New(filepath.Join(dir, "images"))
	require.NoError(t, err)
	vectors, err := localfs.New(8, "photos", filepath.Join(dir, "vectors.json"))
	require.NoError(t, err)
	provider := embedding.NewLocalBackend(8)
	ix := indexer.New(objects, provider, vectors, xsync.NoPool())
	engine := search.New(provider, vectors, objects)

	return &Server{
		Objects: objects,
		Indexer: ix,
		Vectors: vectors,
		Search:  engine,
	}, objects
}

func uploadMultipart(t *testing.T, content []byte, filename string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleUploadIndexesSynchronously(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := uploadMultipart(t, redSquarePNG(), "beach.png", map[string]string{"tags": "beach, sunset"})

	req := httptest.NewRequest(http.MethodPost, "/images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.Equal(t, true, resp.Indexed)
	require.Equal(t, "sync", resp.IndexMode)
}

func TestHandleGetImageReturnsStoredBytes(t *testing.T) {
	srv, objects := newTestServer(t)
	img, err := objects.Put(redSquarePNG(), "beach.png")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/images/"+img.ID, nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, redSquarePNG(), rec.Body.Bytes())
}

func TestHandleGetImageMissingReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSearchTextReturnsMatch(t *testing.T) {
	srv, _ := newTestServer(t)
	_, _, err := srv.Indexer.Ingest(context.Background(), redSquarePNG(), "beach.png", indexer.Options{AutoIndex: true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/search/text?query_text=beach", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []resultDTO `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
}

func TestStatusForKindMapsPropagationTable(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.InvalidInput:        http.StatusBadRequest,
		errs.EmptyInput:          http.StatusBadRequest,
		errs.Unauthenticated:     http.StatusUnauthorized,
		errs.NotFound:            http.StatusNotFound,
		errs.NotConfirmed:        http.StatusConflict,
		errs.RateLimited:         http.StatusTooManyRequests,
		errs.TimedOut:            http.StatusGatewayTimeout,
		errs.ProviderUnavailable: http.StatusBadGateway,
		errs.DimensionMismatch:   http.StatusUnprocessableEntity,
		errs.CorruptPayload:      http.StatusUnprocessableEntity,
		errs.Misconfigured:       http.StatusInternalServerError,
		errs.Internal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, statusForKind(kind), "kind %s", kind)
	}
}
