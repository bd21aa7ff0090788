package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/pkg/xsync"
	"github.com/lingxi-album/backend/internal/pointcloud"
)

type fakeImages struct{}

func (fakeImages) Get(id string) ([]byte, string, error) { return []byte("bytes"), "image/jpeg", nil }

type fakeSessions struct {
	mu   sync.Mutex
	sess *model.Session
}

func newFakeSessions(id string) *fakeSessions {
	return &fakeSessions{sess: model.NewSession(id)}
}

func (f *fakeSessions) Get(id string) (*model.Session, bool) {
	if f.sess.ID != id {
		return nil, false
	}
	return f.sess, true
}

func (f *fakeSessions) WithLock(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func newFake3DGSServer(t *testing.T, plyBody []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(10 << 20)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"download_url": "/api/v1/download/out.ply",
			"view_url":     "/viewer/out",
		})
	})
	mux.HandleFunc("/api/v1/download/out.ply", func(w http.ResponseWriter, r *http.Request) {
		w.Write(plyBody)
	})
	return httptest.NewServer(mux)
}

func TestSubmitGenerationCompletesTaskOnPool(t *testing.T) {
	server := newFake3DGSServer(t, make([]byte, 450))
	defer server.Close()

	client := pointcloud.NewClient(server.URL, 5*time.Second, 5*time.Second)
	pcMgr, err := pointcloud.NewManager(t.TempDir(), client, fakeImages{})
	require.NoError(t, err)

	sessions := newFakeSessions("s1")
	mgr := NewManager(xsync.NoPool(), pcMgr, sessions, 10*time.Millisecond, time.Second, nil)

	task := pcMgr.CreateTask("img-1", model.PointCloudQualityBalanced)
	mgr.SubmitGeneration(context.Background(), task.ID)

	require.Eventually(t, func() bool {
		got, ok := pcMgr.Get(task.ID)
		return ok && got.Status == model.PointCloudCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestMonitorSessionRecordsCompletionEvent(t *testing.T) {
	server := newFake3DGSServer(t, make([]byte, 450))
	defer server.Close()

	client := pointcloud.NewClient(server.URL, 5*time.Second, 5*time.Second)
	pcMgr, err := pointcloud.NewManager(t.TempDir(), client, fakeImages{})
	require.NoError(t, err)

	sessions := newFakeSessions("s1")
	mgr := NewManager(xsync.NoPool(), pcMgr, sessions, 10*time.Millisecond, time.Second, nil)

	task := pcMgr.CreateTask("img-1", model.PointCloudQualityBalanced)
	pcMgr.Run(context.Background(), task.ID)

	mgr.MonitorSession("s1", task.ID)

	require.Eventually(t, func() bool {
		events := sessions.sess.SystemEvents()
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)

	events := sessions.sess.SystemEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventPointCloudCompleted, events[0].Event)
	assert.Equal(t, "COMPLETED", events[0].Payload["status"])
}

func TestMonitorSessionTimesOutWithoutCompletion(t *testing.T) {
	pcMgr, err := pointcloud.NewManager(t.TempDir(), pointcloud.NewClient("http://example.invalid", time.Second, time.Second), fakeImages{})
	require.NoError(t, err)

	sessions := newFakeSessions("s1")
	mgr := NewManager(xsync.NoPool(), pcMgr, sessions, 5*time.Millisecond, 20*time.Millisecond, nil)

	task := pcMgr.CreateTask("img-1", model.PointCloudQualityBalanced)
	mgr.MonitorSession("s1", task.ID)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, sessions.sess.SystemEvents())
}
