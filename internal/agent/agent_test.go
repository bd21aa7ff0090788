package agent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/search"
	"github.com/lingxi-album/backend/internal/vectorstore/localfs"
)

type fakeImages struct{}

func (fakeImages) Get(id string) ([]byte, string, error) { return []byte("bytes"), "image/jpeg", nil }

func newTestSearchEngine(t *testing.T) *search.Engine {
	t.Helper()
	store, err := localfs.New(8, "photos", filepath.Join(t.TempDir(), "snap.json"))
	require.NoError(t, err)
	return search.New(embedding.NewLocalBackend(8), store, fakeImages{})
}

func TestChatFallbackClassifiesDeleteIntent(t *testing.T) {
	o := New(NewSessionStore(), nil, newTestSearchEngine(t), nil, nil)
	result := o.Chat(context.Background(), "请帮我 delete 这张照片", "")
	assert.Equal(t, "Delete request noted.", result.Answer)
}

func TestChatFallbackDefaultsToChatIntent(t *testing.T) {
	o := New(NewSessionStore(), nil, newTestSearchEngine(t), nil, nil)
	result := o.Chat(context.Background(), "你好", "")
	assert.Contains(t, result.Answer, "smart album assistant")
}

func TestChatAppendsHistory(t *testing.T) {
	sessions := NewSessionStore()
	o := New(sessions, nil, newTestSearchEngine(t), nil, nil)
	o.Chat(context.Background(), "上传一张照片", "conv-1")

	sess, ok := sessions.Get("conv-1")
	require.True(t, ok)
	require.Len(t, sess.History, 2)
	assert.Equal(t, model.RoleUser, sess.History[0].Role)
	assert.Equal(t, model.RoleAssistant, sess.History[1].Role)
}

type fakeReasoner struct {
	text string
	err  error
}

func (f fakeReasoner) Run(ctx context.Context, query string, history []model.HistoryEntry) (string, error) {
	return f.text, f.err
}

func TestChatExtractsImagesFromReasonerReply(t *testing.T) {
	reply := "Here you go: ![beach](/images/11111111-1111-1111-1111-111111111111)"
	o := New(NewSessionStore(), fakeReasoner{text: reply}, newTestSearchEngine(t), nil, nil)
	result := o.Chat(context.Background(), "找一张海边的照片", "")
	require.Len(t, result.Images, 1)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", result.Images[0].ID)
}

func TestChatSchedulesMonitorForPointCloudRequest(t *testing.T) {
	reply := "任务已创建，点云ID: 22222222-2222-2222-2222-222222222222"
	var scheduledSession, scheduledID string
	scheduler := func(sessionID, pointCloudID string) {
		scheduledSession, scheduledID = sessionID, pointCloudID
	}
	o := New(NewSessionStore(), fakeReasoner{text: reply}, newTestSearchEngine(t), scheduler, nil)
	result := o.Chat(context.Background(), "帮我生成点云", "conv-pc")
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", result.PointCloudID)
	assert.Equal(t, "conv-pc", scheduledSession)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", scheduledID)
}

func TestChatReturnsApologyOnReasonerError(t *testing.T) {
	o := New(NewSessionStore(), fakeReasoner{err: errors.New("boom")}, newTestSearchEngine(t), nil, nil)
	result := o.Chat(context.Background(), "你好", "")
	assert.Contains(t, result.Answer, "can't respond")
}

func TestSearchIntentComposesReply(t *testing.T) {
	o := New(NewSessionStore(), nil, newTestSearchEngine(t), nil, nil)
	reply, results, err := o.SearchIntent(context.Background(), "a red bicycle", 5)
	require.NoError(t, err)
	assert.Contains(t, reply, "no photos matched")
	assert.Empty(t, results)
}
