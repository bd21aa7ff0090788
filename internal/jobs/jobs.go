// Package jobs implements C8: the background job manager driving
// point-cloud generation to completion and polling its status into a
// chat session's event stream. Lifecycle shape grounded on
// core/job/stream_job.go's Start/run/Stop pattern; the poll loop itself
// is grounded on
// original_source/app/services/pointcloud_service.py's 5s status poll
// (spec.md §4.8).
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/pkg/xsync"
	"github.com/lingxi-album/backend/internal/pointcloud"
)

// SessionSink is the subset of agent.SessionStore the monitor needs,
// defined here so that jobs does not import internal/agent.
type SessionSink interface {
	Get(id string) (*model.Session, bool)
	WithLock(fn func())
}

// Manager owns the worker pool backing point-cloud generation and the
// session-monitor goroutines watching each task to completion.
type Manager struct {
	pool          xsync.Pool
	pointclouds   *pointcloud.Manager
	sessions      SessionSink
	pollInterval  time.Duration
	monitorExpiry time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewManager creates a Manager. pool backs point-cloud generation runs;
// pollInterval/monitorExpiry bound each session monitor's polling loop,
// per spec.md §4.8.
func NewManager(pool xsync.Pool, pointclouds *pointcloud.Manager, sessions SessionSink, pollInterval, monitorExpiry time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pool:          pool,
		pointclouds:   pointclouds,
		sessions:      sessions,
		pollInterval:  pollInterval,
		monitorExpiry: monitorExpiry,
		logger:        logger,
		cancels:       make(map[string]context.CancelFunc),
	}
}

// SubmitGeneration queues taskID's 3DGS generation on the worker pool,
// per spec.md §4.8's async point-cloud request flow.
func (m *Manager) SubmitGeneration(ctx context.Context, taskID string) {
	m.pool.Submit(func() {
		m.pointclouds.Run(ctx, taskID)
	})
}

// MonitorSession satisfies internal/agent's MonitorScheduler signature:
// it polls pointCloudID's status every pollInterval and, on reaching a
// terminal state, appends a system HistoryEntry tagged
// EventPointCloudCompleted to sessionID's history, per spec.md §4.8's
// "session event stream" contract. Safe to call more than once for the
// same task id; a second call for an already-monitored id replaces the
// first monitor.
func (m *Manager) MonitorSession(sessionID, pointCloudID string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.monitorExpiry)

	m.mu.Lock()
	if prior, ok := m.cancels[pointCloudID]; ok {
		prior()
	}
	m.cancels[pointCloudID] = cancel
	m.mu.Unlock()

	xsync.Go(func() {
		defer func() {
			m.mu.Lock()
			delete(m.cancels, pointCloudID)
			m.mu.Unlock()
			cancel()
		}()
		m.poll(ctx, sessionID, pointCloudID)
	})
}

func (m *Manager) poll(ctx context.Context, sessionID, pointCloudID string) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, ok := m.pointclouds.Get(pointCloudID)
			if !ok {
				continue
			}
			if task.Status != model.PointCloudCompleted && task.Status != model.PointCloudFailed {
				continue
			}
			m.recordCompletion(sessionID, task)
			return
		}
	}
}

func (m *Manager) recordCompletion(sessionID string, task *model.PointCloudTask) {
	m.sessions.WithLock(func() {
		sess, ok := m.sessions.Get(sessionID)
		if !ok {
			m.logger.Warn("pointcloud monitor: session gone", slog.String("session_id", sessionID), slog.String("task_id", task.ID))
			return
		}
		content := "Point-cloud generation finished."
		if task.Status == model.PointCloudFailed {
			content = "Point-cloud generation failed: " + task.ErrorMessage
		}
		sess.Append(model.HistoryEntry{
			Role:      model.RoleSystem,
			Content:   content,
			Timestamp: time.Now(),
			Event:     model.EventPointCloudCompleted,
			Payload: map[string]any{
				"task_id":  task.ID,
				"status":   string(task.Status),
				"view_url": task.ViewURL,
			},
		})
	})
	m.logger.Info("pointcloud monitor: recorded completion", slog.String("session_id", sessionID), slog.String("task_id", task.ID), slog.String("status", string(task.Status)))
}

// Stop cancels every in-flight session monitor. Queued/running
// generation work on the pool is left to the pool's own shutdown
// (xsync.WorkerPool.StopWait), since jobs.Manager does not own the pool.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
}
