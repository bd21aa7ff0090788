package pointcloud

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
)

// ImageSource resolves a stored image back to its bytes and extension,
// so Manager.Run can hand the raw file to the 3DGS client without
// the caller threading storage details through.
type ImageSource interface {
	Get(id string) ([]byte, string, error)
}

// Manager tracks PointCloudTask lifecycles, serializing generation
// through an external Client and storing completed PLY files on a
// date-partitioned disk tree, per spec.md §3/§9. An in-memory cache is
// backed by disk reconstruction so a task whose PLY file already exists
// survives a restart, per
// original_source/app/services/pointcloud_service.py's get_pointcloud
// fallback.
type Manager struct {
	mu     sync.Mutex
	tasks  map[string]*model.PointCloudTask
	client *Client
	images ImageSource
	root   string
}

// NewManager creates a Manager storing PLY files under root.
func NewManager(root string, client *Client, images ImageSource) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: create storage root %s", root)
	}
	return &Manager{
		tasks:  make(map[string]*model.PointCloudTask),
		client: client,
		images: images,
		root:   root,
	}, nil
}

func (m *Manager) plyPath(id string, createdAt time.Time) string {
	return filepath.Join(m.root, createdAt.Format("2006/01/02"), id+".ply")
}

// CreateTask registers a new pending PointCloudTask for sourceImageID,
// per spec.md §3. The caller is responsible for kicking off Run to drive
// it to completion, synchronously or via a worker pool.
func (m *Manager) CreateTask(sourceImageID string, quality model.PointCloudQuality) *model.PointCloudTask {
	task := &model.PointCloudTask{
		ID:            uuid.NewString(),
		SourceImageID: sourceImageID,
		Status:        model.PointCloudPending,
		Quality:       quality,
		CreatedAt:     time.Now(),
	}
	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()
	return task
}

// Run drives task through the 3DGS generation call, per spec.md §4.8's
// state machine: PENDING -> PROCESSING -> {COMPLETED, FAILED}. It is
// meant to be invoked on a worker-pool goroutine after CreateTask.
func (m *Manager) Run(ctx context.Context, taskID string) {
	m.transition(taskID, model.PointCloudProcessing, nil)

	task, ok := m.get(taskID)
	if !ok {
		return
	}

	imageBytes, mediaType, err := m.images.Get(task.SourceImageID)
	if err != nil {
		m.fail(taskID, fmt.Sprintf("read source image: %v", err))
		return
	}

	result, err := m.client.Generate(ctx, imageBytes, extensionFromMediaType(mediaType), task.Quality)
	if err != nil {
		m.fail(taskID, err.Error())
		return
	}

	m.complete(taskID, result)
}

func (m *Manager) transition(taskID string, next model.PointCloudStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || !task.Status.CanTransitionTo(next) {
		return
	}
	task.Status = next
}

func (m *Manager) fail(taskID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || !task.Status.CanTransitionTo(model.PointCloudFailed) {
		return
	}
	now := time.Now()
	task.Status = model.PointCloudFailed
	task.ErrorMessage = message
	task.CompletedAt = &now
}

func (m *Manager) complete(taskID string, result *GenerateResult) {
	m.mu.Lock()
	task, ok := m.tasks[taskID]
	if !ok || !task.Status.CanTransitionTo(model.PointCloudCompleted) {
		m.mu.Unlock()
		return
	}
	path := m.plyPath(taskID, task.CreatedAt)
	m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.fail(taskID, fmt.Sprintf("create storage dir: %v", err))
		return
	}
	if err := os.WriteFile(path, result.PLYData, 0o644); err != nil {
		m.fail(taskID, fmt.Sprintf("write PLY file: %v", err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok = m.tasks[taskID]
	if !ok || !task.Status.CanTransitionTo(model.PointCloudCompleted) {
		return
	}
	now := time.Now()
	task.Status = model.PointCloudCompleted
	task.FilePath = path
	task.FileSize = int64(len(result.PLYData))
	task.PointCount = model.EstimatePointCount(task.FileSize)
	task.ViewURL = result.ViewURL
	task.CompletedAt = &now
}

func (m *Manager) get(taskID string) (*model.PointCloudTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	return task, ok
}

// Get returns the task for id, reconstructing a minimal COMPLETED record
// from disk if the in-memory cache has no entry but a matching PLY file
// exists under a date-partitioned path, per
// original_source/app/services/pointcloud_service.py's get_pointcloud.
func (m *Manager) Get(id string) (*model.PointCloudTask, bool) {
	if task, ok := m.get(id); ok {
		return task, true
	}

	task, ok := m.reconstructFromDisk(id)
	if !ok {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.tasks[id]; ok {
		return existing, true
	}
	m.tasks[id] = task
	return task, true
}

func (m *Manager) reconstructFromDisk(id string) (*model.PointCloudTask, bool) {
	var found string
	_ = filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Base(path) == id+".ply" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if found == "" {
		return nil, false
	}

	info, err := os.Stat(found)
	if err != nil {
		return nil, false
	}
	completedAt := info.ModTime()
	return &model.PointCloudTask{
		ID:          id,
		Status:      model.PointCloudCompleted,
		FilePath:    found,
		FileSize:    info.Size(),
		PointCount:  model.EstimatePointCount(info.Size()),
		CreatedAt:   completedAt,
		CompletedAt: &completedAt,
	}, true
}

// File returns the raw PLY bytes for a completed task.
func (m *Manager) File(id string) ([]byte, error) {
	task, ok := m.Get(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "pointcloud: task %s not found", id)
	}
	if task.Status != model.PointCloudCompleted {
		return nil, errs.New(errs.InvalidInput, "pointcloud: task %s is not completed (status %s)", id, task.Status)
	}
	data, err := os.ReadFile(task.FilePath)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: read PLY file for %s", id)
	}
	return data, nil
}

func extensionFromMediaType(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
