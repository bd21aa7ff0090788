package model

import "time"

// PointCloudStatus is the lifecycle state of a PointCloudTask, per
// spec.md §3. Transitions are monotonic: PENDING -> PROCESSING ->
// {COMPLETED, FAILED}; terminal states are never overwritten.
type PointCloudStatus string

const (
	PointCloudPending    PointCloudStatus = "PENDING"
	PointCloudProcessing PointCloudStatus = "PROCESSING"
	PointCloudCompleted  PointCloudStatus = "COMPLETED"
	PointCloudFailed     PointCloudStatus = "FAILED"
)

// rank orders statuses for the monotonicity check in spec.md §8: terminal
// states are incomparable to each other but never regress to a lower
// rank.
func (s PointCloudStatus) rank() int {
	switch s {
	case PointCloudPending:
		return 0
	case PointCloudProcessing:
		return 1
	case PointCloudCompleted, PointCloudFailed:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// monotonic transition: terminal states (COMPLETED, FAILED) are immutable,
// every other transition must strictly advance rank.
func (s PointCloudStatus) CanTransitionTo(next PointCloudStatus) bool {
	if s.rank() == 2 {
		return false
	}
	return next.rank() > s.rank()
}

// PointCloudQuality selects the 3DGS generation quality/speed trade-off.
type PointCloudQuality string

const (
	PointCloudQualityBalanced PointCloudQuality = "balanced"
	PointCloudQualityFast     PointCloudQuality = "fast"
)

// PointCloudTask tracks a single point-cloud generation request, per
// spec.md §3.
type PointCloudTask struct {
	ID            string
	SourceImageID string
	Status        PointCloudStatus
	Quality       PointCloudQuality
	FilePath      string
	FileSize      int64
	PointCount    int64
	ViewURL       string
	DownloadURL   string
	ErrorMessage  string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// EstimatePointCount approximates the point count of a PLY file from its
// byte size, per spec.md §3/§9: each point occupies roughly 45 bytes in
// the service's simplified, non-header-parsed estimate. A header-parsing
// implementation would be exact but the original service never carried
// one either (original_source/app/services/pointcloud_service.py).
func EstimatePointCount(fileSize int64) int64 {
	return fileSize / 45
}
