package model

import "testing"

func TestPointCloudStatusMonotonicity(t *testing.T) {
	cases := []struct {
		from, to PointCloudStatus
		want     bool
	}{
		{PointCloudPending, PointCloudProcessing, true},
		{PointCloudProcessing, PointCloudCompleted, true},
		{PointCloudProcessing, PointCloudFailed, true},
		{PointCloudPending, PointCloudCompleted, true},
		{PointCloudCompleted, PointCloudProcessing, false},
		{PointCloudFailed, PointCloudCompleted, false},
		{PointCloudProcessing, PointCloudPending, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		if got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestEstimatePointCount(t *testing.T) {
	if got := EstimatePointCount(450); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}
