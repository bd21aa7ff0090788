package extract

import (
	"strings"

	"github.com/dlclark/regexp2"
)

var pointCloudPrefixPattern = regexp2.MustCompile(
	`(?:点云ID|pointcloud_id|任务ID)[:：]?\s*([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`,
	regexp2.IgnoreCase,
)

// pointCloudKeywords classify a user query as a point-cloud request,
// per spec.md §4.7's "closed keyword set" rule.
var pointCloudKeywords = []string{
	"点云", "三维重建", "3d重建", "point cloud", "pointcloud", "3d model", "3d模型",
}

// IsPointCloudRequest reports whether query's intent is a point-cloud
// generation request.
func IsPointCloudRequest(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range pointCloudKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PointCloudID recovers a point-cloud task id from assistant text by
// priority: (a) an explicit labelled prefix, (b) any UUID that is not
// also the tail of one of imageIDs (an image-URL derived id set).
func PointCloudID(text string, imageIDs map[string]struct{}) (string, bool) {
	if m, _ := pointCloudPrefixPattern.FindStringMatch(text); m != nil {
		return m.GroupByNumber(1).String(), true
	}

	for _, id := range AllUUIDs(text) {
		if _, isImage := imageIDs[id]; !isImage {
			return id, true
		}
	}
	return "", false
}
