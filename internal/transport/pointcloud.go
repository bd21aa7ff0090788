package transport

import "net/http"

// handlePointCloudDownload implements spec.md §6's point-cloud download
// URL convention: /pointcloud/download/{task_id}.
func (s *Server) handlePointCloudDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	data, err := s.PointClouds.File(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}
