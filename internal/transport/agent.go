package transport

import (
	"encoding/json"
	"net/http"

	"github.com/lingxi-album/backend/internal/agent/extract"
	"github.com/lingxi-album/backend/internal/errs"
)

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Answer         string                  `json:"answer"`
	Images         []extract.ImageRef      `json:"images,omitempty"`
	Recommendation *extract.Recommendation `json:"recommendation,omitempty"`
	PointCloudID   string                  `json:"pointcloud_id,omitempty"`
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: decode chat request"))
		return
	}
	if req.Query == "" {
		writeError(w, errs.New(errs.EmptyInput, "transport: query is required"))
		return
	}

	result := s.Orchestrator.Chat(r.Context(), req.Query, req.ConversationID)
	writeJSON(w, http.StatusOK, chatResponse{
		Answer:         result.Answer,
		Images:         result.Images,
		Recommendation: result.Recommendation,
		PointCloudID:   result.PointCloudID,
	})
}

type sessionEventDTO struct {
	Event     string         `json:"event"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// handleSessionEvents implements spec.md §6's session-event-stream
// contract: callers list a session's system/event history entries to
// discover background-task completions (e.g. point-cloud generation).
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.Sessions.Get(id)
	if !ok {
		writeError(w, errs.New(errs.NotFound, "transport: session %s not found", id))
		return
	}

	events := sess.SystemEvents()
	out := make([]sessionEventDTO, len(events))
	for i, e := range events {
		out[i] = sessionEventDTO{
			Event:     e.Event,
			Content:   e.Content,
			Timestamp: e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
