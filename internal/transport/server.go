// Package transport implements the thin net/http adapters of spec.md
// §6: the public upload/search/agent/point-cloud-download surface, and
// the loopback `/internal/tools/...` endpoints the tool registry (C6)
// binds against. No router framework is used: none of the example
// repos' Go modules pull one in for this role (the teacher is a
// library, not a server), and Go 1.22's ServeMux method+wildcard
// routing covers everything this layer needs.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/spf13/cast"

	"github.com/lingxi-album/backend/internal/agent"
	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/imageedit"
	"github.com/lingxi-album/backend/internal/indexer"
	"github.com/lingxi-album/backend/internal/jobs"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/pointcloud"
	"github.com/lingxi-album/backend/internal/search"
	"github.com/lingxi-album/backend/internal/vectorstore"
	"github.com/lingxi-album/backend/internal/vision"
	"github.com/lingxi-album/backend/internal/workflow"
)

// Server wires every component into the HTTP surface of spec.md §6.
// Vision, ImageEdit, Recommendation and Deletion may be nil (e.g. no
// vision client when VISION_MODEL_API_KEY is unset): the tool handlers
// that need them then fail with Misconfigured, as generate_pointcloud
// does when PointClouds is nil, and a nil Jobs leaves async point-cloud
// tasks unsubmitted. Orchestrator, Sessions, Vectors and the point-cloud
// download route's PointClouds are used without a nil check.
type Server struct {
	Objects        *objectstore.Store
	Indexer        *indexer.Indexer
	Vectors        vectorstore.Store
	Search         *search.Engine
	Orchestrator   *agent.Orchestrator
	Sessions       *agent.SessionStore
	Vision         *vision.Client
	ImageEdit      *imageedit.Service
	PointClouds    *pointcloud.Manager
	Jobs           *jobs.Manager
	Recommendation *workflow.RecommendationService
	Deletion       *workflow.DeletionService
	Logger         *slog.Logger
}

// Routes builds the ServeMux exposing every endpoint spec.md §6 names.
func (s *Server) Routes() *http.ServeMux {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /images", s.handleUpload)
	mux.HandleFunc("GET /images/{image_id}", s.handleGetImage)

	mux.HandleFunc("GET /search", s.handleUnifiedSearch)
	mux.HandleFunc("GET /search/text", s.handleSearchText)
	mux.HandleFunc("GET /search/image", s.handleSearchImage)
	mux.HandleFunc("GET /search/meta", s.handleSearchMeta)
	mux.HandleFunc("GET /search/hybrid", s.handleSearchHybrid)

	mux.HandleFunc("POST /agent/chat", s.handleAgentChat)
	mux.HandleFunc("GET /agent/sessions/{id}/events", s.handleSessionEvents)

	mux.HandleFunc("GET /pointcloud/download/{task_id}", s.handlePointCloudDownload)

	mux.HandleFunc("GET /internal/tools/semantic_search_images", s.handleToolSemanticSearch)
	mux.HandleFunc("GET /internal/tools/search_by_image_id/{image_id}", s.handleToolSearchByImageID)
	mux.HandleFunc("GET /internal/tools/meta_search_images", s.handleToolMetaSearch)
	mux.HandleFunc("GET /internal/tools/meta_search_hybrid", s.handleToolMetaSearchHybrid)
	mux.HandleFunc("POST /internal/tools/agent_execute_action", s.handleToolExecuteAction)
	mux.HandleFunc("GET /internal/tools/get_current_time", s.handleToolCurrentTime)
	mux.HandleFunc("GET /internal/tools/get_photo_meta_schema", s.handleToolMetaSchema)
	mux.HandleFunc("POST /internal/tools/generate_social_media_caption/{image_uuid}", s.handleToolCaption)
	mux.HandleFunc("POST /internal/tools/recommend_images", s.handleToolRecommend)
	mux.HandleFunc("POST /internal/tools/edit_image/{image_id}", s.handleToolEditImage)
	mux.HandleFunc("POST /internal/tools/generate_pointcloud/{image_id}", s.handleToolGeneratePointcloud)
	mux.HandleFunc("POST /internal/tools/knowledge_qa/{image_uuid}", s.handleToolKnowledgeQA)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an errs.Kind to an HTTP status per spec.md §7's
// propagation policy and writes a small JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, statusForKind(kind), map[string]any{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

func statusForKind(k errs.Kind) int {
	switch k {
	case errs.InvalidInput, errs.EmptyInput:
		return http.StatusBadRequest
	case errs.Unauthenticated:
		return http.StatusUnauthorized
	case errs.NotFound:
		return http.StatusNotFound
	case errs.NotConfirmed:
		return http.StatusConflict
	case errs.RateLimited:
		return http.StatusTooManyRequests
	case errs.TimedOut:
		return http.StatusGatewayTimeout
	case errs.ProviderUnavailable:
		return http.StatusBadGateway
	case errs.DimensionMismatch, errs.CorruptPayload:
		return http.StatusUnprocessableEntity
	case errs.Misconfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, name string, def float64) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

func queryTags(r *http.Request) []string {
	return splitCSV(r.URL.Query().Get("tags"))
}
