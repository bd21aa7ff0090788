package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/imageedit"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/search"
	"github.com/lingxi-album/backend/internal/vision"
	"github.com/lingxi-album/backend/internal/workflow"
)

// This file implements the twelve `/internal/tools/...` loopback
// endpoints the tool registry (C6) binds against, per spec.md §4.6/§6's
// tool table. Each handler is a thin adapter onto the component that
// actually performs the work; none of them hold behaviour the
// corresponding component doesn't already implement.

func (s *Server) handleToolSemanticSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := s.Search.SearchByText(r.Context(), q.Get("query"), queryInt(r, "top_k", 10), queryFloat(r, "score_threshold", 0), queryTags(r))
	writeResults(w, results, err)
}

func (s *Server) handleToolSearchByImageID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("image_id")
	results, err := s.Search.SearchByImage(r.Context(), search.ImageQuery{ID: id}, queryInt(r, "top_k", 10), queryFloat(r, "score_threshold", 0), queryTags(r))
	writeResults(w, results, err)
}

func (s *Server) handleToolMetaSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.Search.SearchByMeta(r.Context(), r.URL.Query().Get("date_text"), queryTags(r), queryInt(r, "top_k", 10))
	writeResults(w, results, err)
}

func (s *Server) handleToolMetaSearchHybrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := s.Search.SearchByTextWithMeta(r.Context(), q.Get("query"), q.Get("date_text"), queryTags(r), queryInt(r, "top_k", 10), queryFloat(r, "score_threshold", 0))
	writeResults(w, results, err)
}

func (s *Server) handleToolCurrentTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"current_time": time.Now().Format("2006-01-02 15:04:05")})
}

func (s *Server) handleToolMetaSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": map[string]string{
			"id":          "unique image id (UUID)",
			"filename":    "original upload filename",
			"tags":        "comma-separated free-text labels",
			"description": "free-text caption/description",
			"created_at":  "upload timestamp",
			"width":       "pixel width",
			"height":      "pixel height",
			"format":      "jpg, jpeg, png, gif, webp, or bmp",
		},
		"date_formats": []string{"YYYY-MM-DD", "YYYY/MM/DD", "YYYY.MM.DD", "MM-DD", "MM/DD", "MM.DD", "MM月DD日"},
		"examples":     []string{"2024-03-05", "3/5", "3月5日", "tags:sunset,beach"},
	})
}

func (s *Server) handleToolCaption(w http.ResponseWriter, r *http.Request) {
	if s.Vision == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: vision model not configured"))
		return
	}
	var body struct {
		Style   string `json:"style"`
		Purpose string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: decode request"))
		return
	}
	img, err := s.loadVisionImage(r.PathValue("image_uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	caption, err := s.Vision.Caption(r.Context(), img, body.Style, body.Purpose)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"caption": caption})
}

func (s *Server) handleToolKnowledgeQA(w http.ResponseWriter, r *http.Request) {
	if s.Vision == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: vision model not configured"))
		return
	}
	var body struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: decode request"))
		return
	}
	img, err := s.loadVisionImage(r.PathValue("image_uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	answer, err := s.Vision.Ask(r.Context(), img, body.Question, body.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

func (s *Server) loadVisionImage(id string) (vision.Image, error) {
	content, mediaType, err := s.Objects.Get(id)
	if err != nil {
		return vision.Image{}, err
	}
	return vision.Image{Bytes: content, MediaType: mediaType}, nil
}

func (s *Server) handleToolRecommend(w http.ResponseWriter, r *http.Request) {
	if s.Recommendation == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: recommendation service not configured"))
		return
	}
	var body struct {
		Images         []string `json:"images"`
		UserPreference string   `json:"user_preference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: decode request"))
		return
	}

	inputs := make([]workflow.RecommendationInput, 0, len(body.Images))
	for _, id := range body.Images {
		content, mediaType, err := s.Objects.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		inputs = append(inputs, workflow.RecommendationInput{ID: id, Bytes: content, MediaType: mediaType})
	}

	verdict, err := s.Recommendation.Recommend(r.Context(), inputs, body.UserPreference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse(verdict))
}

type axisDTO struct {
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis"`
}

type imageAnalysisDTO struct {
	ID              string  `json:"id"`
	Composition     axisDTO `json:"composition"`
	Color           axisDTO `json:"color"`
	Lighting        axisDTO `json:"lighting"`
	Theme           axisDTO `json:"theme"`
	Emotion         axisDTO `json:"emotion"`
	Creativity      axisDTO `json:"creativity"`
	Story           axisDTO `json:"story"`
	OverallScore    float64 `json:"overall_score"`
	OverallAnalysis string  `json:"overall_analysis"`
}

func verdictResponse(v *workflow.Verdict) map[string]any {
	analysis := make([]imageAnalysisDTO, len(v.Analysis))
	for i, a := range v.Analysis {
		analysis[i] = imageAnalysisDTO{
			ID:              a.ID,
			Composition:     axisDTO(a.Composition),
			Color:           axisDTO(a.Color),
			Lighting:        axisDTO(a.Lighting),
			Theme:           axisDTO(a.Theme),
			Emotion:         axisDTO(a.Emotion),
			Creativity:      axisDTO(a.Creativity),
			Story:           axisDTO(a.Story),
			OverallScore:    a.OverallScore,
			OverallAnalysis: a.OverallAnalysis,
		}
	}
	return map[string]any{
		"success":  v.Success,
		"analysis": analysis,
		"recommendation": map[string]any{
			"best_image_id":          v.BestImageID,
			"recommendation_reason":  v.RecommendationReason,
			"alternative_image_ids":  v.AlternativeImageIDs,
			"key_strengths":          v.KeyStrengths,
			"potential_improvements": v.PotentialImprovements,
		},
		"parse_error": v.ParseError,
	}
}

func (s *Server) handleToolEditImage(w http.ResponseWriter, r *http.Request) {
	if s.ImageEdit == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: edit model not configured"))
		return
	}
	id := r.PathValue("image_id")
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: decode request"))
		return
	}

	content, _, err := s.Objects.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.ImageEdit.EditAndSave(r.Context(), id, content, imageedit.Request{Prompt: body.Prompt}, "", true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"new_image_id": saved[0].ID})
}

func (s *Server) handleToolGeneratePointcloud(w http.ResponseWriter, r *http.Request) {
	if s.PointClouds == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: point-cloud service not configured"))
		return
	}
	id := r.PathValue("image_id")
	var body struct {
		Quality   string `json:"quality"`
		AsyncMode *bool  `json:"async_mode"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	quality := model.PointCloudQualityBalanced
	if body.Quality == string(model.PointCloudQualityFast) {
		quality = model.PointCloudQualityFast
	}
	async := true
	if body.AsyncMode != nil {
		async = *body.AsyncMode
	}

	task := s.PointClouds.CreateTask(id, quality)
	if async {
		if s.Jobs != nil {
			s.Jobs.SubmitGeneration(r.Context(), task.ID)
		}
	} else {
		s.PointClouds.Run(r.Context(), task.ID)
		if got, ok := s.PointClouds.Get(task.ID); ok {
			task = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": task.ID, "status": string(task.Status)})
}

func (s *Server) handleToolExecuteAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action     string         `json:"action"`
		Parameters map[string]any `json:"parameters"`
		Context    map[string]any `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: decode request"))
		return
	}

	switch body.Action {
	case "search":
		s.executeActionSearch(w, r, body.Parameters)
	case "delete":
		s.executeActionDelete(w, r, body.Parameters)
	case "update":
		s.executeActionUpdate(w, r, body.Parameters)
	case "analyze":
		s.executeActionAnalyze(w, r, body.Parameters)
	default:
		writeError(w, errs.New(errs.InvalidInput, "transport: unknown action %q", body.Action))
	}
}

func (s *Server) executeActionSearch(w http.ResponseWriter, r *http.Request, params map[string]any) {
	query, _ := params["query"].(string)
	topK := 10
	if v, ok := params["top_k"].(float64); ok {
		topK = int(v)
	}
	results, err := s.Search.SearchByText(r.Context(), query, topK, 0, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"results": toResultDTOs(results)}})
}

func (s *Server) executeActionDelete(w http.ResponseWriter, r *http.Request, params map[string]any) {
	if s.Deletion == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: deletion workflow not configured"))
		return
	}
	ids := stringSliceParam(params["ids"])
	confirmed, _ := params["confirmed"].(bool)
	reason, _ := params["reason"].(string)

	outcome, err := s.Deletion.Delete(r.Context(), ids, confirmed, reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{
		"deleted_count": outcome.DeletedCount,
		"failed_count":  outcome.FailedCount,
		"deleted_ids":   outcome.DeletedIDs,
		"failed_ids":    outcome.FailedIDs,
	}})
}

func (s *Server) executeActionUpdate(w http.ResponseWriter, r *http.Request, params map[string]any) {
	id, _ := params["id"].(string)
	if id == "" {
		writeError(w, errs.New(errs.InvalidInput, "transport: update requires an id"))
		return
	}
	partial := map[string]any{}
	if tags := stringSliceParam(params["tags"]); tags != nil {
		partial[model.PayloadTags] = tags
	}
	if desc, ok := params["description"].(string); ok {
		partial[model.PayloadDescription] = desc
	}
	if err := s.Vectors.SetPayload(r.Context(), id, partial); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"id": id, "updated": true}})
}

func (s *Server) executeActionAnalyze(w http.ResponseWriter, r *http.Request, params map[string]any) {
	if s.Vision == nil {
		writeError(w, errs.New(errs.Misconfigured, "transport: vision model not configured"))
		return
	}
	id, _ := params["id"].(string)
	question, _ := params["question"].(string)
	if question == "" {
		question = "Describe this image in detail."
	}
	img, err := s.loadVisionImage(id)
	if err != nil {
		writeError(w, err)
		return
	}
	answer, err := s.Vision.Ask(r.Context(), img, question, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"analysis": answer}})
}

func stringSliceParam(v any) []string {
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil
	}
	return out
}
