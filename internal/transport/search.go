package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/search"
)

// resultDTO is the wire shape of one search.Result, per spec.md §4.4/§6.
type resultDTO struct {
	ID         string         `json:"id"`
	Score      *float64       `json:"score,omitempty"`
	Payload    map[string]any `json:"payload"`
	PreviewURL string         `json:"preview_url"`
}

func toResultDTOs(results []search.Result) []resultDTO {
	out := make([]resultDTO, len(results))
	for i, r := range results {
		out[i] = resultDTO{ID: r.ID, Score: r.Score, Payload: r.Payload, PreviewURL: r.PreviewURL}
	}
	return out
}

func writeResults(w http.ResponseWriter, results []search.Result, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toResultDTOs(results)})
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query_text")
	results, err := s.Search.SearchByText(r.Context(), query, queryInt(r, "top_k", 10), queryFloat(r, "score_threshold", 0), queryTags(r))
	writeResults(w, results, err)
}

func (s *Server) handleSearchImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	imgQuery := search.ImageQuery{ID: q.Get("query_image_id")}
	if url := q.Get("query_image_url"); url != "" && imgQuery.ID == "" {
		bytes, err := fetchURL(r.Context(), url)
		if err != nil {
			writeError(w, err)
			return
		}
		imgQuery.Bytes = bytes
	}
	results, err := s.Search.SearchByImage(r.Context(), imgQuery, queryInt(r, "top_k", 10), queryFloat(r, "score_threshold", 0), queryTags(r))
	writeResults(w, results, err)
}

func (s *Server) handleSearchMeta(w http.ResponseWriter, r *http.Request) {
	results, err := s.Search.SearchByMeta(r.Context(), r.URL.Query().Get("date_text"), queryTags(r), queryInt(r, "top_k", 10))
	writeResults(w, results, err)
}

func (s *Server) handleSearchHybrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := s.Search.SearchByTextWithMeta(r.Context(), q.Get("query"), q.Get("date_text"), queryTags(r), queryInt(r, "top_k", 10), queryFloat(r, "score_threshold", 0))
	writeResults(w, results, err)
}

// handleUnifiedSearch dispatches by which of
// {query_text, query_image_id, query_image_url} is present, per
// spec.md §6.
func (s *Server) handleUnifiedSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("query_image_id") != "" || q.Get("query_image_url") != "":
		s.handleSearchImage(w, r)
	case q.Get("date_text") != "" && q.Get("query_text") != "":
		s.handleSearchHybrid(w, r)
	case q.Get("date_text") != "":
		s.handleSearchMeta(w, r)
	default:
		s.handleSearchText(w, r)
	}
}

// fetchURL downloads a query_image_url operand. This is a thin transport
// detail (not a domain collaborator), so plain net/http is used rather
// than any embedding/search library.
func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "transport: build query_image_url request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "transport: fetch query_image_url")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, errs.New(errs.InvalidInput, "transport: query_image_url returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
