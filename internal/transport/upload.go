package transport

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/indexer"
)

// uploadResponse is the wire envelope for POST /images, per spec.md §6's
// upload endpoint contract.
type uploadResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
	FileSize   int64  `json:"file_size"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
	CreatedAt  string `json:"created_at"`
	URL        string `json:"url"`
	Indexed    any    `json:"indexed"`
	IndexMode  string `json:"index_mode"`
	IndexError string `json:"index_error,omitempty"`
}

const maxUploadMemory = 32 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: parse upload form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.Wrap(errs.InvalidInput, err, "transport: missing file field"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, errs.Wrap(errs.Internal, err, "transport: read upload"))
		return
	}

	opts := indexer.Options{
		AutoIndex:   formBool(r, "auto_index", true),
		AsyncIndex:  formBool(r, "async_index", false),
		Tags:        splitCSV(r.FormValue("tags")),
		Description: r.FormValue("description"),
	}

	img, outcome, err := s.Indexer.Ingest(r.Context(), content, header.Filename, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := uploadResponse{
		ID:        img.ID,
		Filename:  img.Metadata.Filename,
		FilePath:  img.Metadata.RelativePath,
		FileSize:  img.Metadata.FileSize,
		Width:     img.Metadata.Width,
		Height:    img.Metadata.Height,
		Format:    string(img.Metadata.Format),
		CreatedAt: img.Metadata.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		URL:       "/images/" + img.ID,
		IndexMode: string(outcome.Mode),
	}
	switch outcome.Indexed {
	case indexer.IndexedDone:
		resp.Indexed = true
	case indexer.IndexedProcessing:
		resp.Indexed = "processing"
	default:
		resp.Indexed = false
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("image_id")
	content, mediaType, err := s.Objects.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.Write(content)
}

func formBool(r *http.Request, name string, def bool) bool {
	v := r.FormValue(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
