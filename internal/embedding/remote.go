package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/pkg/retry"
)

// RemoteBackend posts a single input at a time to a remote multimodal
// embedding API with an explicit target dimension, per spec.md §4.1.
// Grounded on original_source/app/services/aliyun_embedding_client.py:
// the remote provider has no true batch endpoint, so EmbedBatch fans out
// sequentially.
type RemoteBackend struct {
	endpoint  string
	apiKey    string
	dimension int64
	client    *http.Client
}

// NewRemoteBackend creates a RemoteBackend. It does not check endpoint
// or apiKey itself; at startup internal/config's Validate rejects an
// empty REMOTE_EMBEDDING_API_KEY when the remote provider is selected
// (the endpoint is not checked).
func NewRemoteBackend(endpoint, apiKey string, dimension int64, timeout time.Duration) *RemoteBackend {
	return &RemoteBackend{
		endpoint:  endpoint,
		apiKey:    apiKey,
		dimension: dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

func (r *RemoteBackend) Dimension() int64 { return r.dimension }

type remoteEmbedRequest struct {
	Text        string `json:"text,omitempty"`
	Image       string `json:"image,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	Dimension   int64  `json:"dimension"`
}

func (r *RemoteBackend) Embed(ctx context.Context, in Input) ([]float64, error) {
	if !in.HasContent() {
		return nil, errs.New(errs.InvalidInput, "embedding: at least one of text/image is required")
	}

	req := remoteEmbedRequest{
		Text:        in.Text,
		Instruction: in.Instruction,
		Dimension:   r.dimension,
	}

	if in.ImagePath != "" {
		req.Image = in.ImagePath
	} else if len(in.ImageBytes) > 0 {
		tmpPath, cleanup, err := writeTempImage(in.ImageBytes)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		req.Image = tmpPath
	}

	var vector []float64
	err := retry.Do(ctx, retry.DefaultPolicy, isRetryable, func() error {
		v, callErr := r.call(ctx, req)
		if callErr != nil {
			return callErr
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Normalize {
		vector = Normalize(vector)
	}
	return vector, nil
}

func (r *RemoteBackend) call(ctx context.Context, req remoteEmbedRequest) ([]float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "embedding: marshal remote request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "embedding: build remote request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "embedding: remote call failed")
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "embedding: read remote response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.New(errs.RateLimited, "embedding: remote provider rate limited (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return nil, errs.New(errs.ProviderUnavailable, "embedding: remote provider error (status %d): %s", resp.StatusCode, buf.String())
	}
	if resp.StatusCode >= 400 {
		return nil, errs.New(errs.InvalidInput, "embedding: remote provider rejected request (status %d): %s", resp.StatusCode, buf.String())
	}

	result := gjson.GetBytes(buf.Bytes(), "output.embeddings.0.embedding")
	if !result.IsArray() {
		return nil, errs.New(errs.CorruptPayload, "embedding: remote response missing output.embeddings[0].embedding")
	}

	values := result.Array()
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = v.Float()
	}
	return vector, nil
}

func (r *RemoteBackend) EmbedBatch(ctx context.Context, inputs []Input) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		vec, err := r.Embed(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("embedding: batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func isRetryable(err error) bool {
	return errs.Is(err, errs.ProviderUnavailable) || errs.Is(err, errs.TimedOut) || errs.Is(err, errs.RateLimited)
}

func writeTempImage(content []byte) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "embed-upload-*.jpg")
	if err != nil {
		return "", nil, errs.Wrap(errs.Internal, err, "embedding: create temp file")
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, errs.Wrap(errs.Internal, err, "embedding: write temp file")
	}
	name := f.Name()
	f.Close()
	return name, func() { os.Remove(name) }, nil
}
