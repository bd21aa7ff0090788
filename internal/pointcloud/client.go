// Package pointcloud implements C8's 3D point-cloud generation
// collaborator: an HTTP client for the external 3DGS service, and a
// task registry that survives minor process restarts via disk
// reconstruction, per spec.md §3/§4.8/§9. Grounded on
// original_source/app/services/pointcloud_service.py's
// _call_3dgs_service/_download_ply_file request shape.
package pointcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
)

// GenerateResult is what the 3DGS service hands back after a successful
// generation: the downloaded PLY bytes plus any preview URL it reports.
type GenerateResult struct {
	PLYData []byte
	ViewURL string
}

// Client wraps the external 3DGS service's multipart generate endpoint
// and its subsequent PLY download, per
// original_source/app/services/pointcloud_service.py's
// _call_3dgs_service/_download_ply_file.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	downloadTimeout time.Duration
}

// NewClient creates a Client bound to a 3DGS service at baseURL.
// requestTimeout bounds the generate call; downloadTimeout bounds the
// subsequent PLY fetch, per spec.md §4.8's distinct timeout defaults.
func NewClient(baseURL string, requestTimeout, downloadTimeout time.Duration) *Client {
	return &Client{
		baseURL:         baseURL,
		httpClient:      &http.Client{Timeout: requestTimeout},
		downloadTimeout: downloadTimeout,
	}
}

type generateResponse struct {
	Success     bool           `json:"success"`
	DownloadURL string         `json:"download_url"`
	ViewURL     string         `json:"view_url"`
	Error       string         `json:"error"`
	Metadata    map[string]any `json:"metadata"`
}

// Generate posts imageBytes to the 3DGS service's /api/v1/generate
// endpoint and downloads the resulting PLY file, per
// original_source/app/services/pointcloud_service.py's
// return_format=url / simplify_ply=true contract.
func (c *Client) Generate(ctx context.Context, imageBytes []byte, imageExt string, quality model.PointCloudQuality) (*GenerateResult, error) {
	if c.baseURL == "" {
		return nil, errs.New(errs.Misconfigured, "pointcloud: service URL not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "image"+imageExt)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: build multipart body")
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: write image part")
	}
	_ = writer.WriteField("quality", string(quality))
	_ = writer.WriteField("return_format", "url")
	_ = writer.WriteField("simplify_ply", "true")
	if err := writer.Close(); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/generate", body)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: build request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "pointcloud: generate call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return nil, errs.New(errs.ProviderUnavailable, "pointcloud: service returned %d: %s", resp.StatusCode, string(text))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errs.Wrap(errs.CorruptPayload, err, "pointcloud: decode generate response")
	}
	if !parsed.Success {
		if parsed.Error == "" {
			parsed.Error = "unknown error"
		}
		return nil, errs.New(errs.ProviderUnavailable, "pointcloud: generation failed: %s", parsed.Error)
	}
	if parsed.DownloadURL == "" {
		return nil, errs.New(errs.ProviderUnavailable, "pointcloud: no download URL in response")
	}

	plyData, err := c.download(ctx, resolveURL(c.baseURL, parsed.DownloadURL))
	if err != nil {
		return nil, err
	}

	return &GenerateResult{PLYData: plyData, ViewURL: resolveURL(c.baseURL, parsed.ViewURL)}, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "pointcloud: build download request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "pointcloud: download PLY failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.ProviderUnavailable, "pointcloud: download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "pointcloud: read PLY body")
	}
	return data, nil
}

// resolveURL mirrors the original's check for an already-absolute URL
// before prefixing it with the service's base, per
// pointcloud_service.py's view_url handling.
func resolveURL(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	if len(ref) >= 7 && (ref[:7] == "http://" || (len(ref) >= 8 && ref[:8] == "https://")) {
		return ref
	}
	return fmt.Sprintf("%s%s", baseURL, ref)
}
