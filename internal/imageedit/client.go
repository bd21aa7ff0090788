// Package imageedit implements the edit_image tool's external
// collaborator: a REST client for a remote image-edit model, and a
// Service that downloads the generated output(s) and saves each as a
// derived Image, per spec.md §6's edit_image contract. Grounded on
// original_source/app/services/image_edit_service.py's
// edit_image/edit_image_and_save (the DashScope SDK call is replaced
// with a plain REST request, since no pack example models this exact
// multimodal-edit contract and dashscope itself is unavailable).
package imageedit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/lingxi-album/backend/internal/errs"
)

// Request is one edit_image call's parameters, per spec.md §6.
type Request struct {
	Prompt         string
	NegativePrompt string
	PromptExtend   bool
	Count          int
	Size           string
	Watermark      bool
	Seed           *int
}

// Result is the edit model's raw response: one or more generated-image
// URLs to be downloaded.
type Result struct {
	ImageURLs []string
}

// Client wraps a remote image-edit model's chat-style multimodal
// endpoint, per image_edit_service.py's edit_image.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client. An empty apiKey makes Edit return a
// Misconfigured error, mirroring the original's is_initialized guard.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type editRequestBody struct {
	Model    string         `json:"model"`
	Messages []editMessage  `json:"messages"`
	Params   map[string]any `json:"parameters"`
}

type editMessage struct {
	Role    string        `json:"role"`
	Content []editContent `json:"content"`
}

type editContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type editResponseBody struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Error string `json:"error"`
}

// Edit submits imageBytes with req.Prompt to the edit model and returns
// the generated output URLs, per image_edit_service.py's edit_image.
func (c *Client) Edit(ctx context.Context, imageBytes []byte, req Request) (*Result, error) {
	if c.apiKey == "" {
		return nil, errs.New(errs.Misconfigured, "imageedit: edit model API key not configured")
	}

	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)

	params := map[string]any{
		"n":               firstNonZero(req.Count, 1),
		"watermark":       req.Watermark,
		"negative_prompt": firstNonEmpty(req.NegativePrompt, " "),
		"prompt_extend":   req.PromptExtend,
	}
	if req.Size != "" {
		params["size"] = req.Size
	}
	if req.Seed != nil {
		params["seed"] = *req.Seed
	}

	body := editRequestBody{
		Model: c.model,
		Messages: []editMessage{{
			Role: "user",
			Content: []editContent{
				{Image: dataURI},
				{Text: req.Prompt},
			},
		}},
		Params: params,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "imageedit: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/services/aigc/multimodal-generation/generation", bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "imageedit: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "imageedit: edit call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return nil, errs.New(errs.ProviderUnavailable, "imageedit: service returned %d: %s", resp.StatusCode, string(text))
	}

	var parsed editResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errs.Wrap(errs.CorruptPayload, err, "imageedit: decode response")
	}
	if parsed.Error != "" {
		return nil, errs.New(errs.ProviderUnavailable, "imageedit: %s", parsed.Error)
	}
	if len(parsed.Output.Choices) == 0 {
		return nil, errs.New(errs.ProviderUnavailable, "imageedit: empty response")
	}

	urls := make([]string, 0, len(parsed.Output.Choices[0].Message.Content))
	for _, c := range parsed.Output.Choices[0].Message.Content {
		if c.Image != "" {
			urls = append(urls, c.Image)
		}
	}
	if len(urls) == 0 {
		return nil, errs.New(errs.ProviderUnavailable, "imageedit: no generated images in response")
	}

	return &Result{ImageURLs: urls}, nil
}

// Download fetches one generated image's bytes, per
// image_edit_service.py's download_generated_image.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "imageedit: build download request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "imageedit: download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.ProviderUnavailable, "imageedit: download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "imageedit: read download body")
	}
	return data, nil
}

func firstNonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func firstNonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
