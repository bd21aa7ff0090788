package imageedit

import (
	"context"
	"fmt"
	"time"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/indexer"
	"github.com/lingxi-album/backend/internal/model"
)

// Service composes the edit Client with C5's Indexer so each generated
// output is saved as a derived Image and indexed synchronously or
// asynchronously as the caller's async flag selects, per
// original_source/app/services/image_edit_service.py's
// edit_image_and_save.
type Service struct {
	client *Client
	index  *indexer.Indexer
}

// NewService creates a Service.
func NewService(client *Client, index *indexer.Indexer) *Service {
	return &Service{client: client, index: index}
}

// EditAndSave edits sourceImageBytes per req, downloads each generated
// output, and persists it as a new Image carrying EditedImage extras,
// per spec.md §3's EditedImage shape and §6's edit_image contract.
// Indexing failures on an individual save do not fail the whole call
// and are not reported in the result; an output whose download or save
// fails is skipped, and the call fails only when no output was saved.
func (s *Service) EditAndSave(ctx context.Context, sourceImageID string, sourceImageBytes []byte, req Request, styleTag string, async bool) ([]*model.Image, error) {
	result, err := s.client.Edit(ctx, sourceImageBytes, req)
	if err != nil {
		return nil, err
	}

	saved := make([]*model.Image, 0, len(result.ImageURLs))
	var lastErr error
	for i, url := range result.ImageURLs {
		generated, err := s.client.Download(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		filename := fmt.Sprintf("edited_%d.png", i+1)
		extra := map[string]any{
			model.ExtraSourceImageID:  sourceImageID,
			model.ExtraEditPrompt:     req.Prompt,
			model.ExtraEditStyle:      firstNonEmpty(styleTag, "unknown"),
			model.ExtraEditModel:      s.client.model,
			model.ExtraEditParameters: req,
			model.ExtraEditTime:       time.Now().Format(time.RFC3339),
		}
		tags := []string{firstNonEmpty(styleTag, "edited")}

		img, _, err := s.index.Ingest(ctx, generated, filename, indexer.Options{
			AutoIndex:   true,
			AsyncIndex:  async,
			Tags:        tags,
			Description: "Edited image: " + req.Prompt,
			Extra:       extra,
		})
		if err != nil {
			lastErr = err
			continue
		}

		img.Metadata.Extra = extra
		saved = append(saved, img)
	}

	if len(saved) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errs.New(errs.Internal, "imageedit: no generated image could be saved")
	}
	return saved, nil
}
