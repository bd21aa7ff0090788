// Package workflow implements C9: the multi-image aesthetic
// recommendation pipeline and the confirmed-deletion workflow, per
// spec.md §4.9. Grounded on
// original_source/app/services/image_recommendation_service.py's
// recommend_images (planner prompt -> single vision call -> fenced-JSON
// verdict) and spec.md §8 scenario 6's confirmed-deletion contract.
package workflow

import (
	"context"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/pkg/retry"
	"github.com/lingxi-album/backend/internal/vision"
)

const (
	minRecommendationImages = 1
	maxRecommendationImages = 10
)

func retryableErr(err error) bool {
	return errs.KindOf(err).Retryable()
}

// RecommendationInput is one image offered to the recommendation
// pipeline.
type RecommendationInput struct {
	ID        string
	Bytes     []byte
	MediaType string
}

// AxisScore is one of the seven weighted aesthetic axes recorded for a
// single image, per spec.md §4.9.
type AxisScore struct {
	Score    float64
	Analysis string
}

// ImageAnalysis is one image's full scoring record from the vision
// model's verdict.
type ImageAnalysis struct {
	ID              string
	Composition     AxisScore
	Color           AxisScore
	Lighting        AxisScore
	Theme           AxisScore
	Emotion         AxisScore
	Creativity      AxisScore
	Story           AxisScore
	OverallScore    float64
	OverallAnalysis string
}

// Verdict is the recommendation pipeline's parsed result, per spec.md
// §4.9.
type Verdict struct {
	Success                bool
	Analysis               []ImageAnalysis
	BestImageID            string
	RecommendationReason   string
	AlternativeImageIDs    []string
	KeyStrengths           []string
	PotentialImprovements  []string
	RawContent             string
	ParseError             string
}

// RecommendationService runs the two-call planner+vision pipeline of
// spec.md §4.9.
type RecommendationService struct {
	vision *vision.Client
}

// NewRecommendationService creates a RecommendationService.
func NewRecommendationService(visionClient *vision.Client) *RecommendationService {
	return &RecommendationService{vision: visionClient}
}

// Recommend runs the pipeline over 1..10 images, per spec.md §4.9 and
// §8's `recommend_images` count validation.
func (s *RecommendationService) Recommend(ctx context.Context, images []RecommendationInput, userPreference string) (*Verdict, error) {
	if len(images) < minRecommendationImages {
		return nil, errs.New(errs.InvalidInput, "workflow: recommend_images requires at least %d image", minRecommendationImages)
	}
	if len(images) > maxRecommendationImages {
		return nil, errs.New(errs.InvalidInput, "workflow: recommend_images accepts at most %d images, got %d", maxRecommendationImages, len(images))
	}

	var prompt string
	err := retry.Do(ctx, retry.DefaultPolicy, retryableErr, func() error {
		p, err := s.vision.GeneratePrompt(ctx, len(images), userPreference)
		if err != nil {
			return err
		}
		prompt = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	visionImages := make([]vision.Image, len(images))
	for i, img := range images {
		visionImages[i] = vision.Image{Bytes: img.Bytes, MediaType: img.MediaType}
	}

	var content string
	err = retry.Do(ctx, retry.DefaultPolicy, retryableErr, func() error {
		c, err := s.vision.AnalyzeImages(ctx, prompt, visionImages)
		if err != nil {
			return err
		}
		content = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return parseVerdict(content), nil
}

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// parseVerdict extracts and parses the fenced JSON document from the
// vision model's reply, per spec.md §4.9: "The engine extracts the JSON
// from a fenced block when present." On parse failure it returns a
// Verdict with Success=false and the raw content preserved.
func parseVerdict(content string) *Verdict {
	jsonText := content
	if m := fencedJSONPattern.FindStringSubmatch(content); m != nil {
		jsonText = m[1]
	}
	jsonText = strings.TrimSpace(jsonText)

	if !gjson.Valid(jsonText) {
		return &Verdict{Success: false, RawContent: content, ParseError: "response did not contain a valid JSON document"}
	}

	root := gjson.Parse(jsonText)
	rec := root.Get("recommendation")

	verdict := &Verdict{
		Success:               true,
		BestImageID:           rec.Get("best_image_id").String(),
		RecommendationReason:  rec.Get("recommendation_reason").String(),
		AlternativeImageIDs:   stringArray(rec.Get("alternative_image_ids")),
		KeyStrengths:          stringArray(rec.Get("key_strengths")),
		PotentialImprovements: stringArray(rec.Get("potential_improvements")),
		RawContent:            content,
	}

	root.Get("analysis").ForEach(func(_, value gjson.Result) bool {
		verdict.Analysis = append(verdict.Analysis, ImageAnalysis{
			ID:              value.Get("id").String(),
			Composition:     axisOf(value, "composition"),
			Color:           axisOf(value, "color"),
			Lighting:        axisOf(value, "lighting"),
			Theme:           axisOf(value, "theme"),
			Emotion:         axisOf(value, "emotion"),
			Creativity:      axisOf(value, "creativity"),
			Story:           axisOf(value, "story"),
			OverallScore:    value.Get("overall_score").Float(),
			OverallAnalysis: value.Get("overall_analysis").String(),
		})
		return true
	})

	if verdict.BestImageID == "" {
		verdict.Success = false
		verdict.ParseError = "response JSON had no recommendation.best_image_id"
	}

	return verdict
}

func axisOf(value gjson.Result, axis string) AxisScore {
	return AxisScore{
		Score:    value.Get(axis + "_score").Float(),
		Analysis: value.Get(axis + "_analysis").String(),
	}
}

func stringArray(result gjson.Result) []string {
	if !result.IsArray() {
		return nil
	}
	out := make([]string, 0, len(result.Array()))
	for _, v := range result.Array() {
		out = append(out, v.String())
	}
	return out
}
