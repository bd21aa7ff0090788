package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/vision"
)

func TestRecommendRejectsZeroImages(t *testing.T) {
	svc := NewRecommendationService(vision.NewClient("test-key", "claude-sonnet-4-5"))
	_, err := svc.Recommend(context.Background(), nil, "")
	require.Error(t, err)
	assert.Equal(t, errs.InvalidInput, errs.KindOf(err))
}

func TestRecommendRejectsTooManyImages(t *testing.T) {
	svc := NewRecommendationService(vision.NewClient("test-key", "claude-sonnet-4-5"))
	images := make([]RecommendationInput, maxRecommendationImages+1)
	for i := range images {
		images[i] = RecommendationInput{ID: "img", Bytes: []byte("x"), MediaType: "image/jpeg"}
	}
	_, err := svc.Recommend(context.Background(), images, "")
	require.Error(t, err)
	assert.Equal(t, errs.InvalidInput, errs.KindOf(err))
}

func TestParseVerdictExtractsFencedJSON(t *testing.T) {
	content := "Here is my analysis:\n```json\n" + `{
		"analysis": {
			"image_1": {
				"id": "img-1",
				"composition_score": 8.5, "composition_analysis": "strong framing",
				"color_score": 7.0, "color_analysis": "warm palette",
				"lighting_score": 9.0, "lighting_analysis": "golden hour",
				"theme_score": 8.0, "theme_analysis": "clear subject",
				"emotion_score": 7.5, "emotion_analysis": "calm",
				"creativity_score": 6.0, "creativity_analysis": "conventional",
				"story_score": 7.0, "story_analysis": "tells a story",
				"overall_score": 7.8, "overall_analysis": "solid overall"
			}
		},
		"recommendation": {
			"best_image_id": "img-1",
			"recommendation_reason": "best composition and lighting",
			"alternative_image_ids": [],
			"key_strengths": ["lighting", "composition"],
			"potential_improvements": ["more dynamic creativity"]
		}
	}` + "\n```\nLet me know if you'd like more detail."

	verdict := parseVerdict(content)
	require.True(t, verdict.Success)
	assert.Equal(t, "img-1", verdict.BestImageID)
	assert.Equal(t, "best composition and lighting", verdict.RecommendationReason)
	assert.Equal(t, []string{"lighting", "composition"}, verdict.KeyStrengths)
	require.Len(t, verdict.Analysis, 1)
	assert.Equal(t, "img-1", verdict.Analysis[0].ID)
	assert.InDelta(t, 9.0, verdict.Analysis[0].Lighting.Score, 0.001)
	assert.InDelta(t, 7.8, verdict.Analysis[0].OverallScore, 0.001)
}

func TestParseVerdictHandlesUnparseableContent(t *testing.T) {
	verdict := parseVerdict("I couldn't analyze these images.")
	assert.False(t, verdict.Success)
	assert.NotEmpty(t, verdict.ParseError)
	assert.Equal(t, "I couldn't analyze these images.", verdict.RawContent)
}

func TestParseVerdictHandlesUnfencedJSON(t *testing.T) {
	content := `{"analysis": {}, "recommendation": {"best_image_id": "img-2", "recommendation_reason": "only option"}}`
	verdict := parseVerdict(content)
	require.True(t, verdict.Success)
	assert.Equal(t, "img-2", verdict.BestImageID)
}
