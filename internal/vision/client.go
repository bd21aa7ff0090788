// Package vision wraps a multimodal Anthropic model for the three
// single-turn vision tools of spec.md §6 (caption, QA, recommendation
// analysis) plus the recommendation workflow's planner call. Grounded
// on the chat.completions-with-image_url request shape of
// original_source/app/services/{social_service,knowledge_qa_service,
// image_recommendation_service}.py, adapted from OpenAI's
// image_url content part to Anthropic's image content block.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lingxi-album/backend/internal/errs"
)

// Image is one base64-ready image input to a multimodal call.
type Image struct {
	Bytes     []byte
	MediaType string // e.g. "image/jpeg"
}

// Client wraps an Anthropic multimodal model used for captioning,
// question answering, and recommendation analysis.
type Client struct {
	client     anthropic.Client
	model      anthropic.Model
	configured bool
}

// NewClient creates a Client. An empty apiKey is tolerated at
// construction time; calls fail with Misconfigured instead, per
// social_service.py/knowledge_qa_service.py's is_initialized guard.
func NewClient(apiKey string, model anthropic.Model) *Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Client{
		client:     anthropic.NewClient(opts...),
		model:      model,
		configured: apiKey != "",
	}
}

func (c *Client) call(ctx context.Context, system string, userContent []anthropic.ContentBlockParamUnion) (string, error) {
	if !c.configured {
		return "", errs.New(errs.Misconfigured, "vision: model API key not configured")
	}
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System:    systemBlocks(system),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(userContent...)},
	})
	if err != nil {
		return "", errs.Wrap(errs.ProviderUnavailable, err, "vision: model call failed")
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	return text, nil
}

func systemBlocks(system string) []anthropic.TextBlockParam {
	if system == "" {
		return nil
	}
	return []anthropic.TextBlockParam{{Text: system}}
}

func imageBlock(img Image) anthropic.ContentBlockParamUnion {
	return anthropic.NewImageBlockBase64(img.MediaType, base64.StdEncoding.EncodeToString(img.Bytes))
}

// Caption generates social-media caption text for one image, per
// social_service.py's generate_caption.
func (c *Client) Caption(ctx context.Context, img Image, style, purpose string) (string, error) {
	prompt := fmt.Sprintf(
		"Act as a social media copywriter and write a caption for this photo.\nStyle: %s\nPurpose: %s\nOutput the caption directly, with no preamble. Use emoji where it fits naturally.",
		style, purpose,
	)
	return c.call(ctx, "", []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(prompt),
		imageBlock(img),
	})
}

const knowledgeQASystemPrompt = "You are a knowledgeable visual assistant. You can identify plants and " +
	"care requirements, read emotion and mood from photos, recognise objects, food, and scenes, and " +
	"write short creative text inspired by an image. Be accurate and concrete; structure longer answers " +
	"with bullet points; say so plainly if the photo doesn't contain enough information to answer. Skip " +
	"filler acknowledgements and answer directly."

// Ask answers a free-form question about one image, per
// knowledge_qa_service.py's knowledge_qa.
func (c *Client) Ask(ctx context.Context, img Image, question, userContext string) (string, error) {
	prompt := question
	if userContext != "" {
		prompt = userContext + "\n\nQuestion: " + question
	}
	return c.call(ctx, knowledgeQASystemPrompt, []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(prompt),
		imageBlock(img),
	})
}

// GeneratePrompt is the recommendation workflow's planner call (step 1
// of spec.md §4.9): it asks the model to produce the seven-axis
// analysis prompt that step 2's vision call will be driven by.
// Grounded on image_recommendation_service.py's
// _generate_analysis_prompt, whose seven weighted axes and forbidden
// dimensions are reproduced verbatim as the planner's brief.
func (c *Client) GeneratePrompt(ctx context.Context, imageCount int, userPreference string) (string, error) {
	brief := fmt.Sprintf(analysisPlannerBrief, imageCount)
	if userPreference != "" {
		brief += "\n\nThe user also cares about: " + userPreference + ". Weight these aspects explicitly in the final prompt."
	}
	return c.call(ctx, "", []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(brief)})
}

// AnalyzeImages is the recommendation workflow's single vision call
// (step 2 of spec.md §4.9): all images are sent inline alongside the
// planner-generated analysis prompt, per
// image_recommendation_service.py's _analyze_images_with_vl.
func (c *Client) AnalyzeImages(ctx context.Context, prompt string, images []Image) (string, error) {
	if len(images) == 0 {
		return "", errs.New(errs.EmptyInput, "vision: no images to analyze")
	}
	content := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	content = append(content, anthropic.NewTextBlock(prompt))
	for _, img := range images {
		content = append(content, imageBlock(img))
	}
	return c.call(ctx, "", content)
}

const analysisPlannerBrief = `Write a strict analysis prompt for a vision model that will judge %d photos and recommend the single best one.

The prompt you write must:
- Forbid judging by resolution, file size, compression quality, or EXIF data alone.
- Require scoring each photo on exactly these seven axes, each 0-10 with one decimal place: composition (weight 25%%), color (20%%), lighting (15%%), theme clarity (15%%), emotional impact (10%%), creativity (8%%), story (7%%). The overall_score is the weighted average of these seven.
- Require the output as a single fenced ` + "```json```" + ` block shaped exactly like:
{"analysis": {"image_1": {"id": "...", "composition_score": 0.0, "composition_analysis": "...", "color_score": 0.0, "color_analysis": "...", "lighting_score": 0.0, "lighting_analysis": "...", "theme_score": 0.0, "theme_analysis": "...", "emotion_score": 0.0, "emotion_analysis": "...", "creativity_score": 0.0, "creativity_analysis": "...", "story_score": 0.0, "story_analysis": "...", "overall_score": 0.0, "overall_analysis": "..."}}, "recommendation": {"best_image_id": "...", "recommendation_reason": "...", "alternative_image_ids": ["..."], "key_strengths": ["..."], "potential_improvements": ["..."]}}
- Instruct the model to output nothing but that fenced JSON block.`
