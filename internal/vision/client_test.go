package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/errs"
)

// These tests exercise the configuration and input-validation guards
// only: exercising the happy path requires a live (or HTTP-mocked)
// Anthropic endpoint, which the anthropic-sdk-go client does not expose
// a seam for without its own test doubles.

func TestCaptionFailsWithoutAPIKey(t *testing.T) {
	client := NewClient("", "claude-sonnet-4-5")
	_, err := client.Caption(context.Background(), Image{Bytes: []byte("x"), MediaType: "image/jpeg"}, "casual", "life update")
	require.Error(t, err)
	assert.Equal(t, errs.Misconfigured, errs.KindOf(err))
}

func TestAskFailsWithoutAPIKey(t *testing.T) {
	client := NewClient("", "claude-sonnet-4-5")
	_, err := client.Ask(context.Background(), Image{Bytes: []byte("x"), MediaType: "image/jpeg"}, "what plant is this?", "")
	require.Error(t, err)
	assert.Equal(t, errs.Misconfigured, errs.KindOf(err))
}

func TestGeneratePromptFailsWithoutAPIKey(t *testing.T) {
	client := NewClient("", "claude-sonnet-4-5")
	_, err := client.GeneratePrompt(context.Background(), 3, "")
	require.Error(t, err)
	assert.Equal(t, errs.Misconfigured, errs.KindOf(err))
}

func TestAnalyzeImagesRejectsEmptyInput(t *testing.T) {
	client := NewClient("test-key", "claude-sonnet-4-5")
	_, err := client.AnalyzeImages(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.Equal(t, errs.EmptyInput, errs.KindOf(err))
}
