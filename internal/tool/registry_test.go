package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/model"
)

func TestBuilderRequiresNameDescriptionBinding(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)

	_, err = NewBuilder().WithName("x").Build()
	require.Error(t, err)

	_, err = NewBuilder().WithName("x").WithDescription("d").Build()
	require.Error(t, err)

	d, err := NewBuilder().WithName("x").WithDescription("d").WithBinding("GET", "/x").Build()
	require.NoError(t, err)
	assert.Equal(t, "x", d.Name)
}

func TestRegistryRegisterFindAndOverwrite(t *testing.T) {
	r := NewRegistry()
	first := NewBuilder().WithName("t").WithDescription("v1").WithBinding("GET", "/t").MustBuild()
	r.Register(first)

	found, ok := r.Find("t")
	require.True(t, ok)
	assert.Equal(t, "v1", found.Description)

	second := NewBuilder().WithName("t").WithDescription("v2").WithBinding("GET", "/t").MustBuild()
	r.Register(second)

	found, ok = r.Find("t")
	require.True(t, ok)
	assert.Equal(t, "v2", found.Description)
	assert.Equal(t, 1, r.Size())
}

func TestRegistryFindMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Find("missing")
	assert.False(t, ok)
}

func TestDefaultRegistryHasAllTwelveRequiredTools(t *testing.T) {
	r := Default()
	want := []string{
		"semantic_search_images",
		"search_by_image_id",
		"meta_search_images",
		"meta_search_hybrid",
		"agent_execute_action",
		"get_current_time",
		"get_photo_meta_schema",
		"generate_social_media_caption",
		"recommend_images",
		"edit_image",
		"generate_pointcloud",
		"knowledge_qa",
	}
	assert.Equal(t, len(want), r.Size())
	for _, name := range want {
		d, ok := r.Find(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, d.Description, name)
		assert.NotEmpty(t, d.Binding.URLTemplate, name)
		assert.NotEmpty(t, d.Binding.HTTPMethod, name)
	}
}

func TestDefaultRegistryToolsExposeRequiredParams(t *testing.T) {
	r := Default()

	semantic, ok := r.Find("semantic_search_images")
	require.True(t, ok)
	var hasQuery bool
	for _, p := range semantic.Params {
		if p.Name == "query" {
			hasQuery = true
			assert.True(t, p.Required)
			assert.Equal(t, model.TypeString, p.Type)
		}
	}
	assert.True(t, hasQuery)

	recommend, ok := r.Find("recommend_images")
	require.True(t, ok)
	var hasImages bool
	for _, p := range recommend.Params {
		if p.Name == "images" {
			hasImages = true
			assert.Equal(t, model.TypeArray, p.Type)
			assert.Equal(t, model.LocationBody, p.Location)
		}
	}
	assert.True(t, hasImages)
}
