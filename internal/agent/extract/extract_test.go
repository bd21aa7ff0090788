package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImagesExtractsMarkdownLinksInOrder(t *testing.T) {
	text := "here: ![a dog](/images/11111111-1111-1111-1111-111111111111) and " +
		"![a cat](/images/22222222-2222-2222-2222-222222222222) and " +
		"![a dog](/images/11111111-1111-1111-1111-111111111111)"

	refs := Images(text, "")
	assert.Len(t, refs, 3)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", refs[0].ID)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", refs[1].ID)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", refs[2].ID)
}

func TestImagesIgnoresNonMatchingURLs(t *testing.T) {
	refs := Images("![thumb](https://cdn.example.com/thumb.png)", "")
	assert.Empty(t, refs)
}

func TestAllUUIDsDeduplicatesPreservingOrder(t *testing.T) {
	text := "see 11111111-1111-1111-1111-111111111111 and 22222222-2222-2222-2222-222222222222 " +
		"and again 11111111-1111-1111-1111-111111111111"
	ids := AllUUIDs(text)
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111", "22222222-2222-2222-2222-222222222222"}, ids)
}

func TestIsPointCloudRequest(t *testing.T) {
	assert.True(t, IsPointCloudRequest("帮我生成这张照片的点云"))
	assert.True(t, IsPointCloudRequest("make a point cloud from this photo"))
	assert.False(t, IsPointCloudRequest("帮我找海边的照片"))
}

func TestPointCloudIDPrefersExplicitPrefix(t *testing.T) {
	text := "任务已创建，点云ID: 33333333-3333-3333-3333-333333333333，另见 44444444-4444-4444-4444-444444444444"
	id, ok := PointCloudID(text, map[string]struct{}{"44444444-4444-4444-4444-444444444444": {}})
	assert.True(t, ok)
	assert.Equal(t, "33333333-3333-3333-3333-333333333333", id)
}

func TestPointCloudIDFallsBackToNonImageUUID(t *testing.T) {
	text := "结果ID为 55555555-5555-5555-5555-555555555555"
	id, ok := PointCloudID(text, map[string]struct{}{})
	assert.True(t, ok)
	assert.Equal(t, "55555555-5555-5555-5555-555555555555", id)
}

func TestPointCloudIDSkipsImageTailUUIDs(t *testing.T) {
	text := "![preview](/images/66666666-6666-6666-6666-666666666666)"
	_, ok := PointCloudID(text, map[string]struct{}{"66666666-6666-6666-6666-666666666666": {}})
	assert.False(t, ok)
}

func TestExtractRecommendationWithExplicitCue(t *testing.T) {
	text := "推荐第一张照片，ID: 77777777-7777-7777-7777-777777777777。其余照片 ID: 88888888-8888-8888-8888-888888888888 也不错"
	rec := ExtractRecommendation(text, "哪一张拍的最好", false, nil)
	assert.Equal(t, "77777777-7777-7777-7777-777777777777", rec.RecommendedImageID)
	assert.Equal(t, []string{"88888888-8888-8888-8888-888888888888"}, rec.AlternativeImageIDs)
	assert.True(t, rec.UserPromptForDeletion)
}

func TestExtractRecommendationFallsBackToFirstIDWhenKeywordPresent(t *testing.T) {
	text := "这两张都不错：99999999-9999-9999-9999-999999999999 和 aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	rec := ExtractRecommendation(text, "帮我比较一下这两张照片", false, nil)
	assert.Equal(t, "99999999-9999-9999-9999-999999999999", rec.RecommendedImageID)
	assert.Equal(t, []string{"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"}, rec.AlternativeImageIDs)
}

func TestExtractRecommendationWithoutKeywordReturnsZeroValue(t *testing.T) {
	text := "这两张都不错：99999999-9999-9999-9999-999999999999 和 aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	rec := ExtractRecommendation(text, "今天天气怎么样", false, nil)
	assert.Empty(t, rec.RecommendedImageID)
}

func TestExtractRecommendationSkippedForPointCloudRequest(t *testing.T) {
	text := "点云ID: bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	rec := ExtractRecommendation(text, "生成点云", true, nil)
	assert.Empty(t, rec.RecommendedImageID)
}
