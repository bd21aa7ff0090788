package extract

import "strings"

var recommendPatterns = []*regexp2Pattern{
	newPattern(`(?:第[一二三四五六七八九十\d]+张照片|推荐.*?照片|最佳.*?照片).*?ID[:：]\s*([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`),
	newPattern(`(?:推荐|最佳).*?ID[:：]\s*([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`),
	newPattern(`ID[:：]\s*([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}).*?(?:推荐|最佳)`),
}

// recommendationKeywords gate the "first id wins" fallback of spec.md
// §4.7 when no explicit recommendation cue colocates with an ID token.
var recommendationKeywords = []string{"最好", "推荐", "分析", "比较", "哪一张"}

// Recommendation is the verdict spec.md §4.7 extracts from assistant
// text when the request is not a point-cloud request.
type Recommendation struct {
	RecommendedImageID    string   `json:"recommended_image_id"`
	AlternativeImageIDs   []string `json:"alternative_image_ids"`
	TotalImagesAnalyzed   int      `json:"total_images_analyzed"`
	UserPromptForDeletion bool     `json:"user_prompt_for_deletion"`
}

// IsRecommendationStyleRequest reports whether query carries one of the
// keywords that license the first-id fallback.
func IsRecommendationStyleRequest(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range recommendationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractRecommendation recovers a recommendation verdict from
// assistant text, per spec.md §4.7. Returns the zero value when the
// request is a point-cloud request or no image ids can be found.
func ExtractRecommendation(text, query string, isPointCloudRequest bool, contextImageIDs []string) Recommendation {
	if isPointCloudRequest {
		return Recommendation{}
	}

	ids := AllUUIDs(text)
	if len(ids) == 0 {
		ids = contextImageIDs
	}
	if len(ids) == 0 {
		return Recommendation{}
	}

	rec := Recommendation{TotalImagesAnalyzed: len(ids)}

	if recommendedID, ok := findRecommendationCue(text); ok {
		rec.RecommendedImageID = recommendedID
		for _, id := range ids {
			if id != recommendedID {
				rec.AlternativeImageIDs = append(rec.AlternativeImageIDs, id)
			}
		}
		rec.UserPromptForDeletion = len(rec.AlternativeImageIDs) > 0
		return rec
	}

	if len(ids) > 1 && IsRecommendationStyleRequest(query) {
		rec.RecommendedImageID = ids[0]
		rec.AlternativeImageIDs = ids[1:]
		rec.UserPromptForDeletion = true
		return rec
	}

	return Recommendation{}
}

func findRecommendationCue(text string) (string, bool) {
	for _, p := range recommendPatterns {
		if m, ok := p.FirstMatch(text); ok {
			return m, true
		}
	}
	return "", false
}
