// Package extract implements the artefact-extraction rules of spec.md
// §4.7: pulling image references, a point-cloud task id, and a
// recommendation verdict out of the orchestrator's final assistant
// text, with regex-level discipline that does not depend on any
// particular language model's output conventions. Grounded on
// original_source/app/services/agent_service.py's
// _extract_images_from_response/_extract_recommendation_from_response.
package extract

import (
	"regexp"
	"strings"
)

var markdownImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// ImageRef is one Markdown image link recovered from assistant text.
type ImageRef struct {
	ID      string `json:"id"`
	AltText string `json:"alt_text"`
	URL     string `json:"url"`
}

// DefaultImagePathPrefix matches spec.md §6's image-serving URL
// convention, /images/{image_id}.
const DefaultImagePathPrefix = "/images/"

// Images extracts every Markdown image link whose URL matches
// imagePathPrefix, in order of first appearance, preserving duplicates.
// Links that don't match the service's image-serving convention are
// ignored, since only those carry a recoverable image id.
func Images(text, imagePathPrefix string) []ImageRef {
	if imagePathPrefix == "" {
		imagePathPrefix = DefaultImagePathPrefix
	}
	var refs []ImageRef
	for _, m := range markdownImagePattern.FindAllStringSubmatch(text, -1) {
		alt, url := m[1], m[2]
		if !strings.Contains(url, imagePathPrefix) {
			continue
		}
		id := lastPathSegment(url)
		if id == "" {
			continue
		}
		refs = append(refs, ImageRef{ID: id, AltText: alt, URL: url})
	}
	return refs
}

func lastPathSegment(url string) string {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return ""
	}
	return url[idx+1:]
}
