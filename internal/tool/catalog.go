package tool

import "github.com/lingxi-album/backend/internal/model"

// Default loopback binding paths. The transport layer serves each of
// these on the same process, per spec.md §4.6's "internal HTTP
// endpoint of this same service" contract.
const (
	pathSemanticSearch   = "/internal/tools/semantic_search_images"
	pathSearchByImageID  = "/internal/tools/search_by_image_id"
	pathMetaSearch       = "/internal/tools/meta_search_images"
	pathMetaSearchHybrid = "/internal/tools/meta_search_hybrid"
	pathExecuteAction    = "/internal/tools/agent_execute_action"
	pathCurrentTime      = "/internal/tools/get_current_time"
	pathMetaSchema       = "/internal/tools/get_photo_meta_schema"
	pathCaption          = "/internal/tools/generate_social_media_caption"
	pathRecommend        = "/internal/tools/recommend_images"
	pathEditImage        = "/internal/tools/edit_image"
	pathPointcloud       = "/internal/tools/generate_pointcloud"
	pathKnowledgeQA      = "/internal/tools/knowledge_qa"
)

func topKParam() model.ParamSpec {
	return model.ParamSpec{Name: "top_k", Type: model.TypeInteger, Required: false, Default: 10, Location: model.LocationQuery, Description: "maximum number of results to return"}
}

func tagsParam() model.ParamSpec {
	return model.ParamSpec{Name: "tags", Type: model.TypeArray, ItemType: model.TypeString, Required: false, Location: model.LocationQuery, Description: "restrict results to images carrying any of these tags"}
}

func scoreThresholdParam() model.ParamSpec {
	return model.ParamSpec{Name: "score_threshold", Type: model.TypeNumber, Required: false, Default: 0.0, Location: model.LocationQuery, Description: "minimum similarity score a result must meet"}
}

func resultsField() model.ParamSpec {
	return model.ParamSpec{Name: "results", Type: model.TypeArray, ItemType: model.TypeObject, Description: "matching images, each decorated with preview_url"}
}

// Default builds the fixed catalog of the twelve tools spec.md §4.6
// requires, with the external behaviour named in §6's tool table.
func Default() *Registry {
	r := NewRegistry()
	r.Register(
		semanticSearchImages(),
		searchByImageID(),
		metaSearchImages(),
		metaSearchHybrid(),
		agentExecuteAction(),
		getCurrentTime(),
		getPhotoMetaSchema(),
		generateSocialMediaCaption(),
		recommendImages(),
		editImage(),
		generatePointcloud(),
		knowledgeQA(),
	)
	return r
}

func semanticSearchImages() model.ToolDescriptor {
	return NewBuilder().
		WithName("semantic_search_images").
		WithDescription("Search the photo library by natural-language meaning, using a text embedding query. Use this when the user describes what is in a photo rather than naming a specific image.").
		WithParam(model.ParamSpec{Name: "query", Type: model.TypeString, Required: true, Location: model.LocationQuery, Description: "free-text description of the desired image content"}).
		WithParam(topKParam()).
		WithParam(scoreThresholdParam()).
		WithParam(tagsParam()).
		WithResponseField(resultsField()).
		WithBinding("GET", pathSemanticSearch).
		MustBuild()
}

func searchByImageID() model.ToolDescriptor {
	return NewBuilder().
		WithName("search_by_image_id").
		WithDescription("Find images visually similar to a given image, identified by its id. The query image itself is excluded from the results.").
		WithParam(model.ParamSpec{Name: "image_id", Type: model.TypeString, Required: true, Location: model.LocationPath, Description: "id of the image to use as the similarity query"}).
		WithParam(topKParam()).
		WithParam(scoreThresholdParam()).
		WithParam(tagsParam()).
		WithResponseField(resultsField()).
		WithBinding("GET", pathSearchByImageID+"/{image_id}").
		MustBuild()
}

func metaSearchImages() model.ToolDescriptor {
	return NewBuilder().
		WithName("meta_search_images").
		WithDescription("Find images by date and/or tags alone, with no semantic ranking. Use this when the user asks for photos from a specific date or date pattern, optionally narrowed by tag.").
		WithParam(model.ParamSpec{Name: "date_text", Type: model.TypeString, Required: false, Location: model.LocationQuery, Description: "a date or day-of-year expression, e.g. 2024-03-05, 3/5, or 3月5日"}).
		WithParam(tagsParam()).
		WithParam(topKParam()).
		WithResponseField(resultsField()).
		WithBinding("GET", pathMetaSearch).
		MustBuild()
}

func metaSearchHybrid() model.ToolDescriptor {
	return NewBuilder().
		WithName("meta_search_hybrid").
		WithDescription("Combine a date/tag filter with a semantic text query, restricting semantic search to the images the metadata filter allows.").
		WithParam(model.ParamSpec{Name: "date_text", Type: model.TypeString, Required: false, Location: model.LocationQuery, Description: "a date or day-of-year expression"}).
		WithParam(tagsParam()).
		WithParam(model.ParamSpec{Name: "query", Type: model.TypeString, Required: false, Location: model.LocationQuery, Description: "free-text description to rank the filtered images by"}).
		WithParam(topKParam()).
		WithResponseField(resultsField()).
		WithBinding("GET", pathMetaSearchHybrid).
		MustBuild()
}

func agentExecuteAction() model.ToolDescriptor {
	return NewBuilder().
		WithName("agent_execute_action").
		WithDescription("Directly perform one named action (search, delete, update, or analyze) against the photo library, bypassing further reasoning. Use this when the user's intent is already unambiguous, e.g. a confirmed deletion.").
		WithParam(model.ParamSpec{Name: "action", Type: model.TypeString, Required: true, Location: model.LocationBody, Description: "one of search, delete, update, analyze"}).
		WithParam(model.ParamSpec{Name: "parameters", Type: model.TypeObject, Required: true, Location: model.LocationBody, Description: "action-specific parameters, e.g. ids for delete"}).
		WithParam(model.ParamSpec{Name: "context", Type: model.TypeObject, Required: false, Location: model.LocationBody, Description: "optional extra context carried through to the action"}).
		WithResponseField(model.ParamSpec{Name: "result", Type: model.TypeObject, Description: "the action's outcome envelope"}).
		WithBinding("POST", pathExecuteAction).
		MustBuild()
}

func getCurrentTime() model.ToolDescriptor {
	return NewBuilder().
		WithName("get_current_time").
		WithDescription("Return the server's current local time. Use this when the user asks what time or date it is.").
		WithResponseField(model.ParamSpec{Name: "current_time", Type: model.TypeString, Description: "formatted YYYY-MM-DD HH:MM:SS"}).
		WithBinding("GET", pathCurrentTime).
		MustBuild()
}

func getPhotoMetaSchema() model.ToolDescriptor {
	return NewBuilder().
		WithName("get_photo_meta_schema").
		WithDescription("Return the dictionary of metadata fields images carry, the date formats meta_search_images accepts, and worked examples. Use this before constructing an unfamiliar metadata query.").
		WithResponseField(model.ParamSpec{Name: "fields", Type: model.TypeObject, Description: "metadata field dictionary"}).
		WithResponseField(model.ParamSpec{Name: "date_formats", Type: model.TypeArray, ItemType: model.TypeString, Description: "accepted date-text grammars"}).
		WithResponseField(model.ParamSpec{Name: "examples", Type: model.TypeArray, ItemType: model.TypeString, Description: "example queries"}).
		WithBinding("GET", pathMetaSchema).
		MustBuild()
}

func generateSocialMediaCaption() model.ToolDescriptor {
	return NewBuilder().
		WithName("generate_social_media_caption").
		WithDescription("Generate a social-media caption for one image in a given style and for a given purpose, using a vision model.").
		WithParam(model.ParamSpec{Name: "image_uuid", Type: model.TypeString, Required: true, Location: model.LocationPath, Description: "id of the image to caption"}).
		WithParam(model.ParamSpec{Name: "style", Type: model.TypeString, Required: true, Location: model.LocationBody, Description: "tone of voice, e.g. playful, professional"}).
		WithParam(model.ParamSpec{Name: "purpose", Type: model.TypeString, Required: true, Location: model.LocationBody, Description: "platform or goal, e.g. instagram post, product listing"}).
		WithResponseField(model.ParamSpec{Name: "caption", Type: model.TypeString, Description: "generated caption text"}).
		WithBinding("POST", pathCaption+"/{image_uuid}").
		MustBuild()
}

func recommendImages() model.ToolDescriptor {
	return NewBuilder().
		WithName("recommend_images").
		WithDescription("Compare up to ten images across composition, colour, light, theme, emotion, creativity, and story, and recommend the best one. Use this when the user wants help choosing among several photos.").
		WithParam(model.ParamSpec{Name: "images", Type: model.TypeArray, ItemType: model.TypeString, Required: true, Location: model.LocationBody, Description: "up to 10 image ids to compare"}).
		WithParam(model.ParamSpec{Name: "user_preference", Type: model.TypeString, Required: false, Location: model.LocationBody, Description: "optional stated preference to weigh the comparison by"}).
		WithResponseField(model.ParamSpec{Name: "analysis", Type: model.TypeObject, Description: "per-image scores and analysis"}).
		WithResponseField(model.ParamSpec{Name: "recommendation", Type: model.TypeObject, Description: "best_image_id, reason, alternatives, strengths, improvements"}).
		WithBinding("POST", pathRecommend).
		MustBuild()
}

func editImage() model.ToolDescriptor {
	return NewBuilder().
		WithName("edit_image").
		WithDescription("Edit an existing image with a text prompt using a remote image-editing model; the result is saved as a new image and indexed in the background.").
		WithParam(model.ParamSpec{Name: "image_id", Type: model.TypeString, Required: true, Location: model.LocationPath, Description: "id of the image to edit"}).
		WithParam(model.ParamSpec{Name: "prompt", Type: model.TypeString, Required: true, Location: model.LocationBody, Description: "instruction describing the desired edit"}).
		WithResponseField(model.ParamSpec{Name: "new_image_id", Type: model.TypeString, Description: "id of the newly created edited image"}).
		WithBinding("POST", pathEditImage+"/{image_id}").
		MustBuild()
}

func generatePointcloud() model.ToolDescriptor {
	return NewBuilder().
		WithName("generate_pointcloud").
		WithDescription("Generate a 3D point cloud reconstruction from a single image via a remote reconstruction service. Returns a task id immediately; completion may take time.").
		WithParam(model.ParamSpec{Name: "image_id", Type: model.TypeString, Required: true, Location: model.LocationPath, Description: "id of the source image"}).
		WithParam(model.ParamSpec{Name: "quality", Type: model.TypeString, Required: false, Default: string(model.PointCloudQualityBalanced), Location: model.LocationBody, Description: "reconstruction quality tier: balanced or fast"}).
		WithParam(model.ParamSpec{Name: "async_mode", Type: model.TypeBoolean, Required: false, Default: true, Location: model.LocationBody, Description: "whether to return immediately and complete the task in the background"}).
		WithResponseField(model.ParamSpec{Name: "task_id", Type: model.TypeString, Description: "id of the created point-cloud task"}).
		WithResponseField(model.ParamSpec{Name: "status", Type: model.TypeString, Description: "task status at response time"}).
		WithBinding("POST", pathPointcloud+"/{image_id}").
		MustBuild()
}

func knowledgeQA() model.ToolDescriptor {
	return NewBuilder().
		WithName("knowledge_qa").
		WithDescription("Answer a single free-text question about one image's visual content, using a vision model.").
		WithParam(model.ParamSpec{Name: "image_uuid", Type: model.TypeString, Required: true, Location: model.LocationPath, Description: "id of the image the question concerns"}).
		WithParam(model.ParamSpec{Name: "question", Type: model.TypeString, Required: true, Location: model.LocationBody, Description: "the question to answer"}).
		WithParam(model.ParamSpec{Name: "context", Type: model.TypeString, Required: false, Location: model.LocationBody, Description: "optional extra context to ground the answer"}).
		WithResponseField(model.ParamSpec{Name: "answer", Type: model.TypeString, Description: "the generated answer"}).
		WithBinding("POST", pathKnowledgeQA+"/{image_uuid}").
		MustBuild()
}
