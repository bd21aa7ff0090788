// Package model holds the data types shared across components, per
// spec.md §3's data model.
package model

import (
	"time"

	"github.com/lingxi-album/backend/internal/pkg/sets"
)

// Format is one of the closed set of image formats the object store
// accepts, per spec.md §3.
type Format string

const (
	FormatJPG     Format = "jpg"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatUnknown Format = "unknown"
)

// AllowedFormats is the closed set of accepted image formats (spec.md §3).
var AllowedFormats = map[Format]bool{
	FormatJPG:  true,
	FormatJPEG: true,
	FormatPNG:  true,
	FormatGIF:  true,
	FormatWebP: true,
	FormatBMP:  true,
}

// MaxImageBytes is the maximum accepted upload size (50 MiB, spec.md §3).
const MaxImageBytes = 50 * 1024 * 1024

// Metadata is the mutable side of an Image: everything except the bytes
// themselves, per spec.md §3.
type Metadata struct {
	Filename     string
	RelativePath string
	FileSize     int64
	Width        int
	Height       int
	Format       Format
	CreatedAt    time.Time
	Tags         sets.HashSet[string]
	Description  string
	Extra        map[string]any
}

// Image is the system's record of an ingested photo. Bytes are immutable
// once written; Metadata is mutable via targeted edits (spec.md §3).
type Image struct {
	ID       string
	Metadata Metadata
}

// EditedImageExtraKeys names the Extra fields an edit-derived Image
// carries, per spec.md §3's EditedImage shape and
// original_source/app/services/image_edit_service.py.
const (
	ExtraSourceImageID  = "source_image_id"
	ExtraEditPrompt     = "edit_prompt"
	ExtraEditStyle      = "edit_style"
	ExtraEditModel      = "edit_model"
	ExtraEditParameters = "edit_parameters"
	ExtraEditTime       = "edit_time"
)

// IsEdited reports whether this Image was produced by the edit workflow.
func (img *Image) IsEdited() bool {
	if img == nil || img.Metadata.Extra == nil {
		return false
	}
	_, ok := img.Metadata.Extra[ExtraSourceImageID]
	return ok
}
