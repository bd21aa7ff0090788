package embedding

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/lingxi-album/backend/internal/errs"
)

// toOpaqueRGBJPEG decodes content, composites any alpha channel onto a
// white background, and re-encodes as JPEG, per spec.md §4.1/§4.4: "RGBA/
// non-RGB inputs are first composited onto a white background and
// converted to RGB before inference (to satisfy JPEG/encoder constraints
// when persisted for a remote call)".
func toOpaqueRGBJPEG(content []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "embedding: decode image")
	}

	bounds := img.Bounds()
	rgb := image.NewRGBA(bounds)
	draw.Draw(rgb, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgb, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: 92}); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "embedding: encode composited jpeg")
	}
	return buf.Bytes(), nil
}
