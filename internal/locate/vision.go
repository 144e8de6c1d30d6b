// File: internal/locate/vision.go
package locate

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/internal/contract"
	"github.com/xkilldash9x/deskops/internal/model"
	"github.com/xkilldash9x/deskops/internal/screen"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rankFloor is the low internal cutoff backends apply before the caller's
// min-score filter. It only sheds noise, never real candidates.
const rankFloor = 0.3

// VisionLocator asks the step model itself to find text: it sends the frame
// (or frame region) and expects a bbox back. Slow but backend-independent.
type VisionLocator struct {
	client   model.Client
	maxWidth int
	quality  int
	logger   *zap.Logger
}

// NewVisionLocator reuses the session's model client for lookups.
func NewVisionLocator(client model.Client, maxWidth, quality int, logger *zap.Logger) *VisionLocator {
	return &VisionLocator{
		client:   client,
		maxWidth: maxWidth,
		quality:  quality,
		logger:   logger.Named("locate.vision"),
	}
}

// visionReply is the bbox answer shape requested from the model.
type visionReply struct {
	Found bool      `json:"found"`
	Text  string    `json:"text"`
	BBox  []float64 `json:"bbox"`
}

func (v *VisionLocator) Locate(ctx context.Context, query string, frame image.Image, region *image.Rectangle) ([]Match, error) {
	if frame == nil {
		return nil, fmt.Errorf("vision locate requires a frame")
	}

	search := frame
	var offset image.Point
	if region != nil {
		search = cropFrame(frame, *region)
		offset = region.Min
	}

	dataURL, encoded, err := screen.EncodeJPEG(search, v.maxWidth, v.quality)
	if err != nil {
		return nil, fmt.Errorf("encoding locate frame: %w", err)
	}
	// Coordinates come back in encoded-image space; scale them back up when
	// the encoder shrank the frame.
	scale := float64(search.Bounds().Dx()) / float64(encoded.Bounds().Dx())

	prompt := fmt.Sprintf(
		"Locate the on-screen text %q in the attached screenshot. "+
			"Respond ONLY with a JSON object: {\"found\": true|false, \"text\": \"<matched text>\", \"bbox\": [x0,y0,x1,y1]} "+
			"with pixel coordinates of the attached image. Set found to false when the text is not visible.", query)

	raw, err := v.client.Step(ctx, model.Query{Instruction: prompt, ImageB64: dataURL})
	if err != nil {
		return nil, fmt.Errorf("vision locate query: %w", err)
	}

	var reply visionReply
	if err := json.Unmarshal([]byte(contract.Clean(raw)), &reply); err != nil {
		v.logger.Warn("Vision locate reply was not valid JSON.", zap.String("raw", raw))
		return nil, nil
	}
	if !reply.Found || len(reply.BBox) != 4 {
		return nil, nil
	}

	rect := image.Rect(
		offset.X+int(reply.BBox[0]*scale),
		offset.Y+int(reply.BBox[1]*scale),
		offset.X+int(reply.BBox[2]*scale),
		offset.Y+int(reply.BBox[3]*scale),
	).Canon()
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return nil, nil
	}

	text := reply.Text
	score := Score(query, text)
	if text == "" {
		// The model located the target but did not echo the text; trust the
		// bbox with a moderate score.
		text, score = query, 0.75
	}
	if score < rankFloor {
		return nil, nil
	}
	return []Match{{Text: text, Score: score, Rect: rect}}, nil
}

// cropFrame copies the region into a fresh zero-origin image.
func cropFrame(frame image.Image, region image.Rectangle) image.Image {
	region = region.Intersect(frame.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(out, out.Bounds(), frame, region.Min, draw.Src)
	return out
}
