// Package overlay turns parsed detection batches into renderable annotated
// layers for the presentation sink.
package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/lcampos/visor/internal/labels"
	"github.com/lcampos/visor/internal/protocol"
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Palette is the fixed box-color rotation. Coloring is deterministic by
// batch index, not per-identity tracking.
var Palette = []color.Color{
	color.RGBA{B: 255, A: 255},         // blue
	color.RGBA{G: 255, A: 255},         // green
	color.RGBA{R: 255, A: 255},         // red
	color.RGBA{G: 255, B: 255, A: 255}, // cyan
	color.RGBA{R: 255, B: 255, A: 255}, // magenta
}

// Renderer denormalizes detection boxes against a fixed target canvas and
// draws them with resolved labels.
type Renderer struct {
	width     int
	height    int
	lineWidth float64
	textSize  float64
}

// NewRenderer builds a renderer for a target canvas. A zero-area canvas is
// legal and disables rendering until layout provides real dimensions.
func NewRenderer(width, height int, lineWidth, textSize float64) *Renderer {
	if lineWidth <= 0 {
		lineWidth = 3
	}
	if textSize <= 0 {
		textSize = 18
	}
	return &Renderer{width: width, height: height, lineWidth: lineWidth, textSize: textSize}
}

// Render draws one detection batch onto a fresh transparent layer. Each box
// is denormalized against the canvas size, labeled through the table with
// out-of-range classes resolving to "unknown", and colored by index modulo
// the palette. Returns nil when the canvas has no area.
func (r *Renderer) Render(detections []protocol.Detection, table labels.Table) *image.RGBA {
	if r.width <= 0 || r.height <= 0 {
		return nil
	}

	dc := gg.NewContext(r.width, r.height)
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: r.textSize}))

	w := float64(r.width)
	h := float64(r.height)
	for i, detection := range detections {
		tint := Palette[i%len(Palette)]

		left := detection.Box.Left * w
		top := detection.Box.Top * h
		boxWidth := (detection.Box.Right - detection.Box.Left) * w
		boxHeight := (detection.Box.Bottom - detection.Box.Top) * h

		dc.SetColor(tint)
		dc.SetLineWidth(r.lineWidth)
		dc.DrawRectangle(left, top, boxWidth, boxHeight)
		dc.Stroke()

		label := table.Resolve(detection.ClassID)
		dc.DrawString(label, left+6, top+r.textSize+4)
	}

	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		rgba := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
		gg.NewContextForRGBA(rgba).DrawImage(dc.Image(), 0, 0)
		return rgba
	}
	return out
}

// Clear produces an empty layer, or nil when the canvas has no area.
func (r *Renderer) Clear() *image.RGBA {
	if r.width <= 0 || r.height <= 0 {
		return nil
	}
	return image.NewRGBA(image.Rect(0, 0, r.width, r.height))
}
