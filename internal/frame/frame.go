// Package frame compresses raw camera images into transport-ready payloads.
package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// Codec encodes frames as JPEG at purpose-specific quality. Detection frames
// use a low quality to keep streaming bandwidth bounded; question frames use
// a higher quality since they are single user-triggered events.
type Codec struct {
	DetectionQuality int
	QuestionQuality  int

	// MaxDimension bounds the longer image edge before encoding.
	// Zero disables downscaling.
	MaxDimension int
}

// EncodeDetection compresses a frame for the streaming detection path.
func (c Codec) EncodeDetection(img image.Image) ([]byte, error) {
	return c.encode(img, c.DetectionQuality)
}

// EncodeQuestion compresses a frame for the question path.
func (c Codec) EncodeQuestion(img image.Image) ([]byte, error) {
	return c.encode(img, c.QuestionQuality)
}

func (c Codec) encode(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode frame: nil image")
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("encode frame: quality %d out of range [1,100]", quality)
	}

	bounds := img.Bounds()
	if c.MaxDimension > 0 && (bounds.Dx() > c.MaxDimension || bounds.Dy() > c.MaxDimension) {
		img = imaging.Fit(img, c.MaxDimension, c.MaxDimension, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
