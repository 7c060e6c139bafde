package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodeDetectionProducesJPEG(t *testing.T) {
	codec := Codec{DetectionQuality: 50, QuestionQuality: 90}

	payload, err := codec.EncodeDetection(testImage(64, 48))
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	decoded, err := jpeg.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, 64, decoded.Bounds().Dx())
	require.Equal(t, 48, decoded.Bounds().Dy())
}

func TestEncodeQuestionHigherQualityIsLarger(t *testing.T) {
	codec := Codec{DetectionQuality: 10, QuestionQuality: 95}
	img := testImage(128, 96)

	low, err := codec.EncodeDetection(img)
	require.NoError(t, err)
	high, err := codec.EncodeQuestion(img)
	require.NoError(t, err)

	require.Greater(t, len(high), len(low))
}

func TestEncodeBoundsLongerEdge(t *testing.T) {
	codec := Codec{DetectionQuality: 50, QuestionQuality: 90, MaxDimension: 100}

	payload, err := codec.EncodeDetection(testImage(400, 200))
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	require.LessOrEqual(t, decoded.Bounds().Dx(), 100)
	require.LessOrEqual(t, decoded.Bounds().Dy(), 100)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	codec := Codec{DetectionQuality: 0, QuestionQuality: 90}

	_, err := codec.EncodeDetection(testImage(8, 8))
	require.Error(t, err)

	_, err = codec.EncodeQuestion(nil)
	require.Error(t, err)
}
