package overlay

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcampos/visor/internal/labels"
	"github.com/lcampos/visor/internal/protocol"
)

func TestRenderZeroAreaCanvasIsNoop(t *testing.T) {
	detections := []protocol.Detection{
		{Box: protocol.Box{Left: 0.1, Top: 0.1, Right: 0.5, Bottom: 0.5}, ClassID: 0},
	}

	require.Nil(t, NewRenderer(0, 0, 3, 18).Render(detections, labels.New([]string{"a"})))
	require.Nil(t, NewRenderer(640, 0, 3, 18).Render(detections, labels.New([]string{"a"})))
	require.Nil(t, NewRenderer(0, 480, 3, 18).Clear())
}

func TestRenderLayerDimensions(t *testing.T) {
	r := NewRenderer(320, 240, 3, 18)

	layer := r.Render(nil, labels.New(nil))
	require.NotNil(t, layer)
	require.Equal(t, 320, layer.Bounds().Dx())
	require.Equal(t, 240, layer.Bounds().Dy())
}

func TestRenderDrawsDenormalizedBox(t *testing.T) {
	r := NewRenderer(100, 100, 2, 12)
	detections := []protocol.Detection{
		{Box: protocol.Box{Left: 0.2, Top: 0.2, Right: 0.8, Bottom: 0.8}, ClassID: 0},
	}

	layer := r.Render(detections, labels.New([]string{"cup"}))
	require.NotNil(t, layer)

	// First palette entry is blue; the stroked edge at x=20 must carry it.
	onEdge := layer.RGBAAt(20, 50)
	require.NotZero(t, onEdge.A)
	require.Greater(t, onEdge.B, onEdge.R)

	// Well inside the box the layer stays transparent.
	inside := layer.RGBAAt(50, 60)
	require.Zero(t, inside.A)
}

func TestRenderPaletteCyclesByIndex(t *testing.T) {
	r := NewRenderer(200, 200, 2, 12)

	// Six stacked detections: index 5 must reuse palette color 0.
	detections := make([]protocol.Detection, 6)
	for i := range detections {
		top := float64(i) * 0.15
		detections[i] = protocol.Detection{
			Box:     protocol.Box{Left: 0.1, Top: top, Right: 0.9, Bottom: top + 0.1},
			ClassID: i,
		}
	}

	layer := r.Render(detections, labels.New(nil))
	require.NotNil(t, layer)
	require.Equal(t, Palette[0], Palette[5%len(Palette)])
}

func TestRenderUnknownLabelDoesNotFail(t *testing.T) {
	r := NewRenderer(64, 64, 2, 10)
	detections := []protocol.Detection{
		{Box: protocol.Box{Left: 0, Top: 0, Right: 1, Bottom: 1}, ClassID: 99},
	}

	layer := r.Render(detections, labels.New([]string{"a", "b", "c", "car"}))
	require.NotNil(t, layer)
}

func TestClearIsTransparent(t *testing.T) {
	layer := NewRenderer(10, 10, 2, 10).Clear()
	require.NotNil(t, layer)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			require.Equal(t, color.RGBA{}, layer.RGBAAt(x, y))
		}
	}
}

func TestPaletteHasEnoughDistinctColors(t *testing.T) {
	require.GreaterOrEqual(t, len(Palette), 5)
	seen := map[color.Color]bool{}
	for _, c := range Palette {
		seen[c] = true
	}
	require.Len(t, seen, len(Palette))
}
