package palette

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadrantImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	fillRect(img, image.Rect(0, 0, 128, 128), color.NRGBA{R: 198, G: 48, B: 59, A: 255})
	fillRect(img, image.Rect(128, 0, 256, 128), color.NRGBA{R: 24, G: 144, B: 242, A: 255})
	fillRect(img, image.Rect(0, 128, 128, 256), color.NRGBA{R: 242, G: 188, B: 12, A: 255})
	fillRect(img, image.Rect(128, 128, 256, 256), color.NRGBA{R: 36, G: 184, B: 92, A: 255})
	return img
}

func TestExtractFromImageGeneratesPalette(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor()
	result, err := extractor.ExtractFromImage(quadrantImage(), ExtractOptions{
		ColorCount:   4,
		MaxDimension: 180,
	})
	require.NoError(t, err)

	require.Len(t, result.Palette, 4)
	assert.False(t, result.Theme.Empty)
	assert.Len(t, result.Theme.Swatches, 4)
	assert.Equal(t, 256, result.SourceWidth)
	assert.Equal(t, 256, result.SourceHeight)
	assert.LessOrEqual(t, result.SampleWidth, 180)
	assert.LessOrEqual(t, result.SampleHeight, 180)
	assert.Equal(t, DefaultReductionBits, result.Options.ReductionBits)
	assert.Equal(t, DefaultAlphaThreshold, result.Options.AlphaThreshold)
}

func TestExtractFromImageWithoutDownscaleKeepsExactColors(t *testing.T) {
	t.Parallel()

	result, err := NewExtractor().ExtractFromImage(quadrantImage(), ExtractOptions{ColorCount: 4, MaxDimension: 512})
	require.NoError(t, err)
	require.Len(t, result.Palette, 4)
	assert.Equal(t, 256, result.SampleWidth)

	hexes := make([]string, 0, len(result.Palette))
	for _, swatch := range result.Palette {
		assert.Equal(t, 128*128, swatch.Population)
		hexes = append(hexes, swatch.Hex())
	}
	assert.ElementsMatch(t, []string{"#C6303B", "#1890F2", "#F2BC0C", "#24B85C"}, hexes)
}

func TestExtractFromImageTransparentYieldsEmptyPalette(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	result, err := NewExtractor().ExtractFromImage(img, ExtractOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Palette)
	assert.True(t, result.Theme.Empty)
}

func TestExtractFromImageRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor()
	for _, options := range []ExtractOptions{
		{ColorCount: -1},
		{ReductionBits: 9},
		{AlphaThreshold: 300},
		{SampleStep: -2},
		{MaxDimension: -5},
	} {
		_, err := extractor.ExtractFromImage(quadrantImage(), options)
		assert.ErrorIs(t, err, ErrInvalidArgument, "%+v", options)
	}
}

func TestExtractFromBytesDecodesPNG(t *testing.T) {
	t.Parallel()

	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, quadrantImage()))

	result, err := NewExtractor().ExtractFromBytes(encoded.Bytes(), ExtractOptions{ColorCount: 2})
	require.NoError(t, err)
	assert.Len(t, result.Palette, 2)
}

func TestExtractFromBytesRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor().ExtractFromBytes([]byte("not an image"), ExtractOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestExtractFromPathMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor().ExtractFromPath(filepath.Join(t.TempDir(), "missing.png"), ExtractOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open image")
}

func TestNormalizeExtractOptionsFillsDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultExtractOptions(), NormalizeExtractOptions(ExtractOptions{}))

	custom := NormalizeExtractOptions(ExtractOptions{ColorCount: 9, SampleStep: 3})
	assert.Equal(t, 9, custom.ColorCount)
	assert.Equal(t, 3, custom.SampleStep)
	assert.Equal(t, DefaultReductionBits, custom.ReductionBits)
}

func TestExtractPaletteIsPure(t *testing.T) {
	t.Parallel()

	bitmap := rgbBitmap(2, 1, [3]uint8{10, 10, 10}, [3]uint8{240, 240, 240})
	colors, err := ExtractPalette(bitmap, DefaultHistogramOptions(), 2)
	require.NoError(t, err)
	assert.Len(t, colors, 2)

	_, err = ExtractPalette(bitmap, DefaultHistogramOptions(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	colors, err = ExtractPalette(Bitmap{Channels: 3}, DefaultHistogramOptions(), 3)
	require.NoError(t, err)
	assert.Empty(t, colors)
}

func fillRect(img *image.NRGBA, rect image.Rectangle, fill color.NRGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
}
