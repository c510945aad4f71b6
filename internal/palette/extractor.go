package palette

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

const defaultColorCount = 6

var defaultExtractOptions = ExtractOptions{
	ColorCount:     defaultColorCount,
	ReductionBits:  DefaultReductionBits,
	AlphaThreshold: DefaultAlphaThreshold,
	SampleStep:     1,
	MaxDimension:   220,
}

// ExtractOptions configures a full cover-to-theme extraction. Zero fields take their
// default; any other out-of-range value is rejected with ErrInvalidArgument.
type ExtractOptions struct {
	ColorCount     int `json:"colorCount" toml:"color_count"`
	ReductionBits  int `json:"reductionBits" toml:"reduction_bits"`
	AlphaThreshold int `json:"alphaThreshold" toml:"alpha_threshold"`
	SampleStep     int `json:"sampleStep" toml:"sample_step"`
	MaxDimension   int `json:"maxDimension" toml:"max_dimension"`
}

type Result struct {
	Palette      Palette        `json:"palette"`
	Theme        Theme          `json:"theme"`
	SourceWidth  int            `json:"sourceWidth"`
	SourceHeight int            `json:"sourceHeight"`
	SampleWidth  int            `json:"sampleWidth"`
	SampleHeight int            `json:"sampleHeight"`
	Options      ExtractOptions `json:"options"`
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func DefaultExtractOptions() ExtractOptions {
	return defaultExtractOptions
}

func NormalizeExtractOptions(options ExtractOptions) ExtractOptions {
	return options.normalized()
}

func (o ExtractOptions) normalized() ExtractOptions {
	normalized := o
	if normalized.ColorCount == 0 {
		normalized.ColorCount = defaultExtractOptions.ColorCount
	}
	if normalized.ReductionBits == 0 {
		normalized.ReductionBits = defaultExtractOptions.ReductionBits
	}
	if normalized.AlphaThreshold == 0 {
		normalized.AlphaThreshold = defaultExtractOptions.AlphaThreshold
	}
	if normalized.SampleStep == 0 {
		normalized.SampleStep = defaultExtractOptions.SampleStep
	}
	if normalized.MaxDimension == 0 {
		normalized.MaxDimension = defaultExtractOptions.MaxDimension
	}
	return normalized
}

func (o ExtractOptions) histogramOptions() HistogramOptions {
	return HistogramOptions{
		ReductionBits:  o.ReductionBits,
		AlphaThreshold: o.AlphaThreshold,
		SampleStep:     o.SampleStep,
	}
}

func (e *Extractor) ExtractFromPath(path string, options ExtractOptions) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	return e.ExtractFromReader(file, options)
}

func (e *Extractor) ExtractFromBytes(data []byte, options ExtractOptions) (Result, error) {
	return e.ExtractFromReader(bytes.NewReader(data), options)
}

func (e *Extractor) ExtractFromReader(reader io.Reader, options ExtractOptions) (Result, error) {
	decoded, _, err := image.Decode(reader)
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	return e.ExtractFromImage(decoded, options)
}

func (e *Extractor) ExtractFromImage(img image.Image, options ExtractOptions) (Result, error) {
	normalized := options.normalized()
	if normalized.MaxDimension < 0 {
		return Result{}, fmt.Errorf("%w: negative max dimension %d", ErrInvalidArgument, normalized.MaxDimension)
	}

	bounds := img.Bounds()
	bitmap := BitmapFromImage(img, normalized.MaxDimension)

	colors, err := ExtractPalette(bitmap, normalized.histogramOptions(), normalized.ColorCount)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Palette:      colors,
		Theme:        DeriveTheme(colors),
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
		SampleWidth:  bitmap.Width,
		SampleHeight: bitmap.Height,
		Options:      normalized,
	}, nil
}

// ExtractPalette is the pure bitmap-to-palette path: histogram construction followed
// by median-cut quantization.
func ExtractPalette(bitmap Bitmap, options HistogramOptions, maxColors int) (Palette, error) {
	if maxColors < 1 {
		return nil, fmt.Errorf("%w: max colors %d, want at least 1", ErrInvalidArgument, maxColors)
	}

	histogram, err := BuildHistogram(bitmap, options)
	if err != nil {
		return nil, err
	}

	return Quantize(histogram, maxColors)
}
