package palette

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Bitmap is a decoded, row-major pixel buffer with 8 bits per channel.
// Channels is 3 for RGB and 4 for non-premultiplied RGBA.
type Bitmap struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func (b Bitmap) validate() error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: bitmap dimensions %dx%d", ErrInvalidArgument, b.Width, b.Height)
	}
	if b.Channels != 3 && b.Channels != 4 {
		return fmt.Errorf("%w: bitmap has %d channels, want 3 or 4", ErrInvalidArgument, b.Channels)
	}
	if expected := b.Width * b.Height * b.Channels; len(b.Pix) != expected {
		return fmt.Errorf("%w: bitmap has %d bytes, want %d for %dx%dx%d", ErrInvalidArgument, len(b.Pix), expected, b.Width, b.Height, b.Channels)
	}
	return nil
}

// PixelCount reports Width*Height.
func (b Bitmap) PixelCount() int {
	return b.Width * b.Height
}

// BitmapFromImage flattens img into an RGBA bitmap. When maxDimension is positive and
// the long side exceeds it, the image is downscaled first to keep the histogram pass cheap.
func BitmapFromImage(img image.Image, maxDimension int) Bitmap {
	bounds := img.Bounds()
	if bounds.Empty() {
		return Bitmap{Channels: 4}
	}

	var sampled *image.NRGBA
	if maxDimension > 0 && maxInt(bounds.Dx(), bounds.Dy()) > maxDimension {
		sampled = imaging.Fit(img, maxDimension, maxDimension, imaging.Box)
	} else {
		sampled = imaging.Clone(img)
	}

	return bitmapFromNRGBA(sampled)
}

func bitmapFromNRGBA(img *image.NRGBA) Bitmap {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	rowBytes := width * 4

	if img.Stride == rowBytes && len(img.Pix) == rowBytes*height {
		return Bitmap{Width: width, Height: height, Channels: 4, Pix: img.Pix}
	}

	pix := make([]uint8, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(pix[y*rowBytes:(y+1)*rowBytes], img.Pix[y*img.Stride:y*img.Stride+rowBytes])
	}
	return Bitmap{Width: width, Height: height, Channels: 4, Pix: pix}
}

func maxInt(left int, right int) int {
	if left > right {
		return left
	}
	return right
}
