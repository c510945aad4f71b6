package palette

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSL is a color in hue (degrees, [0,360)), saturation and lightness ([0,1]).
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

var pastelTarget = HSL{S: 0.35, L: 1.0}

func HSLFromRGB(r uint8, g uint8, b uint8) HSL {
	h, s, l := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsl()
	return HSL{H: h, S: s, L: l}
}

func (c HSL) RGB() (uint8, uint8, uint8) {
	return colorful.Hsl(c.H, c.S, c.L).Clamped().RGB255()
}

func (c HSL) Hex() string {
	r, g, b := c.RGB()
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func (c HSL) Darker() HSL {
	return HSL{H: c.H, S: c.S, L: c.L / 2}
}

// Contrast rotates the hue by 30 degrees, halves saturation and flips lightness
// through a fixed step table. The table is discontinuous at 0.5.
func (c HSL) Contrast() HSL {
	return HSL{
		H: math.Mod(c.H+30, 360),
		S: c.S / 2,
		L: contrastLightness(c.L),
	}
}

func contrastLightness(l float64) float64 {
	switch {
	case l < 0.2:
		return 0.8
	case l < 0.4:
		return 0.9
	case l < 0.5:
		return 1.0
	case l < 0.6:
		return 0.0
	case l < 0.8:
		return 0.1
	default:
		return 0.2
	}
}

// Interpolate blends each component independently. Hue is interpolated linearly,
// not along the shorter arc.
func (c HSL) Interpolate(other HSL, progress float64) (HSL, error) {
	if math.IsNaN(progress) || progress < 0 || progress > 1 {
		return HSL{}, fmt.Errorf("%w: interpolation progress %v outside [0,1]", ErrInvalidArgument, progress)
	}
	return HSL{
		H: lerp(c.H, other.H, progress),
		S: lerp(c.S, other.S, progress),
		L: lerp(c.L, other.L, progress),
	}, nil
}

func (c HSL) Pastel() HSL {
	target := pastelTarget
	target.H = c.H
	pastel, _ := c.Interpolate(target, 0.5)
	return pastel
}

// lerp is exact at both ends.
func lerp(from float64, to float64, progress float64) float64 {
	return from*(1-progress) + to*progress
}
