package palette

import "fmt"

type ThemeColor struct {
	Hex        string `json:"hex"`
	R          int    `json:"r"`
	G          int    `json:"g"`
	B          int    `json:"b"`
	Population int    `json:"population,omitempty"`
	HSL        HSL    `json:"hsl"`
}

// Theme holds the colors the UI derives from a cover palette. Primary is the most
// populous swatch; the other roles are HSL transforms of it.
type Theme struct {
	Empty    bool         `json:"empty"`
	Primary  ThemeColor   `json:"primary"`
	Dark     ThemeColor   `json:"dark"`
	Contrast ThemeColor   `json:"contrast"`
	Pastel   ThemeColor   `json:"pastel"`
	Swatches []ThemeColor `json:"swatches"`
}

func DeriveTheme(colors Palette) Theme {
	if len(colors) == 0 {
		return Theme{Empty: true}
	}

	swatches := make([]ThemeColor, 0, len(colors))
	for _, swatch := range colors {
		swatches = append(swatches, themeColorFromSwatch(swatch))
	}

	primary := colors[0].HSL()
	return Theme{
		Primary:  swatches[0],
		Dark:     themeColorFromHSL(primary.Darker()),
		Contrast: themeColorFromHSL(primary.Contrast()),
		Pastel:   themeColorFromHSL(primary.Pastel()),
		Swatches: swatches,
	}
}

func themeColorFromSwatch(swatch Swatch) ThemeColor {
	return ThemeColor{
		Hex:        swatch.Hex(),
		R:          int(swatch.R),
		G:          int(swatch.G),
		B:          int(swatch.B),
		Population: swatch.Population,
		HSL:        swatch.HSL(),
	}
}

func themeColorFromHSL(value HSL) ThemeColor {
	r, g, b := value.RGB()
	return ThemeColor{
		Hex: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		R:   int(r),
		G:   int(g),
		B:   int(b),
		HSL: value,
	}
}
