package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveThemeEmptyPalette(t *testing.T) {
	t.Parallel()

	theme := DeriveTheme(nil)
	assert.True(t, theme.Empty)
	assert.Empty(t, theme.Swatches)
}

func TestDeriveThemeRolesFollowPrimary(t *testing.T) {
	t.Parallel()

	theme := DeriveTheme(Palette{
		{R: 255, G: 0, B: 0, Population: 10},
		{R: 0, G: 0, B: 255, Population: 4},
	})
	require.False(t, theme.Empty)
	require.Len(t, theme.Swatches, 2)

	assert.Equal(t, "#FF0000", theme.Primary.Hex)
	assert.Equal(t, 10, theme.Primary.Population)
	assert.Equal(t, "#0000FF", theme.Swatches[1].Hex)

	assert.InDelta(t, 0.25, theme.Dark.HSL.L, 1e-9)
	assert.Equal(t, 0, theme.Dark.G)

	assert.InDelta(t, 30, theme.Contrast.HSL.H, 1e-9)
	assert.InDelta(t, 0.5, theme.Contrast.HSL.S, 1e-9)
	assert.Equal(t, 0.0, theme.Contrast.HSL.L)
	assert.Equal(t, "#000000", theme.Contrast.Hex)

	assert.InDelta(t, 0.675, theme.Pastel.HSL.S, 1e-9)
	assert.InDelta(t, 0.75, theme.Pastel.HSL.L, 1e-9)
}
