package scanner

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverhue/internal/coverart"
	"coverhue/internal/testutil"
)

func TestWatcherPicksUpNewAndRemovedCovers(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreDatabaseGoroutines()...)

	f := newFixture(t, Options{Debounce: 20 * time.Millisecond})
	defer f.service.Close()
	ctx := context.Background()

	require.NoError(t, f.service.StartWatching())
	require.NoError(t, f.service.StartWatching())
	assert.True(t, f.service.GetStatus().Watching)

	albumDir := filepath.Join(f.root, "Artist", "Fresh")
	cover := coverPNG(t, color.NRGBA{R: 240, G: 200, B: 10, A: 255})
	writeAlbum(t, albumDir, cover)

	require.Eventually(t, func() bool {
		album, err := f.albums.GetByDir(ctx, albumDir)
		return err == nil && album.CoverHash == coverart.Hash(cover)
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(albumDir, "cover.png")))

	require.Eventually(t, func() bool {
		album, err := f.albums.GetByDir(ctx, albumDir)
		if err != nil || album.CoverHash != "" {
			return false
		}
		count, err := f.palettes.Count(ctx)
		return err == nil && count == 0
	}, 5*time.Second, 20*time.Millisecond)

	f.service.StopWatching()
	assert.False(t, f.service.GetStatus().Watching)
}
