package scanner

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverhue/internal/coverart"
	"coverhue/internal/db"
	"coverhue/internal/logging"
	"coverhue/internal/palette"
	"coverhue/internal/themecache"
)

type fixture struct {
	root     string
	service  *Service
	palettes *themecache.Repository
	albums   *themecache.AlbumRepository

	mu     sync.Mutex
	events []string
}

func newFixture(t *testing.T, options Options) *fixture {
	t.Helper()

	database, err := db.Bootstrap(context.Background(), filepath.Join(t.TempDir(), "palettes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	root := t.TempDir()
	options.Roots = append(options.Roots, root)
	if options.Extract.ColorCount == 0 {
		options.Extract.ColorCount = 3
	}

	f := &fixture{
		root:     root,
		palettes: themecache.NewRepository(database, 16),
		albums:   themecache.NewAlbumRepository(database),
	}
	f.service = NewService(f.palettes, f.albums, palette.NewExtractor(), options, logging.NewTestLogger())
	f.service.SetEmitter(func(eventName string, payload any) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if progress, ok := payload.(Progress); ok {
			f.events = append(f.events, eventName+":"+progress.Phase)
			return
		}
		f.events = append(f.events, eventName)
	})
	return f
}

func (f *fixture) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func coverPNG(t *testing.T, fill color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				img.SetNRGBA(x, y, fill)
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
			}
		}
	}

	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))
	return buffer.Bytes()
}

func writeAlbum(t *testing.T, dir string, cover []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01 - intro.mp3"), []byte("not really audio"), 0o644))
	if cover != nil {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), cover, 0o644))
	}
}

func TestScanNowExtractsThenReusesCache(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	cover := coverPNG(t, color.NRGBA{R: 200, G: 30, B: 40, A: 255})
	writeAlbum(t, filepath.Join(f.root, "Artist", "Album"), cover)
	writeAlbum(t, filepath.Join(f.root, "Other", "Bare"), nil)

	summary, err := f.service.ScanNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{AlbumsSeen: 2, Extracted: 1, WithoutCover: 1}, summary)

	albums, err := f.albums.List(ctx)
	require.NoError(t, err)
	require.Len(t, albums, 2)

	assert.Equal(t, "Artist", albums[0].Artist)
	assert.Equal(t, "Album", albums[0].Title)
	assert.Equal(t, "artist|album", albums[0].Key)
	assert.Equal(t, coverart.Hash(cover), albums[0].CoverHash)
	assert.Equal(t, coverart.KindFile, albums[0].CoverKind)
	assert.Empty(t, albums[1].CoverHash)

	result, err := f.palettes.Get(ctx, coverart.Hash(cover), f.service.options)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Palette)

	summary, err = f.service.ScanNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{AlbumsSeen: 2, Cached: 1, WithoutCover: 1}, summary)

	events := f.eventLog()
	assert.Contains(t, events, EventAlbumUpdated)
	assert.Equal(t, EventProgress+":start", events[0])
	assert.Equal(t, EventProgress+":done", events[len(events)-1])

	status := f.service.GetStatus()
	assert.False(t, status.Running)
	assert.NotEmpty(t, status.LastRunAt)
	assert.Equal(t, summary, status.LastSummary)
}

func TestScanNowRemovesStaleAlbums(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	albumDir := filepath.Join(f.root, "Artist", "Gone")
	writeAlbum(t, albumDir, coverPNG(t, color.NRGBA{R: 10, G: 160, B: 90, A: 255}))

	_, err := f.service.ScanNow(ctx)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(albumDir))
	summary, err := f.service.ScanNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed)

	count, err := f.palettes.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestScanNowKeepsAlbumsOfOfflineRoots(t *testing.T) {
	offline := filepath.Join(t.TempDir(), "unplugged")
	f := newFixture(t, Options{Roots: []string{offline}})
	ctx := context.Background()

	require.NoError(t, f.albums.Upsert(ctx, themecache.Album{Dir: filepath.Join(offline, "A", "B"), Key: "a|b"}))

	summary, err := f.service.ScanNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Removed)

	_, err = f.albums.GetByDir(ctx, filepath.Join(offline, "A", "B"))
	assert.NoError(t, err)
}

func TestSharedCoverIsReleasedWithLastAlbum(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	cover := coverPNG(t, color.NRGBA{R: 90, G: 90, B: 220, A: 255})
	first := filepath.Join(f.root, "Artist", "Disc 1")
	second := filepath.Join(f.root, "Artist", "Disc 2")
	writeAlbum(t, first, cover)
	writeAlbum(t, second, cover)

	summary, err := f.service.ScanNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.Cached)

	require.NoError(t, os.Remove(filepath.Join(first, "cover.png")))
	require.NoError(t, f.service.RescanDir(ctx, first))

	count, err := f.palettes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, os.RemoveAll(second))
	require.NoError(t, f.service.RescanDir(ctx, second))

	count, err = f.palettes.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	album, err := f.albums.GetByDir(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, album.CoverHash)
}

func TestScanRejectsConcurrentRuns(t *testing.T) {
	f := newFixture(t, Options{})

	require.NoError(t, f.service.begin())
	assert.ErrorIs(t, f.service.TriggerScan(), ErrScanInProgress)
	_, err := f.service.ScanNow(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.True(t, f.service.GetStatus().Running)
	f.service.finish(Summary{}, nil)

	require.NoError(t, f.service.TriggerScan())
	f.service.Wait()

	status := f.service.GetStatus()
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
	assert.NotEmpty(t, status.LastRunAt)
}

func TestScanNowReportsCancellation(t *testing.T) {
	f := newFixture(t, Options{})
	writeAlbum(t, filepath.Join(f.root, "Artist", "Album"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.ScanNow(ctx)
	require.ErrorIs(t, err, context.Canceled)

	status := f.service.GetStatus()
	assert.False(t, status.Running)
	assert.Contains(t, status.LastError, "context canceled")
	assert.Equal(t, EventProgress+":failed", f.eventLog()[len(f.eventLog())-1])
}

func TestFallbackAlbumMetadata(t *testing.T) {
	root := filepath.Join("music")

	cases := []struct {
		dir    string
		artist string
		title  string
	}{
		{dir: filepath.Join(root, "Artist", "Album"), artist: "Artist", title: "Album"},
		{dir: filepath.Join(root, "Loose"), artist: unknownArtist, title: "Loose"},
		{dir: root, artist: unknownArtist, title: "music"},
		{dir: filepath.Join("elsewhere", "Thing"), artist: unknownArtist, title: "Thing"},
	}

	for _, tc := range cases {
		metadata := fallbackAlbumMetadata(root, tc.dir)
		assert.Equal(t, tc.artist, metadata.artist, tc.dir)
		assert.Equal(t, tc.title, metadata.title, tc.dir)
	}
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join("library", "music")

	assert.True(t, isWithin(root, root))
	assert.True(t, isWithin(root, filepath.Join(root, "a", "b")))
	assert.False(t, isWithin(root, filepath.Join("library", "musicals")))
	assert.False(t, isWithin(root, "library"))
}
