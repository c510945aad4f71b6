// Package theme turns cover images into cached palettes and UI themes.
package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"coverhue/internal/coverart"
	"coverhue/internal/palette"
	"coverhue/internal/themecache"
)

var ErrPathRequired = errors.New("path is required")

// Generated is a palette result together with the cover it was taken from.
type Generated struct {
	CoverKind string         `json:"coverKind"`
	CoverPath string         `json:"coverPath"`
	CoverHash string         `json:"coverHash"`
	Cached    bool           `json:"cached"`
	Result    palette.Result `json:"result"`
}

type Generator struct {
	extractor *palette.Extractor
	palettes  *themecache.Repository
	albums    *themecache.AlbumRepository
	logger    *slog.Logger
}

func NewGenerator(
	extractor *palette.Extractor,
	palettes *themecache.Repository,
	albums *themecache.AlbumRepository,
	logger *slog.Logger,
) *Generator {
	if extractor == nil {
		extractor = palette.NewExtractor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		extractor: extractor,
		palettes:  palettes,
		albums:    albums,
		logger:    logger.With("component", "theme"),
	}
}

// FromCover builds the palette of an image file.
func (g *Generator) FromCover(ctx context.Context, coverPath string, options palette.ExtractOptions) (Generated, error) {
	trimmedPath := strings.TrimSpace(coverPath)
	if trimmedPath == "" {
		return Generated{}, ErrPathRequired
	}

	source, err := readFileSource(filepath.Clean(trimmedPath))
	if err != nil {
		return Generated{}, err
	}
	return g.generate(ctx, source, options)
}

// FromTrack prefers art embedded in the track and falls back to a sidecar
// image next to it.
func (g *Generator) FromTrack(ctx context.Context, trackPath string, options palette.ExtractOptions) (Generated, error) {
	trimmedPath := strings.TrimSpace(trackPath)
	if trimmedPath == "" {
		return Generated{}, ErrPathRequired
	}
	trimmedPath = filepath.Clean(trimmedPath)

	if data, err := coverart.ReadEmbedded(trimmedPath); err == nil {
		return g.generate(ctx, coverart.Source{
			Kind: coverart.KindEmbedded,
			Path: trimmedPath,
			Hash: coverart.Hash(data),
			Data: data,
		}, options)
	}

	sidecar, ok := coverart.FindSidecar(filepath.Dir(trimmedPath))
	if !ok {
		return Generated{}, fmt.Errorf("track %s: %w", trimmedPath, coverart.ErrNoCover)
	}

	source, err := readFileSource(sidecar)
	if err != nil {
		return Generated{}, err
	}
	return g.generate(ctx, source, options)
}

// ForAlbum uses the cover recorded by the last scan of dir. Directories that
// were never scanned only resolve sidecar images.
func (g *Generator) ForAlbum(ctx context.Context, dir string, options palette.ExtractOptions) (Generated, error) {
	trimmedDir := strings.TrimSpace(dir)
	if trimmedDir == "" {
		return Generated{}, ErrPathRequired
	}
	trimmedDir = filepath.Clean(trimmedDir)

	album, err := g.albums.GetByDir(ctx, trimmedDir)
	switch {
	case err == nil && album.CoverHash != "":
		if result, cacheErr := g.palettes.Get(ctx, album.CoverHash, options); cacheErr == nil {
			return Generated{
				CoverKind: album.CoverKind,
				CoverPath: album.CoverPath,
				CoverHash: album.CoverHash,
				Cached:    true,
				Result:    result,
			}, nil
		}
		if source, sourceErr := LoadAlbumCover(album); sourceErr == nil {
			return g.generate(ctx, source, options)
		}
	case err != nil && !errors.Is(err, themecache.ErrAlbumNotFound):
		return Generated{}, err
	}

	source, err := coverart.Resolve(trimmedDir, nil)
	if err != nil {
		return Generated{}, fmt.Errorf("album %s: %w", trimmedDir, err)
	}
	return g.generate(ctx, source, options)
}

// LoadAlbumCover reads the cover bytes an album row points at.
func LoadAlbumCover(album themecache.Album) (coverart.Source, error) {
	switch album.CoverKind {
	case coverart.KindFile:
		return readFileSource(album.CoverPath)
	case coverart.KindEmbedded:
		data, err := coverart.ReadEmbedded(album.CoverPath)
		if err != nil {
			return coverart.Source{}, err
		}
		return coverart.Source{Kind: coverart.KindEmbedded, Path: album.CoverPath, Hash: coverart.Hash(data), Data: data}, nil
	default:
		return coverart.Source{}, coverart.ErrNoCover
	}
}

func readFileSource(path string) (coverart.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return coverart.Source{}, fmt.Errorf("cover %s: %w", path, coverart.ErrNoCover)
		}
		return coverart.Source{}, fmt.Errorf("read cover %s: %w", path, err)
	}
	if len(data) == 0 {
		return coverart.Source{}, fmt.Errorf("cover %s is empty: %w", path, coverart.ErrNoCover)
	}

	return coverart.Source{Kind: coverart.KindFile, Path: path, Hash: coverart.Hash(data), Data: data}, nil
}

func (g *Generator) generate(ctx context.Context, source coverart.Source, options palette.ExtractOptions) (Generated, error) {
	generated := Generated{
		CoverKind: source.Kind,
		CoverPath: source.Path,
		CoverHash: source.Hash,
	}

	cached, err := g.palettes.Get(ctx, source.Hash, options)
	if err == nil {
		generated.Cached = true
		generated.Result = cached
		return generated, nil
	}
	if !errors.Is(err, themecache.ErrNotFound) {
		return Generated{}, err
	}

	started := time.Now()
	result, err := g.extractor.ExtractFromBytes(source.Data, options)
	if err != nil {
		return Generated{}, fmt.Errorf("generate cover theme: %w", err)
	}
	if err := g.palettes.Put(ctx, source.Hash, options, result); err != nil {
		return Generated{}, err
	}

	g.logger.Debug(
		"theme generated",
		"cover", source.Path,
		"size", humanize.Bytes(uint64(len(source.Data))),
		"took", time.Since(started),
	)

	generated.Result = result
	return generated, nil
}
