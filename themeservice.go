package main

import (
	"context"

	"coverhue/internal/palette"
	"coverhue/internal/theme"
	"coverhue/internal/themecache"
)

const EventThemeGenerated = "theme:generated"

type ThemeService struct {
	generator *theme.Generator
	albums    *themecache.AlbumRepository
	defaults  palette.ExtractOptions
	emit      func(eventName string, payload any)
}

func NewThemeService(generator *theme.Generator, albums *themecache.AlbumRepository, defaults palette.ExtractOptions) *ThemeService {
	return &ThemeService{
		generator: generator,
		albums:    albums,
		defaults:  palette.NormalizeExtractOptions(defaults),
	}
}

func (s *ThemeService) SetEmitter(emitter func(eventName string, payload any)) {
	s.emit = emitter
}

// DefaultOptions returns the configured extraction options.
func (s *ThemeService) DefaultOptions() palette.ExtractOptions {
	return s.defaults
}

func (s *ThemeService) GenerateFromCover(coverPath string, options palette.ExtractOptions) (theme.Generated, error) {
	return s.published(s.generator.FromCover(context.Background(), coverPath, s.withDefaults(options)))
}

func (s *ThemeService) GenerateFromTrack(trackPath string, options palette.ExtractOptions) (theme.Generated, error) {
	return s.published(s.generator.FromTrack(context.Background(), trackPath, s.withDefaults(options)))
}

func (s *ThemeService) GenerateForAlbum(albumDir string, options palette.ExtractOptions) (theme.Generated, error) {
	return s.published(s.generator.ForAlbum(context.Background(), albumDir, s.withDefaults(options)))
}

func (s *ThemeService) ListAlbums() ([]themecache.Album, error) {
	return s.albums.List(context.Background())
}

// withDefaults fills zero fields from the configured options rather than the
// built-in defaults.
func (s *ThemeService) withDefaults(options palette.ExtractOptions) palette.ExtractOptions {
	if options.ColorCount == 0 {
		options.ColorCount = s.defaults.ColorCount
	}
	if options.ReductionBits == 0 {
		options.ReductionBits = s.defaults.ReductionBits
	}
	if options.AlphaThreshold == 0 {
		options.AlphaThreshold = s.defaults.AlphaThreshold
	}
	if options.SampleStep == 0 {
		options.SampleStep = s.defaults.SampleStep
	}
	if options.MaxDimension == 0 {
		options.MaxDimension = s.defaults.MaxDimension
	}
	return options
}

func (s *ThemeService) published(generated theme.Generated, err error) (theme.Generated, error) {
	if err != nil {
		return theme.Generated{}, err
	}
	if s.emit != nil {
		s.emit(EventThemeGenerated, generated)
	}
	return generated, nil
}
