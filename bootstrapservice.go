package main

import (
	"context"

	"coverhue/internal/palette"
	"coverhue/internal/scanner"
	"coverhue/internal/themecache"
)

type StartupSnapshot struct {
	ScanStatus     scanner.Status         `json:"scanStatus"`
	LibraryRoots   []string               `json:"libraryRoots"`
	DefaultOptions palette.ExtractOptions `json:"defaultOptions"`
	Albums         []themecache.Album     `json:"albums"`
	CachedPalettes int                    `json:"cachedPalettes"`
}

type BootstrapService struct {
	albums   *themecache.AlbumRepository
	palettes *themecache.Repository
	scanner  *scanner.Service
	themes   *ThemeService
}

func NewBootstrapService(
	albums *themecache.AlbumRepository,
	palettes *themecache.Repository,
	scannerService *scanner.Service,
	themes *ThemeService,
) *BootstrapService {
	return &BootstrapService{
		albums:   albums,
		palettes: palettes,
		scanner:  scannerService,
		themes:   themes,
	}
}

func (s *BootstrapService) GetInitialState() (StartupSnapshot, error) {
	ctx := context.Background()

	albums, err := s.albums.List(ctx)
	if err != nil {
		return StartupSnapshot{}, err
	}

	cached, err := s.palettes.Count(ctx)
	if err != nil {
		return StartupSnapshot{}, err
	}

	return StartupSnapshot{
		ScanStatus:     s.scanner.GetStatus(),
		LibraryRoots:   s.scanner.Roots(),
		DefaultOptions: s.themes.DefaultOptions(),
		Albums:         albums,
		CachedPalettes: cached,
	}, nil
}
