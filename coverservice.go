package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"coverhue/internal/coverart"
	"coverhue/internal/theme"
	"coverhue/internal/themecache"
)

const coverRoutePrefix = "/covers/"

// CoverService serves scanned cover images by content hash so the frontend can
// show the art a palette was taken from.
type CoverService struct {
	albums *themecache.AlbumRepository
	logger *slog.Logger
}

func NewCoverService(albums *themecache.AlbumRepository, logger *slog.Logger) *CoverService {
	return &CoverService{albums: albums, logger: logger}
}

// Middleware routes cover requests to the service and everything else to next.
func (s *CoverService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, coverRoutePrefix) {
			s.ServeHTTP(rw, req)
			return
		}
		next.ServeHTTP(rw, req)
	})
}

func (s *CoverService) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		rw.Header().Set("Allow", "GET, HEAD")
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	coverHash := strings.TrimSpace(strings.TrimPrefix(req.URL.Path, coverRoutePrefix))
	if !coverart.IsValidHash(coverHash) {
		http.Error(rw, "invalid cover hash", http.StatusBadRequest)
		return
	}

	album, err := s.albums.GetByCoverHash(req.Context(), coverHash)
	if err != nil {
		if !errors.Is(err, themecache.ErrAlbumNotFound) {
			s.logger.Warn("lookup cover", "hash", coverHash, "error", err)
		}
		http.Error(rw, "cover not found", http.StatusNotFound)
		return
	}

	source, err := theme.LoadAlbumCover(album)
	if err != nil || !strings.EqualFold(source.Hash, coverHash) {
		http.Error(rw, "cover not found", http.StatusNotFound)
		return
	}

	rw.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	rw.Header().Set("Content-Type", http.DetectContentType(source.Data))
	rw.Header().Set("Content-Length", strconv.Itoa(len(source.Data)))

	if req.Method == http.MethodHead {
		return
	}

	if _, err := rw.Write(source.Data); err != nil {
		s.logger.Debug("write cover", "hash", coverHash, "error", err)
	}
}
