package scanner

import (
	"path/filepath"
	"strings"

	"go.senan.xyz/taglib"
)

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"

	// Tags are read from at most this many tracks per album directory.
	maxTaggedTracks = 3
)

var supportedExtensions = map[string]struct{}{
	".aac":  {},
	".aif":  {},
	".aiff": {},
	".alac": {},
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".ogg":  {},
	".opus": {},
	".wav":  {},
	".wma":  {},
}

func isAudioFile(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

type albumMetadata struct {
	title  string
	artist string
	source string
}

func (m albumMetadata) key() string {
	return strings.ToLower(m.artist) + "|" + strings.ToLower(m.title)
}

func readAlbumMetadata(rootPath string, dir string, audioPaths []string) albumMetadata {
	metadata := fallbackAlbumMetadata(rootPath, dir)

	for i, path := range audioPaths {
		if i >= maxTaggedTracks {
			break
		}

		tags, err := taglib.ReadTags(path)
		if err != nil {
			continue
		}

		album := firstTagValue(tags, taglib.Album, "ALBUM")
		artist := firstTagValue(tags, taglib.AlbumArtist, "ALBUMARTIST", taglib.Artist, "ARTIST")
		if album == "" && artist == "" {
			continue
		}

		if album != "" {
			metadata.title = album
		}
		if artist != "" {
			metadata.artist = artist
		}
		metadata.source = "taglib"
		break
	}

	return metadata
}

// fallbackAlbumMetadata reads <artist>/<album> from the directory layout below the root.
func fallbackAlbumMetadata(rootPath string, dir string) albumMetadata {
	metadata := albumMetadata{title: unknownAlbum, artist: unknownArtist, source: "path"}

	relativePath, err := filepath.Rel(rootPath, dir)
	if err != nil || relativePath == "." || strings.HasPrefix(relativePath, "..") {
		if base := strings.TrimSpace(filepath.Base(dir)); base != "" && base != "." {
			metadata.title = base
		}
		return metadata
	}

	parts := strings.Split(filepath.ToSlash(relativePath), "/")
	switch {
	case len(parts) >= 2:
		if artist := strings.TrimSpace(parts[len(parts)-2]); artist != "" {
			metadata.artist = artist
		}
		if album := strings.TrimSpace(parts[len(parts)-1]); album != "" {
			metadata.title = album
		}
	case len(parts) == 1:
		if album := strings.TrimSpace(parts[0]); album != "" {
			metadata.title = album
		}
	}

	return metadata
}

func firstTagValue(tags map[string][]string, keys ...string) string {
	for _, key := range keys {
		values, ok := tags[key]
		if !ok {
			continue
		}
		for _, value := range values {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}

	return ""
}
