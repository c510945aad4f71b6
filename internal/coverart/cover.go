package coverart

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.senan.xyz/taglib"
)

const (
	KindFile     = "file"
	KindEmbedded = "embedded"
)

var ErrNoCover = errors.New("no cover art found")

var sidecarNames = []string{"cover", "folder", "front", "album"}

var sidecarExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".avif"}

// Source is a resolved cover image together with where it came from.
type Source struct {
	Kind string
	Path string
	Hash string
	Data []byte
}

// FindSidecar returns the preferred cover image file in dir. Names are matched
// case-insensitively in the order of sidecarNames, then sidecarExtensions.
func FindSidecar(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lowered := strings.ToLower(entry.Name())
		if _, taken := files[lowered]; !taken {
			files[lowered] = entry.Name()
		}
	}

	for _, name := range sidecarNames {
		for _, extension := range sidecarExtensions {
			if actual, ok := files[name+extension]; ok {
				return filepath.Join(dir, actual), true
			}
		}
	}
	return "", false
}

func IsImageFile(path string) bool {
	return lo.Contains(sidecarExtensions, strings.ToLower(filepath.Ext(path)))
}

func ReadEmbedded(audioPath string) ([]byte, error) {
	data, err := taglib.ReadImage(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read embedded cover %s: %w", audioPath, err)
	}
	if len(data) == 0 {
		return nil, ErrNoCover
	}
	return data, nil
}

// Resolve prefers a sidecar image in albumDir and falls back to the first track in
// audioPaths carrying embedded art.
func Resolve(albumDir string, audioPaths []string) (Source, error) {
	if sidecar, ok := FindSidecar(albumDir); ok {
		data, err := os.ReadFile(sidecar)
		if err == nil && len(data) > 0 {
			return Source{Kind: KindFile, Path: sidecar, Hash: Hash(data), Data: data}, nil
		}
	}

	for _, audioPath := range audioPaths {
		data, err := ReadEmbedded(audioPath)
		if err != nil {
			continue
		}
		return Source{Kind: KindEmbedded, Path: audioPath, Hash: Hash(data), Data: data}, nil
	}

	return Source{}, ErrNoCover
}

func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func IsValidHash(value string) bool {
	if len(value) != 64 {
		return false
	}

	for _, char := range value {
		if (char < '0' || char > '9') && (char < 'a' || char > 'f') && (char < 'A' || char > 'F') {
			return false
		}
	}

	return true
}
