package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"coverhue/internal/coverart"
	"coverhue/internal/palette"
	"coverhue/internal/themecache"
)

const (
	EventProgress     = "scanner:progress"
	EventAlbumUpdated = "scanner:album-updated"
)

var ErrScanInProgress = errors.New("scan already in progress")

type Progress struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
	Status  string `json:"status"`
	At      string `json:"at"`
}

// Summary counts what a scan did per album directory.
type Summary struct {
	AlbumsSeen   int `json:"albumsSeen"`
	Extracted    int `json:"extracted"`
	Cached       int `json:"cached"`
	WithoutCover int `json:"withoutCover"`
	Skipped      int `json:"skipped"`
	Removed      int `json:"removed"`
}

type Status struct {
	Running     bool    `json:"running"`
	Watching    bool    `json:"watching"`
	LastRunAt   string  `json:"lastRunAt"`
	LastError   string  `json:"lastError,omitempty"`
	LastSummary Summary `json:"lastSummary"`
}

type Emitter func(eventName string, payload any)

type Options struct {
	Roots    []string
	Extract  palette.ExtractOptions
	Debounce time.Duration
}

type albumOutcome int

const (
	outcomeExtracted albumOutcome = iota
	outcomeCached
	outcomeWithoutCover
)

type Service struct {
	mu          sync.Mutex
	running     bool
	lastRun     time.Time
	lastError   string
	lastSummary Summary
	emit        Emitter

	roots     []string
	options   palette.ExtractOptions
	debounce  time.Duration
	extractor *palette.Extractor
	palettes  *themecache.Repository
	albums    *themecache.AlbumRepository
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	scans  sync.WaitGroup

	watchMu sync.Mutex
	watcher *watcher
}

func NewService(
	palettes *themecache.Repository,
	albums *themecache.AlbumRepository,
	extractor *palette.Extractor,
	options Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = palette.NewExtractor()
	}

	roots := lo.Uniq(lo.FilterMap(options.Roots, func(root string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			return "", false
		}
		return filepath.Clean(trimmed), true
	}))

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		roots:     roots,
		options:   palette.NormalizeExtractOptions(options.Extract),
		debounce:  options.Debounce,
		extractor: extractor,
		palettes:  palettes,
		albums:    albums,
		logger:    logger.With("component", "scanner"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Service) SetEmitter(emitter Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = emitter
}

func (s *Service) Roots() []string {
	return append([]string(nil), s.roots...)
}

// TriggerScan starts a full scan in the background.
func (s *Service) TriggerScan() error {
	if err := s.begin(); err != nil {
		return err
	}

	s.scans.Add(1)
	go func() {
		defer s.scans.Done()
		summary, err := s.performScan(s.ctx)
		s.finish(summary, err)
	}()
	return nil
}

// ScanNow runs a full scan on the calling goroutine.
func (s *Service) ScanNow(ctx context.Context) (Summary, error) {
	if err := s.begin(); err != nil {
		return Summary{}, err
	}

	summary, err := s.performScan(ctx)
	s.finish(summary, err)
	return summary, err
}

// Wait blocks until background scans started by TriggerScan have returned.
func (s *Service) Wait() {
	s.scans.Wait()
}

// Close stops the watcher, cancels running scans and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.StopWatching()
	s.scans.Wait()
}

func (s *Service) GetStatus() Status {
	s.watchMu.Lock()
	watching := s.watcher != nil
	s.watchMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:     s.running,
		Watching:    watching,
		LastError:   s.lastError,
		LastSummary: s.lastSummary,
	}
	if !s.lastRun.IsZero() {
		status.LastRunAt = s.lastRun.UTC().Format(time.RFC3339)
	}

	return status
}

func (s *Service) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrScanInProgress
	}
	s.running = true
	s.lastError = ""
	return nil
}

func (s *Service) finish(summary Summary, err error) {
	s.mu.Lock()
	s.running = false
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.lastRun = time.Now().UTC()
		s.lastSummary = summary
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scan failed", "error", err)
		s.emitProgress(newProgress("failed", err.Error(), 100, "failed"))
		return
	}

	s.logger.Info(
		"scan complete",
		"albums", summary.AlbumsSeen,
		"extracted", summary.Extracted,
		"cached", summary.Cached,
		"without_cover", summary.WithoutCover,
		"skipped", summary.Skipped,
		"removed", summary.Removed,
	)
	s.emitProgress(newProgress(
		"done",
		fmt.Sprintf(
			"Scan complete: %d albums, %d extracted, %d cached, %d without cover",
			summary.AlbumsSeen,
			summary.Extracted,
			summary.Cached,
			summary.WithoutCover,
		),
		100,
		"completed",
	))
}

func (s *Service) performScan(ctx context.Context) (Summary, error) {
	s.emitProgress(newProgress("start", "Starting cover scan", 5, "running"))

	if len(s.roots) == 0 {
		return Summary{}, nil
	}

	groups := make(map[string][]string)
	offline := make(map[string]struct{})
	for _, root := range s.roots {
		if err := collectAlbums(ctx, root, groups); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("library root unavailable", "root", root)
				offline[root] = struct{}{}
				continue
			}
			return Summary{}, err
		}
	}

	dirs := lo.Keys(groups)
	sort.Strings(dirs)

	summary := Summary{AlbumsSeen: len(dirs)}
	for i, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}

		s.emitProgress(newProgress(
			"scan",
			fmt.Sprintf("Reading cover for %s", dir),
			10+((i*80)/len(dirs)),
			"running",
		))

		outcome, err := s.scanAlbum(ctx, s.rootFor(dir), dir, groups[dir])
		if err != nil {
			if ctx.Err() != nil {
				return Summary{}, ctx.Err()
			}
			s.logger.Warn("skip album", "dir", dir, "error", err)
			summary.Skipped++
			continue
		}

		switch outcome {
		case outcomeExtracted:
			summary.Extracted++
		case outcomeCached:
			summary.Cached++
		case outcomeWithoutCover:
			summary.WithoutCover++
		}
	}

	s.emitProgress(newProgress("cleanup", "Removing stale albums", 92, "running"))
	removed, err := s.removeStaleAlbums(ctx, groups, offline)
	if err != nil {
		return Summary{}, err
	}
	summary.Removed = removed

	return summary, nil
}

func collectAlbums(ctx context.Context, root string, groups map[string][]string) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !isAudioFile(path) {
			return nil
		}

		dir := filepath.Dir(path)
		groups[dir] = append(groups[dir], path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk root %s: %w", root, err)
	}

	for dir := range groups {
		sort.Strings(groups[dir])
	}
	return nil
}

// RescanDir refreshes a single album directory. Albums disappear when the
// directory no longer holds audio files or no longer exists.
func (s *Service) RescanDir(ctx context.Context, dir string) error {
	dir = filepath.Clean(dir)

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return s.removeAlbumsWithin(ctx, dir)
	}

	audioPaths, err := listAudioFiles(dir)
	if err != nil {
		return err
	}

	if len(audioPaths) == 0 {
		_, err := s.removeAlbum(ctx, dir)
		return err
	}

	_, err = s.scanAlbum(ctx, s.rootFor(dir), dir, audioPaths)
	return err
}

func listAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read album dir %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isAudioFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Service) scanAlbum(ctx context.Context, root string, dir string, audioPaths []string) (albumOutcome, error) {
	metadata := readAlbumMetadata(root, dir, audioPaths)
	album := themecache.Album{
		Dir:    dir,
		Key:    metadata.key(),
		Title:  metadata.title,
		Artist: metadata.artist,
	}

	previousHash := ""
	if previous, err := s.albums.GetByDir(ctx, dir); err == nil {
		previousHash = previous.CoverHash
	} else if !errors.Is(err, themecache.ErrAlbumNotFound) {
		return 0, err
	}

	outcome := outcomeWithoutCover
	source, err := coverart.Resolve(dir, audioPaths)
	switch {
	case errors.Is(err, coverart.ErrNoCover):
	case err != nil:
		return 0, err
	default:
		outcome, err = s.ensurePalette(ctx, source)
		if err != nil {
			return 0, err
		}
		album.CoverHash = source.Hash
		album.CoverKind = source.Kind
		album.CoverPath = source.Path
	}

	if err := s.albums.Upsert(ctx, album); err != nil {
		return 0, err
	}
	if previousHash != "" && !strings.EqualFold(previousHash, album.CoverHash) {
		if err := s.releaseCover(ctx, previousHash); err != nil {
			return 0, err
		}
	}

	s.emitEvent(EventAlbumUpdated, album)
	return outcome, nil
}

func (s *Service) ensurePalette(ctx context.Context, source coverart.Source) (albumOutcome, error) {
	if _, err := s.palettes.Get(ctx, source.Hash, s.options); err == nil {
		return outcomeCached, nil
	} else if !errors.Is(err, themecache.ErrNotFound) {
		return 0, err
	}

	started := time.Now()
	result, err := s.extractor.ExtractFromBytes(source.Data, s.options)
	if err != nil {
		return 0, fmt.Errorf("extract palette from %s: %w", source.Path, err)
	}
	if err := s.palettes.Put(ctx, source.Hash, s.options, result); err != nil {
		return 0, err
	}

	s.logger.Debug(
		"palette extracted",
		"cover", source.Path,
		"kind", source.Kind,
		"size", humanize.Bytes(uint64(len(source.Data))),
		"colors", len(result.Palette),
		"took", time.Since(started),
	)
	return outcomeExtracted, nil
}

func (s *Service) removeAlbum(ctx context.Context, dir string) (bool, error) {
	hash, err := s.albums.DeleteByDir(ctx, dir)
	if errors.Is(err, themecache.ErrAlbumNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if hash != "" {
		if err := s.releaseCover(ctx, hash); err != nil {
			return true, err
		}
	}
	s.logger.Info("album removed", "dir", dir)
	return true, nil
}

func (s *Service) removeAlbumsWithin(ctx context.Context, dir string) error {
	known, err := s.albums.List(ctx)
	if err != nil {
		return err
	}

	for _, album := range known {
		if !isWithin(dir, album.Dir) {
			continue
		}
		if _, err := s.removeAlbum(ctx, album.Dir); err != nil {
			return err
		}
	}
	return nil
}

// releaseCover drops cached palettes for a cover no album references anymore.
func (s *Service) releaseCover(ctx context.Context, coverHash string) error {
	inUse, err := s.albums.CoverInUse(ctx, coverHash)
	if err != nil || inUse {
		return err
	}

	deleted, err := s.palettes.DeleteByHash(ctx, coverHash)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Debug("released cover palettes", "hash", coverHash, "rows", deleted)
	}
	return nil
}

// removeStaleAlbums deletes album rows under online roots that the walk did not see.
func (s *Service) removeStaleAlbums(ctx context.Context, seen map[string][]string, offline map[string]struct{}) (int, error) {
	known, err := s.albums.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, album := range known {
		if _, ok := seen[album.Dir]; ok {
			continue
		}
		root := s.rootFor(album.Dir)
		if root == "" {
			continue
		}
		if _, ok := offline[root]; ok {
			continue
		}

		ok, err := s.removeAlbum(ctx, album.Dir)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	return removed, nil
}

func (s *Service) rootFor(dir string) string {
	best := ""
	for _, root := range s.roots {
		if isWithin(root, dir) && len(root) > len(best) {
			best = root
		}
	}
	return best
}

func isWithin(root string, path string) bool {
	relativePath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return relativePath == "." || (relativePath != ".." && !strings.HasPrefix(relativePath, ".."+string(filepath.Separator)))
}

func newProgress(phase string, message string, percent int, status string) Progress {
	return Progress{
		Phase:   phase,
		Message: message,
		Percent: percent,
		Status:  status,
		At:      time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *Service) emitProgress(progress Progress) {
	s.emitEvent(EventProgress, progress)
}

func (s *Service) emitEvent(eventName string, payload any) {
	s.mu.Lock()
	emitter := s.emit
	s.mu.Unlock()

	if emitter != nil {
		emitter(eventName, payload)
	}
}
