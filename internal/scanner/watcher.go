package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"coverhue/internal/coverart"
)

const defaultDebounce = 750 * time.Millisecond

type watcher struct {
	fs        *fsnotify.Watcher
	done      chan struct{}
	loopDone  chan struct{}
	debounced func(f func())

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
	active  sync.WaitGroup
}

// StartWatching watches every directory below the library roots and rescans
// album directories whose audio or image files change.
func (s *Service) StartWatching() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher != nil {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	delay := s.debounce
	if delay <= 0 {
		delay = defaultDebounce
	}

	w := &watcher{
		fs:        fsWatcher,
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		debounced: debounce.New(delay),
		pending:   make(map[string]struct{}),
	}

	watched := 0
	for _, root := range s.roots {
		dirs, err := w.addTree(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("library root unavailable", "root", root)
				continue
			}
			_ = fsWatcher.Close()
			return err
		}
		watched += len(dirs)
	}

	go s.watchLoop(w)
	s.watcher = w
	s.logger.Info("watching library", "roots", len(s.roots), "dirs", watched, "debounce", delay)
	return nil
}

// StopWatching stops the watcher and waits for an in-flight rescan.
func (s *Service) StopWatching() {
	s.watchMu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchMu.Unlock()

	if w == nil {
		return
	}

	w.mu.Lock()
	w.closed = true
	w.pending = nil
	w.mu.Unlock()

	close(w.done)
	if err := w.fs.Close(); err != nil {
		s.logger.Warn("close watcher", "error", err)
	}
	<-w.loopDone
	w.active.Wait()
}

func (s *Service) watchLoop(w *watcher) {
	defer close(w.loopDone)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			s.handleEvent(w, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

func (s *Service) handleEvent(w *watcher, event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	var dirs []string
	switch {
	case event.Has(fsnotify.Create) && isDir(path):
		added, err := w.addTree(path)
		if err != nil {
			s.logger.Warn("watch new directory", "dir", path, "error", err)
		}
		dirs = added
	case isAudioFile(path) || coverart.IsImageFile(path):
		if event.Op == fsnotify.Chmod {
			return
		}
		dirs = []string{filepath.Dir(path)}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		dirs = []string{path}
	default:
		return
	}

	if len(dirs) == 0 {
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	for _, dir := range dirs {
		w.pending[dir] = struct{}{}
	}
	w.mu.Unlock()

	w.debounced(func() { s.flushPending(w) })
}

func (s *Service) flushPending(w *watcher) {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	dirs := lo.Keys(w.pending)
	w.pending = make(map[string]struct{})
	w.active.Add(1)
	w.mu.Unlock()
	defer w.active.Done()

	sort.Strings(dirs)
	for _, dir := range dirs {
		if s.ctx.Err() != nil {
			return
		}
		if err := s.RescanDir(s.ctx, dir); err != nil {
			s.logger.Warn("rescan album", "dir", dir, "error", err)
		}
	}
}

// addTree adds root and every directory below it, returning the directories added.
func (w *watcher) addTree(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return err
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
