package themecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coverhue/internal/palette"
)

var ErrNotFound = errors.New("palette not cached")

// Fixed width so created_at sorts lexically in time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// OptionsKey fingerprints the extraction options that influence a palette.
func OptionsKey(options palette.ExtractOptions) string {
	normalized := palette.NormalizeExtractOptions(options)
	return fmt.Sprintf(
		"cc:%d|rb:%d|at:%d|ss:%d|md:%d",
		normalized.ColorCount,
		normalized.ReductionBits,
		normalized.AlphaThreshold,
		normalized.SampleStep,
		normalized.MaxDimension,
	)
}

type memoryEntry struct {
	result   palette.Result
	cachedAt time.Time
}

// Repository persists extraction results per cover hash and options in sqlite,
// fronted by a bounded in-process map.
type Repository struct {
	db         *sql.DB
	maxEntries int

	mu     sync.RWMutex
	memory map[string]memoryEntry
}

func NewRepository(database *sql.DB, maxEntries int) *Repository {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Repository{
		db:         database,
		maxEntries: maxEntries,
		memory:     make(map[string]memoryEntry),
	}
}

func memoryKey(coverHash string, optionsKey string) string {
	return strings.ToLower(coverHash) + "|" + optionsKey
}

func (r *Repository) Get(ctx context.Context, coverHash string, options palette.ExtractOptions) (palette.Result, error) {
	optionsKey := OptionsKey(options)
	key := memoryKey(coverHash, optionsKey)

	r.mu.RLock()
	entry, ok := r.memory[key]
	r.mu.RUnlock()
	if ok {
		return entry.result, nil
	}

	var body string
	err := r.db.QueryRowContext(
		ctx,
		"SELECT palette_json FROM palettes WHERE cover_hash = ? AND options_key = ?",
		strings.ToLower(coverHash),
		optionsKey,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return palette.Result{}, ErrNotFound
		}
		return palette.Result{}, fmt.Errorf("load cached palette: %w", err)
	}

	var result palette.Result
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return palette.Result{}, fmt.Errorf("decode cached palette: %w", err)
	}

	r.remember(key, result)
	return result, nil
}

func (r *Repository) Put(ctx context.Context, coverHash string, options palette.ExtractOptions, result palette.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode palette: %w", err)
	}

	optionsKey := OptionsKey(options)
	if _, err := r.db.ExecContext(
		ctx,
		`INSERT INTO palettes(cover_hash, options_key, palette_json, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cover_hash, options_key) DO UPDATE SET palette_json = excluded.palette_json, created_at = excluded.created_at`,
		strings.ToLower(coverHash),
		optionsKey,
		string(body),
		time.Now().UTC().Format(createdAtLayout),
	); err != nil {
		return fmt.Errorf("store palette: %w", err)
	}

	r.remember(memoryKey(coverHash, optionsKey), result)
	return nil
}

// DeleteByHash drops every cached palette of a cover and reports how many rows went.
func (r *Repository) DeleteByHash(ctx context.Context, coverHash string) (int64, error) {
	lowered := strings.ToLower(coverHash)

	r.mu.Lock()
	for key := range r.memory {
		if strings.HasPrefix(key, lowered+"|") {
			delete(r.memory, key)
		}
	}
	r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, "DELETE FROM palettes WHERE cover_hash = ?", lowered)
	if err != nil {
		return 0, fmt.Errorf("delete palettes for %s: %w", lowered, err)
	}
	return result.RowsAffected()
}

// Prune keeps the newest maxRows persisted palettes.
func (r *Repository) Prune(ctx context.Context, maxRows int) (int64, error) {
	if maxRows < 0 {
		maxRows = 0
	}
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM palettes WHERE rowid NOT IN (
			SELECT rowid FROM palettes ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		maxRows,
	)
	if err != nil {
		return 0, fmt.Errorf("prune palettes: %w", err)
	}
	return result.RowsAffected()
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM palettes").Scan(&count); err != nil {
		return 0, fmt.Errorf("count palettes: %w", err)
	}
	return count, nil
}

func (r *Repository) remember(key string, result palette.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memory[key] = memoryEntry{result: result, cachedAt: time.Now()}
	if len(r.memory) <= r.maxEntries {
		return
	}

	oldestKey := ""
	var oldestAt time.Time
	for candidate, entry := range r.memory {
		if oldestKey == "" || entry.cachedAt.Before(oldestAt) {
			oldestKey = candidate
			oldestAt = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(r.memory, oldestKey)
	}
}

func (r *Repository) memoryLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memory)
}
