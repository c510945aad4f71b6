package themecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrAlbumNotFound = errors.New("album not found")

type Album struct {
	Dir       string `json:"dir"`
	Key       string `json:"key"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	CoverHash string `json:"coverHash,omitempty"`
	CoverKind string `json:"coverKind,omitempty"`
	CoverPath string `json:"coverPath,omitempty"`
	ScannedAt string `json:"scannedAt"`
}

type AlbumRepository struct {
	db *sql.DB
}

func NewAlbumRepository(database *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: database}
}

func (r *AlbumRepository) Upsert(ctx context.Context, album Album) error {
	if album.ScannedAt == "" {
		album.ScannedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO albums(dir, album_key, title, artist, cover_hash, cover_kind, cover_path, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dir) DO UPDATE SET
			album_key = excluded.album_key,
			title = excluded.title,
			artist = excluded.artist,
			cover_hash = excluded.cover_hash,
			cover_kind = excluded.cover_kind,
			cover_path = excluded.cover_path,
			scanned_at = excluded.scanned_at`,
		album.Dir,
		album.Key,
		album.Title,
		album.Artist,
		nullableString(album.CoverHash),
		nullableString(album.CoverKind),
		nullableString(album.CoverPath),
		album.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert album %s: %w", album.Dir, err)
	}
	return nil
}

func (r *AlbumRepository) GetByDir(ctx context.Context, dir string) (Album, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT dir, album_key, title, artist, cover_hash, cover_kind, cover_path, scanned_at FROM albums WHERE dir = ?",
		dir,
	)
	album, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, fmt.Errorf("get album %s: %w", dir, err)
	}
	return album, nil
}

// GetByCoverHash returns the first album, by directory, that uses coverHash.
func (r *AlbumRepository) GetByCoverHash(ctx context.Context, coverHash string) (Album, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT dir, album_key, title, artist, cover_hash, cover_kind, cover_path, scanned_at FROM albums WHERE LOWER(cover_hash) = LOWER(?) ORDER BY dir LIMIT 1",
		coverHash,
	)
	album, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, fmt.Errorf("get album by cover %s: %w", coverHash, err)
	}
	return album, nil
}

func (r *AlbumRepository) List(ctx context.Context) ([]Album, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT dir, album_key, title, artist, cover_hash, cover_kind, cover_path, scanned_at FROM albums ORDER BY artist COLLATE NOCASE, title COLLATE NOCASE, dir",
	)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	albums := make([]Album, 0)
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album row: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate album rows: %w", err)
	}
	return albums, nil
}

// DeleteByDir removes the album row for dir and returns the cover hash it referenced.
func (r *AlbumRepository) DeleteByDir(ctx context.Context, dir string) (string, error) {
	album, err := r.GetByDir(ctx, dir)
	if err != nil {
		return "", err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM albums WHERE dir = ?", dir); err != nil {
		return "", fmt.Errorf("delete album %s: %w", dir, err)
	}
	return album.CoverHash, nil
}

// CoverInUse reports whether any album still references coverHash.
func (r *AlbumRepository) CoverInUse(ctx context.Context, coverHash string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM albums WHERE cover_hash = ?", coverHash).Scan(&count); err != nil {
		return false, fmt.Errorf("count albums for cover: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row rowScanner) (Album, error) {
	var album Album
	var coverHash, coverKind, coverPath sql.NullString
	if err := row.Scan(
		&album.Dir,
		&album.Key,
		&album.Title,
		&album.Artist,
		&coverHash,
		&coverKind,
		&coverPath,
		&album.ScannedAt,
	); err != nil {
		return Album{}, err
	}
	album.CoverHash = coverHash.String
	album.CoverKind = coverKind.String
	album.CoverPath = coverPath.String
	return album, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
