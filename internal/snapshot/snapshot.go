// Package snapshot persists the metadata store across restarts in a local
// SQLite database. Each row carries a has_data flag: a placeholder row
// records that the content existed but its bytes were not captured, so on
// restore it must be re-requested from the session rather than fabricated.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jsbattig/share-things-sub002/internal/dbx"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS contents (
	content_id        TEXT PRIMARY KEY,
	sender_id         TEXT NOT NULL DEFAULT '',
	sender_name       TEXT NOT NULL DEFAULT '',
	content_type      TEXT NOT NULL DEFAULT '',
	mime_type         TEXT NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL DEFAULT 0,
	declared_size     INTEGER NOT NULL DEFAULT 0,
	is_chunked        INTEGER NOT NULL DEFAULT 0,
	fragment_count    INTEGER NOT NULL DEFAULT 0,
	is_pinned         INTEGER NOT NULL DEFAULT 0,
	is_large_external INTEGER NOT NULL DEFAULT 0,
	encryption_iv     BLOB,
	inline_data       BLOB,
	has_data          INTEGER NOT NULL DEFAULT 0
);`

// Entry pairs a metadata record with whether its bytes were captured.
type Entry struct {
	Record  *models.ContentRecord
	HasData bool
}

// Restored is one row read back from the snapshot. HasData false means the
// row is a placeholder and the content must be re-requested.
type Restored struct {
	Record  models.ContentRecord
	HasData bool
}

// Store is the SQLite-backed snapshot of the metadata store.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (or creates) the snapshot database at path. Use ":memory:" for
// an ephemeral store in tests.
func Open(path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts one record. When hasData is false only the placeholder is
// persisted; the inline ciphertext, if any, is deliberately dropped.
func (s *Store) Save(ctx context.Context, rec *models.ContentRecord, hasData bool) error {
	return s.save(ctx, s.db, rec, hasData)
}

// SaveAll persists a batch of entries atomically.
func (s *Store) SaveAll(ctx context.Context, entries []Entry) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, e := range entries {
			if err := s.save(ctx, tx, e.Record, e.HasData); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) save(ctx context.Context, db dbx.DBTX, rec *models.ContentRecord, hasData bool) error {
	iv, inline := rec.EncryptionIV, rec.InlineData
	if !hasData {
		iv, inline = nil, nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO contents (content_id, sender_id, sender_name, content_type,
			mime_type, created_at, declared_size, is_chunked, fragment_count,
			is_pinned, is_large_external, encryption_iv, inline_data, has_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			sender_id = excluded.sender_id,
			sender_name = excluded.sender_name,
			content_type = excluded.content_type,
			mime_type = excluded.mime_type,
			created_at = excluded.created_at,
			declared_size = excluded.declared_size,
			is_chunked = excluded.is_chunked,
			fragment_count = excluded.fragment_count,
			is_pinned = excluded.is_pinned,
			is_large_external = excluded.is_large_external,
			encryption_iv = excluded.encryption_iv,
			inline_data = excluded.inline_data,
			has_data = excluded.has_data`,
		rec.ContentID, rec.SenderID, rec.SenderName, string(rec.ContentType),
		rec.MimeType, rec.CreatedAt, rec.DeclaredSize, rec.IsChunked,
		rec.DeclaredFragmentCount, rec.IsPinned, rec.IsLargeExternal,
		iv, inline, hasData)
	if err != nil {
		return fmt.Errorf("save snapshot row %s: %w", rec.ContentID, err)
	}
	return nil
}

// Load reads back every persisted row, sorted by creation time.
func (s *Store) Load(ctx context.Context) ([]Restored, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, sender_id, sender_name, content_type, mime_type,
			created_at, declared_size, is_chunked, fragment_count, is_pinned,
			is_large_external, encryption_iv, inline_data, has_data
		FROM contents ORDER BY created_at, content_id`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	var out []Restored
	for rows.Next() {
		var r Restored
		var contentType string
		if err := rows.Scan(&r.Record.ContentID, &r.Record.SenderID,
			&r.Record.SenderName, &contentType, &r.Record.MimeType,
			&r.Record.CreatedAt, &r.Record.DeclaredSize, &r.Record.IsChunked,
			&r.Record.DeclaredFragmentCount, &r.Record.IsPinned,
			&r.Record.IsLargeExternal, &r.Record.EncryptionIV,
			&r.Record.InlineData, &r.HasData); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		r.Record.ContentType = models.ContentType(contentType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return out, nil
}

// Remove deletes the row for id. Idempotent.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE content_id = ?`, id); err != nil {
		return fmt.Errorf("remove snapshot row %s: %w", id, err)
	}
	return nil
}
