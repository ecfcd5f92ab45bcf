package ttscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the remote tier in the tts_cache and tts_cache_files
// tables. Both upserts of a Put share one transaction.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPostgresStore(db *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, log: logger.With("component", "tts_remote_cache", "backend", "postgres")}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	var (
		id   int64
		data []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT c.id, f.file_data
		FROM tts_cache c
		LEFT JOIN tts_cache_files f ON f.cache_id = c.id
		WHERE c.content_hash = $1 AND c.is_active
		LIMIT 1`, key).Scan(&id, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tts cache %s: %w", key, err)
	}

	if data == nil {
		if _, err := s.db.Exec(ctx, `UPDATE tts_cache SET is_active = false, updated_at = now() WHERE id = $1`, id); err != nil {
			s.log.Warn("deactivate payload-less entry", "key", key, "id", id, "error", err)
		} else {
			s.log.Warn("deactivated payload-less entry", "key", key, "id", id)
		}
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *PostgresStore) Put(ctx context.Context, entry Entry, audio []byte) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO tts_cache (content_hash, content_text, voice, content_type, audio_file_size, is_active)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (content_hash) DO UPDATE SET
				content_text = EXCLUDED.content_text,
				voice = EXCLUDED.voice,
				content_type = EXCLUDED.content_type,
				audio_file_size = EXCLUDED.audio_file_size,
				is_active = true,
				updated_at = now()
			RETURNING id`,
			entry.Key, entry.Text, entry.Voice, string(entry.ContentType), entry.Size,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert metadata: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tts_cache_files (cache_id, file_data, file_size)
			VALUES ($1, $2, $3)
			ON CONFLICT (cache_id) DO UPDATE SET
				file_data = EXCLUDED.file_data,
				file_size = EXCLUDED.file_size,
				updated_at = now()`,
			id, audio, int64(len(audio)),
		)
		if err != nil {
			return fmt.Errorf("upsert payload: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store tts cache %s: %w", entry.Key, err)
	}
	return nil
}

func (s *PostgresStore) ActiveCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM tts_cache WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tts cache: %w", err)
	}
	return n, nil
}
