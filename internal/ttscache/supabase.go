package ttscache

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/lifereview/internal/storage"
)

// SupabaseStore keeps the remote tier in the same two tables as PostgresStore,
// reached through PostgREST. Without transactions, Put writes the metadata
// inactive, then the payload, then activates it; a crash in between leaves an
// inactive row that lookups ignore.
type SupabaseStore struct {
	rest *storage.SupabaseREST
	log  *slog.Logger
}

func NewSupabaseStore(rest *storage.SupabaseREST, logger *slog.Logger) *SupabaseStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SupabaseStore{rest: rest, log: logger.With("component", "tts_remote_cache", "backend", "supabase")}
}

func (s *SupabaseStore) Name() string { return "supabase" }

type cacheRow struct {
	ID int64 `json:"id"`
}

type cacheMetaRow struct {
	ContentHash   string `json:"content_hash"`
	ContentText   string `json:"content_text"`
	Voice         string `json:"voice"`
	ContentType   string `json:"content_type"`
	AudioFileSize int64  `json:"audio_file_size"`
	IsActive      bool   `json:"is_active"`
}

type cacheFileRow struct {
	CacheID  int64  `json:"cache_id"`
	FileData string `json:"file_data"`
	FileSize int64  `json:"file_size"`
}

func (s *SupabaseStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	var meta []cacheRow
	err := s.rest.Select(ctx, "tts_cache", url.Values{
		"select":       {"id"},
		"content_hash": {"eq." + key},
		"is_active":    {"eq.true"},
		"limit":        {"1"},
	}, &meta)
	if err != nil {
		return nil, fmt.Errorf("query tts cache %s: %w", key, err)
	}
	if len(meta) == 0 {
		return nil, ErrNotFound
	}
	id := meta[0].ID

	var files []cacheFileRow
	err = s.rest.Select(ctx, "tts_cache_files", url.Values{
		"select":   {"file_data"},
		"cache_id": {"eq." + strconv.FormatInt(id, 10)},
		"limit":    {"1"},
	}, &files)
	if err != nil {
		return nil, fmt.Errorf("query tts cache payload %s: %w", key, err)
	}
	if len(files) == 0 || files[0].FileData == "" {
		s.deactivate(ctx, key, id)
		return nil, ErrNotFound
	}

	audio, err := decodeBytea(files[0].FileData)
	if err != nil {
		s.deactivate(ctx, key, id)
		return nil, ErrNotFound
	}
	return audio, nil
}

func (s *SupabaseStore) Put(ctx context.Context, entry Entry, audio []byte) error {
	var stored []cacheRow
	err := s.rest.Upsert(ctx, "tts_cache", "content_hash", []cacheMetaRow{{
		ContentHash:   entry.Key,
		ContentText:   entry.Text,
		Voice:         entry.Voice,
		ContentType:   string(entry.ContentType),
		AudioFileSize: entry.Size,
		IsActive:      false,
	}}, &stored)
	if err != nil {
		return fmt.Errorf("upsert metadata %s: %w", entry.Key, err)
	}
	if len(stored) == 0 {
		return fmt.Errorf("upsert metadata %s: no row returned", entry.Key)
	}
	id := stored[0].ID

	err = s.rest.Upsert(ctx, "tts_cache_files", "cache_id", []cacheFileRow{{
		CacheID:  id,
		FileData: encodeBytea(audio),
		FileSize: int64(len(audio)),
	}}, nil)
	if err != nil {
		return fmt.Errorf("upsert payload %s: %w", entry.Key, err)
	}

	err = s.rest.Update(ctx, "tts_cache", url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}, map[string]any{"is_active": true})
	if err != nil {
		return fmt.Errorf("activate %s: %w", entry.Key, err)
	}
	return nil
}

func (s *SupabaseStore) ActiveCount(ctx context.Context) (int64, error) {
	n, err := s.rest.Count(ctx, "tts_cache", url.Values{"is_active": {"eq.true"}})
	if err != nil {
		return 0, fmt.Errorf("count tts cache: %w", err)
	}
	return n, nil
}

func (s *SupabaseStore) deactivate(ctx context.Context, key string, id int64) {
	err := s.rest.Update(ctx, "tts_cache", url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}, map[string]any{"is_active": false})
	if err != nil {
		s.log.Warn("deactivate payload-less entry", "key", key, "id", id, "error", err)
		return
	}
	s.log.Warn("deactivated payload-less entry", "key", key, "id", id)
}

// PostgREST exchanges bytea columns as \x-prefixed hex text.
func encodeBytea(b []byte) string {
	return `\x` + hex.EncodeToString(b)
}

func decodeBytea(s string) ([]byte, error) {
	if !strings.HasPrefix(s, `\x`) {
		return nil, fmt.Errorf("unexpected bytea encoding")
	}
	return hex.DecodeString(s[2:])
}
