package ttscache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/storage"
)

// Entry is the metadata half of a remote cache record.
type Entry struct {
	Key         string
	Text        string
	Voice       string
	ContentType ContentType
	Size        int64
}

// RemoteStore is the durable tier shared across processes. Implementations
// keep metadata and payload as two linked records and must never report a hit
// for metadata whose payload is missing.
type RemoteStore interface {
	// Fetch returns the audio for key, or ErrNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// Put upserts the metadata and payload for entry.Key.
	Put(ctx context.Context, entry Entry, audio []byte) error
	// ActiveCount returns the number of active metadata records.
	ActiveCount(ctx context.Context) (int64, error)
	Name() string
}

// NoRemote returns a RemoteStore that always misses. It stands in when no
// durable backend is configured.
func NoRemote() RemoteStore { return nopRemote{} }

type nopRemote struct{}

func (nopRemote) Fetch(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (nopRemote) Put(context.Context, Entry, []byte) error       { return nil }
func (nopRemote) ActiveCount(context.Context) (int64, error)     { return 0, nil }
func (nopRemote) Name() string                                   { return "none" }

// RemoteEnabled reports whether r is backed by real storage.
func RemoteEnabled(r RemoteStore) bool {
	if r == nil {
		return false
	}
	_, nop := r.(nopRemote)
	return !nop
}

// NewRemote picks the remote tier once, at construction. With backend "auto"
// a database pool wins over Supabase REST; with neither the tier is absent.
func NewRemote(backend string, db *pgxpool.Pool, sb config.SupabaseConfig, logger *slog.Logger) (RemoteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend {
	case "", "auto":
		if db != nil {
			return NewPostgresStore(db, logger), nil
		}
		if sb.Enabled() {
			return NewSupabaseStore(storage.NewSupabaseREST(sb.URL, sb.ServiceKey), logger), nil
		}
		logger.Warn("no remote tts cache configured, caching locally only")
		return NoRemote(), nil
	case "postgres":
		if db == nil {
			return nil, &config.ConfigurationError{Missing: []string{"DATABASE_URL"}}
		}
		return NewPostgresStore(db, logger), nil
	case "supabase":
		if err := config.Require("SUPABASE_URL", sb.URL, "SUPABASE_SERVICE_KEY", sb.ServiceKey); err != nil {
			return nil, err
		}
		return NewSupabaseStore(storage.NewSupabaseREST(sb.URL, sb.ServiceKey), logger), nil
	case "none":
		return NoRemote(), nil
	default:
		return nil, fmt.Errorf("unknown remote tts cache backend %q", backend)
	}
}
