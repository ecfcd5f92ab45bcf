package ttscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nikhilbhutani/lifereview/internal/metrics"
)

type ContentType string

const (
	ContentNarrative ContentType = "narrative"
	ContentQuestion  ContentType = "question"
	ContentOther     ContentType = "other"
)

// ParseContentType maps anything unrecognised to ContentOther.
func ParseContentType(s string) ContentType {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentNarrative:
		return ContentNarrative
	case ContentQuestion:
		return ContentQuestion
	default:
		return ContentOther
	}
}

// Source names the tier that answered a Resolve.
type Source string

const (
	SourceLocal     Source = "local"
	SourceRemote    Source = "remote"
	SourceGenerated Source = "generated"
)

type Request struct {
	Text        string
	Voice       string
	ContentType ContentType
}

type Result struct {
	Key    string `json:"key"`
	Path   string `json:"path"`
	Source Source `json:"source"`
	Size   int64  `json:"size"`
}

type Stats struct {
	RemoteEntries int64  `json:"remote_entries"`
	LocalFiles    int    `json:"local_files"`
	MemoryIndex   int    `json:"memory_cache"`
	RemoteEnabled bool   `json:"remote_enabled"`
	RemoteBackend string `json:"remote_backend"`
}

type Option func(*Cache)

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithDefaultVoice sets the voice used when a request leaves it empty.
func WithDefaultVoice(v string) Option {
	return func(c *Cache) {
		if v = NormalizeVoice(v); v != "" {
			c.defaultVoice = v
		}
	}
}

// WithRemoteTimeout bounds the remote write that follows a generation.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.remoteTimeout = d
		}
	}
}

// WithWarmConcurrency sets how many items Warm resolves at once.
func WithWarmConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.warmConcurrency = n
		}
	}
}

// Cache resolves (text, voice) pairs to local audio files, checking the local
// tier, then the remote tier, and generating only on a full miss. It is the
// only writer of either tier.
type Cache struct {
	local  *LocalStore
	remote RemoteStore
	gen    Generator

	log             *slog.Logger
	metrics         *metrics.Metrics
	defaultVoice    string
	remoteTimeout   time.Duration
	warmConcurrency int

	flights singleflight.Group
	joined  func(key string) // called once a Resolve is attached to a flight
}

func New(local *LocalStore, remote RemoteStore, gen Generator, opts ...Option) *Cache {
	if remote == nil {
		remote = NoRemote()
	}
	c := &Cache{
		local:           local,
		remote:          remote,
		gen:             gen,
		log:             slog.Default(),
		defaultVoice:    "nova",
		remoteTimeout:   30 * time.Second,
		warmConcurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "tts_cache")
	return c
}

func (c *Cache) DefaultVoice() string { return c.defaultVoice }

func (c *Cache) Local() *LocalStore { return c.local }

// LocalPath returns the cached file for key if the local tier has it.
func (c *Cache) LocalPath(key string) (string, bool) {
	if !ValidKey(key) {
		return "", false
	}
	return c.local.Lookup(key)
}

// Resolve returns the local path of audio for req, generating it at most once
// across both tiers. Only generation and local write failures are returned,
// always as a *GenerationError; remote tier trouble degrades to a miss.
func (c *Cache) Resolve(ctx context.Context, req Request) (*Result, error) {
	text := NormalizeText(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	voice := NormalizeVoice(req.Voice)
	if voice == "" {
		voice = c.defaultVoice
	}
	ct := ParseContentType(string(req.ContentType))
	key := DeriveKey(text, voice)

	if res, ok := c.lookupLocal(key); ok {
		c.metrics.CacheLookup(string(SourceLocal))
		return res, nil
	}

	res, err := c.lookupRemote(ctx, key)
	if err != nil {
		return nil, err
	}
	if res != nil {
		c.metrics.CacheLookup(string(SourceRemote))
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, &GenerationError{Key: key, Err: err}
	}

	// The flight outlives any one waiter; the generator bounds it with its own timeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		// A flight that finished just before this one started may have filled the local tier.
		if res, ok := c.lookupLocal(key); ok {
			return res, nil
		}
		return c.generate(flightCtx, Entry{Key: key, Text: text, Voice: voice, ContentType: ct})
	})
	if c.joined != nil {
		c.joined(key)
	}

	select {
	case <-ctx.Done():
		return nil, &GenerationError{Key: key, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*Result)
		c.metrics.CacheLookup(string(res.Source))
		return &res, nil
	}
}

func (c *Cache) lookupLocal(key string) (*Result, bool) {
	path, ok := c.local.Lookup(key)
	if !ok {
		return nil, false
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return &Result{Key: key, Path: path, Source: SourceLocal, Size: size}, true
}

// lookupRemote returns nil, nil on a miss.
func (c *Cache) lookupRemote(ctx context.Context, key string) (*Result, error) {
	audio, err := c.remote.Fetch(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		c.log.Warn("remote lookup failed, treating as miss", "key", key, "backend", c.remote.Name(), "error", err)
		return nil, nil
	case len(audio) == 0:
		return nil, nil
	}

	path, err := c.local.Store(key, audio)
	if err != nil {
		c.log.Error("store remote hit locally", "key", key, "error", err)
		return nil, &GenerationError{Key: key, Err: fmt.Errorf("store locally: %w", err)}
	}
	c.log.Debug("pulled audio from remote tier", "key", key, "bytes", len(audio))
	return &Result{Key: key, Path: path, Source: SourceRemote, Size: int64(len(audio))}, nil
}

func (c *Cache) generate(ctx context.Context, entry Entry) (*Result, error) {
	start := time.Now()
	audio, err := c.gen.Synthesize(ctx, entry.Text, entry.Voice)
	c.metrics.Generation(err == nil, time.Since(start))
	if err != nil {
		c.log.Error("speech generation failed", "key", entry.Key, "voice", entry.Voice, "error", err)
		return nil, &GenerationError{Key: entry.Key, Err: err}
	}
	if len(audio) == 0 {
		return nil, &GenerationError{Key: entry.Key, Err: errors.New("generator returned no audio")}
	}

	path, err := c.local.Store(entry.Key, audio)
	if err != nil {
		c.log.Error("store generated audio locally", "key", entry.Key, "error", err)
		return nil, &GenerationError{Key: entry.Key, Err: fmt.Errorf("store locally: %w", err)}
	}

	entry.Size = int64(len(audio))
	c.storeRemote(ctx, entry, audio)

	c.log.Info("generated speech", "key", entry.Key, "voice", entry.Voice, "content_type", entry.ContentType,
		"bytes", entry.Size, "duration", time.Since(start))
	return &Result{Key: entry.Key, Path: path, Source: SourceGenerated, Size: entry.Size}, nil
}

// storeRemote writes through to the remote tier. The caller's cancellation is
// ignored so an abandoned request still leaves a complete remote entry.
func (c *Cache) storeRemote(ctx context.Context, entry Entry, audio []byte) {
	if !RemoteEnabled(c.remote) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.remoteTimeout)
	defer cancel()

	err := c.remote.Put(ctx, entry, audio)
	c.metrics.RemoteWrite(err == nil)
	if err != nil {
		c.log.Warn("remote tier write failed, audio cached locally only",
			"key", entry.Key, "backend", c.remote.Name(), "error", err)
	}
}

// Stats reports tier sizes. A remote count failure is logged and reported as zero.
func (c *Cache) Stats(ctx context.Context) Stats {
	st := Stats{
		MemoryIndex:   c.local.IndexSize(),
		RemoteEnabled: RemoteEnabled(c.remote),
		RemoteBackend: c.remote.Name(),
	}

	files, err := c.local.FileCount()
	if err != nil {
		c.log.Warn("count local cache files", "error", err)
	}
	st.LocalFiles = files

	if st.RemoteEnabled {
		n, err := c.remote.ActiveCount(ctx)
		if err != nil {
			c.log.Warn("count remote cache entries", "backend", c.remote.Name(), "error", err)
		}
		st.RemoteEntries = n
	}
	return st
}

// ClearLocal empties the local tier only.
func (c *Cache) ClearLocal() error {
	if err := c.local.Clear(); err != nil {
		return err
	}
	c.log.Info("cleared local tts cache", "dir", c.local.Dir())
	return nil
}
