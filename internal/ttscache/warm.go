package ttscache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/lifereview/internal/cache"
)

// WarmItem is one text to pre-generate. An empty Voice falls back to the
// voice passed to Warm.
type WarmItem struct {
	Text        string      `json:"text"`
	Voice       string      `json:"voice,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
}

type WarmResult struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	OK     bool   `json:"success"`
	Source Source `json:"source,omitempty"`
	Size   int64  `json:"size,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WarmReport holds one result per input item, in input order.
type WarmReport struct {
	Items []WarmResult
}

// ByText maps each text to whether it ended up cached. When a text appears
// more than once it is reported successful only if every occurrence was.
func (r *WarmReport) ByText() map[string]bool {
	out := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		if prev, seen := out[it.Text]; seen {
			out[it.Text] = prev && it.OK
			continue
		}
		out[it.Text] = it.OK
	}
	return out
}

func (r *WarmReport) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.OK {
			n++
		}
	}
	return n
}

func (r *WarmReport) Failed() int { return len(r.Items) - r.Succeeded() }

// Warm resolves every item and reports per-item success. Items are
// independent; a failure never stops the rest.
func (c *Cache) Warm(ctx context.Context, items []WarmItem, voice string) *WarmReport {
	report := &WarmReport{Items: make([]WarmResult, len(items))}

	g := new(errgroup.Group)
	g.SetLimit(c.warmConcurrency)

	for i, item := range items {
		v := item.Voice
		if strings.TrimSpace(v) == "" {
			v = voice
		}
		g.Go(func() error {
			res, err := c.Resolve(ctx, Request{Text: item.Text, Voice: v, ContentType: item.ContentType})
			out := WarmResult{Text: item.Text, Voice: NormalizeVoice(v)}
			if out.Voice == "" {
				out.Voice = c.defaultVoice
			}
			if err != nil {
				out.Error = err.Error()
				c.log.Warn("pre-cache item failed", "voice", out.Voice, "text", preview(item.Text), "error", err)
			} else {
				out.OK = true
				out.Source = res.Source
				out.Size = res.Size
			}
			c.metrics.WarmItem(out.OK)
			report.Items[i] = out
			return nil
		})
	}
	g.Wait()

	c.log.Info("pre-cache finished", "voice", voice, "total", len(items), "succeeded", report.Succeeded())
	return report
}

func preview(s string) string {
	if r := []rune(s); len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}

// Guard admits at most one holder per name.
type Guard interface {
	// TryAcquire returns a release func, or ErrWarmInProgress when name is held.
	TryAcquire(ctx context.Context, name string) (release func(), err error)
	// Held reports whether name is currently taken, without taking it.
	Held(ctx context.Context, name string) (bool, error)
}

// LocalGuard is an in-process Guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]bool)}
}

func (g *LocalGuard) TryAcquire(_ context.Context, name string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[name] {
		return nil, ErrWarmInProgress
	}
	g.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, name)
			g.mu.Unlock()
		})
	}, nil
}

func (g *LocalGuard) Held(_ context.Context, name string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[name], nil
}

// RedisGuard shares the guard between processes through an expiring lease,
// so a crashed holder blocks others for at most ttl.
type RedisGuard struct {
	leases *cache.Leases
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisGuard(leases *cache.Leases, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisGuard{leases: leases, ttl: ttl, log: logger}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, name string) (func(), error) {
	lease, err := g.leases.Acquire(ctx, name, g.ttl)
	if errors.Is(err, cache.ErrLeaseHeld) {
		return nil, ErrWarmInProgress
	}
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(ctx); err != nil {
			g.log.Warn("release warm lease", "key", lease.Key(), "error", err)
		}
	}, nil
}

func (g *RedisGuard) Held(ctx context.Context, name string) (bool, error) {
	return g.leases.Held(ctx, name)
}

// Warmer runs Warm under a Guard keyed by the voice set.
type Warmer struct {
	cache *Cache
	guard Guard
}

func NewWarmer(c *Cache, guard Guard) *Warmer {
	if guard == nil {
		guard = NewLocalGuard()
	}
	return &Warmer{cache: c, guard: guard}
}

// Run warms items unless another run for the same voices holds the guard,
// in which case it returns ErrWarmInProgress. The guard is released however
// Run exits.
func (w *Warmer) Run(ctx context.Context, items []WarmItem, voice string) (*WarmReport, error) {
	release, err := w.guard.TryAcquire(ctx, w.guardName(items, voice))
	if err != nil {
		return nil, err
	}
	defer release()

	return w.cache.Warm(ctx, items, voice), nil
}

// InProgress reports whether a run for the same voices holds the guard.
func (w *Warmer) InProgress(ctx context.Context, items []WarmItem, voice string) (bool, error) {
	return w.guard.Held(ctx, w.guardName(items, voice))
}

func (w *Warmer) guardName(items []WarmItem, voice string) string {
	fallback := NormalizeVoice(voice)
	if fallback == "" {
		fallback = w.cache.defaultVoice
	}
	set := map[string]bool{fallback: true}
	for _, it := range items {
		if v := NormalizeVoice(it.Voice); v != "" {
			set[v] = true
		}
	}
	voices := make([]string, 0, len(set))
	for v := range set {
		voices = append(voices, v)
	}
	sort.Strings(voices)
	return "tts:warm:" + strings.Join(voices, ",")
}
