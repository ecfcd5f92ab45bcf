package ttscache

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmReportsEveryItem(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
	}{
		{"sequential", 1},
		{"parallel", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &countingGenerator{failOn: map[string]bool{"q3": true, "q7": true}}
			c := newTestCache(t, newMemoryRemote(), gen, WithWarmConcurrency(tt.concurrency))
			ctx := context.Background()

			// two items already cached
			for _, text := range []string{"q0", "q1"} {
				_, err := c.Resolve(ctx, Request{Text: text, Voice: "nova"})
				require.NoError(t, err)
			}

			var items []WarmItem
			for i := 0; i < 10; i++ {
				items = append(items, WarmItem{Text: fmt.Sprintf("q%d", i), ContentType: ContentQuestion})
			}

			report := c.Warm(ctx, items, "nova")
			require.Len(t, report.Items, 10)
			assert.Equal(t, 8, report.Succeeded())
			assert.Equal(t, 2, report.Failed())

			for i, it := range report.Items {
				assert.Equal(t, items[i].Text, it.Text)
				failed := it.Text == "q3" || it.Text == "q7"
				assert.Equal(t, !failed, it.OK, it.Text)
				if failed {
					assert.NotEmpty(t, it.Error)
				}
			}
			assert.Equal(t, SourceLocal, report.Items[0].Source)
			assert.Equal(t, SourceGenerated, report.Items[2].Source)

			byText := report.ByText()
			assert.True(t, byText["q0"])
			assert.False(t, byText["q3"])
		})
	}
}

func TestWarmItemVoiceOverride(t *testing.T) {
	gen := &countingGenerator{}
	c := newTestCache(t, nil, gen)

	report := c.Warm(context.Background(), []WarmItem{
		{Text: "Hello"},
		{Text: "Hello", Voice: "onyx"},
	}, "nova")

	require.Equal(t, 2, report.Succeeded())
	assert.Equal(t, "nova", report.Items[0].Voice)
	assert.Equal(t, "onyx", report.Items[1].Voice)
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	release, err := g.TryAcquire(ctx, "tts:warm:nova")
	require.NoError(t, err)

	_, err = g.TryAcquire(ctx, "tts:warm:nova")
	assert.ErrorIs(t, err, ErrWarmInProgress)

	held, err := g.Held(ctx, "tts:warm:nova")
	require.NoError(t, err)
	assert.True(t, held)

	other, err := g.TryAcquire(ctx, "tts:warm:onyx")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := g.TryAcquire(ctx, "tts:warm:nova")
	require.NoError(t, err)
	again()
}

func TestWarmerRejectsOverlappingRun(t *testing.T) {
	gen := &countingGenerator{block: make(chan struct{})}
	c := newTestCache(t, nil, gen)
	w := NewWarmer(c, nil)
	ctx := context.Background()

	done := make(chan *WarmReport)
	go func() {
		report, err := w.Run(ctx, []WarmItem{{Text: "intro"}}, "nova")
		assert.NoError(t, err)
		done <- report
	}()
	for gen.calls.Load() == 0 {
		runtime.Gosched()
	}

	_, err := w.Run(ctx, []WarmItem{{Text: "outro"}}, "NOVA")
	assert.ErrorIs(t, err, ErrWarmInProgress)

	busy, err := w.InProgress(ctx, nil, "nova")
	require.NoError(t, err)
	assert.True(t, busy)
	busy, err = w.InProgress(ctx, nil, "onyx")
	require.NoError(t, err)
	assert.False(t, busy)

	close(gen.block)
	report := <-done
	assert.Equal(t, 1, report.Succeeded())

	busy, err = w.InProgress(ctx, nil, "nova")
	require.NoError(t, err)
	assert.False(t, busy)

	// guard released after completion
	report, err = w.Run(ctx, []WarmItem{{Text: "outro"}}, "nova")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded())
}
