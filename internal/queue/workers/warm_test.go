package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/lifereview/internal/queue"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

type fakeRunner struct {
	items  []ttscache.WarmItem
	voice  string
	report *ttscache.WarmReport
	err    error
}

func (f *fakeRunner) Run(_ context.Context, items []ttscache.WarmItem, voice string) (*ttscache.WarmReport, error) {
	f.items, f.voice = items, voice
	return f.report, f.err
}

func task(t *testing.T, p queue.TTSWarmPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeTTSWarm, data)
}

func defaults() []ttscache.WarmItem {
	return []ttscache.WarmItem{{Text: "intro"}, {Text: "outro"}}
}

func TestWarmWorkerUsesDefaults(t *testing.T) {
	r := &fakeRunner{report: &ttscache.WarmReport{Items: []ttscache.WarmResult{{Text: "intro", OK: true}, {Text: "outro", OK: true}}}}
	w := NewWarmWorker(r, defaults)

	require.NoError(t, w.ProcessTask(context.Background(), task(t, queue.TTSWarmPayload{Voice: "onyx"})))
	assert.Equal(t, "onyx", r.voice)
	assert.Len(t, r.items, 2)
}

func TestWarmWorkerExplicitItems(t *testing.T) {
	r := &fakeRunner{report: &ttscache.WarmReport{Items: []ttscache.WarmResult{{Text: "x", OK: true}}}}
	w := NewWarmWorker(r, defaults)

	require.NoError(t, w.ProcessTask(context.Background(), task(t, queue.TTSWarmPayload{Voice: "nova", Items: []ttscache.WarmItem{{Text: "x"}}})))
	assert.Equal(t, []ttscache.WarmItem{{Text: "x"}}, r.items)
}

func TestWarmWorkerSkipsWhenGuardHeld(t *testing.T) {
	w := NewWarmWorker(&fakeRunner{err: ttscache.ErrWarmInProgress}, defaults)
	assert.NoError(t, w.ProcessTask(context.Background(), task(t, queue.TTSWarmPayload{Voice: "nova"})))
}

func TestWarmWorkerReportsFailures(t *testing.T) {
	r := &fakeRunner{report: &ttscache.WarmReport{Items: []ttscache.WarmResult{{Text: "intro", OK: true}, {Text: "outro"}}}}
	w := NewWarmWorker(r, defaults)

	err := w.ProcessTask(context.Background(), task(t, queue.TTSWarmPayload{Voice: "nova"}))
	assert.ErrorContains(t, err, "1 of 2 items failed")
}

func TestWarmWorkerBadPayload(t *testing.T) {
	w := NewWarmWorker(&fakeRunner{}, defaults)
	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeTTSWarm, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
