package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lifereview/internal/queue"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

// WarmRunner is satisfied by *ttscache.Warmer.
type WarmRunner interface {
	Run(ctx context.Context, items []ttscache.WarmItem, voice string) (*ttscache.WarmReport, error)
}

type WarmWorker struct {
	runner   WarmRunner
	defaults func() []ttscache.WarmItem
}

func NewWarmWorker(runner WarmRunner, defaults func() []ttscache.WarmItem) *WarmWorker {
	return &WarmWorker{runner: runner, defaults: defaults}
}

func (w *WarmWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TTSWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	items := payload.Items
	if len(items) == 0 && w.defaults != nil {
		items = w.defaults()
	}

	slog.Info("running tts warm task", "voice", payload.Voice, "items", len(items))

	report, err := w.runner.Run(ctx, items, payload.Voice)
	if errors.Is(err, ttscache.ErrWarmInProgress) {
		slog.Info("tts warm already running elsewhere, skipping", "voice", payload.Voice)
		return nil
	}
	if err != nil {
		return fmt.Errorf("warm: %w", err)
	}

	slog.Info("tts warm task completed", "voice", payload.Voice,
		"succeeded", report.Succeeded(), "failed", report.Failed())
	if report.Failed() > 0 {
		// Cached items resolve locally on retry, so only failures are regenerated.
		return fmt.Errorf("%d of %d items failed", report.Failed(), len(report.Items))
	}
	return nil
}
