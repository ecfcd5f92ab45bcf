package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lifereview/internal/config"
)

// ErrAlreadyQueued is returned when an identical task is still pending.
var ErrAlreadyQueued = errors.New("task already queued")

type Client struct {
	client    *asynq.Client
	uniqueTTL time.Duration
}

func NewClient(cfg config.RedisConfig, uniqueTTL time.Duration) *Client {
	if uniqueTTL <= 0 {
		uniqueTTL = 15 * time.Minute
	}
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		uniqueTTL: uniqueTTL,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueTTSWarm queues a pre-warm run. Duplicate payloads collapse while the
// first is still pending.
func (c *Client) EnqueueTTSWarm(ctx context.Context, payload TTSWarmPayload) (string, error) {
	return c.enqueue(ctx, TypeTTSWarm, payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(c.uniqueTTL),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", ErrAlreadyQueued
	}
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return info.ID, nil
}
