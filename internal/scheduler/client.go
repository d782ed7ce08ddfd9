package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"dealflow_backend/platform/config"
)

const defaultQueue = "default"

// Client enqueues background tasks on the asynq queue. The sms and ingest
// modules reach it through their Enqueuer ports.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates a new task queue client.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  defaultQueue,
	}, nil
}

// Close releases the underlying redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueCampaignDispatch schedules a campaign send.
func (c *Client) EnqueueCampaignDispatch(ctx context.Context, campaignID uuid.UUID) error {
	task, err := NewCampaignDispatchTask(CampaignDispatchPayload{CampaignID: campaignID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
	return err
}

// EnqueueSourceRun schedules a data source import.
func (c *Client) EnqueueSourceRun(ctx context.Context, sourceKey string) error {
	task, err := NewSourceRunTask(SourceRunPayload{SourceKey: sourceKey})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(2))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
