package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
)

const mailMaxRetry = 5

// Client enqueues tasks. It satisfies landlord.MailQueue.
type Client struct {
	client *asynq.Client
}

// NewClient opens an Asynq client on redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueMail validates msg and queues a mail:send task.
func (c *Client) EnqueueMail(ctx context.Context, msg notify.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	task, err := NewSendEmailTask(SendEmailPayload{To: msg.To, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(mailMaxRetry))
	return err
}

// Trigger enqueues a scheduled task now, by name, with its default payload.
func (c *Client) Trigger(ctx context.Context, name string, windowDays int) (*asynq.TaskInfo, error) {
	task, err := NewTaskByName(name, windowDays)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(DailyMaxRetry))
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
