package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"salescompagent/config"
	"salescompagent/models"

	"github.com/hibiken/asynq"
)

const (
	TypeTicketOpen     = "ticket:open"
	TypeSessionArchive = "session:archive"
)

// Client enqueues fire-and-forget side effects onto the task queue. It
// satisfies the router's TicketSystem and SessionArchiver boundaries.
type Client struct {
	inner *asynq.Client
}

func NewClient() *Client {
	return &Client{
		inner: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisTaskDB,
		}),
	}
}

// Open enqueues a ticket-creation task. The ticket itself is opened by the
// background worker; the router only decides that it should happen.
func (c *Client) Open(ctx context.Context, payload models.TicketPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket payload: %w", err)
	}
	if _, err := c.inner.EnqueueContext(ctx, asynq.NewTask(TypeTicketOpen, b)); err != nil {
		return fmt.Errorf("failed to enqueue ticket task: %w", err)
	}
	return nil
}

// ArchiveSession enqueues the move of a terminal session into the archive.
func (c *Client) ArchiveSession(ctx context.Context, sessionID string) error {
	b, err := json.Marshal(models.ArchivePayload{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal archive payload: %w", err)
	}
	if _, err := c.inner.EnqueueContext(ctx, asynq.NewTask(TypeSessionArchive, b)); err != nil {
		return fmt.Errorf("failed to enqueue archive task: %w", err)
	}
	return nil
}
