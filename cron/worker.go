package cron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"salescompagent/config"
	sessionArchiveRepo "salescompagent/database/repository/sessionarchive"
	"salescompagent/models"
	"salescompagent/services/agent"
	"salescompagent/services/tasks"

	"github.com/hibiken/asynq"
)

var ticketHTTPClient = &http.Client{Timeout: 10 * time.Second}

// InitTaskWorker runs the async worker in background. It owns the two
// fire-and-forget side effects: opening tickets against the external ticket
// system and archiving terminal sessions out of the live store.
func InitTaskWorker(store agent.SessionStore, archive sessionArchiveRepo.SessionArchiveRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeTicketOpen, handleTicketOpen)
	mux.HandleFunc(tasks.TypeSessionArchive, handleSessionArchive(store, archive))
	mux.HandleFunc(tasks.TypeReminderSend, handleReminderSend)
	mux.HandleFunc(tasks.TypeIntakeSend, handleIntakeSend)

	go func() {
		log.Println("[TaskWorker] starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[TaskWorker] failed to start worker: %v", err)
		}
	}()
}

// handleTicketOpen forwards the session summary to the ticket service.
func handleTicketOpen(ctx context.Context, task *asynq.Task) error {
	var p models.TicketPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[TicketHandler] invalid payload: %v", err)
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.AppConfig.TicketServiceURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ticketHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ticket service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticket service returned status %d", resp.StatusCode)
	}

	log.Printf("[TicketHandler] ticket opened for session %s", p.SessionID)
	return nil
}

// handleReminderSend delivers a consultation reminder shortly before the
// booked slot. Delivery goes through the notification webhook; without one
// configured the reminder is just logged.
func handleReminderSend(ctx context.Context, task *asynq.Task) error {
	var p models.ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[ReminderHandler] invalid payload: %v", err)
		return err
	}

	webhook := config.AppConfig.ReminderWebhookURL
	if webhook == "" {
		log.Printf("[ReminderHandler] reminder due for session %s at %s (no webhook configured)",
			p.SessionID, p.Slot.Start)
		return nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build reminder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ticketHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("reminder webhook unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("reminder webhook returned status %d", resp.StatusCode)
	}

	log.Printf("[ReminderHandler] reminder sent for session %s", p.SessionID)
	return nil
}

// handleIntakeSend asks the intake service to email the consultation form to
// the attendee. Without an endpoint configured the task is a logged no-op.
func handleIntakeSend(ctx context.Context, task *asynq.Task) error {
	var p models.IntakePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[IntakeHandler] invalid payload: %v", err)
		return err
	}

	endpoint := config.AppConfig.IntakeServiceURL
	if endpoint == "" {
		log.Printf("[IntakeHandler] intake form due for session %s (no intake service configured)", p.SessionID)
		return nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal intake request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build intake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ticketHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("intake service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("intake service returned status %d", resp.StatusCode)
	}

	log.Printf("[IntakeHandler] intake form sent for session %s", p.SessionID)
	return nil
}

// handleSessionArchive moves a terminal session from Redis into Mongo.
func handleSessionArchive(store agent.SessionStore, archive sessionArchiveRepo.SessionArchiveRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ArchivePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ArchiveHandler] invalid payload: %v", err)
			return err
		}

		session, err := store.Get(ctx, p.SessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", p.SessionID, err)
		}
		if session == nil {
			// Already expired or archived; nothing to do.
			return nil
		}

		if err := archive.Insert(ctx, session); err != nil {
			return err
		}
		if err := store.Clear(ctx, p.SessionID); err != nil {
			return fmt.Errorf("failed to clear archived session %s: %w", p.SessionID, err)
		}

		log.Printf("[ArchiveHandler] session %s archived", p.SessionID)
		return nil
	}
}
