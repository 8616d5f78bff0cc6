// Package tasks executes billing sync work dequeued by the worker. Errors
// are logged and messages retried through the stream's pending/claim
// cycle; nothing here ever reaches a user-facing request.
package tasks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/oneapi"
	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
)

type Processor struct {
	billing *oneapi.Client
	log     zerolog.Logger
}

func NewProcessor(billing *oneapi.Client, log zerolog.Logger) *Processor {
	return &Processor{
		billing: billing,
		log:     log,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType := stringValue(msg, "type")

	switch taskType {
	case queue.TaskSyncUser:
		return p.syncUser(ctx, msg)
	case queue.TaskSetStatus:
		return p.setStatus(ctx, msg)
	case queue.TaskReconcile:
		return p.reconcile(ctx)
	default:
		p.log.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task type dropped")
		return nil
	}
}

func (p *Processor) syncUser(ctx context.Context, msg redis.XMessage) error {
	username := stringValue(msg, "username")
	if username == "" {
		p.log.Warn().Str("message_id", msg.ID).Msg("sync task without username dropped")
		return nil
	}
	displayName := stringValue(msg, "display_name")
	if displayName == "" {
		displayName = username
	}

	user, err := p.billing.SyncUser(ctx, username, displayName)
	if err != nil {
		return fmt.Errorf("sync user %s: %w", username, err)
	}

	p.log.Info().
		Str("username", username).
		Int64("billing_id", user.ID).
		Msg("billing account synced")
	return nil
}

func (p *Processor) setStatus(ctx context.Context, msg redis.XMessage) error {
	username := stringValue(msg, "username")
	status, err := strconv.Atoi(stringValue(msg, "status"))
	if err != nil || username == "" {
		p.log.Warn().Str("message_id", msg.ID).Msg("malformed status task dropped")
		return nil
	}

	user, err := p.billing.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user %s: %w", username, err)
	}
	if err := p.billing.UpdateUserStatus(ctx, user.ID, status); err != nil {
		return fmt.Errorf("update status for %s: %w", username, err)
	}

	p.log.Info().Str("username", username).Int("status", status).Msg("billing status updated")
	return nil
}

func (p *Processor) reconcile(ctx context.Context) error {
	if !p.billing.Health(ctx) {
		p.log.Warn().Msg("one api health check failed")
	}
	return nil
}

func stringValue(msg redis.XMessage, key string) string {
	if v, ok := msg.Values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
