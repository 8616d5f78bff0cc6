// Package queue carries billing sync work between the API and the worker
// over a redis stream, so external One API calls never run inside a
// request's lifetime.
package queue

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskSyncUser  = "sync_user"
	TaskSetStatus = "set_status"
	TaskReconcile = "reconcile"
)

type Task struct {
	Type        string
	Username    string
	DisplayName string
	Status      int
}

type Producer struct {
	client *redis.Client
	stream string
	log    zerolog.Logger
}

func NewProducer(client *redis.Client, stream string, log zerolog.Logger) *Producer {
	return &Producer{
		client: client,
		stream: stream,
		log:    log,
	}
}

func (p *Producer) Enqueue(ctx context.Context, task Task) error {
	values := map[string]any{
		"type": task.Type,
	}
	if task.Username != "" {
		values["username"] = task.Username
	}
	if task.DisplayName != "" {
		values["display_name"] = task.DisplayName
	}
	if task.Status != 0 {
		values["status"] = strconv.Itoa(task.Status)
	}

	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	return err
}
