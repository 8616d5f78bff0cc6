package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
	"github.com/taotie8304/lu-gang-connect-project/internal/repository"
)

type Scheduler struct {
	cron     *cron.Cron
	sessions *repository.SessionRepository
	producer *queue.Producer
	log      zerolog.Logger
}

func NewScheduler(sessions *repository.SessionRepository, producer *queue.Producer, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		producer: producer,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.enqueueReconcile); err != nil { // hourly billing probe
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and returns a func that waits for running jobs,
// bounded to five seconds.
func (s *Scheduler) Stop() context.CancelFunc {
	stopCtx := s.cron.Stop()
	return func() {
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			s.log.Warn().Msg("scheduler jobs still running at shutdown")
		}
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("expired sessions purged")
	}
}

func (s *Scheduler) enqueueReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.producer.Enqueue(ctx, queue.Task{Type: queue.TaskReconcile}); err != nil {
		s.log.Error().Err(err).Msg("enqueue reconcile failed")
	}
}
