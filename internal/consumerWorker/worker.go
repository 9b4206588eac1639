package consumerWorker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"festify/internal/dto"
	"festify/internal/mailer"
	"festify/internal/rabbit"
)

// Reader drains the notification queue and hands each message to the mailer.
// Delivery failures are retried a few times and then dropped with a log
// line; they never flow back into the domain layer.
type Reader struct {
	RMQ    *rabbit.Client
	mail   *mailer.Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, mail *mailer.Mailer) *Reader {
	return &Reader{
		RMQ:  rmq,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("Notification reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.NotificationMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal notification: %s", string(body))
				return nil
			}

			zlog.Logger.Info().
				Str("notification_id", msg.ID).
				Str("recipient", msg.RecipientEmail).
				Msg("Received notification from RabbitMQ")

			err := retry.Do(func() error {
				return r.mail.Send(msg.RecipientEmail, msg.Subject, msg.Body)
			}, retry.Strategy{Attempts: 3, Delay: 2 * time.Second, Backoff: 2})
			if err != nil {
				zlog.Logger.Warn().
					Err(err).
					Str("notification_id", msg.ID).
					Str("recipient", msg.RecipientEmail).
					Msg("Dropping notification after retries")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("Notification reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
