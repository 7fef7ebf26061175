package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/ticket"
)

// TicketSender is implemented by ticket.Service.
type TicketSender interface {
	SendTicketsByRegistrationID(ctx context.Context, registrationID uint64) (ticket.Result, error)
	SendTicketByAttendeeID(ctx context.Context, attendeeID uint64) (ticket.Result, error)
}

// Consumer sends the tickets requested on the ticket queue.
type Consumer struct {
	url     string
	queue   string
	sender  TicketSender
	log     zerolog.Logger
	metrics Recorder
	// SendTimeout bounds one job.
	SendTimeout time.Duration
}

// NewConsumer returns a consumer of queue on the broker at url.
func NewConsumer(url, queue string, sender TicketSender, rec Recorder, log zerolog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultTicketQueue
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Consumer{url: url, queue: queue, sender: sender, log: log, metrics: rec, SendTimeout: 2 * time.Minute}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("ticket consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("ticket consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ticket jobs are slow; take a few at a time.
	if err := ch.Qos(5, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("ticket consumer: set QoS failed")
	}
	if _, err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info().Str("queue", c.queue).Msg("ticket consumer started")
	for d := range msgs {
		if err := c.Handle(ctx, d.Body); err != nil {
			c.metrics.QueueMessage("consume", "rejected")
			c.log.Error().Err(err).Msg("ticket consumer: job failed")
			// No requeue: a failing job would otherwise spin.
			_ = d.Nack(false, false)
			continue
		}
		c.metrics.QueueMessage("consume", "ack")
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle runs one job. Partial failures in per-attendee mode are logged
// but do not fail the job; those attendees can be resent individually.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var job TicketSendRequested
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if c.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.SendTimeout)
		defer cancel()
	}

	var (
		res ticket.Result
		err error
	)
	if job.AttendeeID != 0 {
		res, err = c.sender.SendTicketByAttendeeID(ctx, job.AttendeeID)
	} else {
		res, err = c.sender.SendTicketsByRegistrationID(ctx, job.RegistrationID)
	}
	if err != nil {
		return err
	}
	ev := c.log.Info()
	if res.FailedEmails > 0 {
		ev = c.log.Warn()
	}
	ev.Uint64("registration_id", res.RegistrationID).
		Str("mode", string(res.Mode)).
		Int("sent", res.SuccessfulEmails).
		Int("failed", res.FailedEmails).
		Msg("ticket job done")
	return nil
}
