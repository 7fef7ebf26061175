package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Recorder counts queue traffic.
type Recorder interface {
	QueueMessage(operation, status string)
}

type nopRecorder struct{}

func (nopRecorder) QueueMessage(string, string) {}

// Publisher publishes ticket jobs. A connection is opened per publish;
// sends are triggered by admins, not by bulk traffic.
type Publisher struct {
	url     string
	queue   string
	log     zerolog.Logger
	metrics Recorder
}

// NewPublisher returns a Publisher for the broker at url. An empty queue
// name means DefaultTicketQueue.
func NewPublisher(url, queue string, rec Recorder, log zerolog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultTicketQueue
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Publisher{url: url, queue: queue, log: log, metrics: rec}
}

// Publish sends job as a persistent JSON message to the ticket queue.
func (p *Publisher) Publish(ctx context.Context, job TicketSendRequested) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := p.publish(ctx, body); err != nil {
		p.metrics.QueueMessage("publish", "error")
		p.log.Error().Err(err).Uint64("registration_id", job.RegistrationID).Msg("publish ticket job failed")
		return err
	}
	p.metrics.QueueMessage("publish", "ok")
	p.log.Info().Uint64("registration_id", job.RegistrationID).Uint64("attendee_id", job.AttendeeID).Msg("ticket job queued")
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("queue: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("queue: channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, p.queue); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// declare makes sure the durable queue exists. It is idempotent.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return q, fmt.Errorf("queue: declare %s: %w", name, err)
	}
	return q, nil
}
