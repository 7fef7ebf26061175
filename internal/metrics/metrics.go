// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_emails_total",
			Help: "Ticket emails attempted, by send mode and outcome",
		},
		[]string{"mode", "status"},
	)

	ticketSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_send_duration_seconds",
			Help:    "Duration of a whole ticket send for one registration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"mode"},
	)

	queueMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_queue_messages_total",
			Help: "Ticket send jobs seen on the queue",
		},
		[]string{"operation", "status"},
	)
)

// Recorder is the set of observations made by the ticket service. The
// zero value records into the default registry.
type Recorder struct{}

// EmailSent counts one email attempt. status is "success" or "failure".
func (Recorder) EmailSent(mode, status string) {
	ticketEmails.WithLabelValues(mode, status).Inc()
}

// SendDuration observes how long a send took.
func (Recorder) SendDuration(mode string, d time.Duration) {
	ticketSendDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// QueueMessage counts a publish or consume of a ticket job.
func (Recorder) QueueMessage(operation, status string) {
	queueMessages.WithLabelValues(operation, status).Inc()
}
