// Package queue moves ticket send jobs through RabbitMQ so that HTTP
// requests do not wait on the SMTP server.
package queue

import (
	"errors"
	"time"
)

// DefaultTicketQueue is the durable queue ticket jobs are published to.
const DefaultTicketQueue = "ticket.send"

// TicketSendRequested asks the worker to send tickets. With AttendeeID set
// only that attendee's ticket is resent; otherwise every ticket of the
// registration goes out.
type TicketSendRequested struct {
	RegistrationID uint64    `json:"registration_id"`
	AttendeeID     uint64    `json:"attendee_id,omitempty"`
	RequestedBy    uint64    `json:"requested_by,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
}

// Validate rejects jobs that name nothing to send.
func (e TicketSendRequested) Validate() error {
	if e.RegistrationID == 0 && e.AttendeeID == 0 {
		return errors.New("queue: job needs a registration or attendee id")
	}
	return nil
}
