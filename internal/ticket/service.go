package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/mailer"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Store loads the read-only snapshot a send is composed from.
// GetExtrasPurchase returns nil and no error when the registration bought
// no extras. Missing rows are reported as repository.ErrNotFound.
type Store interface {
	GetRegistration(ctx context.Context, id uint64) (model.Registration, error)
	GetEvent(ctx context.Context, id uint64) (model.Event, error)
	ListAttendees(ctx context.Context, registrationID uint64) ([]model.Attendee, error)
	GetAttendee(ctx context.Context, id uint64) (model.Attendee, error)
	GetExtrasPurchase(ctx context.Context, registrationID uint64) (*model.ExtrasPurchase, error)
	GetOrder(ctx context.Context, registrationID uint64) (model.Order, error)
}

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// Renderer renders a named HTML template.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// QREncoder turns a QR payload into PNG bytes.
type QREncoder interface {
	Encode(payload any) ([]byte, error)
}

// Recorder receives send metrics.
type Recorder interface {
	EmailSent(mode, status string)
	SendDuration(mode string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EmailSent(string, string)          {}
func (nopRecorder) SendDuration(string, time.Duration) {}

// Service loads registrations, composes their ticket emails and sends them.
type Service struct {
	store    Store
	composer *Composer
	mailer   Mailer
	renderer Renderer
	qr       QREncoder
	metrics  Recorder
	log      zerolog.Logger
}

// NewService wires a Service. A nil recorder disables metrics.
func NewService(store Store, composer *Composer, m Mailer, r Renderer, qr QREncoder, rec Recorder, log zerolog.Logger) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{
		store:    store,
		composer: composer,
		mailer:   m,
		renderer: r,
		qr:       qr,
		metrics:  rec,
		log:      log,
	}
}

// SendTicketsByRegistrationID sends every ticket of a registration.
//
// In INDIVIDUAL mode a failed email is recorded in the result and the
// remaining attendees are still processed. In GROUP mode the only email
// failing fails the call, and the partial Result is returned alongside the
// error.
func (s *Service) SendTicketsByRegistrationID(ctx context.Context, registrationID uint64) (Result, error) {
	in, err := s.load(ctx, registrationID)
	if err != nil {
		return Result{}, err
	}
	plan, err := s.composer.Compose(in)
	if err != nil {
		return Result{}, err
	}
	return s.dispatch(ctx, plan)
}

// SendTicketByAttendeeID resends the ticket of a single attendee. The email
// always uses the per-attendee layout; extras go along when the attendee is
// the primary one.
func (s *Service) SendTicketByAttendeeID(ctx context.Context, attendeeID uint64) (Result, error) {
	a, err := s.store.GetAttendee(ctx, attendeeID)
	if err != nil {
		return Result{}, notFound(err, "attendee %d", attendeeID)
	}
	in, err := s.load(ctx, a.RegistrationID)
	if err != nil {
		return Result{}, err
	}
	plan, err := s.composer.ComposeForAttendee(in, attendeeID)
	if err != nil {
		return Result{}, err
	}
	res, err := s.dispatch(ctx, plan)
	if err != nil {
		return res, err
	}
	if res.FailedEmails > 0 {
		return res, fmt.Errorf("%w: %s", mailer.ErrDelivery, res.Results[0].Error)
	}
	return res, nil
}

func (s *Service) load(ctx context.Context, registrationID uint64) (Input, error) {
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return Input{}, notFound(err, "registration %d", registrationID)
	}
	ev, err := s.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		return Input{}, notFound(err, "event %d", reg.EventID)
	}
	attendees, err := s.store.ListAttendees(ctx, registrationID)
	if err != nil {
		return Input{}, fmt.Errorf("list attendees: %w", err)
	}
	extras, err := s.store.GetExtrasPurchase(ctx, registrationID)
	if err != nil {
		return Input{}, fmt.Errorf("get extras purchase: %w", err)
	}
	order, err := s.store.GetOrder(ctx, registrationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Input{}, fmt.Errorf("get order: %w", err)
	}
	return Input{
		Registration: reg,
		Event:        ev,
		Attendees:    attendees,
		Extras:       extras,
		Order:        order,
	}, nil
}

func (s *Service) dispatch(ctx context.Context, plan Plan) (Result, error) {
	start := time.Now()
	mode := string(plan.Mode)
	defer func() { s.metrics.SendDuration(mode, time.Since(start)) }()

	res := Result{
		RegistrationID: plan.RegistrationID,
		Mode:           plan.Mode,
		TotalAttendees: len(plan.Recipients),
		Results:        make([]SendResult, 0, len(plan.Recipients)),
	}
	if plan.Mode == ModeGroup {
		res.TotalAttendees = plan.TotalTickets
	}

	for _, rc := range plan.Recipients {
		sr := SendResult{AttendeeID: rc.Attendee.ID, Email: rc.Attendee.Email}
		id, err := s.send(ctx, rc)
		if err != nil {
			s.metrics.EmailSent(mode, "failure")
			s.log.Error().Err(err).
				Uint64("registration_id", plan.RegistrationID).
				Uint64("attendee_id", rc.Attendee.ID).
				Str("mode", mode).
				Msg("ticket email failed")
			sr.Error = err.Error()
			res.FailedEmails++
			res.Results = append(res.Results, sr)
			if plan.Mode == ModeGroup {
				return res, fmt.Errorf("send group ticket for registration %d: %w", plan.RegistrationID, err)
			}
			continue
		}
		s.metrics.EmailSent(mode, "success")
		sr.MessageID = id
		sr.Success = true
		res.SuccessfulEmails++
		res.Results = append(res.Results, sr)
	}

	s.log.Info().
		Uint64("registration_id", plan.RegistrationID).
		Str("mode", mode).
		Int("sent", res.SuccessfulEmails).
		Int("failed", res.FailedEmails).
		Msg("ticket emails processed")
	return res, nil
}

// send encodes the QR codes, renders the body and hands the message to the
// mailer.
func (s *Service) send(ctx context.Context, rc Recipient) (string, error) {
	msg := mailer.Message{To: rc.Attendee.Email, Subject: rc.Subject}
	for _, a := range rc.Attachments {
		png, err := s.qr.Encode(a.Payload)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", a.Name, err)
		}
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Name:        a.Name,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     png,
			Inline:      true,
		})
	}
	html, err := s.renderer.Render(TemplateName, rc.Vars)
	if err != nil {
		return "", err
	}
	msg.HTML = html
	return s.mailer.Send(ctx, msg)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
