package payment

import (
	"context"
	"strings"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/lifecycle"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
)

// DefaultRejectionNotes is stored when an administrator rejects a proof without notes.
const DefaultRejectionNotes = "Payment proof rejected: the submitted proof could not be validated."

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type Decision struct {
	Action Action `json:"action" validate:"required,oneof=approve reject"`
	Notes  string `json:"notes"`
}

// AppointmentReader and Transitioner are satisfied by the store and the appointment service.
type AppointmentReader interface {
	GetAppointment(id string) (model.Appointment, error)
}

type Transitioner interface {
	Transition(ctx context.Context, actor model.Identity, id string, change lifecycle.Change) (model.Appointment, error)
}

type Service struct {
	appointments   AppointmentReader
	transitions    Transitioner
	rejectionNotes string
	log            *logger.Logger
	metrics        *metrics.Metrics
}

// NewService builds the review workflow. An empty rejectionNotes uses DefaultRejectionNotes.
func NewService(appointments AppointmentReader, transitions Transitioner, rejectionNotes string, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(rejectionNotes) == "" {
		rejectionNotes = DefaultRejectionNotes
	}
	return &Service{
		appointments:   appointments,
		transitions:    transitions,
		rejectionNotes: rejectionNotes,
		log:            log.With("service", "payment"),
		metrics:        m,
	}
}

// Review approves or rejects the payment proof of an appointment under review.
func (s *Service) Review(ctx context.Context, actor model.Identity, appointmentID string, d Decision) (model.Appointment, error) {
	if actor.Role != model.RoleAdministrator {
		return model.Appointment{}, apperrors.Forbidden("only administrators review payments")
	}

	apt, err := s.appointments.GetAppointment(appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if apt.Status != model.AppointmentStatusUnderReview {
		return model.Appointment{}, apperrors.InvalidTransition(&lifecycle.TransitionError{
			From: apt.Status, To: target(d.Action), Reason: "payment is not under review",
		})
	}
	if strings.TrimSpace(apt.PaymentProof) == "" {
		return model.Appointment{}, apperrors.Validation("payment_proof", "appointment has no payment proof to review")
	}

	notes := strings.TrimSpace(d.Notes)
	var change lifecycle.Change
	switch d.Action {
	case ActionApprove:
		change = lifecycle.Change{To: model.AppointmentStatusConfirmed, Notes: notes}
	case ActionReject:
		if notes == "" {
			notes = s.rejectionNotes
		}
		change = lifecycle.Change{To: model.AppointmentStatusRejected, Notes: notes}
	default:
		return model.Appointment{}, apperrors.Validation("action", "action must be approve or reject")
	}

	updated, err := s.transitions.Transition(ctx, actor, appointmentID, change)
	if err != nil {
		return model.Appointment{}, err
	}
	if s.metrics != nil {
		s.metrics.PaymentReviews.WithLabelValues(string(d.Action)).Inc()
	}
	s.log.Info("payment reviewed", "id", appointmentID, "action", string(d.Action))
	return updated, nil
}

func target(a Action) model.AppointmentStatus {
	if a == ActionReject {
		return model.AppointmentStatusRejected
	}
	return model.AppointmentStatusConfirmed
}
