package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/vet-portal/internal/model"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

// Change describes a requested status move and the side fields that go with it.
// Fields that do not apply to the target status are ignored.
type Change struct {
	To               model.AppointmentStatus
	Notes            string
	PaymentProof     string
	Price            *decimal.Decimal
	VeterinarianID   string
	VeterinarianName string
}

// TransitionError reports a move the state graph does not allow.
type TransitionError struct {
	From   model.AppointmentStatus
	To     model.AppointmentStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move appointment from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

type edge struct {
	from model.AppointmentStatus
	to   model.AppointmentStatus
}

type rule struct {
	roles []model.Role
	check func(apt *model.Appointment, c Change) error
}

var (
	clientOrAdmin = []model.Role{model.RoleClient, model.RoleAdministrator}
	vetOrAdmin    = []model.Role{model.RoleVeterinarian, model.RoleAdministrator}
)

var table = map[edge]rule{
	{model.AppointmentStatusPendingPayment, model.AppointmentStatusUnderReview}: {
		roles: []model.Role{model.RoleClient},
		check: requireProofAndPrice,
	},
	{model.AppointmentStatusUnderReview, model.AppointmentStatusConfirmed}: {
		roles: []model.Role{model.RoleAdministrator},
	},
	{model.AppointmentStatusUnderReview, model.AppointmentStatusRejected}: {
		roles: []model.Role{model.RoleAdministrator},
		check: requireNotes,
	},
	{model.AppointmentStatusConfirmed, model.AppointmentStatusAttended}: {
		roles: []model.Role{model.RoleVeterinarian},
	},
	{model.AppointmentStatusConfirmed, model.AppointmentStatusNoShow}: {
		roles: vetOrAdmin,
	},
	{model.AppointmentStatusPendingPayment, model.AppointmentStatusCancelled}: {roles: clientOrAdmin},
	{model.AppointmentStatusUnderReview, model.AppointmentStatusCancelled}:    {roles: clientOrAdmin},
	{model.AppointmentStatusConfirmed, model.AppointmentStatusCancelled}:      {roles: clientOrAdmin},
}

func requireProofAndPrice(apt *model.Appointment, c Change) error {
	if strings.TrimSpace(c.PaymentProof) == "" {
		return apperrors.Validation("payment_proof", "payment_proof is required")
	}
	if c.Price == nil && apt.Price == nil {
		return apperrors.Validation("price", "price is required")
	}
	if c.Price != nil && c.Price.IsNegative() {
		return apperrors.Validation("price", "price must not be negative")
	}
	return nil
}

func requireNotes(_ *model.Appointment, c Change) error {
	if strings.TrimSpace(c.Notes) == "" {
		return apperrors.Validation("notes", "notes is required")
	}
	return nil
}

// IsTerminal reports whether s is absorbing.
func IsTerminal(s model.AppointmentStatus) bool {
	switch s {
	case model.AppointmentStatusRejected, model.AppointmentStatusExpired,
		model.AppointmentStatusCancelled, model.AppointmentStatusNoShow,
		model.AppointmentStatusAttended:
		return true
	case model.AppointmentStatusPendingPayment, model.AppointmentStatusUnderReview,
		model.AppointmentStatusConfirmed:
		return false
	default:
		return false
	}
}

// Allowed reports whether the graph has an edge from -> to, regardless of role.
func Allowed(from, to model.AppointmentStatus) bool {
	_, ok := table[edge{from, to}]
	return ok
}

// Next lists the statuses reachable from s by role, in status declaration order.
func Next(s model.AppointmentStatus, role model.Role) []model.AppointmentStatus {
	var out []model.AppointmentStatus
	for _, to := range model.AppointmentStatuses {
		r, ok := table[edge{s, to}]
		if ok && permits(r.roles, role) {
			out = append(out, to)
		}
	}
	return out
}

func permits(roles []model.Role, role model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Apply validates and performs a status move on apt in place. Checks run in order:
// graph edge, actor role, required side fields. apt is untouched unless all pass.
func Apply(apt *model.Appointment, actor model.Identity, c Change, now time.Time) error {
	if !apt.Status.Valid() {
		return apperrors.InvalidTransition(&TransitionError{From: apt.Status, To: c.To, Reason: "unknown current status"})
	}
	if !c.To.Valid() {
		return apperrors.InvalidTransition(&TransitionError{From: apt.Status, To: c.To, Reason: "unknown target status"})
	}

	r, ok := table[edge{apt.Status, c.To}]
	if !ok {
		reason := ""
		if IsTerminal(apt.Status) {
			reason = "current status is final"
		}
		return apperrors.InvalidTransition(&TransitionError{From: apt.Status, To: c.To, Reason: reason})
	}
	if !permits(r.roles, actor.Role) {
		return apperrors.Forbidden(fmt.Sprintf("%s may not move an appointment to %s", roleLabel(actor.Role), c.To))
	}
	if r.check != nil {
		if err := r.check(apt, c); err != nil {
			return err
		}
	}

	switch c.To {
	case model.AppointmentStatusUnderReview:
		apt.PaymentProof = strings.TrimSpace(c.PaymentProof)
		if c.Price != nil {
			p := *c.Price
			apt.Price = &p
		}
	case model.AppointmentStatusConfirmed, model.AppointmentStatusRejected:
		if c.Notes != "" {
			apt.AdminNotes = c.Notes
		}
	case model.AppointmentStatusCancelled:
		if c.Notes != "" {
			apt.CancelReason = c.Notes
		}
	case model.AppointmentStatusAttended, model.AppointmentStatusNoShow:
		if c.VeterinarianID != "" {
			apt.VeterinarianID = c.VeterinarianID
		}
		if c.VeterinarianName != "" {
			apt.VeterinarianName = c.VeterinarianName
		}
	case model.AppointmentStatusPendingPayment, model.AppointmentStatusExpired:
		// unreachable through the table
	default:
		return apperrors.InvalidTransition(&TransitionError{From: apt.Status, To: c.To, Reason: "unknown target status"})
	}

	apt.Status = c.To
	at := now.UTC()
	apt.StatusChangedAt = &at
	apt.UpdatedAt = at
	return nil
}

// EffectiveStatus is the status shown to readers. An appointment still under review
// once its scheduled time has passed reads as expired. Nothing is written.
func EffectiveStatus(apt *model.Appointment, now time.Time) model.AppointmentStatus {
	if apt.Status != model.AppointmentStatusUnderReview {
		return apt.Status
	}
	at, err := apt.ScheduledAt(now.Location())
	if err != nil {
		return apt.Status
	}
	if at.Before(now) {
		return model.AppointmentStatusExpired
	}
	return apt.Status
}

func roleLabel(r model.Role) string {
	if r == "" {
		return "anonymous user"
	}
	return string(r)
}
