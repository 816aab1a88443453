package intake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
	"github.com/jwalitptl/vet-portal/pkg/security"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

type Action string

const (
	ActionAccept     Action = "accept"
	ActionReject     Action = "reject"
	ActionReschedule Action = "reschedule"
)

// Decision is an administrator's disposition of a pending request.
type Decision struct {
	Action         Action `json:"action"`
	Notes          string `json:"notes"`
	VeterinarianID string `json:"veterinarian_id"`
	NewDate        string `json:"new_date"`
	NewTime        string `json:"new_time"`
}

type PromoteInput struct {
	ConsultationType string           `json:"consultation_type"`
	Location         string           `json:"location"`
	Price            *decimal.Decimal `json:"price"`
	OwnerID          string           `json:"owner_id"`
}

// StatusError reports an action on a request that is no longer in the right status.
type StatusError struct {
	Status model.PreAppointmentStatus
	Action string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot %s a pre-appointment that is %s", e.Action, e.Status)
}

type Options struct {
	DefaultPassword string
	Now             func() time.Time
}

type Service struct {
	store           *store.Store
	validator       validator.Validator
	hasher          security.PasswordHasher
	log             *logger.Logger
	metrics         *metrics.Metrics
	defaultPassword string
	now             func() time.Time
}

func NewService(st *store.Store, v validator.Validator, hasher security.PasswordHasher, log *logger.Logger, m *metrics.Metrics, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:           st,
		validator:       v,
		hasher:          hasher,
		log:             log.With("service", "intake"),
		metrics:         m,
		defaultPassword: opts.DefaultPassword,
		now:             opts.Now,
	}
}

func requireAdmin(actor model.Identity) error {
	if actor.Role != model.RoleAdministrator {
		return apperrors.Forbidden("only administrators process pre-appointments")
	}
	return nil
}

// Submit records an unauthenticated scheduling request as pending.
func (s *Service) Submit(ctx context.Context, req model.SubmitPreAppointmentRequest) (model.PreAppointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return model.PreAppointment{}, err
	}
	pre := model.PreAppointment{
		ID:            model.NewID(),
		RequesterName: strings.TrimSpace(req.RequesterName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		PetName:       strings.TrimSpace(req.PetName),
		Species:       strings.TrimSpace(req.Species),
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Reason:        strings.TrimSpace(req.Reason),
		Status:        model.PreAppointmentStatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.AddPreAppointment(ctx, pre); err != nil {
		return model.PreAppointment{}, fmt.Errorf("failed to submit pre-appointment: %w", err)
	}
	s.log.Info("pre-appointment submitted", "id", pre.ID)
	return pre, nil
}

// Process applies an administrator decision. Every input is checked before the
// record is touched.
func (s *Service) Process(ctx context.Context, actor model.Identity, id string, d Decision) (model.PreAppointment, error) {
	if err := requireAdmin(actor); err != nil {
		return model.PreAppointment{}, err
	}
	switch d.Action {
	case ActionAccept, ActionReject, ActionReschedule:
	default:
		return model.PreAppointment{}, apperrors.Validation("action", "action must be accept, reject or reschedule")
	}

	if strings.TrimSpace(d.Notes) == "" {
		return model.PreAppointment{}, apperrors.Validation("notes", "notes is required")
	}

	var vet *model.Person
	if d.Action == ActionReject {
		d.VeterinarianID = ""
	}
	if d.VeterinarianID != "" {
		p, err := s.store.GetPerson(d.VeterinarianID)
		if err != nil || p.Role != model.RoleVeterinarian {
			return model.PreAppointment{}, apperrors.Validation("veterinarian_id", "veterinarian_id is not a known veterinarian")
		}
		vet = &p
	} else if d.Action == ActionAccept {
		return model.PreAppointment{}, apperrors.Validation("veterinarian_id", "veterinarian_id is required")
	}

	if d.Action == ActionReschedule {
		if err := checkSlot(d.NewDate, d.NewTime); err != nil {
			return model.PreAppointment{}, err
		}
	}

	now := s.now().UTC()
	updated, err := s.store.UpdatePreAppointment(ctx, id, func(pre *model.PreAppointment) error {
		if pre.Status != model.PreAppointmentStatusPending {
			return apperrors.InvalidTransition(&StatusError{Status: pre.Status, Action: string(d.Action)})
		}
		pre.AdminNotes = d.Notes
		pre.ProcessedAt = &now
		if vet != nil {
			pre.VeterinarianID = vet.ID
			pre.VeterinarianName = vet.Name
		}
		switch d.Action {
		case ActionAccept:
			pre.Status = model.PreAppointmentStatusAccepted
		case ActionReject:
			pre.Status = model.PreAppointmentStatusRejected
		case ActionReschedule:
			pre.RescheduledDate = d.NewDate
			pre.RescheduledTime = d.NewTime
		}
		return nil
	})
	if err != nil {
		return model.PreAppointment{}, err
	}

	if s.metrics != nil {
		s.metrics.IntakeDecisions.WithLabelValues(string(d.Action)).Inc()
	}
	s.log.Info("pre-appointment processed", "id", id, "action", string(d.Action))
	return updated, nil
}

func checkSlot(date, clock string) error {
	if strings.TrimSpace(date) == "" {
		return apperrors.Validation("new_date", "new_date is required")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperrors.Validation("new_date", "new_date must be a date in YYYY-MM-DD format")
	}
	if strings.TrimSpace(clock) == "" {
		return apperrors.Validation("new_time", "new_time is required")
	}
	if _, err := time.Parse(model.TimeLayout, clock); err != nil {
		return apperrors.Validation("new_time", "new_time must be a time in HH:MM format")
	}
	return nil
}

// Promote turns an accepted request into a pending_payment appointment and links both.
func (s *Service) Promote(ctx context.Context, actor model.Identity, id string, in PromoteInput) (model.Appointment, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Appointment{}, err
	}
	if in.Price != nil && in.Price.IsNegative() {
		return model.Appointment{}, apperrors.Validation("price", "price must not be negative")
	}

	pre, err := s.store.GetPreAppointment(id)
	if err != nil {
		return model.Appointment{}, err
	}
	if pre.Status != model.PreAppointmentStatusAccepted {
		return model.Appointment{}, apperrors.InvalidTransition(&StatusError{Status: pre.Status, Action: "promote"})
	}
	if pre.AppointmentID != "" {
		return model.Appointment{}, apperrors.Conflict("pre-appointment was already promoted", nil)
	}

	ownerID := in.OwnerID
	if ownerID == "" {
		ownerID = pre.AccountID
	}
	if ownerID == "" {
		if p, ok := s.store.PersonByEmail(pre.Email); ok && p.Role == model.RoleClient {
			ownerID = p.ID
		}
	}
	if ownerID != "" {
		if _, err := s.store.GetPerson(ownerID); err != nil {
			return model.Appointment{}, apperrors.Validation("owner_id", "owner_id does not match a known person")
		}
	}

	date, clock := pre.Slot()
	now := s.now().UTC()
	apt := model.Appointment{
		ID:               model.NewID(),
		OwnerID:          ownerID,
		PetName:          pre.PetName,
		Species:          pre.Species,
		VeterinarianID:   pre.VeterinarianID,
		VeterinarianName: pre.VeterinarianName,
		Date:             date,
		Time:             clock,
		ConsultationType: in.ConsultationType,
		Reason:           pre.Reason,
		Location:         in.Location,
		Price:            in.Price,
		Status:           model.AppointmentStatusPendingPayment,
		AdminNotes:       pre.AdminNotes,
		PreAppointmentID: pre.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ownerID != "" {
		for _, pet := range s.store.PetsByOwner(ownerID) {
			if strings.TrimSpace(pet.Name) == strings.TrimSpace(pre.PetName) {
				apt.PetID = pet.ID
				break
			}
		}
	}

	if err := s.store.AddAppointment(ctx, apt); err != nil {
		return model.Appointment{}, fmt.Errorf("failed to create appointment: %w", err)
	}
	if _, err := s.store.UpdatePreAppointment(ctx, id, func(p *model.PreAppointment) error {
		p.AppointmentID = apt.ID
		return nil
	}); err != nil {
		if derr := s.store.DeleteAppointment(ctx, apt.ID); derr != nil {
			s.log.Error(derr, "failed to remove unlinked appointment", "appointment_id", apt.ID)
		}
		return model.Appointment{}, err
	}

	s.log.Info("pre-appointment promoted", "id", id, "appointment_id", apt.ID)
	return apt, nil
}

// ProvisionAccount creates a client account from the request's contact data. The
// pet named in the request is not registered.
func (s *Service) ProvisionAccount(ctx context.Context, actor model.Identity, id string) (model.Person, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Person{}, err
	}
	pre, err := s.store.GetPreAppointment(id)
	if err != nil {
		return model.Person{}, err
	}
	if pre.AccountID != "" {
		return model.Person{}, apperrors.Conflict("an account was already created for this request", nil)
	}
	if _, exists := s.store.PersonByEmail(pre.Email); exists {
		return model.Person{}, apperrors.Conflict(fmt.Sprintf("an account with email %s already exists", pre.Email), nil)
	}

	hash, err := s.hasher.Hash(s.defaultPassword)
	if err != nil {
		return model.Person{}, apperrors.Internal(fmt.Errorf("hash default password: %w", err))
	}

	person := model.Person{
		ID:           model.NewID(),
		Name:         pre.RequesterName,
		Email:        pre.Email,
		Phone:        pre.Phone,
		Role:         model.RoleClient,
		PasswordHash: hash,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.store.AddPerson(ctx, person); err != nil {
		return model.Person{}, fmt.Errorf("failed to create account: %w", err)
	}
	if _, err := s.store.UpdatePreAppointment(ctx, id, func(p *model.PreAppointment) error {
		p.AccountID = person.ID
		return nil
	}); err != nil {
		if derr := s.store.DeletePerson(ctx, person.ID); derr != nil {
			s.log.Error(derr, "failed to remove unlinked account", "person_id", person.ID)
		}
		return model.Person{}, err
	}

	s.log.Info("client account provisioned", "id", id, "person_id", person.ID)
	person.PasswordHash = ""
	return person, nil
}

// List returns every request, newest first.
func (s *Service) List(_ context.Context, actor model.Identity) ([]model.PreAppointment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items := s.store.PreAppointments()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}
