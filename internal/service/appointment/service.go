package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/enrichment"
	"github.com/jwalitptl/vet-portal/internal/service/lifecycle"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

type Options struct {
	Location         *time.Location
	MediumWindowDays int
	Now              func() time.Time
}

type Service struct {
	store     *store.Store
	validator validator.Validator
	log       *logger.Logger
	metrics   *metrics.Metrics
	enricher  enrichment.Enricher
	now       func() time.Time
}

func NewService(st *store.Store, v validator.Validator, log *logger.Logger, m *metrics.Metrics, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     st,
		validator: v,
		log:       log.With("service", "appointment"),
		metrics:   m,
		enricher:  enrichment.Enricher{MediumWindowDays: opts.MediumWindowDays, Location: opts.Location},
		now:       opts.Now,
	}
}

// Request creates a pending_payment appointment. Clients always book for themselves.
func (s *Service) Request(ctx context.Context, actor model.Identity, req model.CreateAppointmentRequest) (model.Appointment, error) {
	switch actor.Role {
	case model.RoleClient:
		req.OwnerID = actor.PersonID
	case model.RoleAdministrator:
	case model.RoleVeterinarian:
		return model.Appointment{}, apperrors.Forbidden("veterinarians cannot request appointments")
	default:
		return model.Appointment{}, apperrors.Forbidden("unknown role")
	}
	if err := s.validator.Validate(req); err != nil {
		return model.Appointment{}, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return model.Appointment{}, apperrors.Validation("price", "price must not be negative")
	}

	now := s.now().UTC()
	apt := model.Appointment{
		ID:               model.NewID(),
		OwnerID:          req.OwnerID,
		PetName:          strings.TrimSpace(req.PetName),
		Species:          strings.TrimSpace(req.Species),
		Date:             req.Date,
		Time:             req.Time,
		ConsultationType: req.ConsultationType,
		Reason:           strings.TrimSpace(req.Reason),
		Location:         req.Location,
		Price:            req.Price,
		Status:           model.AppointmentStatusPendingPayment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if req.PetID != "" {
		pet, err := s.store.GetPet(req.PetID)
		if err != nil {
			return model.Appointment{}, err
		}
		if apt.OwnerID != "" && pet.OwnerID != apt.OwnerID {
			return model.Appointment{}, apperrors.Validation("pet_id", "pet_id does not belong to the owner")
		}
		apt.PetID = pet.ID
		apt.PetName = pet.Name
		apt.Species = pet.Species
		apt.OwnerID = pet.OwnerID
	}
	if req.VeterinarianID != "" {
		vet, err := s.veterinarian(req.VeterinarianID)
		if err != nil {
			return model.Appointment{}, err
		}
		apt.VeterinarianID = vet.ID
		apt.VeterinarianName = vet.Name
	}

	if err := s.store.AddAppointment(ctx, apt); err != nil {
		return model.Appointment{}, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.log.Info("appointment requested", "id", apt.ID, "owner_id", apt.OwnerID)
	return apt, nil
}

func (s *Service) veterinarian(id string) (model.Person, error) {
	p, err := s.store.GetPerson(id)
	if err != nil {
		return model.Person{}, apperrors.Validation("veterinarian_id", "veterinarian_id does not match a known person")
	}
	if p.Role != model.RoleVeterinarian {
		return model.Person{}, apperrors.Validation("veterinarian_id", "veterinarian_id is not a veterinarian")
	}
	return p, nil
}

// Transition moves an appointment through the state graph and persists it. Clients
// may only touch their own appointments and veterinarians only the ones assigned
// to them.
func (s *Service) Transition(ctx context.Context, actor model.Identity, id string, change lifecycle.Change) (model.Appointment, error) {
	var from model.AppointmentStatus
	updated, err := s.store.UpdateAppointment(ctx, id, func(apt *model.Appointment) error {
		if err := s.authorize(apt, actor); err != nil {
			return err
		}
		from = apt.Status
		return lifecycle.Apply(apt, actor, change, s.now())
	})
	if err != nil {
		return model.Appointment{}, err
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(from), string(updated.Status)).Inc()
	}
	s.log.Info("appointment status changed", "id", id, "from", string(from), "to", string(updated.Status), "actor", actor.PersonID)
	return updated, nil
}

func (s *Service) authorize(apt *model.Appointment, actor model.Identity) error {
	switch actor.Role {
	case model.RoleAdministrator:
		return nil
	case model.RoleClient:
		if apt.OwnerID == "" || apt.OwnerID != actor.PersonID {
			return apperrors.Forbidden("appointment belongs to another client")
		}
		return nil
	case model.RoleVeterinarian:
		if !assignedTo(apt, actor) {
			return apperrors.Forbidden("appointment is assigned to another veterinarian")
		}
		return nil
	default:
		return apperrors.Forbidden("unknown role")
	}
}

// assignedTo matches vet the same way reads are scoped: by id when one is stored,
// otherwise by display name. Appointments with neither are open to any veterinarian.
func assignedTo(apt *model.Appointment, vet model.Identity) bool {
	if apt.VeterinarianID != "" {
		return apt.VeterinarianID == vet.PersonID
	}
	stored := strings.TrimSpace(apt.VeterinarianName)
	if stored == "" {
		return true
	}
	return strings.EqualFold(stored, strings.TrimSpace(vet.Name))
}

// AttachPaymentProof moves a pending_payment appointment to under_review.
func (s *Service) AttachPaymentProof(ctx context.Context, actor model.Identity, id string, proof string, price *decimal.Decimal) (model.Appointment, error) {
	return s.Transition(ctx, actor, id, lifecycle.Change{
		To:           model.AppointmentStatusUnderReview,
		PaymentProof: proof,
		Price:        price,
	})
}

// Attend stores the clinical record and moves the appointment to attended as one
// unit: the record is removed again if the transition cannot be persisted.
func (s *Service) Attend(ctx context.Context, actor model.Identity, id string, input model.ClinicalRecordInput) (model.ClinicalRecord, error) {
	if err := s.validator.Validate(input); err != nil {
		return model.ClinicalRecord{}, err
	}

	apt, err := s.store.GetAppointment(id)
	if err != nil {
		return model.ClinicalRecord{}, err
	}
	change := lifecycle.Change{
		To:               model.AppointmentStatusAttended,
		VeterinarianID:   actor.PersonID,
		VeterinarianName: actor.Name,
	}
	dryRun := apt
	if err := s.authorize(&dryRun, actor); err != nil {
		return model.ClinicalRecord{}, err
	}
	if err := lifecycle.Apply(&dryRun, actor, change, s.now()); err != nil {
		return model.ClinicalRecord{}, err
	}

	snap := s.store.Snapshot()
	joined := enrichment.Enrich(apt, snap.Pets, snap.People, nil, s.now())
	now := s.now().UTC()
	record := model.ClinicalRecord{
		ID:               model.NewID(),
		PetName:          apt.PetName,
		AppointmentID:    apt.ID,
		Date:             now,
		VeterinarianName: actor.Name,
		Motive:           strings.TrimSpace(input.Motive),
		Diagnosis:        input.Diagnosis,
		Treatment:        input.Treatment,
		Vitals:           input.Vitals,
		Medications:      input.Medications,
		Vaccines:         input.Vaccines,
		Exams:            input.Exams,
		Services:         input.Services,
		Attachments:      input.Attachments,
		NextVisit:        input.NextVisit,
		CreatedAt:        now,
	}
	if joined.Pet.Kind == enrichment.RefRegistered {
		record.PetID = joined.Pet.Pet.ID
		record.PetName = joined.Pet.Pet.Name
	}

	if err := s.store.AddClinicalRecord(ctx, record); err != nil {
		return model.ClinicalRecord{}, fmt.Errorf("failed to store clinical record: %w", err)
	}
	if _, err := s.Transition(ctx, actor, id, change); err != nil {
		if derr := s.store.DeleteClinicalRecord(ctx, record.ID); derr != nil {
			s.log.Error(derr, "failed to remove clinical record of unattended appointment", "record_id", record.ID)
		}
		return model.ClinicalRecord{}, err
	}
	return record, nil
}

func (s *Service) MarkNoShow(ctx context.Context, actor model.Identity, id string) (model.Appointment, error) {
	change := lifecycle.Change{To: model.AppointmentStatusNoShow}
	if actor.Role == model.RoleVeterinarian {
		change.VeterinarianID = actor.PersonID
		change.VeterinarianName = actor.Name
	}
	return s.Transition(ctx, actor, id, change)
}

// Cancel is legal from any non-final status. The reason, when given, is kept apart
// from the administrator's notes.
func (s *Service) Cancel(ctx context.Context, actor model.Identity, id string, reason string) (model.Appointment, error) {
	return s.Transition(ctx, actor, id, lifecycle.Change{
		To:    model.AppointmentStatusCancelled,
		Notes: strings.TrimSpace(reason),
	})
}

// Get returns one enriched appointment if actor may see it.
func (s *Service) Get(_ context.Context, actor model.Identity, id string) (enrichment.Enriched, error) {
	apt, err := s.store.GetAppointment(id)
	if err != nil {
		return enrichment.Enriched{}, err
	}
	snap := s.store.Snapshot()
	items := s.enricher.All([]model.Appointment{apt}, snap.Pets, snap.People, snap.Records, s.now())
	visible := enrichment.Scope(items, actor)
	if len(visible) == 0 {
		return enrichment.Enriched{}, apperrors.NotFound("appointment", nil)
	}
	return visible[0], nil
}

// ListEnriched returns what actor may see, filtered then sorted.
func (s *Service) ListEnriched(_ context.Context, actor model.Identity, criteria enrichment.Criteria, key enrichment.SortKey) []enrichment.Enriched {
	items := enrichment.Scope(s.enrichAll(), actor)
	return enrichment.Sort(enrichment.Filter(items, criteria), key)
}

func (s *Service) Stats(_ context.Context, actor model.Identity) enrichment.Stats {
	items := enrichment.Scope(s.enrichAll(), actor)
	return enrichment.ComputeStats(items, s.asOf())
}

func (s *Service) enrichAll() []enrichment.Enriched {
	snap := s.store.Snapshot()
	return s.enricher.All(snap.Appointments, snap.Pets, snap.People, snap.Records, s.now())
}

func (s *Service) asOf() time.Time {
	return s.now().In(s.enricher.Location)
}
