package pet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

type Service struct {
	store     *store.Store
	validator validator.Validator
	log       *logger.Logger
	now       func() time.Time
}

func NewService(st *store.Store, v validator.Validator, log *logger.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, validator: v, log: log.With("service", "pet"), now: now}
}

// List returns a client's own pets. Staff see every pet, or one owner's when ownerID is set.
func (s *Service) List(_ context.Context, actor model.Identity, ownerID string) ([]model.Pet, error) {
	switch actor.Role {
	case model.RoleClient:
		return s.store.PetsByOwner(actor.PersonID), nil
	case model.RoleVeterinarian, model.RoleAdministrator:
		if ownerID != "" {
			return s.store.PetsByOwner(ownerID), nil
		}
		return s.store.Pets(), nil
	default:
		return nil, apperrors.Forbidden("unknown role")
	}
}

func (s *Service) Create(ctx context.Context, actor model.Identity, req model.CreatePetRequest) (model.Pet, error) {
	switch actor.Role {
	case model.RoleClient:
		req.OwnerID = actor.PersonID
	case model.RoleAdministrator:
		if req.OwnerID == "" {
			return model.Pet{}, apperrors.Validation("owner_id", "owner_id is required")
		}
	default:
		return model.Pet{}, apperrors.Forbidden("only clients and administrators register pets")
	}
	if err := s.validator.Validate(req); err != nil {
		return model.Pet{}, err
	}
	owner, err := s.store.GetPerson(req.OwnerID)
	if err != nil || owner.Role != model.RoleClient {
		return model.Pet{}, apperrors.Validation("owner_id", "owner_id is not a known client")
	}
	name := strings.TrimSpace(req.Name)
	for _, p := range s.store.PetsByOwner(owner.ID) {
		if strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return model.Pet{}, apperrors.Conflict(fmt.Sprintf("owner already has a pet named %s", name), nil)
		}
	}

	pet := model.Pet{
		ID:        model.NewID(),
		Name:      name,
		Species:   strings.TrimSpace(req.Species),
		Breed:     req.Breed,
		OwnerID:   owner.ID,
		BirthDate: req.BirthDate,
		Weight:    req.Weight,
		Microchip: req.Microchip,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AddPet(ctx, pet); err != nil {
		return model.Pet{}, err
	}
	s.log.Info("pet registered", "id", pet.ID, "owner_id", pet.OwnerID)
	return pet, nil
}

func (s *Service) authorize(actor model.Identity, id string) (model.Pet, error) {
	p, err := s.store.GetPet(id)
	if err != nil {
		return model.Pet{}, err
	}
	switch actor.Role {
	case model.RoleAdministrator:
		return p, nil
	case model.RoleClient:
		if p.OwnerID == actor.PersonID {
			return p, nil
		}
	}
	return model.Pet{}, apperrors.Forbidden("pet belongs to another client")
}

func (s *Service) Update(ctx context.Context, actor model.Identity, id string, req model.UpdatePetRequest) (model.Pet, error) {
	if _, err := s.authorize(actor, id); err != nil {
		return model.Pet{}, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return model.Pet{}, apperrors.Validation("name", "name is required")
	}
	if req.Weight != nil && *req.Weight < 0 {
		return model.Pet{}, apperrors.Validation("weight", "weight must be at least 0")
	}
	return s.store.UpdatePet(ctx, id, func(p *model.Pet) error {
		req.Apply(p)
		return nil
	})
}

// Delete removes the pet only. Its appointments and records keep the pet's name.
func (s *Service) Delete(ctx context.Context, actor model.Identity, id string) error {
	if _, err := s.authorize(actor, id); err != nil {
		return err
	}
	return s.store.DeletePet(ctx, id)
}

// Records returns the pet's clinical history, newest first. Records made before the
// pet was registered are matched by name.
func (s *Service) Records(_ context.Context, actor model.Identity, id string) ([]model.ClinicalRecord, error) {
	p, err := s.store.GetPet(id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleClient && p.OwnerID != actor.PersonID {
		return nil, apperrors.Forbidden("pet belongs to another client")
	}
	if !actor.Role.Valid() {
		return nil, apperrors.Forbidden("unknown role")
	}

	var out []model.ClinicalRecord
	for _, r := range s.store.ClinicalRecords() {
		if r.PetID == p.ID || (r.PetID == "" && strings.TrimSpace(r.PetName) == strings.TrimSpace(p.Name)) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// UpdateRecord is the administrative edit of an existing clinical record.
func (s *Service) UpdateRecord(ctx context.Context, actor model.Identity, recordID string, input model.ClinicalRecordInput) (model.ClinicalRecord, error) {
	if actor.Role != model.RoleAdministrator {
		return model.ClinicalRecord{}, apperrors.Forbidden("only administrators edit clinical records")
	}
	if err := s.validator.Validate(input); err != nil {
		return model.ClinicalRecord{}, err
	}
	return s.store.UpdateClinicalRecord(ctx, recordID, func(r *model.ClinicalRecord) error {
		r.Motive = strings.TrimSpace(input.Motive)
		r.Diagnosis = input.Diagnosis
		r.Treatment = input.Treatment
		r.Vitals = input.Vitals
		r.Medications = input.Medications
		r.Vaccines = input.Vaccines
		r.Exams = input.Exams
		r.Services = input.Services
		r.Attachments = input.Attachments
		r.NextVisit = input.NextVisit
		return nil
	})
}
