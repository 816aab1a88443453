package account

import (
	"context"
	"strings"
	"time"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

// Summary is an account as shown in admin views.
type Summary struct {
	model.Person
	Status model.AccountStatus `json:"account_status"`
}

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
	return &Service{store: st, validator: v, log: log.With("service", "account"), now: now}
}

func mayManage(actor model.Identity, personID string) bool {
	return actor.Role == model.RoleAdministrator || (actor.PersonID != "" && actor.PersonID == personID)
}

func summarize(p model.Person, now time.Time) Summary {
	p.PasswordHash = ""
	return Summary{Person: p, Status: p.AccountStatus(now)}
}

// Get returns an account. Only administrators may read someone else's.
func (s *Service) Get(_ context.Context, actor model.Identity, personID string) (Summary, error) {
	if !mayManage(actor, personID) {
		return Summary{}, apperrors.Forbidden("cannot read another account")
	}
	p, err := s.store.GetPerson(personID)
	if err != nil {
		return Summary{}, err
	}
	return summarize(p, s.now()), nil
}

// List returns every account with its status badge. Administrators only.
func (s *Service) List(_ context.Context, actor model.Identity, role model.Role) ([]Summary, error) {
	if actor.Role != model.RoleAdministrator {
		return nil, apperrors.Forbidden("only administrators list accounts")
	}
	now := s.now()
	var out []Summary
	for _, p := range s.store.People() {
		if role != "" && p.Role != role {
			continue
		}
		out = append(out, summarize(p, now))
	}
	return out, nil
}

// Status derives the badge for one account.
func (s *Service) Status(ctx context.Context, actor model.Identity, personID string) (model.AccountStatus, error) {
	sum, err := s.Get(ctx, actor, personID)
	if err != nil {
		return "", err
	}
	return sum.Status, nil
}

// UpdateProfile replaces the contact fields. The first failing field is reported.
func (s *Service) UpdateProfile(ctx context.Context, actor model.Identity, personID string, req model.UpdateProfileRequest) (Summary, error) {
	if !mayManage(actor, personID) {
		return Summary{}, apperrors.Forbidden("cannot edit another account")
	}
	if err := s.validator.Validate(req); err != nil {
		return Summary{}, err
	}
	email := strings.TrimSpace(req.Email)
	if other, ok := s.store.PersonByEmail(email); ok && other.ID != personID {
		return Summary{}, apperrors.Conflict("email is already used by another account", nil)
	}

	updated, err := s.store.UpdatePerson(ctx, personID, func(p *model.Person) error {
		p.Name = strings.TrimSpace(req.Name)
		p.Email = email
		p.Phone = strings.TrimSpace(req.Phone)
		p.Address = strings.TrimSpace(req.Address)
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	s.log.Info("profile updated", "person_id", personID)
	return summarize(updated, s.now()), nil
}

// Delete removes the account with its pets, appointments and clinical records.
func (s *Service) Delete(ctx context.Context, actor model.Identity, personID string) error {
	if !mayManage(actor, personID) {
		return apperrors.Forbidden("cannot delete another account")
	}
	return s.store.DeleteAccount(ctx, personID)
}
