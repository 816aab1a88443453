package pet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/repository/memory"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

var (
	now   = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ana   = model.Identity{PersonID: "c1", Role: model.RoleClient}
	luis  = model.Identity{PersonID: "c2", Role: model.RoleClient}
	ruiz  = model.Identity{PersonID: "vet-1", Name: "Dr. Ruiz", Role: model.RoleVeterinarian}
	admin = model.Identity{PersonID: "adm", Role: model.RoleAdministrator}
)

func setup(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st := store.New(memory.NewKV(), store.Options{})
	require.NoError(t, st.AddPerson(ctx, model.Person{ID: "c1", Name: "Ana", Role: model.RoleClient}))
	require.NoError(t, st.AddPerson(ctx, model.Person{ID: "c2", Name: "Luis", Role: model.RoleClient}))
	require.NoError(t, st.AddPerson(ctx, model.Person{ID: "vet-1", Name: "Dr. Ruiz", Role: model.RoleVeterinarian}))
	return NewService(st, validator.New(), nil, func() time.Time { return now }), st
}

func TestCreateAndList(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	dog, err := svc.Create(ctx, ana, model.CreatePetRequest{OwnerID: "c2", Name: " Max ", Species: "dog", Weight: 12})
	require.NoError(t, err)
	assert.Equal(t, "c1", dog.OwnerID)
	assert.Equal(t, "Max", dog.Name)

	_, err = svc.Create(ctx, ana, model.CreatePetRequest{Name: "max", Species: "cat"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = svc.Create(ctx, admin, model.CreatePetRequest{OwnerID: "c2", Name: "Kira", Species: "cat"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, model.CreatePetRequest{OwnerID: "vet-1", Name: "Rex", Species: "dog"})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = svc.Create(ctx, ruiz, model.CreatePetRequest{Name: "Rex", Species: "dog"})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = svc.Create(ctx, ana, model.CreatePetRequest{Name: "Rex", Species: "dog", Weight: -1})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	mine, err := svc.List(ctx, ana, "c2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Max", mine[0].Name)

	all, err := svc.List(ctx, ruiz, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	dog, err := svc.Create(ctx, ana, model.CreatePetRequest{Name: "Max", Species: "dog"})
	require.NoError(t, err)

	breed := "beagle"
	_, err = svc.Update(ctx, luis, dog.ID, model.UpdatePetRequest{Breed: &breed})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	blank := " "
	_, err = svc.Update(ctx, ana, dog.ID, model.UpdatePetRequest{Name: &blank})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	updated, err := svc.Update(ctx, ana, dog.ID, model.UpdatePetRequest{Breed: &breed})
	require.NoError(t, err)
	assert.Equal(t, "beagle", updated.Breed)
	assert.Equal(t, "Max", updated.Name)

	assert.True(t, apperrors.Is(svc.Delete(ctx, luis, dog.ID), apperrors.ErrForbidden))
	require.NoError(t, svc.Delete(ctx, ana, dog.ID))
	assert.Empty(t, st.Pets())
}

func TestRecordsIncludeNameMatchedHistory(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	dog, err := svc.Create(ctx, ana, model.CreatePetRequest{Name: "Max", Species: "dog"})
	require.NoError(t, err)

	require.NoError(t, st.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "old", PetName: "Max", Date: now.AddDate(0, -2, 0), Motive: "walk-in"}))
	require.NoError(t, st.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "new", PetID: dog.ID, PetName: "Max", Date: now, Motive: "checkup"}))
	require.NoError(t, st.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "other", PetID: "pet-x", PetName: "Max", Date: now, Motive: "someone else"}))

	records, err := svc.Records(ctx, ana, dog.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "old", records[1].ID)

	_, err = svc.Records(ctx, luis, dog.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = svc.Records(ctx, ruiz, dog.ID)
	assert.NoError(t, err)
}

func TestUpdateRecordIsAdministrative(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	require.NoError(t, st.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "r1", PetName: "Max", Motive: "checkup", VeterinarianName: "Dr. Ruiz", Date: now}))

	_, err := svc.UpdateRecord(ctx, ruiz, "r1", model.ClinicalRecordInput{Motive: "edited"})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	updated, err := svc.UpdateRecord(ctx, admin, "r1", model.ClinicalRecordInput{Motive: "checkup", Diagnosis: "otitis"})
	require.NoError(t, err)
	assert.Equal(t, "otitis", updated.Diagnosis)
	assert.Equal(t, "Dr. Ruiz", updated.VeterinarianName)
	assert.Equal(t, now, updated.Date)
}
