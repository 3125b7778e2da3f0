package appointments

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
	"carebook-server/internal/session"
	"carebook-server/internal/store"
	"carebook-server/internal/testutil"
)

type fixture struct {
	svc   *Service
	store *store.Store

	patient      session.Snapshot
	otherPatient session.Snapshot
	doctor       session.Snapshot
	otherDoctor  session.Snapshot

	doctorID      string
	otherDoctorID string
}

func as(t *testing.T, userID string, role models.Role) session.Snapshot {
	t.Helper()
	s, err := session.Unauthenticated().Authenticating(userID)
	require.NoError(t, err)
	s, err = s.WithRole(role)
	require.NoError(t, err)
	return s
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(testutil.NewDB(t))
	ctx := context.Background()

	d1 := &models.Doctor{UserID: "u-doc-1", DepartmentID: "dep", Specialization: "Cardiology", Qualification: "MD"}
	d2 := &models.Doctor{UserID: "u-doc-2", DepartmentID: "dep", Specialization: "Neurology", Qualification: "MD"}
	require.NoError(t, st.CreateDoctor(ctx, d1))
	require.NoError(t, st.CreateDoctor(ctx, d2))

	return &fixture{
		svc:           NewService(st, zerolog.Nop()),
		store:         st,
		patient:       as(t, "u-patient-1", models.RolePatient),
		otherPatient:  as(t, "u-patient-2", models.RolePatient),
		doctor:        as(t, "u-doc-1", models.RoleDoctor),
		otherDoctor:   as(t, "u-doc-2", models.RoleDoctor),
		doctorID:      d1.ID,
		otherDoctorID: d2.ID,
	}
}

func (f *fixture) book(t *testing.T) *models.Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		PatientID: f.patient.UserID,
		DoctorID:  f.doctorID,
		Date:      "2025-01-01",
		Time:      "09:00",
	})
	require.NoError(t, err)
	return a
}

func TestCreate_ThenListForPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.patient, CreateInput{
		PatientID: f.patient.UserID,
		DoctorID:  f.doctorID,
		Date:      "2025-01-01",
		Time:      "09:00",
		Notes:     "  chest pain  ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)

	list, err := f.svc.ListForPatient(ctx, f.patient.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, models.StatusPending, list[0].Status)
	assert.Equal(t, "2025-01-01", list[0].AppointmentDate)
	assert.Equal(t, "09:00", list[0].AppointmentTime)
	assert.Equal(t, "chest pain", list[0].Notes)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := CreateInput{PatientID: f.patient.UserID, DoctorID: f.doctorID, Date: "2025-01-01", Time: "09:00"}

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"malformed date", func(in *CreateInput) { in.Date = "01/01/2025" }},
		{"impossible date", func(in *CreateInput) { in.Date = "2025-02-30" }},
		{"malformed time", func(in *CreateInput) { in.Time = "9am" }},
		{"time outside slots", func(in *CreateInput) { in.Time = "12:00" }},
		{"notes too long", func(in *CreateInput) { in.Notes = string(make([]byte, 1001)) + "x" }},
		{"unknown doctor", func(in *CreateInput) { in.DoctorID = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.svc.Create(ctx, f.patient, in)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
		})
	}

	list, err := f.svc.ListForPatient(ctx, f.patient.UserID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_ForSomeoneElse(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.otherPatient, CreateInput{
		PatientID: f.patient.UserID, DoctorID: f.doctorID, Date: "2025-01-01", Time: "09:00",
	})
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))
}

func TestAccept_ByAssignedDoctor(t *testing.T) {
	f := newFixture(t)
	a := f.book(t)

	got, err := f.svc.Accept(context.Background(), f.doctor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	stored, err := f.store.AppointmentByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestAccept_ByOtherDoctorLeavesStatus(t *testing.T) {
	f := newFixture(t)
	a := f.book(t)

	_, err := f.svc.Accept(context.Background(), f.otherDoctor, a.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	_, err = f.svc.Reject(context.Background(), f.patient, a.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization), "patients cannot reject")

	stored, err := f.store.AppointmentByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestCancel_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rejected := f.book(t)
	_, err := f.svc.Reject(ctx, f.doctor, rejected.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.patient, rejected.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindState))

	confirmed := f.book(t)
	_, err = f.svc.Accept(ctx, f.doctor, confirmed.ID)
	require.NoError(t, err)
	got, err := f.svc.Cancel(ctx, f.patient, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// A second cancel is harmless.
	got, err = f.svc.Cancel(ctx, f.patient, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	_, err = f.svc.Cancel(ctx, f.otherPatient, confirmed.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	_, err = f.svc.Cancel(ctx, f.doctor, f.book(t).ID)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization), "doctors cannot cancel")
}

func TestUpdateStatus_AcceptAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t)
	_, err := f.svc.Cancel(ctx, f.patient, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.doctor, a.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindState))
}

func TestUpdateStatus_InvalidTargetAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t)

	_, err := f.svc.UpdateStatus(ctx, f.doctor, a.ID, models.StatusPending)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.UpdateStatus(ctx, f.doctor, a.ID, "completed")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.Accept(ctx, f.doctor, "missing")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestListForDoctor_ScopedToDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t)

	doctor, err := f.svc.DoctorFor(ctx, f.doctor)
	require.NoError(t, err)
	mine, err := f.svc.ListForDoctor(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.ListForDoctor(ctx, f.otherDoctorID)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = f.svc.DoctorFor(ctx, f.patient)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSlots_IsACopy(t *testing.T) {
	f := newFixture(t)
	slots := f.svc.Slots()
	require.Len(t, slots, 12)
	slots[0] = "00:00"
	assert.Equal(t, "09:00", models.TimeSlots[0])
}
