package provisioning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
	"carebook-server/internal/store"
	"carebook-server/internal/testutil"
)

type stubVerifier map[string]string

func (v stubVerifier) Verify(token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

// MockStore records provisioning calls.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) HasRole(ctx context.Context, userID string, role models.Role) (bool, error) {
	args := m.Called(ctx, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) AssignRole(ctx context.Context, userID string, role models.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockStore) CreateIdentity(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = "new-user"
	}
	return args.Error(0)
}

func (m *MockStore) DeleteIdentity(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	args := m.Called(ctx, doctor)
	return args.Error(0)
}

func (m *MockStore) DepartmentByID(ctx context.Context, id string) (*models.Department, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Department)
	return d, args.Error(1)
}

func years(n int) *int { return &n }

func validRequest(departmentID string) Request {
	return Request{
		Email:           "New.Doctor@Example.com",
		Password:        "Str0ng-Passw0rd!",
		FullName:        "Dr. New",
		DepartmentID:    departmentID,
		Specialization:  "Cardiology",
		Qualification:   "MD",
		ExperienceYears: years(5),
	}
}

const adminToken = "admin-token"

func TestProvisionDoctor_Authentication(t *testing.T) {
	ms := new(MockStore)
	svc := NewService(stubVerifier{adminToken: "admin"}, ms, zerolog.Nop())

	_, err := svc.ProvisionDoctor(context.Background(), "", validRequest("d1"))
	assert.True(t, apperrors.Is(err, apperrors.KindAuthentication))
	assert.Equal(t, "Unauthorized", apperrors.PublicMessage(err))

	_, err = svc.ProvisionDoctor(context.Background(), "Bearer nope", validRequest("d1"))
	assert.True(t, apperrors.Is(err, apperrors.KindAuthentication))

	ms.AssertNotCalled(t, "HasRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestProvisionDoctor_RequiresAdmin(t *testing.T) {
	ms := new(MockStore)
	ms.On("HasRole", mock.Anything, "doc", models.RoleAdmin).Return(false, nil)
	svc := NewService(stubVerifier{"doc-token": "doc"}, ms, zerolog.Nop())

	_, err := svc.ProvisionDoctor(context.Background(), "Bearer doc-token", validRequest("d1"))
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))
	assert.Equal(t, "Forbidden: Admin access required", apperrors.PublicMessage(err))
	ms.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything)
}

func TestProvisionDoctor_RoleFailureDeletesIdentity(t *testing.T) {
	ms := new(MockStore)
	ms.On("HasRole", mock.Anything, "admin", models.RoleAdmin).Return(true, nil)
	ms.On("DepartmentByID", mock.Anything, "d1").Return(&models.Department{Name: "Cardiology"}, nil)
	ms.On("CreateIdentity", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
	ms.On("AssignRole", mock.Anything, "new-user", models.RoleDoctor).Return(errors.New("insert failed"))
	ms.On("DeleteIdentity", mock.Anything, "new-user").Return(nil)
	svc := NewService(stubVerifier{adminToken: "admin"}, ms, zerolog.Nop())

	_, err := svc.ProvisionDoctor(context.Background(), "Bearer "+adminToken, validRequest("d1"))
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
	assert.Equal(t, "Failed to assign role", apperrors.PublicMessage(err))

	ms.AssertCalled(t, "DeleteIdentity", mock.Anything, "new-user")
	ms.AssertNotCalled(t, "CreateDoctor", mock.Anything, mock.Anything)
}

func TestProvisionDoctor_DoctorFailureDeletesIdentity(t *testing.T) {
	ms := new(MockStore)
	ms.On("HasRole", mock.Anything, "admin", models.RoleAdmin).Return(true, nil)
	ms.On("DepartmentByID", mock.Anything, "d1").Return(&models.Department{Name: "Cardiology"}, nil)
	ms.On("CreateIdentity", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
	ms.On("AssignRole", mock.Anything, "new-user", models.RoleDoctor).Return(nil)
	ms.On("CreateDoctor", mock.Anything, mock.AnythingOfType("*models.Doctor")).Return(errors.New("insert failed"))
	ms.On("DeleteIdentity", mock.Anything, "new-user").Return(errors.New("delete failed too"))
	svc := NewService(stubVerifier{adminToken: "admin"}, ms, zerolog.Nop())

	_, err := svc.ProvisionDoctor(context.Background(), "Bearer "+adminToken, validRequest("d1"))
	assert.Equal(t, "Failed to create doctor profile", apperrors.PublicMessage(err))
	ms.AssertExpectations(t)
}

func newSQLService(t *testing.T) (*Service, *store.Store, string) {
	t.Helper()
	st := store.New(testutil.NewDB(t))
	ctx := context.Background()

	admin := &models.User{Email: "admin@example.com", FullName: "Admin"}
	require.NoError(t, admin.SetPassword("Adm1n-Password!"))
	require.NoError(t, st.CreateIdentity(ctx, admin))
	require.NoError(t, st.AssignRole(ctx, admin.ID, models.RoleAdmin))

	dept := &models.Department{Name: "Cardiology"}
	require.NoError(t, st.CreateDepartment(ctx, dept))

	return NewService(stubVerifier{adminToken: admin.ID}, st, zerolog.Nop()), st, dept.ID
}

func TestProvisionDoctor_CreatesDoctor(t *testing.T) {
	svc, st, deptID := newSQLService(t)
	ctx := context.Background()

	res, err := svc.ProvisionDoctor(ctx, "Bearer "+adminToken, validRequest(deptID))
	require.NoError(t, err)
	assert.Equal(t, "new.doctor@example.com", res.User.Email)
	assert.True(t, res.User.EmailConfirmed)

	roles, err := st.RolesForUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleDoctor}, roles)

	doc, err := st.DoctorByUserID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.ExperienceYears)
	assert.Equal(t, deptID, doc.DepartmentID)
	assert.Nil(t, doc.ConsultationFee)

	_, err = svc.ProvisionDoctor(ctx, "Bearer "+adminToken, validRequest(deptID))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation), "duplicate email")

	withFee := validRequest(deptID)
	withFee.Email = "fee.doctor@example.com"
	fee := 150.0
	withFee.ConsultationFee = &fee
	res, err = svc.ProvisionDoctor(ctx, "Bearer "+adminToken, withFee)
	require.NoError(t, err)
	require.NotNil(t, res.Doctor.ConsultationFee)

	doc, err = st.DoctorByUserID(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotNil(t, doc.ConsultationFee)
	assert.InDelta(t, 150.0, *doc.ConsultationFee, 0.001)
}

func TestProvisionDoctor_ValidationCreatesNoIdentity(t *testing.T) {
	svc, st, deptID := newSQLService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"experience above range", func(r *Request) { r.ExperienceYears = years(71) }},
		{"negative experience", func(r *Request) { r.ExperienceYears = years(-1) }},
		{"missing experience", func(r *Request) { r.ExperienceYears = nil }},
		{"weak password", func(r *Request) { r.Password = "short" }},
		{"password longer than bcrypt accepts", func(r *Request) { r.Password = "Str0ng-Passw0rd!" + strings.Repeat("a", 70) }},
		{"bad email", func(r *Request) { r.Email = "not-an-email" }},
		{"missing full name", func(r *Request) { r.FullName = " " }},
		{"unknown department", func(r *Request) { r.DepartmentID = "nope" }},
		{"negative consultation fee", func(r *Request) { fee := -1.0; r.ConsultationFee = &fee }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(deptID)
			tt.mutate(&req)
			_, err := svc.ProvisionDoctor(ctx, "Bearer "+adminToken, req)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
		})
	}

	n, err := st.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the admin exists")
}

// failingRoles breaks role assignment on a real store.
type failingRoles struct {
	*store.Store
}

func (failingRoles) AssignRole(context.Context, string, models.Role) error {
	return errors.New("role table unavailable")
}

func TestProvisionDoctor_RoleFailureLeavesNoIdentity(t *testing.T) {
	_, st, deptID := newSQLService(t)
	ctx := context.Background()
	admin, err := st.UserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)

	svc := NewService(stubVerifier{adminToken: admin.ID}, failingRoles{st}, zerolog.Nop())
	_, err = svc.ProvisionDoctor(ctx, "Bearer "+adminToken, validRequest(deptID))
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))

	_, err = st.UserByEmail(ctx, "new.doctor@example.com")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	n, err := st.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
