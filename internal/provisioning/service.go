// Package provisioning creates doctor accounts on behalf of an administrator.
// The identity, role row and doctor row are written in sequence; when a
// later step fails the identity is deleted again.
package provisioning

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/metrics"
	"carebook-server/internal/models"
	"carebook-server/internal/utils"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Store interface {
	HasRole(ctx context.Context, userID string, role models.Role) (bool, error)
	AssignRole(ctx context.Context, userID string, role models.Role) error
	CreateIdentity(ctx context.Context, user *models.User) error
	DeleteIdentity(ctx context.Context, userID string) error
	CreateDoctor(ctx context.Context, doctor *models.Doctor) error
	DepartmentByID(ctx context.Context, id string) (*models.Department, error)
}

// Request is the body of a provisioning call.
type Request struct {
	Email           string   `json:"email" validate:"required,email,max=255" label:"email"`
	Password        string   `json:"password" validate:"required,strongpassword" label:"password"`
	FullName        string   `json:"fullName" validate:"required,max=100" label:"full name"`
	DepartmentID    string   `json:"departmentId" validate:"required" label:"department id"`
	Specialization  string   `json:"specialization" validate:"required,max=100" label:"specialization"`
	Qualification   string   `json:"qualification" validate:"required,max=200" label:"qualification"`
	ExperienceYears *int     `json:"experienceYears" validate:"required,min=0,max=70" label:"experience years"`
	ConsultationFee *float64 `json:"consultationFee" validate:"omitempty,min=0" label:"consultation fee"`
}

func (r *Request) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Specialization = strings.TrimSpace(r.Specialization)
	r.Qualification = strings.TrimSpace(r.Qualification)
}

// Result is returned on success.
type Result struct {
	User   models.UserSanitized `json:"user"`
	Doctor models.Doctor        `json:"doctor"`
}

type Service struct {
	verifier TokenVerifier
	store    Store
	log      zerolog.Logger
}

func NewService(verifier TokenVerifier, store Store, log zerolog.Logger) *Service {
	return &Service{
		verifier: verifier,
		store:    store,
		log:      log.With().Str("component", "provisioning").Logger(),
	}
}

// ProvisionDoctor authenticates the caller from authorization, checks it
// holds the admin role and creates the doctor described by req.
func (s *Service) ProvisionDoctor(ctx context.Context, authorization string, req Request) (*Result, error) {
	res, err := s.provision(ctx, authorization, req)
	outcome := "created"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	metrics.DoctorProvisioning.WithLabelValues(outcome).Inc()
	return res, err
}

func (s *Service) provision(ctx context.Context, authorization string, req Request) (*Result, error) {
	if _, err := s.Authorize(ctx, authorization); err != nil {
		return nil, err
	}

	req.normalize()
	if err := utils.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.store.DepartmentByID(ctx, req.DepartmentID); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Validation("Selected department does not exist")
		}
		return nil, err
	}

	s.log.Info().Str("email", req.Email).Msg("creating doctor account")

	user := &models.User{
		Email:          req.Email,
		FullName:       req.FullName,
		EmailConfirmed: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Internal("Failed to create user", err)
	}
	if err := s.store.CreateIdentity(ctx, user); err != nil {
		return nil, err
	}

	if err := s.store.AssignRole(ctx, user.ID, models.RoleDoctor); err != nil {
		s.compensate(ctx, user.ID, err)
		return nil, apperrors.Internal("Failed to assign role", err)
	}

	doctor := &models.Doctor{
		UserID:          user.ID,
		DepartmentID:    req.DepartmentID,
		Specialization:  req.Specialization,
		Qualification:   req.Qualification,
		ExperienceYears: *req.ExperienceYears,
		ConsultationFee: req.ConsultationFee,
	}
	if err := s.store.CreateDoctor(ctx, doctor); err != nil {
		s.compensate(ctx, user.ID, err)
		return nil, apperrors.Internal("Failed to create doctor profile", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("doctor_id", doctor.ID).Msg("doctor created")
	return &Result{User: user.Sanitize(), Doctor: *doctor}, nil
}

// Authorize checks that the bearer token in authorization belongs to an
// admin and returns the admin's user id.
func (s *Service) Authorize(ctx context.Context, authorization string) (string, error) {
	callerID, err := s.authenticate(authorization)
	if err != nil {
		return "", err
	}
	isAdmin, err := s.store.HasRole(ctx, callerID, models.RoleAdmin)
	if err != nil {
		return "", err
	}
	if !isAdmin {
		s.log.Warn().Str("caller_id", callerID).Msg("provisioning refused: not an admin")
		return "", apperrors.Authorization("Forbidden: Admin access required")
	}
	return callerID, nil
}

func (s *Service) authenticate(authorization string) (string, error) {
	token, ok := utils.BearerToken(authorization)
	if !ok {
		return "", apperrors.Authentication("Unauthorized")
	}
	userID, err := s.verifier.Verify(token)
	if err != nil {
		s.log.Debug().Err(err).Msg("provisioning token rejected")
		return "", apperrors.Authentication("Unauthorized")
	}
	return userID, nil
}

// compensate deletes a half-provisioned identity, even after the request
// context is cancelled.
func (s *Service) compensate(ctx context.Context, userID string, cause error) {
	s.log.Error().Err(cause).Str("user_id", userID).Msg("doctor provisioning failed, removing identity")
	if err := s.store.DeleteIdentity(context.WithoutCancel(ctx), userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to remove identity after provisioning failure")
	}
}
