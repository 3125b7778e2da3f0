package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/config"
	"carebook-server/internal/middleware"
	"carebook-server/internal/models"
	"carebook-server/internal/roles"
	"carebook-server/internal/session"
	"carebook-server/internal/store"
	"carebook-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Store *store.Store
	Cfg   *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st *store.Store, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Store: st, Cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,max=100" label:"full name"`
	Email    string `json:"email" validate:"required,email,max=255" label:"email"`
	Password string `json:"password" validate:"required,strongpassword" label:"password"`
	Phone    string `json:"phone" validate:"max=30" label:"phone"`
}

// Register handles self-service sign up. New accounts are always patients.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindJSON(c, &req) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := utils.Validate(req); err != nil {
		utils.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	user := models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.FromError(c, apperrors.Internal("Failed to hash password", err))
		return
	}

	if err := h.Store.CreateIdentity(ctx, &user); err != nil {
		utils.FromError(c, err)
		return
	}
	if err := h.Store.AssignRole(ctx, user.ID, models.RolePatient); err != nil {
		if delErr := h.Store.DeleteIdentity(ctx, user.ID); delErr != nil {
			zerolog.Ctx(ctx).Error().Err(delErr).Str("user_id", user.ID).Msg("failed to remove identity after role failure")
		}
		utils.FromError(c, err)
		return
	}

	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("patient registered")
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" label:"email"`
	Password string `json:"password" validate:"required" label:"password"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
	Role         models.Role          `json:"role"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindJSON(c, &req) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := utils.Validate(req); err != nil {
		utils.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.UserByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
			return
		}
		utils.FromError(c, err)
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if h.Cfg.RequireConfirmedEmail && !user.EmailConfirmed {
		utils.Unauthorized(c, "Email address has not been confirmed")
		return
	}

	assigned, err := h.Store.RolesForUser(ctx, user.ID)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
		Role:         roles.Effective(assigned),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" label:"refresh token"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// First try to get the refresh token from HTTP-only cookie
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	stored, err := h.Store.ActiveRefreshToken(ctx, presented, claims.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
			return
		}
		utils.FromError(c, err)
		return
	}

	user, err := h.Store.UserByID(ctx, claims.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			utils.Unauthorized(c, "Invalid refresh token")
			return
		}
		utils.FromError(c, err)
		return
	}

	if err := h.Store.RevokeRefreshToken(ctx, stored.ID); err != nil {
		utils.FromError(c, err)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the presented refresh token and clears the cookie.
// Unknown or already revoked tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	presented, _ := c.Cookie(refreshCookie)
	if presented == "" {
		var req LogoutRequest
		if !utils.BindJSON(c, &req) {
			return
		}
		presented = req.RefreshToken
	}
	if presented == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	ctx := c.Request.Context()
	stored, err := h.Store.ActiveRefreshToken(ctx, presented, "")
	switch {
	case err == nil:
		if err := h.Store.RevokeRefreshToken(ctx, stored.ID); err != nil {
			utils.FromError(c, err)
			return
		}
	case !apperrors.Is(err, apperrors.KindNotFound):
		utils.FromError(c, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", !h.Cfg.IsDevelopment(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	snap := middleware.SessionFromContext(c)
	user, err := h.Store.UserByID(c.Request.Context(), snap.UserID)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=100" label:"full name"`
	Phone    *string `json:"phone" validate:"omitempty,max=30" label:"phone"`
}

// UpdateProfile updates name and phone. Email changes are not supported.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !utils.BindJSON(c, &req) {
		return
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		req.FullName = &trimmed
	}
	if err := utils.Validate(req); err != nil {
		utils.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.UserByID(ctx, middleware.SessionFromContext(c).UserID)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if err := h.Store.UpdateProfile(ctx, user); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	session.Snapshot
	DashboardRole models.Role `json:"dashboardRole"`
}

// Session returns the two-phase session snapshot for the caller.
func (h *AuthHandler) Session(c *gin.Context) {
	snap := middleware.SessionFromContext(c)
	utils.Success(c, "Session fetched successfully", SessionResponse{
		Snapshot:      snap,
		DashboardRole: snap.DashboardRole(),
	})
}

// issueTokens signs a token pair, stores the refresh token and sets it as
// an HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", apperrors.Internal("Failed to generate tokens", err)
	}

	ttl := time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour
	if err := h.Store.SaveRefreshToken(c.Request.Context(), &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(ttl),
	}); err != nil {
		return "", "", err
	}

	c.SetCookie(
		refreshCookie,
		refreshToken,
		int(ttl.Seconds()),
		"/",
		"",                     // Domain (empty means current domain)
		!h.Cfg.IsDevelopment(), // Secure outside development
		true,                   // HTTP only
	)
	return accessToken, refreshToken, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
