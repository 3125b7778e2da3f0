package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
)

// CreateIdentity inserts a login identity. A taken email is a validation error.
func (s *Store) CreateIdentity(ctx context.Context, user *models.User) error {
	if err := s.conn(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return apperrors.Validation("User with this email already exists")
		}
		return apperrors.Internal("Failed to create user", err)
	}
	return nil
}

// DeleteIdentity removes a user together with its role rows and refresh tokens.
func (s *Store) DeleteIdentity(ctx context.Context, userID string) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return apperrors.Internal("Failed to delete user", err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User not found", "Failed to load user")
	}
	return &user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User not found", "Failed to load user")
	}
	return &user, nil
}

// UsersByIDs returns the users that exist among ids, in no particular order.
func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperrors.Internal("Failed to load profiles", err)
	}
	return users, nil
}

// CountUsers returns the number of identities.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, apperrors.Internal("Failed to count users", err)
	}
	return n, nil
}

// UpdateProfile saves the editable profile fields of a user.
func (s *Store) UpdateProfile(ctx context.Context, user *models.User) error {
	err := s.conn(ctx).Model(user).Select("full_name", "phone").Updates(map[string]any{
		"full_name": user.FullName,
		"phone":     user.Phone,
	}).Error
	if err != nil {
		return apperrors.Internal("Failed to update profile", err)
	}
	return nil
}

// RolesForUser returns every role row held by userID.
func (s *Store) RolesForUser(ctx context.Context, userID string) ([]models.Role, error) {
	var roles []models.Role
	err := s.conn(ctx).Model(&models.UserRole{}).Where("user_id = ?", userID).Pluck("role", &roles).Error
	if err != nil {
		return nil, apperrors.Internal("Failed to load roles", err)
	}
	return roles, nil
}

// HasRole reports whether userID holds role.
func (s *Store) HasRole(ctx context.Context, userID string, role models.Role) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.UserRole{}).Where("user_id = ? AND role = ?", userID, role).Count(&n).Error
	if err != nil {
		return false, apperrors.Internal("Failed to load roles", err)
	}
	return n > 0, nil
}

// AssignRole adds a role row. Assigning a held role again is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return apperrors.Validationf("Unknown role %q", role)
	}
	err := s.conn(ctx).Create(&models.UserRole{UserID: userID, Role: role}).Error
	if err != nil && !isDuplicate(err) {
		return apperrors.Internal("Failed to assign role", err)
	}
	return nil
}

// SaveRefreshToken stores an issued refresh token.
func (s *Store) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := s.conn(ctx).Create(token).Error; err != nil {
		return apperrors.Internal("Failed to store refresh token", err)
	}
	return nil
}

// ActiveRefreshToken finds an unrevoked, unexpired token. userID may be empty.
func (s *Store) ActiveRefreshToken(ctx context.Context, token, userID string) (*models.RefreshToken, error) {
	q := s.conn(ctx).Where("token = ? AND is_revoked = ? AND expires_at > ?", token, false, time.Now())
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var stored models.RefreshToken
	if err := q.First(&stored).Error; err != nil {
		return nil, notFoundOr(err, "Refresh token not found, expired, or revoked", "Failed to check refresh token")
	}
	return &stored, nil
}

// RevokeRefreshToken marks a token revoked and expires it.
func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	err := s.conn(ctx).Model(&models.RefreshToken{}).Where("id = ?", id).Updates(map[string]any{
		"is_revoked": true,
		"expires_at": time.Now(),
	}).Error
	if err != nil {
		return apperrors.Internal("Failed to revoke refresh token", err)
	}
	return nil
}

// PurgeRefreshTokens deletes revoked tokens and tokens expired before now.
func (s *Store) PurgeRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Where("is_revoked = ? OR expires_at < ?", true, now).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, apperrors.Internal("Failed to purge refresh tokens", res.Error)
	}
	return res.RowsAffected, nil
}

// ConfirmEmail marks the identity with email as confirmed.
func (s *Store) ConfirmEmail(ctx context.Context, email string) error {
	res := s.conn(ctx).Model(&models.User{}).Where("email = ?", email).Update("email_confirmed", true)
	if res.Error != nil {
		return apperrors.Internal("Failed to confirm email", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.UserByEmail(ctx, email); err != nil {
			return err
		}
	}
	return nil
}
