package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/tokens"
)

func (r *GormRepo) AddRefreshToken(ctx context.Context, refreshToken string, secret []byte, userID uint) error {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, secret)
	if err != nil {
		return err
	}

	refreshModel := models.RefreshToken{
		Token:     tokens.Sha256Hex(refreshToken),
		UserID:    userID,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.Unix(),
	}

	return r.DB.WithContext(ctx).Create(&refreshModel).Error
}

func (r *GormRepo) RefreshExists(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func refreshExpiredOrRevoked(db *gorm.DB, jti string) (bool, error) {
	var refresh models.RefreshToken
	if err := db.Where("jti = ?", jti).First(&refresh).Error; err != nil {
		return false, err
	}
	if refresh.ExpiresAt < time.Now().Unix() || refresh.Revoked {
		return true, nil
	}
	return false, nil
}

// markAsUsed flips revoked on a live token. Zero rows means another
// transaction got there first; the caller must treat the token as spent.
func markAsUsed(db *gorm.DB, jti string) error {
	res := db.Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenRevoked
	}
	return nil
}

// RevokeRefreshToken marks the stored token revoked. Logout path; a token
// that was never stored is a no-op.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokens.Sha256Hex(refreshToken)).
		Update("revoked", true).Error
}

// RotateRefreshToken revokes the old JTI and stores the replacement in one
// transaction, so a used refresh token can never be replayed.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, newToken models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired, err := refreshExpiredOrRevoked(tx, oldJTI)
		if err != nil {
			return err
		}
		if expired {
			return ErrTokenRevoked
		}

		if err := markAsUsed(tx, oldJTI); err != nil {
			return err
		}

		return tx.Create(&newToken).Error
	})
}
