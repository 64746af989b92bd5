package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/skvortsov-lab/auth_service/internal/models"
)

func (r *GormRepo) Record(ctx context.Context, tokenStr string, kind models.TokenKind, userID uint) error {
	entry := models.TokenEntry{
		Token:  tokenStr,
		Kind:   kind,
		UserID: userID,
	}
	return r.DB.WithContext(ctx).Create(&entry).Error
}

func (r *GormRepo) RevokeAll(ctx context.Context, userID uint) error {
	return r.revokeAll(r.DB.WithContext(ctx), userID)
}

func (r *GormRepo) revokeAll(db *gorm.DB, userID uint) error {
	return db.Model(&models.TokenEntry{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// RevokeOne flips the entry matching tokenStr. Unknown tokens are a silent
// no-op so logout never reveals whether a token is recognized.
func (r *GormRepo) RevokeOne(ctx context.Context, tokenStr string) error {
	return r.DB.WithContext(ctx).Model(&models.TokenEntry{}).
		Where("token = ?", tokenStr).
		Update("revoked", true).Error
}

func (r *GormRepo) IsActive(ctx context.Context, tokenStr string, kind models.TokenKind) (bool, error) {
	var entry models.TokenEntry
	err := r.DB.WithContext(ctx).
		Where("token = ? AND kind = ?", tokenStr, kind).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return !entry.Revoked, nil
}

// ReplacePair revokes every live entry for userID and records the new
// access/refresh pair in a single transaction, so no validation can observe
// a state where the old pair and the new pair are both active.
func (r *GormRepo) ReplacePair(ctx context.Context, userID uint, accessToken, refreshToken string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.revokeAll(tx, userID); err != nil {
			return err
		}

		entries := []models.TokenEntry{
			{Token: accessToken, Kind: models.KindAccess, UserID: userID},
			{Token: refreshToken, Kind: models.KindRefresh, UserID: userID},
		}
		return tx.Create(&entries).Error
	})
}
