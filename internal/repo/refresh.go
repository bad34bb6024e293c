package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/tekxchange/internal/models"
)

func (r *GormRepo) FindRefreshByUser(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		First(&token).Error; err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

// InsertRefreshIfAbsent inserts t unless the user already has a row. It
// returns the row that is stored after the insert attempt, which is t only
// if this call won.
func (r *GormRepo) InsertRefreshIfAbsent(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(t).Error; err != nil {
		return nil, err
	}
	return r.FindRefreshByUser(ctx, t.UserID)
}

func (r *GormRepo) DeleteRefreshByUser(ctx context.Context, userID int64) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error
}
