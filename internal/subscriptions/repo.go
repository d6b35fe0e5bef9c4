package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
)

// Repository exposes subscription persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscription repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertTx writes the single live subscription row for sub.UserID inside the
// caller's transaction. A conflicting row is replaced in place, which is how
// renewals and re-activations work.
func (r *Repository) UpsertTx(tx *gorm.DB, sub *models.Subscription) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_code",
			"status",
			"current_period_start",
			"current_period_end",
			"license_key",
			"updated_at",
		}),
	}).Create(sub).Error
}

// FindByUser returns the user's subscription row, or gorm.ErrRecordNotFound.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelByUser transitions the user's subscription to cancelled. Returns false
// when the user has no non-terminated row to cancel.
func (r *Repository) CancelByUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).
		Update("status", enums.SubscriptionStatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FetchDueForExpiryTx locks and returns active rows whose period has lapsed.
// SKIP LOCKED keeps concurrent sweep runs from fighting over the same rows.
func (r *Repository) FetchDueForExpiryTx(tx *gorm.DB, now time.Time, limit int) ([]models.Subscription, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var rows []models.Subscription
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND current_period_end < ?", enums.SubscriptionStatusActive, now).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkExpiredTx flips a lapsed row to expired inside the sweep transaction.
func (r *Repository) MarkExpiredTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("status", enums.SubscriptionStatusExpired).Error
}
