package licenses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/pagination"
)

// Repository exposes license key persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a license key repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts all rows in one statement.
func (r *Repository) CreateBatch(ctx context.Context, rows []*models.LicenseKey) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// CreateTx inserts a single row inside the caller's transaction.
func (r *Repository) CreateTx(tx *gorm.DB, row *models.LicenseKey) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(row).Error
}

// FindByID returns a non-deleted key row by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error) {
	var row models.LicenseKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindActiveByKeyTx looks up a non-deleted row by its key string inside the
// caller's transaction. Soft-deleted rows are excluded by the model's
// DeletedAt scope.
func (r *Repository) FindActiveByKeyTx(tx *gorm.DB, key string) (*models.LicenseKey, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var row models.LicenseKey
	if err := tx.Where("key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ClaimTx marks the key used by userID iff it is still unclaimed. The
// conditional WHERE is the single serialization point for two callers racing
// on the same key: the store lets exactly one UPDATE through.
func (r *Repository) ClaimTx(tx *gorm.DB, id, userID uuid.UUID, at time.Time) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	res := tx.Model(&models.LicenseKey{}).
		Where("id = ? AND is_used = FALSE", id).
		Updates(map[string]any{
			"is_used": true,
			"used_by": userID,
			"used_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SoftDelete retires a key without touching its claim state.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.LicenseKey{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type listQuery struct {
	plan   string
	unused bool
	limit  int
	cursor *pagination.Cursor
}

// List returns key rows using cursor pagination, newest first.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.LicenseKey, error) {
	query := r.db.WithContext(ctx).Model(&models.LicenseKey{})

	if opts.plan != "" {
		query = query.Where("plan_code = ?", opts.plan)
	}
	if opts.unused {
		query = query.Where("is_used = FALSE")
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.LicenseKey
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
