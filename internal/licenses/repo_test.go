package licenses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/pagination"
)

func setupLicenseTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	licenseKeys := `
CREATE TABLE IF NOT EXISTS license_keys (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL,
  plan_code TEXT NOT NULL,
  duration_months INTEGER NOT NULL,
  is_used INTEGER NOT NULL DEFAULT 0,
  used_by TEXT,
  used_at DATETIME,
  client_name TEXT,
  created_at DATETIME,
  deleted_at DATETIME
);`
	require.NoError(t, db.Exec(licenseKeys).Error)
	return db
}

func newKeyRow(plan enums.PlanCode, key string, createdAt time.Time) *models.LicenseKey {
	return &models.LicenseKey{
		ID:             uuid.New(),
		Key:            key,
		PlanCode:       plan,
		DurationMonths: 1,
		CreatedAt:      createdAt,
	}
}

func TestRepositoryCreateBatchAndList(t *testing.T) {
	db := setupLicenseTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	rows := []*models.LicenseKey{
		newKeyRow(enums.PlanStarter, "FL-STA-AAA111-SALT000001", base),
		newKeyRow(enums.PlanPro, "FL-PRO-BBB222-SALT000002", base.Add(time.Minute)),
		newKeyRow(enums.PlanPro, "FL-PRO-CCC333-SALT000003", base.Add(2*time.Minute)),
	}
	require.NoError(t, repo.CreateBatch(ctx, rows))

	all, err := repo.List(ctx, listQuery{limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "FL-PRO-CCC333-SALT000003", all[0].Key, "newest first")

	proOnly, err := repo.List(ctx, listQuery{plan: "pro", limit: 10})
	require.NoError(t, err)
	assert.Len(t, proOnly, 2)

	cursor := &pagination.Cursor{CreatedAt: all[0].CreatedAt, ID: all[0].ID}
	older, err := repo.List(ctx, listQuery{limit: 10, cursor: cursor})
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, "FL-PRO-BBB222-SALT000002", older[0].Key)
}

func TestRepositoryListUnusedOnly(t *testing.T) {
	db := setupLicenseTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	used := newKeyRow(enums.PlanPro, "FL-PRO-USED11-SALT000001", now)
	claimer := uuid.New()
	used.IsUsed = true
	used.UsedBy = &claimer
	used.UsedAt = &now
	free := newKeyRow(enums.PlanPro, "FL-PRO-FREE22-SALT000002", now)
	require.NoError(t, repo.CreateBatch(ctx, []*models.LicenseKey{used, free}))

	rows, err := repo.List(ctx, listQuery{unused: true, limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, free.Key, rows[0].Key)
}

func TestRepositoryFindActiveByKeyExcludesDeleted(t *testing.T) {
	db := setupLicenseTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	row := newKeyRow(enums.PlanEnterprise, "FL-ENT-DDD444-SALT000004", now)
	require.NoError(t, repo.CreateBatch(ctx, []*models.LicenseKey{row}))

	found, err := repo.FindActiveByKeyTx(db, row.Key)
	require.NoError(t, err)
	assert.Equal(t, row.ID, found.ID)

	require.NoError(t, repo.SoftDelete(ctx, row.ID))

	_, err = repo.FindActiveByKeyTx(db, row.Key)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// retiring a key twice is not silently accepted
	assert.ErrorIs(t, repo.SoftDelete(ctx, row.ID), gorm.ErrRecordNotFound)
}

func TestRepositoryClaimExactlyOnce(t *testing.T) {
	db := setupLicenseTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	row := newKeyRow(enums.PlanPro, "FL-PRO-EEE555-SALT000005", now)
	require.NoError(t, repo.CreateBatch(ctx, []*models.LicenseKey{row}))

	first := uuid.New()
	second := uuid.New()

	claimed, err := repo.ClaimTx(db, row.ID, first, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimTx(db, row.ID, second, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose the conditional update")

	stored, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, first, *stored.UsedBy, "winner's binding must survive the losing attempt")
	require.NotNil(t, stored.UsedAt)
}
