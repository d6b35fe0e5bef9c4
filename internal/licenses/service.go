package licenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/pkg/db"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	pkgerrors "github.com/pierrevannier/freelancehub-backend/pkg/errors"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	"github.com/pierrevannier/freelancehub-backend/pkg/metrics"
	"github.com/pierrevannier/freelancehub-backend/pkg/outbox"
	pkgpagination "github.com/pierrevannier/freelancehub-backend/pkg/pagination"
)

const (
	// MinIssueQuantity and MaxIssueQuantity bound one stock-issuance call.
	MinIssueQuantity = 1
	MaxIssueQuantity = 100

	// keyUniqueConstraint guards key strings among non-deleted rows.
	keyUniqueConstraint = "ux_license_keys_key_active"
)

type licenseKeysRepository interface {
	CreateBatch(ctx context.Context, rows []*models.LicenseKey) error
	CreateTx(tx *gorm.DB, row *models.LicenseKey) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error)
	FindActiveByKeyTx(tx *gorm.DB, key string) (*models.LicenseKey, error)
	ClaimTx(tx *gorm.DB, id, userID uuid.UUID, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts listQuery) ([]models.LicenseKey, error)
}

type subscriptionsRepository interface {
	UpsertTx(tx *gorm.DB, sub *models.Subscription) error
	CancelByUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes license issuance, activation, and administration semantics.
type Service interface {
	IssueStock(ctx context.Context, input IssueStockInput) ([]models.LicenseKey, error)
	IssueAndGrant(ctx context.Context, input IssueGrantInput) (*models.LicenseKey, error)
	Activate(ctx context.Context, key string, userID uuid.UUID) (*models.Subscription, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
	Inspect(ctx context.Context, key string) (KeyFacts, error)
	ListKeys(ctx context.Context, params ListParams) (*ListResult, error)
	DeleteKey(ctx context.Context, id uuid.UUID) error
}

type service struct {
	codec     *Codec
	catalog   plans.Catalog
	repo      licenseKeysRepository
	subsRepo  subscriptionsRepository
	usersRepo usersRepository
	tx        txRunner
	events    outboxEmitter
	logg      *logger.Logger
	metrics   *metrics.LicensingMetrics
	now       func() time.Time
}

// IssueStockInput holds the parameters of one bulk stock issuance.
type IssueStockInput struct {
	Plan           enums.PlanCode
	DurationMonths int
	Quantity       int
	ClientName     string
}

// IssueGrantInput holds the parameters of an admin grant.
type IssueGrantInput struct {
	Plan           enums.PlanCode
	DurationMonths int
	UserID         uuid.UUID
	GrantedBy      uuid.UUID
}

// NewService builds a license service backed by the provided repositories.
func NewService(codec *Codec, catalog plans.Catalog, repo licenseKeysRepository, subsRepo subscriptionsRepository, usersRepo usersRepository, tx txRunner, events outboxEmitter, logg *logger.Logger, m *metrics.LicensingMetrics) (Service, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("plan catalog required")
	}
	if repo == nil {
		return nil, fmt.Errorf("license key repository required")
	}
	if subsRepo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		codec:     codec,
		catalog:   catalog,
		repo:      repo,
		subsRepo:  subsRepo,
		usersRepo: usersRepo,
		tx:        tx,
		events:    events,
		logg:      logg,
		metrics:   m,
		now:       time.Now,
	}, nil
}

func (s *service) IssueStock(ctx context.Context, input IssueStockInput) ([]models.LicenseKey, error) {
	if input.Quantity < MinIssueQuantity || input.Quantity > MaxIssueQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity,
			fmt.Sprintf("quantity must be between %d and %d", MinIssueQuantity, MaxIssueQuantity))
	}
	duration := input.DurationMonths
	if duration <= 0 {
		duration = DefaultDurationMonths
	}
	if _, err := s.catalog.GetPlan(input.Plan); err != nil {
		return nil, err
	}

	var clientName *string
	if trimmed := strings.TrimSpace(input.ClientName); trimmed != "" {
		clientName = &trimmed
	}

	rows := make([]*models.LicenseKey, 0, input.Quantity)
	for i := 0; i < input.Quantity; i++ {
		key, _, err := s.codec.Encode(input.Plan, duration)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &models.LicenseKey{
			ID:             uuid.New(),
			Key:            key,
			PlanCode:       input.Plan,
			DurationMonths: duration,
			ClientName:     clientName,
		})
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		if db.IsUniqueViolation(err, keyUniqueConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "key collision, retry issuance")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "insert license keys")
	}

	s.metrics.AddIssued(input.Plan.String(), "stock", len(rows))
	if s.logg != nil {
		logCtx := s.logg.WithPlan(ctx, input.Plan.String())
		s.logg.Info(s.logg.WithField(logCtx, "quantity", len(rows)), "stock keys issued")
	}

	out := make([]models.LicenseKey, len(rows))
	for i, row := range rows {
		out[i] = *row
	}
	return out, nil
}

func (s *service) IssueAndGrant(ctx context.Context, input IssueGrantInput) (*models.LicenseKey, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	duration := input.DurationMonths
	if duration <= 0 {
		duration = DefaultDurationMonths
	}
	if _, err := s.catalog.GetPlan(input.Plan); err != nil {
		return nil, err
	}

	if _, err := s.usersRepo.FindByID(ctx, input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "grant target user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "lookup grant target")
	}

	key, _, err := s.codec.Encode(input.Plan, duration)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	userID := input.UserID
	row := &models.LicenseKey{
		ID:             uuid.New(),
		Key:            key,
		PlanCode:       input.Plan,
		DurationMonths: duration,
		IsUsed:         true,
		UsedBy:         &userID,
		UsedAt:         &now,
	}
	periodEnd := now.AddDate(0, duration, 0)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, row); err != nil {
			return err
		}
		if err := s.subsRepo.UpsertTx(tx, &models.Subscription{
			UserID:             input.UserID,
			PlanCode:           input.Plan,
			Status:             enums.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   periodEnd,
			LicenseKey:         key,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLicenseGranted,
			AggregateType: enums.AggregateLicenseKey,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: input.GrantedBy, Role: enums.UserRoleAdmin.String()},
			Data: outbox.LicenseGrantedData{
				LicenseKeyID: row.ID,
				UserID:       input.UserID,
				Plan:         input.Plan.String(),
				PeriodEnd:    periodEnd,
				GrantedBy:    input.GrantedBy,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, keyUniqueConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "key collision, retry grant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "grant license")
	}

	s.metrics.AddIssued(input.Plan.String(), "grant", 1)
	if s.logg != nil {
		logCtx := s.logg.WithUserID(s.logg.WithPlan(ctx, input.Plan.String()), input.UserID.String())
		s.logg.Info(logCtx, "license granted")
	}
	return row, nil
}

func (s *service) Activate(ctx context.Context, key string, userID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	// The store row is the authority on plan and duration. Decode only vets
	// the shape, so obviously bogus input is rejected without a query.
	if _, err := s.codec.Decode(key); err != nil {
		s.metrics.IncActivation("malformed")
		return nil, err
	}

	now := s.now().UTC()
	var sub *models.Subscription

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := s.repo.FindActiveByKeyTx(tx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInvalidKey, "license key not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "lookup license key")
		}
		if row.IsUsed {
			return pkgerrors.New(pkgerrors.CodeAlreadyActivated, "license key already claimed")
		}

		claimed, err := s.repo.ClaimTx(tx, row.ID, userID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "claim license key")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeAlreadyActivated, "license key already claimed")
		}

		periodEnd := now.AddDate(0, row.DurationMonths, 0)
		sub = &models.Subscription{
			UserID:             userID,
			PlanCode:           row.PlanCode,
			Status:             enums.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   periodEnd,
			LicenseKey:         key,
		}
		if err := s.subsRepo.UpsertTx(tx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "upsert subscription")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLicenseActivated,
			AggregateType: enums.AggregateLicenseKey,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: outbox.LicenseActivatedData{
				LicenseKeyID: row.ID,
				UserID:       userID,
				Plan:         row.PlanCode.String(),
				PeriodEnd:    periodEnd,
			},
		})
	})
	if err != nil {
		s.metrics.IncActivation(activationResult(err))
		return nil, err
	}

	s.metrics.IncActivation("success")
	if s.logg != nil {
		logCtx := s.logg.WithLicenseKey(s.logg.WithUserID(ctx, userID.String()), key)
		s.logg.Info(logCtx, "license activated")
	}
	return sub, nil
}

func (s *service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	// Cancelling the subscription does not un-claim the stock record; a
	// claimed key stays claimed forever.
	cancelled, err := s.subsRepo.CancelByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "cancel subscription")
	}
	if !cancelled {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "subscription cancelled")
	}
	return nil
}

// Inspect decodes a key string without touching the store. The returned
// expiry assumes the default duration; it is informational only.
func (s *service) Inspect(ctx context.Context, key string) (KeyFacts, error) {
	return s.codec.Decode(key)
}

func (s *service) ListKeys(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		plan:   params.Plan,
		unused: params.UnusedOnly,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "list license keys")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) DeleteKey(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "license key id is required")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "delete license key")
	}
	return nil
}

func activationResult(err error) string {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeAlreadyActivated):
		return "already_activated"
	case pkgerrors.HasCode(err, pkgerrors.CodeInvalidKey):
		return "invalid_key"
	default:
		return "error"
	}
}
