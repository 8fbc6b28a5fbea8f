package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	RecordAttempt(ctx context.Context, a *domain.DeliveryAttempt) error
	ListByEndpoint(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error)
}

type GormAttemptRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db, now: time.Now}
}

func (r *GormAttemptRepo) RecordAttempt(ctx context.Context, a *domain.DeliveryAttempt) error {
	if a == nil {
		return fmt.Errorf("%w: attempt is required", domain.ErrValidation)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid delivery status %q", domain.ErrValidation, a.Status)
	}
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now().UTC()
	}

	model := attemptModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: attempt %s already recorded", domain.ErrConflict, a.ID)
		}
		return err
	}
	return nil
}

// ListByEndpoint returns the newest attempts first.
func (r *GormAttemptRepo) ListByEndpoint(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("endpoint_id = ?", endpointID).
		Order("created_at DESC").
		Order("attempt_number DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
