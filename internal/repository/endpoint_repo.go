package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

type EndpointRepository interface {
	Create(ctx context.Context, e *domain.NotificationEndpoint) error
	GetByID(ctx context.Context, id string) (*domain.NotificationEndpoint, error)
	List(ctx context.Context, filter EndpointFilter) ([]domain.NotificationEndpoint, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
	ListGlobalEndpoints(ctx context.Context) ([]domain.NotificationEndpoint, error)
	ListEndpointsForUser(ctx context.Context, userID string) ([]domain.NotificationEndpoint, error)
}

// EndpointFilter narrows List. An empty OwnerUserID lists every endpoint.
type EndpointFilter struct {
	OwnerUserID string
	GlobalOnly  bool
	Type        domain.ChannelType
	Limit       int
	Offset      int
}

type GormEndpointRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormEndpointRepo(db *gorm.DB) *GormEndpointRepo {
	return &GormEndpointRepo{db: db, now: time.Now}
}

func (r *GormEndpointRepo) Create(ctx context.Context, e *domain.NotificationEndpoint) error {
	if e == nil {
		return fmt.Errorf("%w: endpoint is required", domain.ErrValidation)
	}
	if err := e.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	now := r.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	model := endpointModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: endpoint %s already exists", domain.ErrConflict, e.ID)
		}
		return err
	}

	*e = *endpointModelToDomain(model)
	return nil
}

func (r *GormEndpointRepo) GetByID(ctx context.Context, id string) (*domain.NotificationEndpoint, error) {
	var model EndpointModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return endpointModelToDomain(&model), nil
}

func (r *GormEndpointRepo) List(ctx context.Context, filter EndpointFilter) ([]domain.NotificationEndpoint, error) {
	query := r.db.WithContext(ctx).Model(&EndpointModel{})

	switch {
	case filter.GlobalOnly:
		query = query.Where("owner_user_id IS NULL")
	case filter.OwnerUserID != "":
		query = query.Where("owner_user_id = ?", filter.OwnerUserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var models []EndpointModel
	if err := query.Order("created_at ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, err
	}

	return endpointsToDomain(models), nil
}

func (r *GormEndpointRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&EndpointModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"enabled":    enabled,
			"updated_at": r.now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormEndpointRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&EndpointModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListGlobalEndpoints returns every endpoint without an owner, enabled or not.
// Enablement is checked during fan-out.
func (r *GormEndpointRepo) ListGlobalEndpoints(ctx context.Context) ([]domain.NotificationEndpoint, error) {
	var models []EndpointModel
	err := r.db.WithContext(ctx).
		Where("owner_user_id IS NULL").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return endpointsToDomain(models), nil
}

func (r *GormEndpointRepo) ListEndpointsForUser(ctx context.Context, userID string) ([]domain.NotificationEndpoint, error) {
	var models []EndpointModel
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return endpointsToDomain(models), nil
}

func endpointsToDomain(models []EndpointModel) []domain.NotificationEndpoint {
	endpoints := make([]domain.NotificationEndpoint, 0, len(models))
	for i := range models {
		endpoints = append(endpoints, *endpointModelToDomain(&models[i]))
	}
	return endpoints
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
