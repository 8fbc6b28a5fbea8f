package repository

import (
	"fmt"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"gorm.io/datatypes"
)

// EndpointModel is the persistence model for the notification_endpoints table.
type EndpointModel struct {
	ID          string                      `gorm:"type:uuid;primaryKey"`
	Name        string                      `gorm:"type:varchar(120);not null"`
	Type        domain.ChannelType          `gorm:"type:varchar(20);not null"`
	Enabled     bool                        `gorm:"not null"`
	OwnerUserID *string                     `gorm:"type:varchar(64)"`
	FilterMask  bool                        `gorm:"not null;default:false"`
	EventTypes  int64                       `gorm:"not null;default:0"`
	EventKinds  datatypes.JSONSlice[string] `gorm:"type:json"`
	Config      datatypes.JSONMap           `gorm:"type:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EndpointModel) TableName() string {
	return "notification_endpoints"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID            string                `gorm:"type:uuid;primaryKey"`
	EndpointID    string                `gorm:"type:uuid;not null"`
	EndpointType  domain.ChannelType    `gorm:"type:varchar(20);not null"`
	EventKind     domain.EventKind      `gorm:"type:varchar(64);not null"`
	AttemptNumber int                   `gorm:"not null"`
	Status        domain.DeliveryStatus `gorm:"type:varchar(10);not null"`
	DurationMs    int64                 `gorm:"not null;default:0"`
	ErrorMessage  *string               `gorm:"type:text"`
	TargetUserID  *string               `gorm:"type:varchar(64)"`
	Metadata      datatypes.JSONMap     `gorm:"type:json"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func endpointModelFromDomain(e *domain.NotificationEndpoint) *EndpointModel {
	if e == nil {
		return nil
	}

	kinds := make(datatypes.JSONSlice[string], 0, len(e.Filter.Kinds))
	for _, k := range e.Filter.Kinds {
		kinds = append(kinds, k.String())
	}

	config := make(datatypes.JSONMap, len(e.Config))
	for k, v := range e.Config {
		config[k] = v
	}

	return &EndpointModel{
		ID:          e.ID,
		Name:        e.Name,
		Type:        e.Type,
		Enabled:     e.Enabled,
		OwnerUserID: e.OwnerUserID,
		FilterMask:  e.Filter.Bitmask,
		EventTypes:  int64(e.Filter.Types),
		EventKinds:  kinds,
		Config:      config,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func endpointModelToDomain(m *EndpointModel) *domain.NotificationEndpoint {
	if m == nil {
		return nil
	}

	var kinds []domain.EventKind
	for _, k := range m.EventKinds {
		kinds = append(kinds, domain.EventKind(k))
	}

	// Config values are strings on write; other JSON types only appear
	// when rows were edited by hand.
	config := make(map[string]string, len(m.Config))
	for k, v := range m.Config {
		switch value := v.(type) {
		case string:
			config[k] = value
		case nil:
		default:
			config[k] = fmt.Sprint(value)
		}
	}

	return &domain.NotificationEndpoint{
		ID:          m.ID,
		Name:        m.Name,
		Type:        m.Type,
		Enabled:     m.Enabled,
		OwnerUserID: m.OwnerUserID,
		Filter: domain.EventFilter{
			Bitmask: m.FilterMask,
			Types:   uint64(m.EventTypes),
			Kinds:   kinds,
		},
		Config:    config,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	var metadata datatypes.JSONMap
	if len(a.Metadata) > 0 {
		metadata = datatypes.JSONMap(a.Metadata)
	}

	return &DeliveryAttemptModel{
		ID:            a.ID,
		EndpointID:    a.EndpointID,
		EndpointType:  a.EndpointType,
		EventKind:     a.EventKind,
		AttemptNumber: a.AttemptNumber,
		Status:        a.Status,
		DurationMs:    a.DurationMs,
		ErrorMessage:  a.ErrorMessage,
		TargetUserID:  a.TargetUserID,
		Metadata:      metadata,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:            m.ID,
		EndpointID:    m.EndpointID,
		EndpointType:  m.EndpointType,
		EventKind:     m.EventKind,
		AttemptNumber: m.AttemptNumber,
		Status:        m.Status,
		DurationMs:    m.DurationMs,
		ErrorMessage:  m.ErrorMessage,
		TargetUserID:  m.TargetUserID,
		Metadata:      map[string]any(m.Metadata),
		CreatedAt:     m.CreatedAt,
	}
}
