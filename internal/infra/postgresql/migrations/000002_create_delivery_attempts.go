package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type deliveryAttempt struct {
	ID            string            `gorm:"type:uuid;primaryKey"`
	EndpointID    string            `gorm:"type:uuid;not null"`
	EndpointType  string            `gorm:"type:varchar(20);not null"`
	EventKind     string            `gorm:"type:varchar(64);not null"`
	AttemptNumber int               `gorm:"not null"`
	Status        string            `gorm:"type:varchar(10);not null"`
	DurationMs    int64             `gorm:"not null;default:0"`
	ErrorMessage  *string           `gorm:"type:text"`
	TargetUserID  *string           `gorm:"type:varchar(64)"`
	Metadata      datatypes.JSONMap `gorm:"type:json"`
	CreatedAt     time.Time
}

func (deliveryAttempt) TableName() string {
	return "delivery_attempts"
}

func createDeliveryAttempts() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_delivery_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&deliveryAttempt{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_attempts_endpoint_created ON delivery_attempts (endpoint_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_attempts_status_created ON delivery_attempts (status, created_at)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&deliveryAttempt{})
		},
	}
}
