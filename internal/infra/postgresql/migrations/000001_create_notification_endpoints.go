package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// notificationEndpoint is the table shape as of this migration.
type notificationEndpoint struct {
	ID          string                      `gorm:"type:uuid;primaryKey"`
	Name        string                      `gorm:"type:varchar(120);not null"`
	Type        string                      `gorm:"type:varchar(20);not null"`
	Enabled     bool                        `gorm:"not null;default:true"`
	OwnerUserID *string                     `gorm:"type:varchar(64)"`
	FilterMask  bool                        `gorm:"not null;default:false"`
	EventTypes  int64                       `gorm:"not null;default:0"`
	EventKinds  datatypes.JSONSlice[string] `gorm:"type:json"`
	Config      datatypes.JSONMap           `gorm:"type:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (notificationEndpoint) TableName() string {
	return "notification_endpoints"
}

func createNotificationEndpoints() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_endpoints",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&notificationEndpoint{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_endpoints_owner_user_id ON notification_endpoints (owner_user_id)`,
				`CREATE INDEX IF NOT EXISTS idx_endpoints_global ON notification_endpoints (created_at) WHERE owner_user_id IS NULL`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&notificationEndpoint{})
		},
	}
}
