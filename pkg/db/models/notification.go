package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification records an SMS dispatch attempt for a ticket event. Rows are
// written by the notifier after the provider chain resolves, so the table
// doubles as a delivery audit log.
type Notification struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_notifications_event"`
	Phone     string    `gorm:"column:phone;type:text;not null"`
	Message   string    `gorm:"column:message;type:text;not null"`
	Provider  string    `gorm:"column:provider;type:text;not null"`
	Delivered bool      `gorm:"column:delivered;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
