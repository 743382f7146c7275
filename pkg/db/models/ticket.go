package models

import (
	"time"

	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

// Ticket is a customer's place in a service queue. TicketNumber is assigned
// from the row id at creation time and never changes afterwards.
type Ticket struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement"`
	TicketNumber string               `gorm:"column:ticket_number;type:text;uniqueIndex"`
	Phone        string               `gorm:"column:phone;type:text;not null"`
	CustomerName *string              `gorm:"column:customer_name;type:text"`
	ServiceType  string               `gorm:"column:service_type;type:text;not null"`
	Status       enums.TicketStatus   `gorm:"column:status;type:text;not null;default:waiting"`
	Priority     enums.TicketPriority `gorm:"column:priority;type:text;not null;default:normal"`
	Channel      enums.JoinChannel    `gorm:"column:channel;type:text;not null;default:ussd"`
	KioskID      *string              `gorm:"column:kiosk_id;type:text"`
	AgentID      *string              `gorm:"column:agent_id;type:text"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	CalledAt     *time.Time           `gorm:"column:called_at"`
	CompletedAt  *time.Time           `gorm:"column:completed_at"`
}
