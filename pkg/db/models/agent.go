package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

// Agent is a service desk operator. CurrentTicket is set only while the agent
// holds an in-progress ticket.
type Agent struct {
	ID            string            `gorm:"column:id;type:text;primaryKey"`
	Name          string            `gorm:"column:name;type:text;not null"`
	Status        enums.AgentStatus `gorm:"column:status;type:text;not null;default:available"`
	CurrentTicket *string           `gorm:"column:current_ticket;type:text"`
	TotalServed   int               `gorm:"column:total_served;not null;default:0"`
	// Efficiency and Skills are informational dashboard fields. Routing never
	// consults them.
	Efficiency int            `gorm:"column:efficiency;not null;default:0"`
	Skills     pq.StringArray `gorm:"column:skills;type:text[]"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
