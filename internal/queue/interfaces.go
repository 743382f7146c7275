package queue

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
)

// Repository defines persistence operations for the ticket store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.Ticket) error
	AssignTicketNumber(ctx context.Context, id int64, number string) error
	FindActive(ctx context.Context, phone, serviceType string) (*models.Ticket, error)
	FindByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error)
	EarliestActiveByPhone(ctx context.Context, phone string) (*models.Ticket, error)
	ListWaiting(ctx context.Context) ([]models.Ticket, error)
	EarliestWaiting(ctx context.Context, serviceType string, lock bool) (*models.Ticket, error)
	Position(ctx context.Context, serviceType string, createdAt time.Time, id int64) (int, error)
	Start(ctx context.Context, id int64, agentID string, calledAt time.Time) error
	Complete(ctx context.Context, ticketNumber string) error
}
