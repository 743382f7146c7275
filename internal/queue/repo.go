package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ticket repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) AssignTicketNumber(ctx context.Context, id int64, number string) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", id).
		Update("ticket_number", number).Error
}

func (r *repository) FindActive(ctx context.Context, phone, serviceType string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("phone = ? AND service_type = ? AND status IN ?", phone, serviceType, activeStatuses()).
		Order("created_at ASC").
		Order("id ASC").
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) FindByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("ticket_number = ?", ticketNumber).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) EarliestActiveByPhone(ctx context.Context, phone string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("phone = ? AND status IN ?", phone, activeStatuses()).
		Order("created_at ASC").
		Order("id ASC").
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListWaiting(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.TicketStatusWaiting).
		Order("service_type ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&tickets).Error
	return tickets, err
}

// EarliestWaiting selects the next dispatch candidate. An empty serviceType
// spans all partitions. The locking clause only applies on dialects that
// support it; sqlite in tests runs without row locks.
func (r *repository) EarliestWaiting(ctx context.Context, serviceType string, lock bool) (*models.Ticket, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.TicketStatusWaiting)
	if serviceType != "" {
		query = query.Where("service_type = ?", serviceType)
	}
	if lock && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ticket models.Ticket
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Position is the 1-based FIFO rank: waiting tickets in the partition created
// at or before (createdAt, id). The id tie-break keeps same-timestamp rows
// deterministic.
func (r *repository) Position(ctx context.Context, serviceType string, createdAt time.Time, id int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("service_type = ? AND status = ?", serviceType, enums.TicketStatusWaiting).
		Where("(created_at < ?) OR (created_at = ? AND id <= ?)", createdAt, createdAt, id).
		Count(&count).Error
	return int(count), err
}

func (r *repository) Start(ctx context.Context, id int64, agentID string, calledAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, enums.TicketStatusWaiting).
		Updates(map[string]any{
			"status":    enums.TicketStatusInProgress,
			"agent_id":  agentID,
			"called_at": calledAt,
		}).Error
}

func (r *repository) Complete(ctx context.Context, ticketNumber string) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("ticket_number = ? AND status = ?", ticketNumber, enums.TicketStatusInProgress).
		Updates(map[string]any{
			"status":       enums.TicketStatusCompleted,
			"completed_at": time.Now(),
		}).Error
}

func activeStatuses() []enums.TicketStatus {
	return []enums.TicketStatus{enums.TicketStatusWaiting, enums.TicketStatusInProgress}
}
