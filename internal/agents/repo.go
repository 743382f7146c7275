package agents

import (
	"context"

	"gorm.io/gorm"

	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

// Repository defines persistence operations for the agent roster.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, agentID string) (*models.Agent, error)
	List(ctx context.Context) ([]models.Agent, error)
	AssignTicket(ctx context.Context, agentID, ticketNumber string) error
	Release(ctx context.Context, agentID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an agents repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, agentID string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		Where("id = ?", agentID).
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) List(ctx context.Context) ([]models.Agent, error) {
	var roster []models.Agent
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&roster).Error
	if err != nil {
		return nil, err
	}
	return roster, nil
}

func (r *repository) AssignTicket(ctx context.Context, agentID, ticketNumber string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]any{
			"status":         enums.AgentStatusBusy,
			"current_ticket": ticketNumber,
			"total_served":   gorm.Expr("total_served + 1"),
		}).Error
}

func (r *repository) Release(ctx context.Context, agentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]any{
			"status":         enums.AgentStatusAvailable,
			"current_ticket": nil,
		}).Error
}
