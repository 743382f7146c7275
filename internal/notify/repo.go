package notify

import (
	"context"

	"gorm.io/gorm"

	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
)

// Repository persists delivery audit rows.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByPhone(ctx context.Context, phone string, limit int) ([]models.Notification, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) ListByPhone(ctx context.Context, phone string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}
