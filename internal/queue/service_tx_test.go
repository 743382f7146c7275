package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qatalysthq/qatalyst-backend/internal/agents"
	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
	"github.com/qatalysthq/qatalyst-backend/pkg/outbox"
)

// gormTxRunner drives the service through real transactions so failure paths
// can be observed as rollbacks, not just returned errors.
type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type failingEmitPublisher struct{}

func (failingEmitPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return errors.New("emit failed")
}

func setupQueueTxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupTicketsTestDB(t)
	schema := `
CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  current_ticket TEXT,
  total_served INTEGER NOT NULL DEFAULT 0,
  efficiency INTEGER NOT NULL DEFAULT 0,
  skills TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Create(&models.Agent{
		ID:     "agent-001",
		Name:   "David Park",
		Status: enums.AgentStatusAvailable,
	}).Error)
	return db
}

func newTxTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(db),
		agents.NewRepository(db),
		gormTxRunner{db: db},
		failingEmitPublisher{},
		nil,
		nil,
		2,
	)
	require.NoError(t, err)
	return svc
}

func TestCallNextRollsBackWhenEventEmitFails(t *testing.T) {
	db := setupQueueTxTestDB(t)
	svc := newTxTestService(t, db)
	ctx := context.Background()

	candidate := seedTicket(t, db, "+254700000001", ServiceDoctor, enums.TicketStatusWaiting,
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	_, err := svc.CallNext(ctx, "agent-001", ServiceDoctor)
	require.Error(t, err)

	var ticket models.Ticket
	require.NoError(t, db.First(&ticket, "id = ?", candidate.ID).Error)
	assert.Equal(t, enums.TicketStatusWaiting, ticket.Status)
	assert.Nil(t, ticket.AgentID)
	assert.Nil(t, ticket.CalledAt)

	var agent models.Agent
	require.NoError(t, db.First(&agent, "id = ?", "agent-001").Error)
	assert.Equal(t, enums.AgentStatusAvailable, agent.Status)
	assert.Nil(t, agent.CurrentTicket)
	assert.Equal(t, 0, agent.TotalServed)
}

func TestJoinRollsBackWhenEventEmitFails(t *testing.T) {
	db := setupQueueTxTestDB(t)
	svc := newTxTestService(t, db)
	ctx := context.Background()

	_, err := svc.Join(ctx, JoinInput{
		Phone:       "+254711223344",
		Name:        "Amina",
		ServiceType: ServiceBankTeller,
		Channel:     enums.ChannelUSSD,
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	assert.Zero(t, count, "failed join must not leave a ticket row")
}
