package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertOutboxEvent(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType, createdAt time.Time) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateTicket,
		AggregateID:   "T000042",
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func TestFetchUnpublishedOrdering(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	first := insertOutboxEvent(t, db, enums.EventTicketCreated, base)
	second := insertOutboxEvent(t, db, enums.EventTicketCalled, base.Add(time.Second))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)
}

func TestMarkPublishedExcludesFromFetch(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := insertOutboxEvent(t, db, enums.EventTicketCreated, time.Now())
	require.NoError(t, repo.MarkPublished(event.ID))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := insertOutboxEvent(t, db, enums.EventTicketCreated, time.Now())
	require.NoError(t, repo.MarkFailed(event.ID, errors.New("publish timeout")))
	require.NoError(t, repo.MarkFailed(event.ID, errors.New("publish timeout")))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish timeout", *row.LastError)
}

func TestExistsTx(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	insertOutboxEvent(t, db, enums.EventTicketCreated, time.Now())

	tx := db.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	exists, err := repo.ExistsTx(tx, enums.EventTicketCreated, enums.AggregateTicket, "T000042")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsTx(tx, enums.EventTicketCompleted, enums.AggregateTicket, "T000042")
	require.NoError(t, err)
	assert.False(t, exists)
}
