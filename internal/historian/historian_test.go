package historian

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/cardtable/internal/cache"
	"github.com/cardtable/cardtable/internal/models"
)

func testEntry(gameID uuid.UUID, idx int) cache.MoveRecordEntry {
	actor := uuid.New()
	return cache.MoveRecordEntry{
		GameID:    gameID,
		Variant:   "fish",
		MoveIndex: idx,
		Record: models.MoveRecord{
			At:      time.Now(),
			Actor:   actor,
			Move:    models.Ask{Asker: actor, Target: uuid.New(), Card: models.Card{Rank: models.RankAce, Suit: models.Hearts}},
			Success: true,
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

func testService(t *testing.T, batchSize int) (*Service, *[][]cache.MoveRecordEntry) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	var flushed [][]cache.MoveRecordEntry
	s := &Service{
		batchSize:  batchSize,
		flushDelay: time.Hour,
		log:        logger,
		batch:      make([]cache.MoveRecordEntry, 0, batchSize),
	}
	s.flushFn = func(ctx context.Context, batch []cache.MoveRecordEntry) error {
		flushed = append(flushed, batch)
		return nil
	}
	return s, &flushed
}

func TestAppendFlushesFullBatch(t *testing.T) {
	s, flushed := testService(t, 3)
	gameID := uuid.New()

	s.Append(context.Background(), testEntry(gameID, 1))
	s.Append(context.Background(), testEntry(gameID, 2))
	assert.Empty(t, *flushed)
	assert.Equal(t, 2, s.Pending())

	s.Append(context.Background(), testEntry(gameID, 3))
	require.Len(t, *flushed, 1)
	assert.Len(t, (*flushed)[0], 3)
	assert.Equal(t, 0, s.Pending())
}

func TestFlushDrainsPartialBatch(t *testing.T) {
	s, flushed := testService(t, 10)
	gameID := uuid.New()

	s.Append(context.Background(), testEntry(gameID, 1))
	s.Flush(context.Background())

	require.Len(t, *flushed, 1)
	assert.Len(t, (*flushed)[0], 1)
	assert.Equal(t, gameID, (*flushed)[0][0].GameID)
}

func TestFlushWithEmptyBatchIsNoop(t *testing.T) {
	s, flushed := testService(t, 10)
	s.Flush(context.Background())
	assert.Empty(t, *flushed)
}

func TestFlushedEntriesKeepOrder(t *testing.T) {
	s, flushed := testService(t, 4)
	gameID := uuid.New()
	for i := 1; i <= 4; i++ {
		s.Append(context.Background(), testEntry(gameID, i))
	}
	require.Len(t, *flushed, 1)
	for i, entry := range (*flushed)[0] {
		assert.Equal(t, i+1, entry.MoveIndex)
	}
}
