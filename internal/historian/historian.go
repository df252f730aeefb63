// Package historian drains the move-record queue from Redis and persists it
// to PostgreSQL, and sweeps stale games into the abandoned state.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/cardtable/internal/cache"
	"github.com/cardtable/cardtable/internal/database"
)

// Service consumes move records off the Redis queue in batches and flushes
// them to the database. It also periodically marks inactive games abandoned.
type Service struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration
	abandonMins int

	log *logrus.Logger

	batchMu sync.Mutex
	batch   []cache.MoveRecordEntry

	// flushFn writes one batch; replaced in tests.
	flushFn func(ctx context.Context, batch []cache.MoveRecordEntry) error
}

// New constructs a Service from environment variables or defaults.
func New(logger *logrus.Logger) *Service {
	s := &Service{
		redisClient: redis.NewClient(&redis.Options{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		}),
		queueName:   getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		batchSize:   getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		flushDelay:  time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		abandonMins: getEnvInt("GAME_ABANDON_TIMEOUT_MIN", 10),
		log:         logger,
	}
	s.batch = make([]cache.MoveRecordEntry, 0, s.batchSize)
	s.flushFn = flushToDB
	return s
}

// Run blocks consuming the queue until ctx is done. The abandonment sweep
// runs on its own ticker.
func (s *Service) Run(ctx context.Context) {
	go s.abandonLoop(ctx)

	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	s.log.WithField("queue", s.queueName).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			s.Flush(context.Background())
			s.log.Info("historian shutting down")
			return

		case <-ticker.C:
			s.Flush(ctx)

		default:
			// BLPop with a short timeout so ctx cancellation is honored.
			res, err := s.redisClient.BLPop(ctx, 3*time.Second, s.queueName).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.log.WithError(err).Error("blpop failed")
				}
				continue
			}
			if len(res) < 2 {
				continue
			}
			var entry cache.MoveRecordEntry
			if err := json.Unmarshal([]byte(res[1]), &entry); err != nil {
				s.log.WithError(err).Warn("discarding malformed move record")
				continue
			}
			s.Append(ctx, entry)
		}
	}
}

// Append adds one entry to the pending batch, flushing when the batch is
// full.
func (s *Service) Append(ctx context.Context, entry cache.MoveRecordEntry) {
	s.batchMu.Lock()
	s.batch = append(s.batch, entry)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

// Pending reports the number of entries waiting to be flushed.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Flush writes out the pending batch, if any.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]cache.MoveRecordEntry, 0, s.batchSize)
	s.batchMu.Unlock()

	if err := s.flushFn(ctx, batch); err != nil {
		s.log.WithError(err).WithField("count", len(batch)).Error("failed to flush move records")
		return
	}
	s.log.WithField("count", len(batch)).Debug("flushed move records")
}

// abandonLoop periodically marks games with no recent snapshot writes as
// abandoned.
func (s *Service) abandonLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := database.MarkAbandonedGames(ctx, s.abandonMins)
			if err != nil {
				s.log.WithError(err).Error("failed to mark abandoned games")
			} else if n > 0 {
				s.log.WithField("count", n).Info("marked games abandoned")
			}
		}
	}
}

// flushToDB inserts one batch of move records in a single transaction.
func flushToDB(ctx context.Context, batch []cache.MoveRecordEntry) error {
	return pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, entry := range batch {
			if err := insertMoveTx(ctx, tx, entry); err != nil {
				return fmt.Errorf("insert move record: %w", err)
			}
		}
		return nil
	})
}

// insertMoveTx upserts the game row and appends one move to game_moves.
func insertMoveTx(ctx context.Context, tx pgx.Tx, entry cache.MoveRecordEntry) error {
	upsertGame := `
		INSERT INTO games (id, variant, status, updated_at)
		VALUES ($1, $2, 'in_progress', NOW())
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, upsertGame, entry.GameID, entry.Variant); err != nil {
		return err
	}

	record, err := json.Marshal(entry.Record)
	if err != nil {
		return err
	}
	insertMove := `
		INSERT INTO game_moves (game_id, move_index, actor_id, kind, success, record, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, to_timestamp($7 / 1000.0))
		ON CONFLICT (game_id, move_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, insertMove,
		entry.GameID, entry.MoveIndex, entry.Record.Actor,
		string(entry.Record.Move.Kind()), entry.Record.Success,
		record, entry.Timestamp,
	)
	return err
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
