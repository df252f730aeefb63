// internal/database/game.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardtable/cardtable/internal/host"
	"github.com/cardtable/cardtable/internal/models"
)

// GameStore persists game snapshots and final results. It satisfies the
// host package's SnapshotSaver, SnapshotLoader, and ResultRecorder.
type GameStore struct{}

// SaveSnapshot upserts the replayable snapshot of a game. Every transition
// writes here, so the stored row is always the rehydration source.
func (GameStore) SaveSnapshot(ctx context.Context, gameID uuid.UUID, variant string, status models.Status, data []byte) error {
	q := `
		INSERT INTO games (id, variant, status, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id)
		DO UPDATE SET status = EXCLUDED.status, snapshot = EXCLUDED.snapshot, updated_at = NOW()
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, gameID, variant, string(status), data)
		return e
	})
	if err != nil {
		return fmt.Errorf("upsert game snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot fetches the snapshot for rehydrating an evicted game.
func (GameStore) LoadSnapshot(ctx context.Context, gameID uuid.UUID) (string, []byte, error) {
	var variant string
	var data []byte
	q := `SELECT variant, snapshot FROM games WHERE id = $1`
	if err := DB.QueryRow(ctx, q, gameID).Scan(&variant, &data); err != nil {
		return "", nil, fmt.Errorf("load game snapshot %s: %w", gameID, err)
	}
	return variant, data, nil
}

// RecordResults marks a game completed and upserts one result row per
// player.
func (GameStore) RecordResults(ctx context.Context, gameID uuid.UUID, variant string, results []host.PlayerResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, variant, status, updated_at)
			VALUES ($1, $2, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', updated_at = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID, variant); e != nil {
			return e
		}
		for _, r := range results {
			q := `
				INSERT INTO game_results (game_id, player_id, score, did_win)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET score = $3, did_win = $4
			`
			if _, e := tx.Exec(ctx, q, gameID, r.PlayerID, r.Score, r.Won); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// MarkAbandonedGames flags in-flight games with no activity since the
// cutoff, so the historian can close them out.
func MarkAbandonedGames(ctx context.Context, cutoffMinutes int) (int64, error) {
	q := `
		UPDATE games
		SET status = 'abandoned'
		WHERE status NOT IN ('completed', 'abandoned')
		  AND updated_at < NOW() - ($1 * INTERVAL '1 minute')
	`
	tag, err := DB.Exec(ctx, q, cutoffMinutes)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned games: %w", err)
	}
	return tag.RowsAffected(), nil
}
