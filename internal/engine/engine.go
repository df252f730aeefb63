// internal/engine/engine.go
package engine

import (
	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/models"
)

// Game is the contract a game engine exposes to the host actor. The host
// guarantees single-writer access: no two calls for the same game run
// concurrently. Implementations keep their transition logic pure and treat
// the wrapper as the only mutable cell.
type Game interface {
	// ID identifies the game instance.
	ID() uuid.UUID

	// Variant names the rule set, e.g. "fish" or "callbreak".
	Variant() string

	// Status returns the current lifecycle status.
	Status() models.Status

	// Players returns the seats in order.
	Players() []models.Player

	// CurrentTurn names the player whose move is expected next. It is
	// uuid.Nil once the game is completed.
	CurrentTurn() uuid.UUID

	// Apply validates and executes a move. A rejected move returns an error
	// from the taxonomy in this package and leaves state untouched.
	Apply(mv models.Move) (models.MoveRecord, error)

	// SuggestBotMove picks a move for an automated player. ok is false when
	// the player has no legal move in the current state.
	SuggestBotMove(playerID uuid.UUID) (mv models.Move, ok bool)

	// Snapshot serializes everything needed to rehydrate the game after
	// eviction. Restore is variant-specific and lives with each engine.
	Snapshot() ([]byte, error)

	// RedactedState renders the game as seen by one player: own hand
	// visible, other hands reduced to counts.
	RedactedState(viewer uuid.UUID) interface{}
}
