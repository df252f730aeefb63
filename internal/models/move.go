// internal/models/move.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MoveKind discriminates the Move union on the wire and in snapshots.
type MoveKind string

const (
	MoveAsk      MoveKind = "ask"
	MoveClaim    MoveKind = "claim"
	MoveTransfer MoveKind = "transfer"
	MoveDeclare  MoveKind = "declare"
	MovePlayCard MoveKind = "play_card"
)

// Move is a closed union over the five move kinds. Each variant carries only
// the fields its kind needs, so validator and executor switches stay
// exhaustive instead of digging through loose payload maps.
type Move interface {
	Kind() MoveKind
	Actor() uuid.UUID
}

// Ask requests a specific card from a named opponent.
type Ask struct {
	Asker  uuid.UUID `json:"asker"`
	Target uuid.UUID `json:"target"`
	Card   Card      `json:"card"`
}

func (m Ask) Kind() MoveKind   { return MoveAsk }
func (m Ask) Actor() uuid.UUID { return m.Asker }

// Claim declares the exact owner of every card in a book. The declared map
// may name any player, not only teammates.
type Claim struct {
	Claimer uuid.UUID          `json:"claimer"`
	Book    Book               `json:"book"`
	Owners  map[Card]uuid.UUID `json:"owners"`
}

func (m Claim) Kind() MoveKind   { return MoveClaim }
func (m Claim) Actor() uuid.UUID { return m.Claimer }

// Transfer hands the turn to a teammate after a successful claim.
type Transfer struct {
	From uuid.UUID `json:"from"`
	To   uuid.UUID `json:"to"`
}

func (m Transfer) Kind() MoveKind   { return MoveTransfer }
func (m Transfer) Actor() uuid.UUID { return m.From }

// Declare commits a player to a number of tricks before a Callbreak round.
type Declare struct {
	Player uuid.UUID `json:"player"`
	Wins   int       `json:"wins"`
}

func (m Declare) Kind() MoveKind   { return MoveDeclare }
func (m Declare) Actor() uuid.UUID { return m.Player }

// PlayCard contributes one card to the current trick.
type PlayCard struct {
	Player uuid.UUID `json:"player"`
	Card   Card      `json:"card"`
}

func (m PlayCard) Kind() MoveKind   { return MovePlayCard }
func (m PlayCard) Actor() uuid.UUID { return m.Player }

// MoveRecord is one immutable entry of the append-only move log.
type MoveRecord struct {
	At      time.Time
	Actor   uuid.UUID
	Move    Move
	Success bool
}

// moveEnvelope is the kind-tagged JSON form of a MoveRecord, used by
// snapshots and the historian queue.
type moveEnvelope struct {
	At      time.Time       `json:"at"`
	Actor   uuid.UUID       `json:"actor"`
	Kind    MoveKind        `json:"kind"`
	Move    json.RawMessage `json:"move"`
	Success bool            `json:"success"`
}

// MarshalJSON encodes the record with an explicit kind tag.
func (r MoveRecord) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(r.Move)
	if err != nil {
		return nil, err
	}
	return json.Marshal(moveEnvelope{
		At:      r.At,
		Actor:   r.Actor,
		Kind:    r.Move.Kind(),
		Move:    body,
		Success: r.Success,
	})
}

// UnmarshalJSON decodes the kind tag and the matching variant.
func (r *MoveRecord) UnmarshalJSON(data []byte) error {
	var env moveEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	var mv Move
	switch env.Kind {
	case MoveAsk:
		var m Ask
		if err := json.Unmarshal(env.Move, &m); err != nil {
			return err
		}
		mv = m
	case MoveClaim:
		var m Claim
		if err := json.Unmarshal(env.Move, &m); err != nil {
			return err
		}
		mv = m
	case MoveTransfer:
		var m Transfer
		if err := json.Unmarshal(env.Move, &m); err != nil {
			return err
		}
		mv = m
	case MoveDeclare:
		var m Declare
		if err := json.Unmarshal(env.Move, &m); err != nil {
			return err
		}
		mv = m
	case MovePlayCard:
		var m PlayCard
		if err := json.Unmarshal(env.Move, &m); err != nil {
			return err
		}
		mv = m
	default:
		return fmt.Errorf("unknown move kind %q", env.Kind)
	}
	r.At = env.At
	r.Actor = env.Actor
	r.Move = mv
	r.Success = env.Success
	return nil
}
