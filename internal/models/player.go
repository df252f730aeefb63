package models

import "github.com/google/uuid"

// Player is one seat in a game. Cross-references to teams are by id, never
// by pointer, so player and team values stay plain data.
type Player struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	TeamID uuid.UUID `json:"team_id,omitempty"`
	IsBot  bool      `json:"is_bot"`
}

// Team is one side of a team game. Members partition the player list once
// teams are created.
type Team struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Members  []uuid.UUID `json:"members"`
	Score    int         `json:"score"`
	BooksWon []Book      `json:"books_won,omitempty"`
}

// HasMember reports whether the given player belongs to this team.
func (t Team) HasMember(playerID uuid.UUID) bool {
	for _, m := range t.Members {
		if m == playerID {
			return true
		}
	}
	return false
}
