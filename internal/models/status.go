package models

// Status is the lifecycle state of a game. The Callbreak engine cycles the
// three round statuses inside IN_PROGRESS; Fish goes straight from
// TEAMS_CREATED to IN_PROGRESS. COMPLETED is absorbing.
type Status string

const (
	StatusCreated        Status = "created"
	StatusPlayersReady   Status = "players_ready"
	StatusTeamsCreated   Status = "teams_created"
	StatusInProgress     Status = "in_progress"
	StatusWinsDeclared   Status = "wins_declared"
	StatusRoundStarted   Status = "round_started"
	StatusRoundCompleted Status = "round_completed"
	StatusCompleted      Status = "completed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}
