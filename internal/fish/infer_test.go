package fish

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/cardtable/internal/models"
)

func trackerFixture(t *testing.T) (*Game, []models.Player, *Tracker) {
	t.Helper()
	g, players := setupDealtGame(t)
	tr := NewTracker(g.st, players[3].ID)
	return g, players, tr
}

func TestTrackerInitialBeliefs(t *testing.T) {
	g, players, tr := trackerFixture(t)
	self := players[3].ID

	for _, c := range g.st.Hands[self] {
		loc, ok := tr.Location(c)
		require.True(t, ok)
		assert.Equal(t, self, loc.Known, "own cards start known")
		assert.Empty(t, loc.Possible)
	}
	for _, c := range g.st.Hands[players[0].ID] {
		loc, ok := tr.Location(c)
		require.True(t, ok)
		assert.Equal(t, uuid.Nil, loc.Known)
		assert.Len(t, loc.Possible, 3, "unseen cards could sit with any other player")
	}
}

func TestSuccessfulAskPromotesToKnown(t *testing.T) {
	_, players, tr := trackerFixture(t)
	card := models.Card{Rank: models.RankNine, Suit: models.Diamonds}

	rec := models.MoveRecord{
		At:      time.Now(),
		Actor:   players[0].ID,
		Move:    models.Ask{Asker: players[0].ID, Target: players[1].ID, Card: card},
		Success: true,
	}
	tr.Observe(rec)

	loc, ok := tr.Location(card)
	require.True(t, ok)
	assert.Equal(t, players[0].ID, loc.Known)
	assert.Empty(t, loc.Possible, "possible owners are cleared on promotion")
}

func TestFailedAskEliminatesBothParties(t *testing.T) {
	g, players, tr := trackerFixture(t)

	// Pick a card the observer does not hold.
	var card models.Card
	for _, c := range g.st.Hands[players[0].ID] {
		card = c
		break
	}
	require.NotEqual(t, models.Card{}, card)

	fail := func(asker, target uuid.UUID) models.MoveRecord {
		return models.MoveRecord{
			At:      time.Now(),
			Actor:   asker,
			Move:    models.Ask{Asker: asker, Target: target, Card: card},
			Success: false,
		}
	}

	tr.Observe(fail(players[1].ID, players[2].ID))
	loc, ok := tr.Location(card)
	require.True(t, ok)
	assert.Equal(t, players[0].ID, loc.Inferred,
		"after eliminating two of three candidates the last one is inferred")
	assert.Empty(t, loc.Possible)
}

func TestClaimDeletesBookEntries(t *testing.T) {
	_, players, tr := trackerFixture(t)
	book := models.Book("Upper Spades")

	tr.Observe(models.MoveRecord{
		At:      time.Now(),
		Actor:   players[0].ID,
		Move:    models.Claim{Claimer: players[0].ID, Book: book, Owners: map[models.Card]uuid.UUID{}},
		Success: false,
	})
	for _, c := range models.BookCards(book) {
		_, ok := tr.Location(c)
		assert.False(t, ok, "settled book entries are deleted outright")
	}
}

func TestInferenceMonotonicity(t *testing.T) {
	g, players, tr := trackerFixture(t)

	var card models.Card
	for _, c := range g.st.Hands[players[0].ID] {
		card = c
		break
	}

	sizes := []int{len(tr.PossibleOwners(card))}
	tr.Observe(models.MoveRecord{
		At: time.Now(), Actor: players[1].ID, Success: false,
		Move: models.Ask{Asker: players[1].ID, Target: players[2].ID, Card: card},
	})
	sizes = append(sizes, len(tr.PossibleOwners(card)))
	tr.Observe(models.MoveRecord{
		At: time.Now(), Actor: players[1].ID, Success: false,
		Move: models.Ask{Asker: players[1].ID, Target: players[2].ID, Card: card},
	})
	sizes = append(sizes, len(tr.PossibleOwners(card)))

	for i := 1; i < len(sizes); i++ {
		assert.LessOrEqual(t, sizes[i], sizes[i-1], "possible owners only ever shrink")
	}
}

func TestObserveIsIdempotent(t *testing.T) {
	g, players, tr := trackerFixture(t)

	var card models.Card
	for _, c := range g.st.Hands[players[0].ID] {
		card = c
		break
	}
	rec := models.MoveRecord{
		At: time.Now(), Actor: players[1].ID, Success: false,
		Move: models.Ask{Asker: players[1].ID, Target: players[2].ID, Card: card},
	}
	tr.Observe(rec)
	first, _ := tr.Location(card)
	tr.Observe(rec)
	second, _ := tr.Location(card)
	assert.Equal(t, first, second, "replaying an observation changes nothing")
}

func TestTrackersFollowLiveGame(t *testing.T) {
	// Bot trackers wired through Game.Apply stay consistent with play.
	players := make([]models.Player, 4)
	for i := range players {
		players[i] = models.Player{ID: uuid.New(), Name: string(rune('A' + i)), IsBot: i == 3}
	}
	g := NewGame(players[0], DefaultConfig)
	for _, p := range players[1:] {
		require.NoError(t, g.AddPlayer(p))
	}
	require.NoError(t, g.CreateTeams("Odds", "Evens"))
	_, err := g.Deal()
	require.NoError(t, err)
	require.Len(t, g.trackers, 1, "one tracker per bot seat")

	played := playSomeAsks(t, g, 10)
	require.Greater(t, played, 0)

	tr := g.trackers[players[3].ID]
	for _, rec := range g.st.History {
		ask, ok := rec.Move.(models.Ask)
		if !ok || !rec.Success {
			continue
		}
		if loc, tracked := tr.Location(ask.Card); tracked {
			// The card may have moved again in a later ask; the belief must
			// match the most recent observation affecting it.
			assert.NotEqual(t, uuid.Nil, loc.Known)
		}
	}
}
