package callbreak

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// setupDealtGame builds a 4-player game through join and first deal.
func setupDealtGame(t *testing.T, cfg Config) (*Game, []models.Player) {
	t.Helper()
	players := make([]models.Player, 4)
	for i := range players {
		players[i] = models.Player{ID: uuid.New(), Name: string(rune('A' + i))}
	}
	g := NewGame(players[0], cfg)
	for _, p := range players[1:] {
		require.NoError(t, g.AddPlayer(p))
	}
	require.Equal(t, models.StatusPlayersReady, g.Status())
	hands, err := g.StartDeal()
	require.NoError(t, err)
	require.Len(t, hands, 4)
	for _, h := range hands {
		require.Len(t, h, 13)
	}
	require.Equal(t, models.StatusInProgress, g.Status())
	require.Equal(t, players[0].ID, g.CurrentTurn())
	return g, g.Players()
}

// suitPerPlayer replaces the dealt hands with one full suit per seat, in
// seat order. With all spades in one hand every trick is trumped, which
// makes whole deals deterministic.
func suitPerPlayer(t *testing.T, g *Game) {
	t.Helper()
	hands := make(map[uuid.UUID]deck.Hand, len(g.st.Players))
	for i, p := range g.st.Players {
		suit := models.Suits[i]
		cards := make([]models.Card, 0, 13)
		for _, r := range models.Ranks {
			cards = append(cards, models.Card{Rank: r, Suit: suit})
		}
		hands[p.ID] = deck.NewHand(cards)
	}
	g.st = beginDeal(g.st, hands)
	g.deals[len(g.deals)-1] = hands
	require.NoError(t, g.st.CheckConservation())
}

// declareAll runs the declaring phase with the given wins per seat, in the
// current deal's play order.
func declareAll(t *testing.T, g *Game, wins map[uuid.UUID]int) {
	t.Helper()
	for range g.st.Players {
		turn := g.CurrentTurn()
		_, err := g.Apply(models.Declare{Player: turn, Wins: wins[turn]})
		require.NoError(t, err)
	}
	require.Equal(t, models.StatusWinsDeclared, g.Status())
}

func TestDeclarationPhase(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)

	// Declarations run in seat order and anything out of turn is rejected.
	_, err := g.Apply(models.Declare{Player: players[1].ID, Wins: 3})
	require.Error(t, err)
	assert.True(t, engine.IsRejection(err))

	_, err = g.Apply(models.Declare{Player: players[0].ID, Wins: 0})
	require.Error(t, err, "declared wins below one are rejected")
	_, err = g.Apply(models.Declare{Player: players[0].ID, Wins: 14})
	require.Error(t, err, "declared wins beyond the trick count are rejected")

	// No card play before everyone has declared.
	_, err = g.Apply(models.PlayCard{Player: players[0].ID, Card: g.st.Hands[players[0].ID][0]})
	require.Error(t, err)

	for i, p := range players {
		_, err = g.Apply(models.Declare{Player: p.ID, Wins: i + 1})
		require.NoError(t, err)
	}
	assert.Equal(t, models.StatusWinsDeclared, g.Status())
	assert.Equal(t, players[0].ID, g.CurrentTurn(), "the deal's lead seat opens play")

	// Declaring twice is a conflict.
	_, err = g.Apply(models.Declare{Player: players[0].ID, Wins: 2})
	require.Error(t, err)
}

func TestFollowSuitEnforced(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)
	suitPerPlayer(t, g)

	// Cross one club and one diamond between seats 0 and 1 so seat 1 holds
	// a card of the led suit.
	club := models.Card{Rank: models.RankTwo, Suit: models.Clubs}
	diamond := models.Card{Rank: models.RankTwo, Suit: models.Diamonds}
	g.st.Hands[players[0].ID] = g.st.Hands[players[0].ID].Remove(club).Add(diamond)
	g.st.Hands[players[1].ID] = g.st.Hands[players[1].ID].Remove(diamond).Add(club)

	wins := map[uuid.UUID]int{}
	for _, p := range players {
		wins[p.ID] = 1
	}
	declareAll(t, g, wins)

	lead := models.Card{Rank: models.RankAce, Suit: models.Clubs}
	_, err := g.Apply(models.PlayCard{Player: players[0].ID, Card: lead})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRoundStarted, g.Status())

	// Seat 1 holds the two of clubs and may not discard a diamond.
	_, err = g.Apply(models.PlayCard{Player: players[1].ID, Card: models.Card{Rank: models.RankThree, Suit: models.Diamonds}})
	require.Error(t, err)
	assert.True(t, engine.IsRejection(err))

	_, err = g.Apply(models.PlayCard{Player: players[1].ID, Card: club})
	require.NoError(t, err)

	// A card outside the hand is rejected regardless of suit.
	_, err = g.Apply(models.PlayCard{Player: players[2].ID, Card: club})
	require.Error(t, err)
}

func TestTrickWinnerRules(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	card := func(r models.Rank, s models.Suit) models.Card { return models.Card{Rank: r, Suit: s} }

	// Highest of the led suit wins a trump-free trick, ace high.
	tr := Trick{Leader: a, Plays: []Play{
		{Player: a, Card: card(models.RankNine, models.Hearts)},
		{Player: b, Card: card(models.RankAce, models.Hearts)},
		{Player: c, Card: card(models.RankKing, models.Hearts)},
		{Player: d, Card: card(models.RankQueen, models.Clubs)},
	}}
	assert.Equal(t, b, trickWinner(tr))

	// Any spade beats every non-spade, and higher spades beat lower ones.
	tr = Trick{Leader: a, Plays: []Play{
		{Player: a, Card: card(models.RankAce, models.Hearts)},
		{Player: b, Card: card(models.RankTwo, models.Spades)},
		{Player: c, Card: card(models.RankKing, models.Hearts)},
		{Player: d, Card: card(models.RankFive, models.Spades)},
	}}
	assert.Equal(t, d, trickWinner(tr))

	// An off-suit non-trump card never wins, however high.
	tr = Trick{Leader: a, Plays: []Play{
		{Player: a, Card: card(models.RankThree, models.Diamonds)},
		{Player: b, Card: card(models.RankAce, models.Clubs)},
		{Player: c, Card: card(models.RankTwo, models.Diamonds)},
		{Player: d, Card: card(models.RankAce, models.Hearts)},
	}}
	assert.Equal(t, a, trickWinner(tr))
}

// playDeal drives a whole deal with every seat playing its first legal card.
// With suit-per-player hands the spade holder wins all thirteen tricks.
func playDeal(t *testing.T, g *Game) {
	t.Helper()
	for g.Status() == models.StatusWinsDeclared || g.Status() == models.StatusRoundStarted {
		turn := g.CurrentTurn()
		legal := legalCards(g.st, g.st.Hands[turn])
		require.NotEmpty(t, legal)
		_, err := g.Apply(models.PlayCard{Player: turn, Card: legal[0]})
		require.NoError(t, err)
		require.NoError(t, g.st.CheckConservation())
	}
}

func TestDealScoring(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)
	suitPerPlayer(t, g)
	declareAll(t, g, map[uuid.UUID]int{
		players[0].ID: 2,
		players[1].ID: 3,
		players[2].ID: 1,
		players[3].ID: 13,
	})

	playDeal(t, g)

	assert.Equal(t, models.StatusRoundCompleted, g.Status())
	assert.Equal(t, 13, g.st.Won[players[3].ID], "the spade hand trumps every trick")
	assert.Equal(t, 130, g.st.Scores[players[3].ID], "exact declaration scores ten per trick")
	assert.Equal(t, -20, g.st.Scores[players[0].ID])
	assert.Equal(t, -30, g.st.Scores[players[1].ID])
	assert.Equal(t, -10, g.st.Scores[players[2].ID])
	assert.Equal(t, uuid.Nil, g.CurrentTurn())
	assert.Equal(t, 1, g.st.DealsPlayed)
}

func TestOvertricksScoreTwoEach(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)
	suitPerPlayer(t, g)
	declareAll(t, g, map[uuid.UUID]int{
		players[0].ID: 1,
		players[1].ID: 1,
		players[2].ID: 1,
		players[3].ID: 10,
	})
	playDeal(t, g)
	assert.Equal(t, 10*10+2*3, g.st.Scores[players[3].ID],
		"three overtricks add two points each")
}

func TestSeatRotationAcrossDeals(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)
	suitPerPlayer(t, g)
	wins := map[uuid.UUID]int{}
	for _, p := range players {
		wins[p.ID] = 1
	}
	declareAll(t, g, wins)
	playDeal(t, g)
	require.Equal(t, models.StatusRoundCompleted, g.Status())

	_, err := g.StartDeal()
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, g.Status())
	assert.Equal(t, players[1].ID, g.CurrentTurn(), "the lead rotates one seat per deal")
	assert.Equal(t, players[1].ID, g.st.Order[0])
	assert.Equal(t, players[0].ID, g.st.Order[3])
}

func TestGameCompletesAfterConfiguredDeals(t *testing.T) {
	cfg := DefaultConfig
	cfg.Deals = 1
	g, players := setupDealtGame(t, cfg)
	suitPerPlayer(t, g)
	wins := map[uuid.UUID]int{}
	for _, p := range players {
		wins[p.ID] = 1
	}
	declareAll(t, g, wins)
	playDeal(t, g)

	assert.Equal(t, models.StatusCompleted, g.Status())
	assert.Equal(t, uuid.Nil, g.CurrentTurn())

	// COMPLETED is absorbing.
	_, err := g.StartDeal()
	require.Error(t, err)
	_, err = g.Apply(models.Declare{Player: players[0].ID, Wins: 1})
	require.Error(t, err)
}

func TestReplayReproducesState(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)
	suitPerPlayer(t, g)
	declareAll(t, g, map[uuid.UUID]int{
		players[0].ID: 2,
		players[1].ID: 3,
		players[2].ID: 1,
		players[3].ID: 13,
	})

	// Part of the deal, snapshot mid-trick sequence.
	for i := 0; i < 10; i++ {
		turn := g.CurrentTurn()
		legal := legalCards(g.st, g.st.Hands[turn])
		_, err := g.Apply(models.PlayCard{Player: turn, Card: legal[0]})
		require.NoError(t, err)
	}

	data, err := g.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(data)
	require.NoError(t, err)

	assert.Equal(t, g.st.Status, restored.st.Status)
	assert.Equal(t, g.st.Turn, restored.st.Turn)
	assert.Equal(t, g.st.Declared, restored.st.Declared)
	assert.Equal(t, g.st.Won, restored.st.Won)
	assert.Equal(t, len(g.st.Finished), len(restored.st.Finished))
	for id, h := range g.st.Hands {
		assert.Equal(t, h, restored.st.Hands[id])
	}
}

func TestReplayAcrossDeals(t *testing.T) {
	g, players := setupDealtGame(t, DefaultConfig)
	suitPerPlayer(t, g)
	wins := map[uuid.UUID]int{}
	for _, p := range players {
		wins[p.ID] = 1
	}
	declareAll(t, g, wins)
	playDeal(t, g)
	_, err := g.StartDeal()
	require.NoError(t, err)
	declareAll(t, g, wins)

	data, err := g.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(data)
	require.NoError(t, err)

	assert.Equal(t, 1, restored.st.DealsPlayed)
	assert.Equal(t, g.st.Scores, restored.st.Scores, "first deal's scores replay exactly")
	assert.Equal(t, models.StatusWinsDeclared, restored.st.Status)
	assert.Equal(t, g.st.Order, restored.st.Order)
}

func TestRestorePreDealSnapshot(t *testing.T) {
	creator := models.Player{ID: uuid.New(), Name: "A"}
	g := NewGame(creator, DefaultConfig)
	require.NoError(t, g.AddPlayer(models.Player{ID: uuid.New(), Name: "B"}))

	data, err := g.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(data)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, restored.Status())
	assert.Len(t, restored.Players(), 2)
}
