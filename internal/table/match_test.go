package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"preferans/internal/store"
)

func newTestMatch(t *testing.T) (*Match, *SeatTable) {
	t.Helper()
	seats := NewSeatTable()
	for _, id := range []string{"p0", "p1", "p2"} {
		require.NoError(t, seats.Seat(NewPlayer(id, id)))
	}
	fs, err := store.OpenFileStore(filepath.Join(t.TempDir(), "users.gob"))
	require.NoError(t, err)
	for _, id := range []string{"p0", "p1", "p2"} {
		require.NoError(t, fs.AddUser(store.User{PlayerID: id, PlayerName: id, PasswordHash: "x"}))
	}
	return NewMatch(seats, fs, "Ranked"), seats
}

func TestStartGameButtonEligibleOnlyPreMatchAndFull(t *testing.T) {
	m, seats := newTestMatch(t)
	require.True(t, m.StartGameButtonEligible())

	_, err := m.StartDeal(false)
	require.NoError(t, err)
	require.False(t, m.StartGameButtonEligible())

	// A match mid-play with an empty table must also not be eligible,
	// even if seats briefly drop below three.
	seats.Remove("p0")
	require.False(t, m.StartGameButtonEligible())
}

func TestStartDealDealsTenCardsEach(t *testing.T) {
	m, seats := newTestMatch(t)
	_, err := m.StartDeal(false)
	require.NoError(t, err)

	for _, id := range seats.All() {
		p, _ := seats.Get(id)
		require.Len(t, p.Hand, 10)
		require.True(t, p.HandSizeInvariantHolds())
	}
	require.Equal(t, m.ForehandIndex, m.Cursor)
}

func TestBiddingAllPassTransitionsToPassGame(t *testing.T) {
	m, _ := newTestMatch(t)
	_, err := m.StartDeal(false)
	require.NoError(t, err)

	forehand, _ := m.currentTurnID()
	others := m.Seats.Others(forehand)

	_, err = m.HandleBidding(forehand, "Pass")
	require.NoError(t, err)
	_, err = m.HandleBidding(others[0], "Pass")
	require.NoError(t, err)
	out, err := m.HandleBidding(others[1], "Pass")
	require.NoError(t, err)
	require.True(t, m.PassGame.Active)
	require.Equal(t, 1, m.PassGame.Round)
	require.NotEmpty(t, out)
}

func TestSixSpadesStalingradSkipsWhisting(t *testing.T) {
	m, _ := newTestMatch(t)
	_, err := m.StartDeal(false)
	require.NoError(t, err)

	forehand, _ := m.currentTurnID()
	others := m.Seats.Others(forehand)
	_, err = m.HandleBidding(forehand, "6♠")
	require.NoError(t, err)
	_, err = m.HandleBidding(others[0], "Pass")
	require.NoError(t, err)
	_, err = m.HandleBidding(others[1], "Pass")
	require.NoError(t, err)
	require.Equal(t, forehand, m.Declarer)

	talon := []string{string(m.Talon.Cards[0]), string(m.Talon.Cards[1])}
	_, err = m.HandleDiscardTalon(forehand, "6♠", talon)
	require.NoError(t, err)

	require.Equal(t, "Playing", string(m.Stage))
	for _, id := range m.Seats.Others(forehand) {
		p, _ := m.Seats.Get(id)
		require.Len(t, p.Choices, 1)
		require.Equal(t, ChoiceWhist, p.Choices[0])
	}
}

func TestFullHandPlaysToDealEnd(t *testing.T) {
	m, _ := newTestMatch(t)
	_, err := m.StartDeal(false)
	require.NoError(t, err)

	forehand, _ := m.currentTurnID()
	others := m.Seats.Others(forehand)

	// Declarer bids the lowest contract, takes the talon without trump
	// marker complexity by bidding a bare-number contract (no suit -> no trump).
	_, err = m.HandleBidding(forehand, "6")
	require.NoError(t, err)
	_, err = m.HandleBidding(others[0], "Pass")
	require.NoError(t, err)
	_, err = m.HandleBidding(others[1], "Pass")
	require.NoError(t, err)

	declarer, _ := m.Seats.Get(forehand)
	hand := declarer.Hand.Names()
	discard := []string{string(hand[0]), string(hand[1])}
	_, err = m.HandleDiscardTalon(forehand, "6", discard)
	require.NoError(t, err)

	_, err = m.HandleWhisting(others[0], "Whist")
	require.NoError(t, err)
	_, err = m.HandleWhisting(others[1], "Whist")
	require.NoError(t, err)
	require.Equal(t, "Playing", string(m.Stage))

	// Play all 30 remaining cards (10 per player after talon discard).
	for i := 0; i < 30; i++ {
		if m.Stage != "Playing" {
			break
		}
		turn, ok := m.currentTurnID()
		if !ok {
			break
		}
		p, _ := m.Seats.Get(turn)
		if len(p.Hand) == 0 {
			break
		}
		found := false
		for c := range p.Hand {
			if _, err := m.HandlePlayCard(turn, string(c)); err == nil {
				found = true
				break
			}
		}
		require.True(t, found, "expected at least one legal card in hand")
	}

	require.Equal(t, 10, sumTricks(m))
}

func sumTricks(m *Match) int {
	total := 0
	for _, id := range m.Seats.All() {
		p, _ := m.Seats.Get(id)
		total += p.TricksTaken
	}
	return total
}
