package cards

import "testing"

func TestHigherRankWinsLastCase(t *testing.T) {
	trick := []Played{
		{PlayerID: "p1", Card: NewCard(Seven, Hearts)},
		{PlayerID: "p2", Card: NewCard(Eight, Hearts)},
		{PlayerID: "p3", Card: NewCard(Nine, Hearts)},
	}
	if winner := TrickWinner(trick, Spades); winner != "p3" {
		t.Fatalf("winner = %s, want p3", winner)
	}
}

func TestTrumpOverLead(t *testing.T) {
	trick := []Played{
		{PlayerID: "p1", Card: NewCard(Nine, Hearts)},
		{PlayerID: "p2", Card: NewCard(Seven, Spades)},
		{PlayerID: "p3", Card: NewCard(Seven, Hearts)},
	}
	if winner := TrickWinner(trick, Spades); winner != "p2" {
		t.Fatalf("winner = %s, want p2", winner)
	}
}

func TestTrickWinnerNoTrump(t *testing.T) {
	trick := []Played{
		{PlayerID: "p1", Card: NewCard(Queen, Clubs)},
		{PlayerID: "p2", Card: NewCard(Ace, Spades)}, // different suit, not trump: cannot win
		{PlayerID: "p3", Card: NewCard(King, Clubs)},
	}
	if winner := TrickWinner(trick, ""); winner != "p3" {
		t.Fatalf("winner = %s, want p3", winner)
	}
}

func TestShuffleDealsThirtyTwoUniqueCards(t *testing.T) {
	deal, err := Shuffle()
	if err != nil {
		t.Fatalf("Shuffle: %v", err)
	}
	seen := make(map[Card]bool, 32)
	for _, hand := range deal.Hands {
		if len(hand) != 10 {
			t.Fatalf("hand size = %d, want 10", len(hand))
		}
		for _, c := range hand {
			if seen[c] {
				t.Fatalf("duplicate card dealt: %s", c)
			}
			seen[c] = true
		}
	}
	for _, c := range deal.Talon {
		if seen[c] {
			t.Fatalf("talon card duplicates a hand card: %s", c)
		}
		seen[c] = true
	}
	if len(seen) != 32 {
		t.Fatalf("total unique cards = %d, want 32", len(seen))
	}
}

func TestLegalFollowSuitRequired(t *testing.T) {
	hand := NewHand([]Card{NewCard(Seven, Hearts), NewCard(King, Clubs)})
	lead := NewCard(Nine, Hearts)

	if !Legal(hand, NewCard(Seven, Hearts), lead, Clubs) {
		t.Fatalf("following suit must be legal")
	}
	if Legal(hand, NewCard(King, Clubs), lead, Clubs) {
		t.Fatalf("playing off-suit while holding lead suit must be illegal")
	}
}

func TestLegalMustTrumpWhenOutOfSuit(t *testing.T) {
	hand := NewHand([]Card{NewCard(King, Clubs), NewCard(Seven, Spades)})
	lead := NewCard(Nine, Hearts)

	if Legal(hand, NewCard(King, Clubs), lead, Spades) {
		t.Fatalf("non-trump play must be illegal when holding trump and out of lead suit")
	}
	if !Legal(hand, NewCard(Seven, Spades), lead, Spades) {
		t.Fatalf("trump play must be legal when out of lead suit")
	}
}

func TestLegalAnyCardWhenNoLeadSuitOrTrump(t *testing.T) {
	hand := NewHand([]Card{NewCard(King, Clubs), NewCard(Queen, Diamonds)})
	lead := NewCard(Nine, Hearts)

	if !Legal(hand, NewCard(King, Clubs), lead, Spades) {
		t.Fatalf("any card legal when out of lead suit and out of trump")
	}
}

func TestLegalOpeningPlayAnyCard(t *testing.T) {
	hand := NewHand([]Card{NewCard(King, Clubs)})
	if !Legal(hand, NewCard(King, Clubs), "", Spades) {
		t.Fatalf("opening play of any held card must be legal")
	}
}

func TestBeatLawExactlyOneWinnerAcrossCases(t *testing.T) {
	cases := [][3]Card{
		{NewCard(Seven, Hearts), NewCard(Eight, Hearts), NewCard(Nine, Hearts)},
		{NewCard(Nine, Hearts), NewCard(Seven, Spades), NewCard(Seven, Hearts)},
		{NewCard(Queen, Clubs), NewCard(Ace, Spades), NewCard(King, Clubs)},
		{NewCard(King, Spades), NewCard(Ace, Spades), NewCard(Seven, Spades)},
	}
	ids := [3]string{"a", "b", "c"}
	for _, trick := range cases {
		played := []Played{{ids[0], trick[0]}, {ids[1], trick[1]}, {ids[2], trick[2]}}
		winner := TrickWinner(played, Spades)
		found := false
		for _, id := range ids {
			if id == winner {
				found = true
			}
		}
		if !found {
			t.Fatalf("winner %q not among trick participants for %v", winner, trick)
		}
	}
}
