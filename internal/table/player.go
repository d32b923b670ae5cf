// Package table owns the authoritative in-memory match state: the
// three-seat table, the per-deal game state machine, and the turn
// cursor that drives bidding through trick play to deal end.
package table

import (
	"preferans/internal/cards"
	"preferans/internal/wire"
)

// WhistChoice is the sum type backing the "whisting_choice" field; it is
// modeled explicitly rather than as a concatenated string, and rendered
// to the wire only at the boundary (spec design note on whisting_choice).
type WhistChoice int

const (
	ChoiceNone WhistChoice = iota
	ChoiceWhist
	ChoicePass
	ChoiceHalfWhist
)

// NormalizeWhistingToken folds the wire synonyms (Catch==Whist,
// Trust==Pass) down to the three choices that actually affect state.
func NormalizeWhistingToken(token string) WhistChoice {
	switch token {
	case "Whist", "Catch":
		return ChoiceWhist
	case "Pass", "Trust":
		return ChoicePass
	case "HalfWhist", "Half-whist":
		return ChoiceHalfWhist
	default:
		return ChoiceNone
	}
}

func (c WhistChoice) String() string {
	switch c {
	case ChoiceWhist:
		return "Whist"
	case ChoicePass:
		return "Pass"
	case ChoiceHalfWhist:
		return "HalfWhist"
	default:
		return ""
	}
}

// Connection is the session-layer handle a Player's outbound messages
// are actually written through; table only needs to know its identity
// and session epoch, never its transport details.
type Connection struct {
	SessionID int64
	Alive     bool
}

// Player is one seated player's complete in-memory state (spec §3).
type Player struct {
	ID       string
	Name     string
	Conn     Connection
	Hand     cards.Hand
	Played   []cards.Card
	Bid      string
	Choices  []WhistChoice // successive whisting choices this deal, in order
	HowToPlay string       // "Openly" or "Closed", empty until chosen
	TricksTaken int
	ReadyState  wire.ReadyState
	OfferState  wire.Offer
}

// NewPlayer seats a fresh player record with no hand yet.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Hand:       cards.NewHand(nil),
		ReadyState: wire.NotRequested,
		OfferState: wire.NoOffer,
	}
}

// WhistingChoiceString renders Choices the way the wire expects: a
// concatenation of successive choice names, e.g. Pass+HalfWhist ->
// "PassHalfWhist" (spec design note).
func (p *Player) WhistingChoiceString() string {
	out := ""
	for _, c := range p.Choices {
		out += c.String()
	}
	return out
}

// IsWhister reports whether this player passed bidding in a contracted
// deal and is therefore a whister rather than the declarer.
func (p *Player) IsWhister() bool {
	return p.Bid == "Pass"
}

// handSize invariant helper: |hand| + |played_cards| == 10 (spec §8).
func (p *Player) HandSizeInvariantHolds() bool {
	return len(p.Hand)+len(p.Played) == 10
}
