package table

import "preferans/internal/cards"

// Talon is the two cards set aside at deal start (spec §3).
type Talon struct {
	Cards     [2]cards.Card
	Discarded [2]cards.Card
	Open      int // pass-game reveal counter
	Current   cards.Card
}

// PassGameState tracks the pass-deal sequence (spec §3, §4.6).
type PassGameState struct {
	Round  int // 0 = not in pass sequence; 1..3 = nth pass deal
	Active bool
}

// passGameMinBid maps the pass-game round to the min-bid floor for the
// NEXT deal (spec §4.6: "round 0->6, 1->6, 2->7, >=3->7").
func passGameMinBid(round int) string {
	switch {
	case round <= 1:
		return "6"
	default:
		return "7"
	}
}

// NextRound advances the pass-game round, capped at 3.
func (p *PassGameState) NextRound() {
	p.Active = true
	if p.Round < 3 {
		p.Round++
	}
}

// Reset clears pass-game state for a fresh deal.
func (p *PassGameState) Reset() {
	p.Active = false
}
