package table

// BidVocabulary lists every legal bid string in rank order, low to high
// (spec §4.6 "Bid vocabulary"). "Pass" is last: it outranks nothing and
// is excluded from min-bid comparisons.
var BidVocabulary = []string{
	"6♠", "6♣", "6♦", "6♥", "6",
	"7♠", "7♣", "7♦", "7♥", "7",
	"8♠", "8♣", "8♦", "8♥", "8",
	"Misère",
	"9♠", "9♣", "9♦", "9♥", "9",
	"Mis.WT", "9 WT",
	"10♠", "10♣", "10♦", "10♥", "10",
	"Pass",
}

var bidRank = func() map[string]int {
	m := make(map[string]int, len(BidVocabulary))
	for i, b := range BidVocabulary {
		m[b] = i
	}
	return m
}()

// BidRank returns the vocabulary index of bid, or -1 if unrecognized.
func BidRank(bid string) int {
	r, ok := bidRank[bid]
	if !ok {
		return -1
	}
	return r
}

// BidAtOrAbove reports whether candidate ranks at or above floor in the
// vocabulary. "Pass" is never at-or-above anything but itself.
func BidAtOrAbove(candidate, floor string) bool {
	if candidate == "Pass" {
		return floor == "Pass"
	}
	c, f := BidRank(candidate), BidRank(floor)
	return c >= 0 && f >= 0 && c >= f
}

// IsWithoutTalon reports whether a final bid carries the "WT" marker,
// meaning the declarer skips talon pickup (spec §4.6).
func IsWithoutTalon(bid string) bool {
	return bid == "Mis.WT" || bid == "9 WT"
}

// MinBidTracker implements the deal's min_bid floor (spec §4.6): starts
// at "6", only ever advances to the rank of the highest non-Pass bid
// seen once it exceeds "7", and allows a single documented exception
// for a declarer re-bidding at the "6" floor after picking "6♠".
type MinBidTracker struct {
	floor string
}

// NewMinBidTracker starts the floor at "6".
func NewMinBidTracker() *MinBidTracker {
	return &MinBidTracker{floor: "6"}
}

// Floor returns the current minimum acceptable bid.
func (m *MinBidTracker) Floor() string {
	return m.floor
}

// Observe records a non-Pass bid, advancing the floor if the bid ranks
// above "7" and above the current floor.
func (m *MinBidTracker) Observe(bid string) {
	if bid == "Pass" {
		return
	}
	if BidRank(bid) > BidRank("7") && BidRank(bid) > BidRank(m.floor) {
		m.floor = bid
	}
}

// ResetTo6Spades implements the single documented exception: a declarer
// whose final bid is "6♠" has the floor lowered to "6♠", so that bid is
// accepted even though it ranks below the default "6" floor.
func (m *MinBidTracker) ResetTo6Spades() {
	m.floor = "6♠"
}
