package scoring

// PlayerSheet is one player's raw per-deal history within a match: an
// appended value per deal for dump and pool, and one appended value per
// deal per opponent for whists. Never pruned during a match.
type PlayerSheet struct {
	Dump   []int
	Pool   []int
	Whists map[string][]int // opponent id -> per-deal values
}

// Sheet is the match-wide score sheet, one PlayerSheet per player id.
type Sheet map[string]*PlayerSheet

// NewSheet returns an empty sheet for the given player ids.
func NewSheet(playerIDs []string) Sheet {
	s := make(Sheet, len(playerIDs))
	for _, id := range playerIDs {
		s[id] = &PlayerSheet{Whists: map[string][]int{}}
	}
	return s
}

// Append records one deal's entry for player id, appending zero for any
// opponent not present in whistByOpponent.
func (s Sheet) Append(id string, opponents []string, entry Entry, whistByOpponent map[string]int) {
	p := s[id]
	p.Dump = append(p.Dump, entry.Dump)
	p.Pool = append(p.Pool, entry.Pool)
	for _, opp := range opponents {
		p.Whists[opp] = append(p.Whists[opp], whistByOpponent[opp])
	}
}

// Totals sums every player's sheet into the PlayerTotals settlement
// input.
func (s Sheet) Totals() map[string]PlayerTotals {
	out := make(map[string]PlayerTotals, len(s))
	for id, p := range s {
		t := PlayerTotals{Whists: map[string]int{}}
		for _, v := range p.Dump {
			t.Dump += v
		}
		for _, v := range p.Pool {
			t.Pool += v
		}
		for opp, vs := range p.Whists {
			sum := 0
			for _, v := range vs {
				sum += v
			}
			t.Whists[opp] = sum
		}
		out[id] = t
	}
	return out
}
