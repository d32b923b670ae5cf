package table

import "fmt"

// SeatTable is the insertion-ordered mapping of up to three player ids
// to Players (spec §3). Seat order, once established, is the physical
// turn order and survives reconnection.
type SeatTable struct {
	order []string
	byID  map[string]*Player
}

// NewSeatTable returns an empty table.
func NewSeatTable() *SeatTable {
	return &SeatTable{byID: make(map[string]*Player)}
}

// Len reports the number of seated players (0..3).
func (t *SeatTable) Len() int { return len(t.order) }

// Full reports whether all three seats are occupied.
func (t *SeatTable) Full() bool { return len(t.order) == 3 }

// Get returns the seated Player for id, if any.
func (t *SeatTable) Get(id string) (*Player, bool) {
	p, ok := t.byID[id]
	return p, ok
}

// Seat appends a new Player at the end of seat order. Returns an error
// if the table already has three seats or id is already seated.
func (t *SeatTable) Seat(p *Player) error {
	if t.Full() {
		return fmt.Errorf("table: seat table already full")
	}
	if _, exists := t.byID[p.ID]; exists {
		return fmt.Errorf("table: player %s already seated", p.ID)
	}
	t.order = append(t.order, p.ID)
	t.byID[p.ID] = p
	return nil
}

// Remove evicts a seated player, preserving the relative order of the
// remaining seats.
func (t *SeatTable) Remove(id string) {
	for i, sid := range t.order {
		if sid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	delete(t.byID, id)
}

// Others returns every seated player id except excludeID, in seat order.
func (t *SeatTable) Others(excludeID string) []string {
	out := make([]string, 0, len(t.order)-1)
	for _, id := range t.order {
		if id != excludeID {
			out = append(out, id)
		}
	}
	return out
}

// All returns every seated player id in seat order.
func (t *SeatTable) All() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// IndexOf returns the seat-order index of id, or -1 if not seated.
func (t *SeatTable) IndexOf(id string) int {
	for i, sid := range t.order {
		if sid == id {
			return i
		}
	}
	return -1
}

// AtIndex returns the player id at the given seat-order index, wrapping
// modulo the current seat count. The turn cursor is exactly this index
// (spec §4.6: "The turn cursor is an iterator into the seat table").
func (t *SeatTable) AtIndex(i int) (string, bool) {
	if len(t.order) == 0 {
		return "", false
	}
	i = ((i % len(t.order)) + len(t.order)) % len(t.order)
	return t.order[i], true
}
