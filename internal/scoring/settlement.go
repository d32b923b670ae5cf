package scoring

// PlayerTotals is one player's cumulative score-sheet totals going into
// settlement: summed dump, summed pool, and per-opponent whist credits
// accumulated across every deal played so far.
type PlayerTotals struct {
	Dump   int
	Pool   int
	Whists map[string]int // opponent id -> credit
}

// priceUnit is the fixed unit used when converting dump/pool into
// pairwise whist credits during settlement (spec §4.8 step 3).
const priceUnit = 10

// adjustedShare finds the adjust in {0, -1, +1} (tried in that priority
// order) making (value+adjust) a multiple of 3, then returns the
// per-opponent share. This exists because dump/pool totals are not
// generally multiples of 3, and the settlement has to convert a
// three-way-split quantity into an even integer share without leaking
// or manufacturing value — the -3 correction on the adjust term cancels
// the rounding exactly over the three-player table.
func adjustedShare(value int) int {
	for _, adjust := range [3]int{0, -1, 1} {
		if mod3(value+adjust) == 0 {
			return (value+adjust)*priceUnit/3 + adjust*-3
		}
	}
	panic("scoring: unreachable, adjust in {-1,0,1} always covers all residues mod 3")
}

func mod3(v int) int {
	m := v % 3
	if m < 0 {
		m += 3
	}
	return m
}

// Settle computes the final result for every player in totals: it
// normalizes dump and pool against the table minimum, distributes each
// player's dump to their opponents' whist credit and each player's pool
// symmetrically to their own whist credit, then nets whist credits
// pairwise. The sum of all final results is always 0.
func Settle(totals map[string]PlayerTotals) map[string]int {
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}

	dump := make(map[string]int, len(ids))
	pool := make(map[string]int, len(ids))
	whists := make(map[string]map[string]int, len(ids))
	for _, id := range ids {
		dump[id] = totals[id].Dump
		pool[id] = totals[id].Pool
		w := make(map[string]int, 2)
		for opp, v := range totals[id].Whists {
			w[opp] = v
		}
		whists[id] = w
	}

	minDump := minOf(dump)
	minPool := minOf(pool)
	for _, id := range ids {
		dump[id] -= minDump
		pool[id] -= minPool
	}

	// Step 3: distribute dump to opponents as whist owed TO this player.
	for _, p := range ids {
		if dump[p] == 0 {
			continue
		}
		amount := adjustedShare(dump[p])
		for _, opp := range ids {
			if opp == p {
				continue
			}
			whists[opp][p] += amount
		}
	}

	// Step 4: distribute pool symmetrically to the player's own credits.
	for _, p := range ids {
		if pool[p] == 0 {
			continue
		}
		amount := adjustedShare(pool[p])
		for _, opp := range ids {
			if opp == p {
				continue
			}
			whists[p][opp] += amount
		}
	}

	final := make(map[string]int, len(ids))
	for _, p := range ids {
		sum := 0
		for _, opp := range ids {
			if opp == p {
				continue
			}
			sum += whists[p][opp] - whists[opp][p]
		}
		final[p] = sum
	}
	return final
}

func minOf(m map[string]int) int {
	first := true
	var out int
	for _, v := range m {
		if first || v < out {
			out = v
			first = false
		}
	}
	return out
}
