package scoring

// WhistChoice is a whister's normalized choice for a deal. Catch and Trust
// are client-facing synonyms for Whist and Pass respectively; the server
// only ever stores the normalized form.
type WhistChoice int

const (
	WhistPass WhistChoice = iota
	Whist
	HalfWhist
)

// Entry is one player's score contribution for a single deal.
type Entry struct {
	Dump  int
	Pool  int
	Whist int
}

// Declarer describes the contracted deal's declarer inputs.
type Declarer struct {
	ID          string
	Level       Level
	TricksTaken int
}

// Whister describes one non-declarer's inputs to a contracted deal.
type Whister struct {
	ID          string
	Choice      WhistChoice
	TricksTaken int
}

// ContractResult is the per-player score for one contracted deal.
type ContractResult struct {
	Declarer Entry
	Whisters map[string]Entry // keyed by whister id
}

// ScoreContract computes the per-deal score for a contracted deal per
// spec §4.8. Miser contracts skip whister entries entirely (they score
// zero for both whisters).
func ScoreContract(declarer Declarer, whisters [2]Whister) ContractResult {
	c := ConstantsFor(declarer.Level)
	result := ContractResult{Whisters: map[string]Entry{}}

	declarerFailed := DeclarerShortfall(declarer.Level, declarer.TricksTaken)
	if DeclarerFulfilled(declarer.Level, declarer.TricksTaken) {
		result.Declarer = Entry{Pool: c.Price}
	} else {
		result.Declarer = Entry{Dump: declarerFailed * c.Price}
	}

	if declarer.Level == Miser {
		result.Whisters[whisters[0].ID] = Entry{}
		result.Whisters[whisters[1].ID] = Entry{}
		return result
	}

	bothWhist := whisters[0].Choice == Whist && whisters[1].Choice == Whist
	combinedTaken := whisters[0].TricksTaken + whisters[1].TricksTaken
	deficit := max(0, c.TwoWhistersReq-combinedTaken)

	for i, w := range whisters {
		entry := Entry{}
		switch w.Choice {
		case Whist:
			entry.Whist += w.TricksTaken * c.Price
			if deficit > 0 {
				threshold := c.TwoWhistersReq
				if bothWhist {
					threshold = c.OneWhisterReq
				}
				entry.Dump += max(0, threshold-w.TricksTaken) * c.Price
			}
		case HalfWhist:
			entry.Whist += (c.TwoWhistersReq * c.Price) / 2
		}
		entry.Whist += declarerFailed * c.Price
		result.Whisters[whisters[i].ID] = entry
	}
	return result
}

// ScorePassGame computes the per-deal score for a pass game per spec
// §4.8. price is the arithmetic-progression round price (round number,
// clamped to 1..3 by the caller).
func ScorePassGame(price int, tricksTaken map[string]int) map[string]Entry {
	minTaken := -1
	for _, t := range tricksTaken {
		if minTaken == -1 || t < minTaken {
			minTaken = t
		}
	}
	out := make(map[string]Entry, len(tricksTaken))
	for id, t := range tricksTaken {
		if t == 0 {
			out[id] = Entry{Pool: price}
		} else {
			out[id] = Entry{Dump: (t - minTaken) * price}
		}
	}
	return out
}

// PassGamePrice returns the arithmetic-progression price for a pass-game
// round (first=1, step=1), clamped to the 1..3 round range.
func PassGamePrice(round int) int {
	if round < 1 {
		return 1
	}
	if round > 3 {
		return 3
	}
	return round
}
