package scoring

import "testing"

func TestSixSpadesContractFulfilled(t *testing.T) {
	declarer := Declarer{ID: "p0", Level: Six, TricksTaken: 6}
	whisters := [2]Whister{
		{ID: "p1", Choice: Whist, TricksTaken: 2},
		{ID: "p2", Choice: Whist, TricksTaken: 2},
	}
	result := ScoreContract(declarer, whisters)

	if result.Declarer != (Entry{Dump: 0, Pool: 2, Whist: 0}) {
		t.Fatalf("declarer entry = %+v", result.Declarer)
	}
	for _, id := range []string{"p1", "p2"} {
		if got := result.Whisters[id]; got != (Entry{Dump: 0, Pool: 0, Whist: 4}) {
			t.Fatalf("whister %s entry = %+v", id, got)
		}
	}
}

func TestMiserFulfilled(t *testing.T) {
	declarer := Declarer{ID: "p0", Level: Miser, TricksTaken: 0}
	whisters := [2]Whister{
		{ID: "p1", Choice: Whist, TricksTaken: 10},
		{ID: "p2", Choice: Whist, TricksTaken: 0},
	}
	result := ScoreContract(declarer, whisters)

	if result.Declarer != (Entry{Dump: 0, Pool: 10, Whist: 0}) {
		t.Fatalf("declarer entry = %+v", result.Declarer)
	}
	for _, id := range []string{"p1", "p2"} {
		if got := result.Whisters[id]; got != (Entry{}) {
			t.Fatalf("whister %s entry = %+v, want zero", id, got)
		}
	}
}

func TestDeclarerBusts(t *testing.T) {
	declarer := Declarer{ID: "p0", Level: Six, TricksTaken: 5}
	whisters := [2]Whister{
		{ID: "p1", Choice: Whist, TricksTaken: 3},
		{ID: "p2", Choice: Whist, TricksTaken: 2},
	}
	result := ScoreContract(declarer, whisters)

	if result.Declarer != (Entry{Dump: 2, Pool: 0, Whist: 0}) {
		t.Fatalf("declarer entry = %+v", result.Declarer)
	}
	if got := result.Whisters["p1"]; got != (Entry{Dump: 0, Pool: 0, Whist: 8}) {
		t.Fatalf("p1 entry = %+v", got)
	}
	if got := result.Whisters["p2"]; got != (Entry{Dump: 0, Pool: 0, Whist: 6}) {
		t.Fatalf("p2 entry = %+v", got)
	}
}

func TestFinalSettlementZeroSum(t *testing.T) {
	totals := map[string]PlayerTotals{
		"p0": {Dump: 12, Pool: 14, Whists: map[string]int{"p1": 12, "p2": 0}},
		"p1": {Dump: 26, Pool: 8, Whists: map[string]int{"p0": 22, "p2": 0}},
		"p2": {Dump: 6, Pool: 0, Whists: map[string]int{"p0": 22, "p1": 4}},
	}
	final := Settle(totals)

	want := map[string]int{"p0": 62, "p1": -101, "p2": 39}
	for id, w := range want {
		if final[id] != w {
			t.Errorf("final[%s] = %d, want %d", id, final[id], w)
		}
	}

	sum := 0
	for _, v := range final {
		sum += v
	}
	if sum != 0 {
		t.Fatalf("sum of final results = %d, want 0", sum)
	}
}

func TestSettlementZeroSumProperty(t *testing.T) {
	// An arbitrary running sheet must still settle to zero: the
	// settlement must never leak or manufacture value regardless of
	// dump/pool magnitude or divisibility by 3.
	totals := map[string]PlayerTotals{
		"p0": {Dump: 4, Pool: 9, Whists: map[string]int{"p1": 3, "p2": 7}},
		"p1": {Dump: 9, Pool: 0, Whists: map[string]int{"p0": 1, "p2": 2}},
		"p2": {Dump: 0, Pool: 5, Whists: map[string]int{"p0": 6, "p1": 4}},
	}
	final := Settle(totals)
	sum := 0
	for _, v := range final {
		sum += v
	}
	if sum != 0 {
		t.Fatalf("sum = %d, want 0", sum)
	}
}

func TestSheetAccumulatesAndSettles(t *testing.T) {
	sheet := NewSheet([]string{"p0", "p1", "p2"})
	opponentsOf := map[string][]string{
		"p0": {"p1", "p2"},
		"p1": {"p0", "p2"},
		"p2": {"p0", "p1"},
	}

	result := ScoreContract(
		Declarer{ID: "p0", Level: Six, TricksTaken: 6},
		[2]Whister{{ID: "p1", Choice: Whist, TricksTaken: 2}, {ID: "p2", Choice: Whist, TricksTaken: 2}},
	)
	sheet.Append("p0", opponentsOf["p0"], result.Declarer, nil)
	sheet.Append("p1", opponentsOf["p1"], result.Whisters["p1"], nil)
	sheet.Append("p2", opponentsOf["p2"], result.Whisters["p2"], nil)

	totals := sheet.Totals()
	if totals["p0"].Pool != 2 {
		t.Fatalf("p0 pool total = %d, want 2", totals["p0"].Pool)
	}
	if totals["p1"].Whists["p0"] != 0 && totals["p1"].Whists["p2"] != 0 {
		t.Fatalf("unexpected whist seeding: %+v", totals["p1"])
	}

	final := Settle(totals)
	sum := 0
	for _, v := range final {
		sum += v
	}
	if sum != 0 {
		t.Fatalf("sum = %d, want 0", sum)
	}
}

func TestPassGameScoring(t *testing.T) {
	tricksTaken := map[string]int{"p0": 0, "p1": 6, "p2": 4}
	entries := ScorePassGame(PassGamePrice(1), tricksTaken)

	if entries["p0"] != (Entry{Pool: 1}) {
		t.Fatalf("p0 = %+v", entries["p0"])
	}
	if entries["p1"] != (Entry{Dump: (6 - 0) * 1}) {
		t.Fatalf("p1 = %+v", entries["p1"])
	}
	if entries["p2"] != (Entry{Dump: (4 - 0) * 1}) {
		t.Fatalf("p2 = %+v", entries["p2"])
	}
}
