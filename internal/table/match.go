package table

import (
	"fmt"
	"time"

	"preferans/internal/cards"
	"preferans/internal/scoring"
	"preferans/internal/store"
	"preferans/internal/wire"
)

// Match is the authoritative in-memory state for one table's sequence
// of deals (spec §4.6). It is mutated only by its Handle* methods,
// which are themselves meant to be invoked one at a time from a single
// dispatcher goroutine (spec §5) — Match itself holds no lock.
type Match struct {
	Seats *SeatTable
	Store store.Store
	Sheet scoring.Sheet

	GameID       int32
	GameType     string // "Normal" or "Ranked"
	MatchStarted bool

	ForehandIndex int
	Cursor        int
	Stage         wire.GameStage

	MinBid   *MinBidTracker
	Trump    cards.Suit
	Declarer string
	Level    scoring.Level
	FinalBid string

	whisterIDs []string
	whistStep  int // 0: asking whisterIDs[0]; 1: asking whisterIDs[1]; 2: reconsider step for whisterIDs[0]
	choiceA    WhistChoice
	choiceB    WhistChoice
	halfWhistEligibleForB bool

	Talon     Talon
	Trick     []cards.Played
	LastTrick []cards.Played
	PassGame  PassGameState

	declarerFirstMiserTurn bool
	miserOpened            bool

	DealStartedAt time.Time
	IsGameOver    bool
}

// NewMatch builds an empty match over seats, persisting history through
// st. gameType is stamped onto every deal's history placeholder.
func NewMatch(seats *SeatTable, st store.Store, gameType string) *Match {
	return &Match{
		Seats:    seats,
		Store:    st,
		GameType: gameType,
		MinBid:   NewMinBidTracker(),
		Sheet:    scoring.NewSheet(seats.All()),
	}
}

// StartGameButtonEligible implements the corrected behavior for a flag
// the original client left visible after reconnection: eligible only
// when no match has started yet and all three seats are filled.
func (m *Match) StartGameButtonEligible() bool {
	return !m.MatchStarted && m.Seats.Full()
}

func (m *Match) currentTurnID() (string, bool) {
	return m.Seats.AtIndex(m.Cursor)
}

func (m *Match) broadcastAll(method string, payload any) Out {
	return multicast(m.Seats.All(), method, payload)
}

func (m *Match) broadcastOthers(exclude, method string, payload any) Out {
	return multicast(m.Seats.Others(exclude), method, payload)
}

// --- Ready check (spec §4.5) ---

// HandleReadyCheck processes a ReadyCheck message and, if all three
// seats have now Accepted, starts the first deal.
func (m *Match) HandleReadyCheck(playerID string, state wire.ReadyState) ([]Out, error) {
	p, ok := m.Seats.Get(playerID)
	if !ok {
		return nil, fmt.Errorf("table: ready check from unseated player %s", playerID)
	}
	if m.MatchStarted {
		return nil, fmt.Errorf("table: ready check after match start")
	}

	var out []Out
	switch state {
	case wire.Requested:
		p.ReadyState = wire.Accepted
		for _, id := range m.Seats.Others(playerID) {
			other, _ := m.Seats.Get(id)
			other.ReadyState = wire.Requested
		}
		out = append(out, m.broadcastOthers(playerID, "ReadyCheck", wire.ReadyCheck{PlayerID: playerID, State: wire.Requested}))
	case wire.Accepted, wire.Declined:
		p.ReadyState = state
		out = append(out, m.broadcastOthers(playerID, "ReadyCheck", wire.ReadyCheck{PlayerID: playerID, State: state}))
		if state == wire.Declined {
			for _, id := range m.Seats.All() {
				pl, _ := m.Seats.Get(id)
				pl.ReadyState = wire.NotRequested
			}
			return out, nil
		}
		if m.allAccepted() {
			dealOut, err := m.StartDeal(false)
			if err != nil {
				return out, err
			}
			out = append(out, dealOut...)
		}
	default:
		return nil, fmt.Errorf("table: unexpected ready state %q", state)
	}
	return out, nil
}

func (m *Match) allAccepted() bool {
	if !m.Seats.Full() {
		return false
	}
	for _, id := range m.Seats.All() {
		p, _ := m.Seats.Get(id)
		if p.ReadyState != wire.Accepted {
			return false
		}
	}
	return true
}

// --- Deal setup (spec §4.6 "Deal setup") ---

// StartDeal shuffles, deals, and issues the first bidding turn. When
// advanceForehand is true (every deal after the first), the forehand
// seat rotates by one.
func (m *Match) StartDeal(advanceForehand bool) ([]Out, error) {
	m.MatchStarted = true
	m.GameID++
	m.DealStartedAt = time.Now()

	if advanceForehand {
		m.ForehandIndex = (m.ForehandIndex + 1) % m.Seats.Len()
	}

	for _, id := range m.Seats.All() {
		if err := m.Store.AppendOrUpdateGame(id, store.Game{
			ID:        m.GameID,
			Timestamp: m.DealStartedAt.Unix(),
			GameType:  m.GameType,
		}); err != nil {
			return nil, fmt.Errorf("table: history placeholder: %w", err)
		}
	}

	deal, err := cards.Shuffle()
	if err != nil {
		return nil, fmt.Errorf("table: shuffle: %w", err)
	}

	for seat, id := range m.Seats.All() {
		p, _ := m.Seats.Get(id)
		p.Hand = cards.NewHand(deal.Hands[seat])
		p.Played = nil
		p.Bid = ""
		p.Choices = nil
		p.HowToPlay = ""
		p.TricksTaken = 0
	}
	m.Talon = Talon{Cards: [2]cards.Card{deal.Talon[0], deal.Talon[1]}}
	m.Trick = nil
	m.LastTrick = nil
	m.Trump = ""
	m.Declarer = ""
	m.FinalBid = ""
	m.whisterIDs = nil
	m.whistStep = 0
	m.declarerFirstMiserTurn = false
	m.miserOpened = false
	m.PassGame.Reset()
	m.MinBid = NewMinBidTracker()
	m.Cursor = m.ForehandIndex
	m.Stage = wire.StageBidding

	forehandID, _ := m.Seats.AtIndex(m.ForehandIndex)

	var out []Out
	out = append(out, m.broadcastAll("Forehand", wire.Forehand{PlayerID: forehandID}))
	for _, id := range m.Seats.All() {
		p, _ := m.Seats.Get(id)
		out = append(out, unicast(id, "DealCards", wire.DealCards{PlayerID: id, Cards: cardNames(p.Hand.Names())}))
	}
	out = append(out, unicast(forehandID, "PlayerTurn", wire.PlayerTurn{
		PlayerID: forehandID,
		Stage:    wire.StageBidding,
		MinBid:   m.MinBid.Floor(),
		PassRound: m.PassGame.Round,
	}))
	return out, nil
}

func cardNames(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func cardsOf(names []string) []cards.Card {
	out := make([]cards.Card, len(names))
	for i, n := range names {
		out[i] = cards.Card(n)
	}
	return out
}

// --- Bidding (spec §4.6 "Bidding phase transitions") ---

func (m *Match) HandleBidding(playerID, bid string) ([]Out, error) {
	if m.Stage != wire.StageBidding {
		return nil, fmt.Errorf("table: bidding message outside bidding stage")
	}
	turn, _ := m.currentTurnID()
	if turn != playerID {
		return nil, fmt.Errorf("table: bidding out of turn: expected %s got %s", turn, playerID)
	}
	if BidRank(bid) < 0 {
		return nil, fmt.Errorf("table: unrecognized bid %q", bid)
	}
	p, _ := m.Seats.Get(playerID)
	p.Bid = bid
	m.MinBid.Observe(bid)

	var nonPass []string
	passCount := 0
	for _, id := range m.Seats.All() {
		pl, _ := m.Seats.Get(id)
		switch pl.Bid {
		case "":
			// hasn't bid yet this round
		case "Pass":
			passCount++
		default:
			nonPass = append(nonPass, id)
		}
	}

	if passCount == 3 {
		return m.transitionToPassGame()
	}
	if passCount == 2 && len(nonPass) == 1 {
		m.Declarer = nonPass[0]
		return m.transitionFromBidding()
	}

	// Advance to the next seat that hasn't passed yet.
	for i := 1; i <= m.Seats.Len(); i++ {
		idx := (m.Cursor + i) % m.Seats.Len()
		id, _ := m.Seats.AtIndex(idx)
		pl, _ := m.Seats.Get(id)
		if pl.Bid != "Pass" {
			m.Cursor = idx
			break
		}
	}
	nextID, _ := m.currentTurnID()
	return []Out{unicast(nextID, "PlayerTurn", wire.PlayerTurn{
		PlayerID: nextID,
		Stage:    wire.StageBidding,
		MinBid:   m.MinBid.Floor(),
	})}, nil
}

func (m *Match) transitionFromBidding() ([]Out, error) {
	declarer, _ := m.Seats.Get(m.Declarer)
	if IsWithoutTalon(declarer.Bid) {
		m.Stage = wire.StageWithoutTalon
		return []Out{unicast(m.Declarer, "PlayerTurn", wire.PlayerTurn{
			PlayerID: m.Declarer,
			Stage:    wire.StageWithoutTalon,
			MinBid:   m.MinBid.Floor(),
		})}, nil
	}
	m.Stage = wire.StageTalonPicking
	declarer.Hand[m.Talon.Cards[0]] = true
	declarer.Hand[m.Talon.Cards[1]] = true
	return []Out{unicast(m.Declarer, "PlayerTurn", wire.PlayerTurn{
		PlayerID: m.Declarer,
		Stage:    wire.StageTalonPicking,
		MinBid:   m.MinBid.Floor(),
		Talon:    cardNames([]cards.Card{m.Talon.Cards[0], m.Talon.Cards[1]}),
	})}, nil
}

func (m *Match) transitionToPassGame() ([]Out, error) {
	m.PassGame.NextRound()
	m.MinBid = NewMinBidTracker()
	if passGameMinBid(m.PassGame.Round) == "7" {
		m.MinBid.Observe("7")
	}
	m.Stage = wire.StagePlaying
	m.Cursor = m.ForehandIndex
	forehandID, _ := m.Seats.AtIndex(m.ForehandIndex)
	return []Out{unicast(forehandID, "PlayerTurn", wire.PlayerTurn{
		PlayerID:  forehandID,
		Stage:     wire.StagePlaying,
		PassRound: m.PassGame.Round,
	})}, nil
}

// --- Talon picking / without-talon (spec §4.6) ---

func (m *Match) HandleDiscardTalon(playerID, bid string, cardNamesIn []string) ([]Out, error) {
	if playerID != m.Declarer {
		return nil, fmt.Errorf("table: discard talon from non-declarer %s", playerID)
	}
	if m.Stage != wire.StageTalonPicking && m.Stage != wire.StageWithoutTalon {
		return nil, fmt.Errorf("table: discard talon outside talon/without-talon stage")
	}
	if bid == "6♠" {
		m.MinBid.ResetTo6Spades()
	}
	if !BidAtOrAbove(bid, m.MinBid.Floor()) {
		return nil, fmt.Errorf("table: final bid %q below floor %q", bid, m.MinBid.Floor())
	}

	declarer, _ := m.Seats.Get(playerID)
	if m.Stage == wire.StageTalonPicking {
		if len(cardNamesIn) != 2 {
			return nil, fmt.Errorf("table: talon discard must name exactly two cards")
		}
		discarded := cardsOf(cardNamesIn)
		for _, c := range discarded {
			if !declarer.Hand[c] {
				return nil, fmt.Errorf("table: discarded card %s not in declarer's hand", c)
			}
		}
		for _, c := range discarded {
			delete(declarer.Hand, c)
		}
		m.Talon.Discarded = [2]cards.Card{discarded[0], discarded[1]}
	}

	declarer.Bid = bid
	m.FinalBid = bid
	m.Level = scoring.LevelOf(bid)
	m.Trump = trumpSuitOf(bid)

	out := []Out{m.broadcastAll("Bidding", wire.Bidding{PlayerID: playerID, Bid: bid})}

	if bid == "6♠" {
		// Stalingrad exception: both whisters are auto-Whist.
		for _, id := range m.Seats.Others(m.Declarer) {
			p, _ := m.Seats.Get(id)
			p.Choices = []WhistChoice{ChoiceWhist}
		}
		playingOut, err := m.transitionToPlaying()
		if err != nil {
			return out, err
		}
		return append(out, playingOut...), nil
	}

	m.startWhisting()
	next, _ := m.currentTurnID()
	out = append(out, unicast(next, "PlayerTurn", wire.PlayerTurn{
		PlayerID: next,
		Stage:    wire.StageWhisting,
	}))
	return out, nil
}

// trumpSuitOf derives the trump suit from a final bid string. Bare
// number bids, Misère, Mis.WT, and "9 WT" carry no suit marker and are
// no-trump (spec §4.6 bid vocabulary).
func trumpSuitOf(bid string) cards.Suit {
	switch {
	case containsSuit(bid, "♠"):
		return cards.Spades
	case containsSuit(bid, "♣"):
		return cards.Clubs
	case containsSuit(bid, "♦"):
		return cards.Diamonds
	case containsSuit(bid, "♥"):
		return cards.Hearts
	default:
		return ""
	}
}

func containsSuit(bid, symbol string) bool {
	for i := 0; i < len(bid); i++ {
		if i+len(symbol) <= len(bid) && bid[i:i+len(symbol)] == symbol {
			return true
		}
	}
	return false
}

// --- Whisting (spec §4.6 "Whisting") ---

func (m *Match) startWhisting() {
	m.Stage = wire.StageWhisting
	m.whisterIDs = m.Seats.Others(m.Declarer)
	m.whistStep = 0
	m.Cursor = m.Seats.IndexOf(m.whisterIDs[0])
}

func (m *Match) HandleWhisting(playerID, choiceToken string) ([]Out, error) {
	if m.Stage != wire.StageWhisting {
		return nil, fmt.Errorf("table: whisting message outside whisting stage")
	}
	choice := NormalizeWhistingToken(choiceToken)
	if choice == ChoiceNone {
		return nil, fmt.Errorf("table: unrecognized whisting choice %q", choiceToken)
	}
	turn, _ := m.currentTurnID()
	if turn != playerID {
		return nil, fmt.Errorf("table: whisting out of turn")
	}
	if choice == ChoiceHalfWhist && m.whistStep == 1 && !m.halfWhistEligibleForB {
		return nil, fmt.Errorf("table: half-whist not offered this turn")
	}

	p, _ := m.Seats.Get(playerID)
	p.Choices = append(p.Choices, choice)
	out := []Out{m.broadcastAll("Whisting", wire.Whisting{PlayerID: playerID, Choice: choice.String()})}

	switch m.whistStep {
	case 0:
		m.choiceA = choice
		m.halfWhistEligibleForB = choice == ChoicePass && (m.Level == scoring.Six || m.Level == scoring.Seven)
		m.whistStep = 1
		m.Cursor = m.Seats.IndexOf(m.whisterIDs[1])
		next := m.whisterIDs[1]
		return append(out, unicast(next, "PlayerTurn", wire.PlayerTurn{
			PlayerID:     next,
			Stage:        wire.StageWhisting,
			CanHalfWhist: m.halfWhistEligibleForB,
		})), nil

	case 1:
		m.choiceB = choice
		return append(out, m.resolveWhistingRound()...), nil

	case 2:
		// Reconsideration step for the first passer (whisterIDs[0]).
		if choice == ChoiceWhist {
			// Override: B's HalfWhist becomes Pass; A is now Whist and declares HowToPlay.
			bID := m.whisterIDs[1]
			bp, _ := m.Seats.Get(bID)
			bp.Choices = append(bp.Choices, ChoicePass)
			m.Stage = wire.StageHowToPlay
			m.Cursor = m.Seats.IndexOf(playerID)
			return append(out, unicast(playerID, "PlayerTurn", wire.PlayerTurn{
				PlayerID: playerID,
				Stage:    wire.StageHowToPlay,
			})), nil
		}
		return append(out, m.dealEndAutoFulfill()...), nil
	}
	return out, nil
}

// resolveWhistingRound is called once both whisterIDs[0] (A) and
// whisterIDs[1] (B) have answered once.
func (m *Match) resolveWhistingRound() []Out {
	a, b := m.choiceA, m.choiceB
	switch {
	case a == ChoiceWhist && b == ChoiceWhist:
		out, err := m.transitionToPlaying()
		if err != nil {
			return nil
		}
		return out
	case a == ChoiceWhist && b == ChoicePass:
		return m.askHowToPlay(m.whisterIDs[0])
	case a == ChoicePass && b == ChoiceWhist:
		return m.askHowToPlay(m.whisterIDs[1])
	case a == ChoicePass && b == ChoicePass:
		return m.dealEndAutoFulfill()
	case a == ChoicePass && b == ChoiceHalfWhist:
		// Offer the first passer one more chance to "catch" before finalizing.
		m.whistStep = 2
		m.Cursor = m.Seats.IndexOf(m.whisterIDs[0])
		return []Out{unicast(m.whisterIDs[0], "PlayerTurn", wire.PlayerTurn{
			PlayerID: m.whisterIDs[0],
			Stage:    wire.StageWhisting,
		})}
	default:
		return m.dealEndAutoFulfill()
	}
}

func (m *Match) askHowToPlay(playerID string) []Out {
	m.Stage = wire.StageHowToPlay
	m.Cursor = m.Seats.IndexOf(playerID)
	return []Out{unicast(playerID, "PlayerTurn", wire.PlayerTurn{
		PlayerID: playerID,
		Stage:    wire.StageHowToPlay,
	})}
}

func (m *Match) HandleHowToPlay(playerID string, choice wire.HowToPlayChoice) ([]Out, error) {
	if m.Stage != wire.StageHowToPlay {
		return nil, fmt.Errorf("table: how-to-play message outside how-to-play stage")
	}
	if turn, _ := m.currentTurnID(); turn != playerID {
		return nil, fmt.Errorf("table: how-to-play out of turn")
	}
	p, _ := m.Seats.Get(playerID)
	p.HowToPlay = string(choice)

	out := []Out{m.broadcastAll("HowToPlay", wire.HowToPlay{PlayerID: playerID, Choice: choice})}
	if choice == wire.Openly {
		out = append(out, m.revealWhisterHands()...)
	}
	playingOut, err := m.transitionToPlaying()
	if err != nil {
		return out, err
	}
	return append(out, playingOut...), nil
}

func (m *Match) revealWhisterHands() []Out {
	a, b := m.whisterIDs[0], m.whisterIDs[1]
	pa, _ := m.Seats.Get(a)
	pb, _ := m.Seats.Get(b)
	return []Out{
		unicast(b, "DealCards", wire.DealCards{PlayerID: a, Cards: cardNames(pa.Hand.Names())}),
		unicast(a, "DealCards", wire.DealCards{PlayerID: b, Cards: cardNames(pb.Hand.Names())}),
	}
}

func (m *Match) dealEndAutoFulfill() []Out {
	declarer, _ := m.Seats.Get(m.Declarer)
	constants := scoring.ConstantsFor(m.Level)
	declarer.TricksTaken = constants.DeclarerReq
	out, err := m.DealEnd()
	if err != nil {
		return nil
	}
	return out
}

// --- Playing (spec §4.6 "Playing (trick play)") ---

func (m *Match) transitionToPlaying() ([]Out, error) {
	m.Stage = wire.StagePlaying
	m.Cursor = m.ForehandIndex
	forehandID, _ := m.Seats.AtIndex(m.ForehandIndex)

	var out []Out
	if m.Level == scoring.Miser && m.anyWhist() {
		if m.Declarer == forehandID {
			m.declarerFirstMiserTurn = true
		} else {
			out = append(out, m.openMiser()...)
		}
	}
	out = append(out, unicast(forehandID, "PlayerTurn", wire.PlayerTurn{
		PlayerID: forehandID,
		Stage:    wire.StagePlaying,
	}))
	return out, nil
}

func (m *Match) anyWhist() bool {
	if len(m.whisterIDs) == 0 {
		return true // Stalingrad: both auto-Whist
	}
	for _, id := range m.whisterIDs {
		p, _ := m.Seats.Get(id)
		if len(p.Choices) > 0 && p.Choices[len(p.Choices)-1] == ChoiceWhist {
			return true
		}
	}
	return false
}

func (m *Match) openMiser() []Out {
	m.miserOpened = true
	out := []Out{m.broadcastAll("OpenWhistPlay", wire.OpenWhistPlay{
		ActiveWhisterID:  m.whisterIDs[0],
		PassiveWhisterID: m.whisterIDs[1],
	})}
	return append(out, m.miserCardsUpdate())
}

func (m *Match) miserCardsUpdate() Out {
	declarer, _ := m.Seats.Get(m.Declarer)
	remaining := append(declarer.Hand.Names(), m.Talon.Discarded[0], m.Talon.Discarded[1])
	return m.broadcastAll("MiserCards", wire.MiserCards{
		Remaining: cardNames(remaining),
		Played:    cardNames(declarer.Played),
	})
}

// HandlePlayCard accepts a card play, enforcing the same legality rules
// the client is expected to already have applied (spec §4.6, §4.7).
func (m *Match) HandlePlayCard(playerID, cardName string) ([]Out, error) {
	if m.Stage != wire.StagePlaying {
		return nil, fmt.Errorf("table: play card outside playing stage")
	}
	turn, _ := m.currentTurnID()
	if turn != playerID {
		return nil, fmt.Errorf("table: play out of turn")
	}
	p, _ := m.Seats.Get(playerID)
	card := cards.Card(cardName)

	leadCard := m.leadCard()
	if !cards.Legal(p.Hand, card, leadCard, m.Trump) {
		return nil, fmt.Errorf("table: illegal play %s by %s", card, playerID)
	}

	delete(p.Hand, card)
	p.Played = append(p.Played, card)
	m.Trick = append(m.Trick, cards.Played{PlayerID: playerID, Card: card})
	if m.PassGame.Active && m.Talon.Current != "" {
		m.Talon.Current = ""
	}

	var out []Out
	out = append(out, m.broadcastOthers(playerID, "PlayCard", wire.PlayCard{PlayerID: playerID, Card: cardName}))

	if m.declarerFirstMiserTurn && playerID == m.Declarer {
		out = append(out, m.openMiser()...)
		m.declarerFirstMiserTurn = false
	}

	if len(m.Trick) == 3 {
		winner := cards.TrickWinner(m.Trick, m.Trump)
		wp, _ := m.Seats.Get(winner)
		wp.TricksTaken++
		m.LastTrick = m.Trick
		m.Trick = nil

		tricks := make([]wire.TakenTricks, 0, 3)
		for _, id := range m.Seats.All() {
			pl, _ := m.Seats.Get(id)
			tricks = append(tricks, wire.TakenTricks{PlayerID: id, Taken: pl.TricksTaken})
		}
		out = append(out, m.broadcastAll("TrickFinished", wire.TrickFinished{Tricks: tricks}))
		if m.miserOpened {
			out = append(out, m.miserCardsUpdate())
		}

		if m.allHandsEmpty() {
			dealOut, err := m.DealEnd()
			if err != nil {
				return out, err
			}
			return append(out, dealOut...), nil
		}

		m.Cursor = m.Seats.IndexOf(winner)
		if m.PassGame.Active {
			out = append(out, m.advancePassGameTalon()...)
		}
	} else {
		m.Cursor = (m.Cursor + 1) % m.Seats.Len()
	}

	next, _ := m.currentTurnID()
	out = append(out, unicast(next, "PlayerTurn", wire.PlayerTurn{PlayerID: next, Stage: wire.StagePlaying}))
	return out, nil
}

func (m *Match) leadCard() cards.Card {
	if m.PassGame.Active && m.Talon.Current != "" {
		return m.Talon.Current
	}
	if len(m.Trick) == 0 {
		return ""
	}
	return m.Trick[0].Card
}

func (m *Match) allHandsEmpty() bool {
	for _, id := range m.Seats.All() {
		p, _ := m.Seats.Get(id)
		if len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

func (m *Match) advancePassGameTalon() []Out {
	m.Talon.Open++
	switch m.Talon.Open {
	case 1:
		m.Talon.Current = m.Talon.Discarded[0]
		m.Cursor = m.ForehandIndex
		forehandID, _ := m.Seats.AtIndex(m.ForehandIndex)
		return []Out{m.broadcastAll("OpenTalon", wire.OpenTalon{Card: string(m.Talon.Discarded[0])}), unicast(forehandID, "PlayerTurn", wire.PlayerTurn{PlayerID: forehandID, Stage: wire.StagePlaying})}
	case 2:
		m.Talon.Current = m.Talon.Discarded[1]
	}
	return nil
}

// --- Deal end (spec §4.6 "Deal end", §4.8, §4.9) ---

// DealEnd scores the completed deal, updates the cumulative sheet,
// recomputes settlement, writes history, and returns the outbound
// broadcast. Callers advance to the next deal via StartDeal after the
// 3-second pause described in spec §5; Match itself never sleeps.
func (m *Match) DealEnd() ([]Out, error) {
	var out []Out

	if m.PassGame.Active {
		taken := make(map[string]int, 3)
		for _, id := range m.Seats.All() {
			p, _ := m.Seats.Get(id)
			taken[id] = p.TricksTaken
		}
		entries := scoring.ScorePassGame(scoring.PassGamePrice(m.PassGame.Round), taken)
		for id, entry := range entries {
			m.Sheet.Append(id, m.Seats.Others(id), entry, nil)
		}
	} else {
		declarer, _ := m.Seats.Get(m.Declarer)
		var whisters [2]scoring.Whister
		for i, id := range m.whisterIfAny() {
			p, _ := m.Seats.Get(id)
			whisters[i] = scoring.Whister{ID: id, Choice: lastChoice(p.Choices), TricksTaken: p.TricksTaken}
		}
		result := scoring.ScoreContract(scoring.Declarer{ID: m.Declarer, Level: m.Level, TricksTaken: declarer.TricksTaken}, whisters)

		m.Sheet.Append(m.Declarer, m.Seats.Others(m.Declarer), result.Declarer, nil)
		for id, entry := range result.Whisters {
			m.Sheet.Append(id, []string{m.Declarer}, entry, map[string]int{m.Declarer: entry.Whist})
		}
	}

	totals := m.Sheet.Totals()
	settlement := scoring.Settle(totals)

	duration := int32(time.Since(m.DealStartedAt).Seconds())
	scoreSheet := make(map[string]wire.PlayerScoreSheet, 3)
	for _, id := range m.Seats.All() {
		ps := m.Sheet[id]
		sheetOut := wire.PlayerScoreSheet{
			Dump: wire.ScoreValues{Values: ps.Dump},
			Pool: wire.ScoreValues{Values: ps.Pool},
			Whists: map[string]wire.ScoreValues{},
		}
		for opp, vals := range ps.Whists {
			sheetOut.Whists[opp] = wire.ScoreValues{Values: vals}
		}
		scoreSheet[id] = sheetOut

		t := totals[id]
		if err := m.Store.AppendOrUpdateGame(id, store.Game{
			ID:          m.GameID,
			Timestamp:   m.DealStartedAt.Unix(),
			DurationSec: duration,
			GameType:    m.GameType,
			MMR:         int32(settlement[id]),
			Pool:        int32(sum(ps.Pool)),
			Dump:        int32(sum(ps.Dump)),
			Whists:      int32(t.Whists[otherAny(m.Seats, id)]),
		}); err != nil {
			return out, fmt.Errorf("table: persist deal end: %w", err)
		}
		out = append(out, unicast(id, "UserGames", wire.UserGames{Games: []wire.UserGame{{
			ID: m.GameID, Duration: duration, GameType: m.GameType, MMR: int32(settlement[id]),
		}}}))
	}

	out = append(out, m.broadcastAll("DealFinished", wire.DealFinished{ScoreSheet: scoreSheet, IsGameOver: m.IsGameOver}))
	return out, nil
}

func (m *Match) whisterIfAny() []string {
	if len(m.whisterIDs) > 0 {
		return m.whisterIDs
	}
	return m.Seats.Others(m.Declarer)
}

func lastChoice(choices []WhistChoice) scoring.WhistChoice {
	if len(choices) == 0 {
		return scoring.WhistPass
	}
	switch choices[len(choices)-1] {
	case ChoiceWhist:
		return scoring.Whist
	case ChoiceHalfWhist:
		return scoring.HalfWhist
	default:
		return scoring.WhistPass
	}
}

func sum(vs []int) int {
	t := 0
	for _, v := range vs {
		t += v
	}
	return t
}

func otherAny(seats *SeatTable, id string) string {
	others := seats.Others(id)
	if len(others) == 0 {
		return ""
	}
	return others[0]
}
