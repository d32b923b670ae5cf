package session

import (
	"log"
	"time"

	"preferans/internal/auth"
	"preferans/internal/cards"
	"preferans/internal/store"
	"preferans/internal/table"
	"preferans/internal/wire"
)

// Hub is the single dispatcher mailbox: every inbound frame, timer
// firing, and connection lifecycle event is funneled through Events
// and executed one closure at a time by Run, generalizing the
// teacher's register/unregister channel-select loop (spec §5,
// SPEC_FULL.md PACKAGE LAYOUT). Match state is mutated only here.
type Hub struct {
	Events chan func()

	Seats *table.SeatTable
	Match *table.Match
	Store store.Store

	sessions    map[string]*Conn
	graceTimers map[string]*time.Timer

	graceDuration time.Duration
	dealEndPause  time.Duration
}

// NewHub wires a dispatcher over an existing seat table and match.
func NewHub(seats *table.SeatTable, match *table.Match, st store.Store, graceSeconds, dealEndPauseSeconds int) *Hub {
	return &Hub{
		Events:        make(chan func(), 256),
		Seats:         seats,
		Match:         match,
		Store:         st,
		sessions:      make(map[string]*Conn),
		graceTimers:   make(map[string]*time.Timer),
		graceDuration: time.Duration(graceSeconds) * time.Second,
		dealEndPause:  time.Duration(dealEndPauseSeconds) * time.Second,
	}
}

// Run executes closures off Events until stop is closed. This is the
// entire server's single writer of game state (spec §5).
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case fn := <-h.Events:
			fn()
		case <-stop:
			return
		}
	}
}

// Enqueue schedules fn to run on the dispatcher goroutine. Safe to call
// from any goroutine (read pumps, grace timers).
func (h *Hub) Enqueue(fn func()) {
	h.Events <- fn
}

// HandleFrame is the ReadPump callback: it hands the frame to the
// dispatcher mailbox.
func (h *Hub) HandleFrame(conn *Conn, env wire.Envelope) {
	h.Enqueue(func() { h.dispatch(conn, env) })
}

// HandleDisconnect is invoked once a connection's pumps have ended.
func (h *Hub) HandleDisconnect(conn *Conn) {
	h.Enqueue(func() { h.onDisconnect(conn) })
}

func (h *Hub) dispatch(conn *Conn, env wire.Envelope) {
	if conn.PlayerID == "" && env.Method != "LoginRequest" && env.Method != "AuthRequest" {
		log.Printf("session: dropping %s before login/auth", env.Method)
		return
	}

	switch env.Method {
	case "LoginRequest":
		var req wire.LoginRequest
		if h.decode(env, &req) {
			h.handleLogin(conn, req)
		}
	case "AuthRequest":
		var req wire.AuthRequest
		if h.decode(env, &req) {
			h.handleAuth(conn, req)
		}
	case "Logout":
		var req wire.Logout
		if h.decode(env, &req) {
			h.handleLogout(conn, req)
		}
	case "ReadyCheck":
		var req wire.ReadyCheck
		if h.decode(env, &req) {
			h.run(h.Match.HandleReadyCheck(req.PlayerID, req.State))
		}
	case "Bidding":
		var req wire.Bidding
		if h.decode(env, &req) {
			h.run(h.Match.HandleBidding(req.PlayerID, req.Bid))
		}
	case "DiscardTalon":
		var req wire.DiscardTalon
		if h.decode(env, &req) {
			h.run(h.Match.HandleDiscardTalon(req.PlayerID, req.Bid, req.Cards))
		}
	case "Whisting":
		var req wire.Whisting
		if h.decode(env, &req) {
			h.run(h.Match.HandleWhisting(req.PlayerID, req.Choice))
		}
	case "HowToPlay":
		var req wire.HowToPlay
		if h.decode(env, &req) {
			h.run(h.Match.HandleHowToPlay(req.PlayerID, req.Choice))
		}
	case "PlayCard":
		var req wire.PlayCard
		if h.decode(env, &req) {
			h.run(h.Match.HandlePlayCard(req.PlayerID, req.Card))
		}
	case "MakeOffer":
		var req wire.MakeOffer
		if h.decode(env, &req) {
			h.sendToMany(h.Seats.Others(req.PlayerID), "MakeOffer", req)
		}
	case "SpeechBubble":
		var req wire.SpeechBubble
		if h.decode(env, &req) {
			h.sendToMany(h.Seats.Others(req.PlayerID), "SpeechBubble", req)
		}
	case "AudioSignal":
		var req wire.AudioSignal
		if h.decode(env, &req) {
			h.sendToMany([]string{req.ToPlayerID}, "AudioSignal", req)
		}
	case "PingPong":
		var req wire.PingPong
		if h.decode(env, &req) {
			h.sendToMany([]string{conn.PlayerID}, "PingPong", req)
		}
	case "Log":
		var req wire.Log
		if h.decode(env, &req) {
			log.Printf("client log [%s]: %s", req.PlayerID, req.Text)
		}
	default:
		log.Printf("session: unknown method %q", env.Method)
	}
}

func (h *Hub) decode(env wire.Envelope, dst any) bool {
	if err := wire.DecodePayload(env.Payload, dst); err != nil {
		log.Printf("session: malformed %s payload: %v", env.Method, err)
		return false
	}
	return true
}

// run applies a table.Match handler's result: errors are rule/protocol
// violations and are only logged (spec §7); the resulting Out messages
// are dispatched, and a completed deal schedules the next one.
func (h *Hub) run(outs []table.Out, err error) {
	if err != nil {
		log.Printf("table: rejected action: %v", err)
		return
	}
	h.dispatchOuts(outs)
	if h.Match.Stage != "" && h.dealJustEnded(outs) {
		h.scheduleNextDeal()
	}
}

func (h *Hub) dealJustEnded(outs []table.Out) bool {
	for _, o := range outs {
		if o.Method == "DealFinished" {
			return true
		}
	}
	return false
}

func (h *Hub) scheduleNextDeal() {
	if h.Match.IsGameOver {
		return
	}
	time.AfterFunc(h.dealEndPause, func() {
		h.Enqueue(func() {
			outs, err := h.Match.StartDeal(true)
			if err != nil {
				log.Printf("table: starting next deal: %v", err)
				return
			}
			h.dispatchOuts(outs)
		})
	})
}

func (h *Hub) dispatchOuts(outs []table.Out) {
	for _, o := range outs {
		h.sendToMany(o.To, o.Method, o.Payload)
	}
}

func (h *Hub) sendToMany(ids []string, method string, payload any) {
	frame, err := wire.Marshal(method, payload)
	if err != nil {
		log.Printf("wire: marshal %s: %v", method, err)
		return
	}
	for _, id := range ids {
		if c, ok := h.sessions[id]; ok {
			c.enqueue(frame)
		}
	}
}

// --- Login / Auth / Logout (spec §4.5, §4.10) ---

func (h *Hub) handleLogin(conn *Conn, req wire.LoginRequest) {
	user, ok, err := h.Store.UserByName(req.PlayerName)
	if err != nil {
		log.Printf("store: lookup user by name: %v", err)
	}
	if !ok || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		h.sendDirectly(conn, "LoginResponse", wire.LoginResponse{Error: "invalid credentials"})
		return
	}

	token, err := auth.NewClientToken()
	if err != nil {
		log.Printf("auth: mint token: %v", err)
		h.sendDirectly(conn, "LoginResponse", wire.LoginResponse{Error: "internal error"})
		return
	}
	digest, err := auth.TokenDigest(token)
	if err != nil {
		log.Printf("auth: digest token: %v", err)
		h.sendDirectly(conn, "LoginResponse", wire.LoginResponse{Error: "internal error"})
		return
	}
	if err := h.Store.AddToken(user.PlayerID, digest); err != nil {
		log.Printf("store: add token: %v", err)
	}

	h.admit(conn, user.PlayerID, user.PlayerName, token, "LoginResponse")
}

func (h *Hub) handleAuth(conn *Conn, req wire.AuthRequest) {
	user, ok, err := h.Store.UserByID(req.PlayerID)
	if err != nil {
		log.Printf("store: lookup user by id: %v", err)
	}
	digest, digestErr := auth.TokenDigest(req.AuthToken)
	if !ok || digestErr != nil || !anyMatch(user.AuthTokens, digest) {
		h.sendDirectly(conn, "AuthResponse", wire.AuthResponse{Error: "invalid token"})
		return
	}
	h.admit(conn, user.PlayerID, user.PlayerName, req.AuthToken, "AuthResponse")
}

func anyMatch(tokens []string, digest string) bool {
	for _, t := range tokens {
		if t == digest {
			return true
		}
	}
	return false
}

// admit seats a new player or resumes an existing seat on reconnection
// (spec §4.5 steps 3-5), bumping the seat's session epoch and closing
// any previous channel still attached to it (spec §4.10).
func (h *Hub) admit(conn *Conn, playerID, playerName, authToken, responseMethod string) {
	if existing, ok := h.Seats.Get(playerID); ok {
		existing.Conn.SessionID++
		conn.PlayerID = playerID
		conn.Epoch = existing.Conn.SessionID
		existing.Conn.Alive = true

		if old, ok := h.sessions[playerID]; ok && old != conn {
			old.CloseWithReason("Another tab connected")
		}
		h.sessions[playerID] = conn
		h.cancelGrace(playerID)

		h.sendAdmitResponse(conn, responseMethod, playerID, authToken, "")
		h.resendStateAfterReconnect(playerID, conn)
		return
	}

	if h.Seats.Full() {
		h.sendAdmitResponse(conn, responseMethod, "", "", "table is full")
		return
	}

	p := table.NewPlayer(playerID, playerName)
	p.Conn = table.Connection{SessionID: 1, Alive: true}
	if err := h.Seats.Seat(p); err != nil {
		log.Printf("table: seat: %v", err)
		return
	}
	conn.PlayerID = playerID
	conn.Epoch = 1
	h.sessions[playerID] = conn

	h.sendToMany(h.Seats.Others(playerID), "PlayerJoined", wire.PlayerJoined{PlayerID: playerID, PlayerName: playerName})
	h.sendAdmitResponse(conn, responseMethod, playerID, authToken, "")
}

// sendAdmitResponse builds and sends the LoginResponse/AuthResponse
// pair (identical shape, distinct wire method names) for a newly
// admitted or reconnected session.
func (h *Hub) sendAdmitResponse(conn *Conn, method, playerID, authToken, errText string) {
	players := h.playerIdents()
	if method == "AuthResponse" {
		h.sendDirectly(conn, method, wire.AuthResponse{
			PlayerID: playerID, AuthToken: authToken,
			Stage: h.Match.Stage, Players: players, Error: errText,
		})
		return
	}
	h.sendDirectly(conn, method, wire.LoginResponse{
		PlayerID: playerID, AuthToken: authToken,
		Stage: h.Match.Stage, Players: players, Error: errText,
	})
}

func (h *Hub) sendDirectly(conn *Conn, method string, payload any) {
	frame, err := wire.Marshal(method, payload)
	if err != nil {
		log.Printf("wire: marshal %s: %v", method, err)
		return
	}
	conn.enqueue(frame)
}

func (h *Hub) playerIdents() []wire.PlayerIdent {
	var out []wire.PlayerIdent
	for _, id := range h.Seats.All() {
		p, _ := h.Seats.Get(id)
		out = append(out, wire.PlayerIdent{PlayerID: p.ID, PlayerName: p.Name})
	}
	return out
}

// resendStateAfterReconnect replays the hand and deal state to a
// rejoining session. Because discarded talon cards are removed from
// Player.Hand at discard time, this can never resend cards the
// declarer has already given up (spec §9 bullet 1).
func (h *Hub) resendStateAfterReconnect(playerID string, conn *Conn) {
	p, ok := h.Seats.Get(playerID)
	if !ok {
		return
	}
	h.sendDirectly(conn, "DealCards", wire.DealCards{PlayerID: playerID, Cards: namesOf(p.Hand)})

	tricks := make([]wire.TakenTricks, 0, h.Seats.Len())
	cardsLeft := make([]wire.CardsLeft, 0, h.Seats.Len())
	for _, id := range h.Seats.All() {
		other, _ := h.Seats.Get(id)
		tricks = append(tricks, wire.TakenTricks{PlayerID: id, Taken: other.TricksTaken})
		cardsLeft = append(cardsLeft, wire.CardsLeft{PlayerID: id, Count: len(other.Hand)})
	}
	h.sendDirectly(conn, "GameState", wire.GameState{
		LastTrick:   trickCardNames(h.Match.LastTrick),
		TakenTricks: tricks,
		CardsLeft:   cardsLeft,
	})
}

func namesOf(h cards.Hand) []string {
	names := h.Names()
	out := make([]string, len(names))
	for i, c := range names {
		out[i] = string(c)
	}
	return out
}

func trickCardNames(played []cards.Played) []string {
	out := make([]string, len(played))
	for i, pl := range played {
		out[i] = string(pl.Card)
	}
	return out
}

func (h *Hub) handleLogout(conn *Conn, req wire.Logout) {
	user, ok, err := h.Store.UserByID(req.PlayerID)
	if err != nil || !ok {
		return
	}
	digest, err := auth.TokenDigest(req.AuthToken)
	if err != nil || !anyMatch(user.AuthTokens, digest) {
		return
	}
	if err := h.Store.RevokeToken(req.PlayerID, digest); err != nil {
		log.Printf("store: revoke token: %v", err)
	}
	delete(h.sessions, req.PlayerID)
	h.cancelGrace(req.PlayerID)
	h.Seats.Remove(req.PlayerID)
	h.sendToMany(h.Seats.Others(req.PlayerID), "PlayerLeft", wire.PlayerLeft{PlayerID: req.PlayerID})
}

// --- Reconnection supervisor (spec §4.10) ---

func (h *Hub) onDisconnect(conn *Conn) {
	id := conn.PlayerID
	if id == "" {
		return
	}
	p, ok := h.Seats.Get(id)
	if !ok {
		return
	}
	if p.Conn.SessionID > conn.Epoch {
		return // a newer session already took over; this task's epoch is stale
	}
	if cur, ok := h.sessions[id]; ok && cur == conn {
		delete(h.sessions, id)
	}
	p.Conn.Alive = false
	h.startGrace(id, p.Conn.SessionID)
}

func (h *Hub) startGrace(playerID string, epoch int64) {
	h.cancelGrace(playerID)
	h.graceTimers[playerID] = time.AfterFunc(h.graceDuration, func() {
		h.Enqueue(func() { h.expireGrace(playerID, epoch) })
	})
}

func (h *Hub) cancelGrace(playerID string) {
	if t, ok := h.graceTimers[playerID]; ok {
		t.Stop()
		delete(h.graceTimers, playerID)
	}
}

func (h *Hub) expireGrace(playerID string, epoch int64) {
	delete(h.graceTimers, playerID)
	p, ok := h.Seats.Get(playerID)
	if !ok || p.Conn.SessionID != epoch {
		return
	}
	h.Seats.Remove(playerID)
	h.sendToMany(h.Seats.Others(playerID), "PlayerLeft", wire.PlayerLeft{PlayerID: playerID})
}
