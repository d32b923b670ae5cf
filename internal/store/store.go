// Package store implements the persistent user/game record (spec §4.1,
// §6.2): users, password hashes, hashed auth tokens, and per-user game
// history, loaded on boot and rewritten atomically on every mutation
// that must survive a crash.
package store

import "fmt"

// Game is one persisted deal row on a user's history (spec §3, §6.2).
type Game struct {
	ID          int32
	Timestamp   int64
	DurationSec int32
	GameType    string // "Normal" or "Ranked"
	MMR         int32
	Pool        int32
	Dump        int32
	Whists      int32
}

// User is one persisted account record (spec §3).
type User struct {
	PlayerID     string
	PlayerName   string
	PasswordHash string
	AuthTokens   []string // hashed digests only; raw tokens never persisted
	Games        []Game
}

// Store is the persistence contract every backend (file, sqlite,
// postgres) satisfies. Implementations persist synchronously: callers
// save after every mutation that must survive a crash (spec §4.1).
type Store interface {
	UserByID(playerID string) (User, bool, error)
	UserByName(playerName string) (User, bool, error)
	AddUser(u User) error
	AddToken(playerID, tokenDigest string) error
	RevokeToken(playerID, tokenDigest string) error
	AppendOrUpdateGame(playerID string, game Game) error
	Close() error
}

// ErrUserNotFound is returned by mutating operations that target a
// nonexistent player id.
var ErrUserNotFound = fmt.Errorf("store: user not found")

// mergeGame implements the history-merge law (spec §4.9): a game record
// sharing an id with an existing one has its fields overwritten by the
// new values in place; otherwise it is appended. Applying the same Game
// twice is idempotent.
func mergeGame(games []Game, g Game) []Game {
	for i, existing := range games {
		if existing.ID == g.ID {
			games[i] = mergeFields(existing, g)
			return games
		}
	}
	return append(games, g)
}

// mergeFields overwrites non-default fields of base with the
// corresponding fields of update, matching the original server's
// protobuf MergeFrom semantics (non-zero scalar fields replace).
func mergeFields(base, update Game) Game {
	if update.Timestamp != 0 {
		base.Timestamp = update.Timestamp
	}
	if update.DurationSec != 0 {
		base.DurationSec = update.DurationSec
	}
	if update.GameType != "" {
		base.GameType = update.GameType
	}
	if update.MMR != 0 {
		base.MMR = update.MMR
	}
	if update.Pool != 0 {
		base.Pool = update.Pool
	}
	if update.Dump != 0 {
		base.Dump = update.Dump
	}
	if update.Whists != 0 {
		base.Whists = update.Whists
	}
	return base
}

func removeToken(tokens []string, digest string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != digest {
			out = append(out, t)
		}
	}
	return out
}

func hasToken(tokens []string, digest string) bool {
	for _, t := range tokens {
		if t == digest {
			return true
		}
	}
	return false
}
