// SQL-backed Store implementation: relational alternative to FileStore,
// selected by DBType the same way the teacher's database.go switches on
// cfg.DBType (spec §4.1, §6.2).
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists users, token digests, and game history across two
// relational tables (users, auth_tokens). Game history is stored as a JSON blob column
// rather than a child table: spec history rows are small, append-mostly,
// and always read back whole per user, so a normalized child table buys
// nothing a blob doesn't already give.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite3" or "postgres"
}

// OpenSQLStore opens dbType ("sqlite" or "postgres") at dsn, pings it,
// and ensures the schema exists.
func OpenSQLStore(dbType, dsn string, maxOpenConns, maxIdleConns int) (*SQLStore, error) {
	var driver string
	switch dbType {
	case "sqlite":
		driver = "sqlite3"
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create data directory: %w", err)
			}
		}
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("store: unsupported db type %q", dbType)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("store: enable foreign keys: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			log.Printf("store: warning: failed to set WAL mode: %v", err)
		}
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema() error {
	var schema string
	if s.driver == "sqlite3" {
		schema = `
CREATE TABLE IF NOT EXISTS users (
    player_id TEXT PRIMARY KEY,
    player_name TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    games TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS auth_tokens (
    player_id TEXT NOT NULL,
    token_digest TEXT NOT NULL,
    PRIMARY KEY (player_id, token_digest),
    FOREIGN KEY (player_id) REFERENCES users(player_id)
);
`
	} else {
		schema = `
CREATE TABLE IF NOT EXISTS users (
    player_id TEXT PRIMARY KEY,
    player_name TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    games TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS auth_tokens (
    player_id TEXT NOT NULL REFERENCES users(player_id),
    token_digest TEXT NOT NULL,
    PRIMARY KEY (player_id, token_digest)
);
`
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// placeholder returns the i'th (1-based) bind placeholder in this
// driver's dialect: "?" for sqlite3, "$i" for postgres.
func (s *SQLStore) placeholder(i int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (s *SQLStore) UserByID(playerID string) (User, bool, error) {
	return s.userBy("player_id", playerID)
}

func (s *SQLStore) UserByName(playerName string) (User, bool, error) {
	return s.userBy("player_name", playerName)
}

func (s *SQLStore) userBy(column, value string) (User, bool, error) {
	query := fmt.Sprintf("SELECT player_id, player_name, password_hash, games FROM users WHERE %s = %s", column, s.placeholder(1))
	row := s.db.QueryRow(query, value)

	var u User
	var gamesJSON string
	if err := row.Scan(&u.PlayerID, &u.PlayerName, &u.PasswordHash, &gamesJSON); err != nil {
		if err == sql.ErrNoRows {
			return User{}, false, nil
		}
		return User{}, false, fmt.Errorf("store: query user: %w", err)
	}
	if err := json.Unmarshal([]byte(gamesJSON), &u.Games); err != nil {
		return User{}, false, fmt.Errorf("store: decode games: %w", err)
	}

	tokens, err := s.tokensFor(u.PlayerID)
	if err != nil {
		return User{}, false, err
	}
	u.AuthTokens = tokens
	return u, true, nil
}

func (s *SQLStore) tokensFor(playerID string) ([]string, error) {
	query := fmt.Sprintf("SELECT token_digest FROM auth_tokens WHERE player_id = %s", s.placeholder(1))
	rows, err := s.db.Query(query, playerID)
	if err != nil {
		return nil, fmt.Errorf("store: query tokens: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var digest string
		if err := rows.Scan(&digest); err != nil {
			return nil, fmt.Errorf("store: scan token: %w", err)
		}
		out = append(out, digest)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddUser(u User) error {
	gamesJSON, err := json.Marshal(u.Games)
	if err != nil {
		return fmt.Errorf("store: encode games: %w", err)
	}
	query := fmt.Sprintf(
		"INSERT INTO users (player_id, player_name, password_hash, games) VALUES (%s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))
	if _, err := s.db.Exec(query, u.PlayerID, u.PlayerName, u.PasswordHash, string(gamesJSON)); err != nil {
		return fmt.Errorf("store: insert user: %w", err)
	}
	for _, digest := range u.AuthTokens {
		if err := s.AddToken(u.PlayerID, digest); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) AddToken(playerID, tokenDigest string) error {
	var query string
	if s.driver == "postgres" {
		query = "INSERT INTO auth_tokens (player_id, token_digest) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	} else {
		query = "INSERT OR IGNORE INTO auth_tokens (player_id, token_digest) VALUES (?, ?)"
	}
	if _, err := s.db.Exec(query, playerID, tokenDigest); err != nil {
		return fmt.Errorf("store: insert token: %w", err)
	}
	return nil
}

func (s *SQLStore) RevokeToken(playerID, tokenDigest string) error {
	query := fmt.Sprintf("DELETE FROM auth_tokens WHERE player_id = %s AND token_digest = %s",
		s.placeholder(1), s.placeholder(2))
	if _, err := s.db.Exec(query, playerID, tokenDigest); err != nil {
		return fmt.Errorf("store: delete token: %w", err)
	}
	return nil
}

func (s *SQLStore) AppendOrUpdateGame(playerID string, game Game) error {
	u, ok, err := s.UserByID(playerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	u.Games = mergeGame(u.Games, game)

	gamesJSON, err := json.Marshal(u.Games)
	if err != nil {
		return fmt.Errorf("store: encode games: %w", err)
	}
	query := fmt.Sprintf("UPDATE users SET games = %s WHERE player_id = %s", s.placeholder(1), s.placeholder(2))
	if _, err := s.db.Exec(query, string(gamesJSON), playerID); err != nil {
		return fmt.Errorf("store: update games: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Users returns every persisted user, for the admin inspector
// (cmd/pref-cli). Order is unspecified.
func (s *SQLStore) Users() ([]User, error) {
	rows, err := s.db.Query("SELECT player_id FROM users")
	if err != nil {
		return nil, fmt.Errorf("store: query users: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		u, ok, err := s.UserByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}
