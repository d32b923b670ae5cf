package store

import (
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is the spec-mandated default backend (§4.1): the entire
// user table lives in one gob-encoded file, loaded once at startup and
// rewritten atomically (write-temp, fsync, rename) after every mutation.
// There is no WAL and no partial update; a crash mid-rewrite leaves the
// previous file intact because rename is the only step that publishes
// the new version.
type FileStore struct {
	mu    sync.Mutex
	path  string
	users map[string]User // keyed by PlayerID
	byName map[string]string // PlayerName -> PlayerID
}

type fileImage struct {
	Users []User
}

// OpenFileStore loads path if it exists, or starts with an empty table
// if it doesn't (first boot).
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		users:  make(map[string]User),
		byName: make(map[string]string),
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	var img fileImage
	if err := gob.NewDecoder(f).Decode(&img); err != nil {
		log.Printf("store: warning: %s is malformed, starting with an empty store: %v", path, err)
		return fs, nil
	}
	for _, u := range img.Users {
		fs.users[u.PlayerID] = u
		fs.byName[u.PlayerName] = u.PlayerID
	}
	return fs, nil
}

// persist rewrites the whole file atomically. Caller must hold mu.
func (fs *FileStore) persist() error {
	img := fileImage{Users: make([]User, 0, len(fs.users))}
	for _, u := range fs.users {
		img.Users = append(img.Users, u)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

func (fs *FileStore) UserByID(playerID string) (User, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	u, ok := fs.users[playerID]
	return u, ok, nil
}

func (fs *FileStore) UserByName(playerName string) (User, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	id, ok := fs.byName[playerName]
	if !ok {
		return User{}, false, nil
	}
	u := fs.users[id]
	return u, true, nil
}

func (fs *FileStore) AddUser(u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, exists := fs.users[u.PlayerID]; exists {
		return fmt.Errorf("store: player id %s already exists", u.PlayerID)
	}
	if _, exists := fs.byName[u.PlayerName]; exists {
		return fmt.Errorf("store: player name %q already taken", u.PlayerName)
	}
	fs.users[u.PlayerID] = u
	fs.byName[u.PlayerName] = u.PlayerID
	return fs.persist()
}

func (fs *FileStore) AddToken(playerID, tokenDigest string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	u, ok := fs.users[playerID]
	if !ok {
		return ErrUserNotFound
	}
	if !hasToken(u.AuthTokens, tokenDigest) {
		u.AuthTokens = append(u.AuthTokens, tokenDigest)
	}
	fs.users[playerID] = u
	return fs.persist()
}

func (fs *FileStore) RevokeToken(playerID, tokenDigest string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	u, ok := fs.users[playerID]
	if !ok {
		return ErrUserNotFound
	}
	u.AuthTokens = removeToken(u.AuthTokens, tokenDigest)
	fs.users[playerID] = u
	return fs.persist()
}

func (fs *FileStore) AppendOrUpdateGame(playerID string, game Game) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	u, ok := fs.users[playerID]
	if !ok {
		return ErrUserNotFound
	}
	u.Games = mergeGame(u.Games, game)
	fs.users[playerID] = u
	return fs.persist()
}

func (fs *FileStore) Close() error {
	return nil
}

// Users returns every persisted user, for the admin inspector
// (cmd/pref-cli). Order is unspecified.
func (fs *FileStore) Users() ([]User, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]User, 0, len(fs.users))
	for _, u := range fs.users {
		out = append(out, u)
	}
	return out, nil
}

// Repair rewrites the store file from the in-memory table through the
// same atomic persist() every mutation uses. It does nothing beyond that
// rewrite; leftover temp files in the directory are not removed.
func (fs *FileStore) Repair() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.persist()
}
