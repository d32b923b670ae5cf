// pref-cli is a minimal admin inspector over the persistent store: list
// users, show a user's game history, and (file backend only) rewrite
// the store file. It shares internal/store with the server rather than
// reimplementing any of its own persistence.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"preferans/internal/auth"
	"preferans/internal/store"
)

// lister is implemented by backends that can enumerate every user.
type lister interface {
	Users() ([]store.User, error)
}

// repairer is implemented by backends that support an explicit
// rewrite-from-memory repair (currently only FileStore).
type repairer interface {
	Repair() error
}

func main() {
	backend := flag.String("backend", "file", "store backend: file, sqlite, or postgres")
	path := flag.String("path", "data/preferans.gob", "store file path (file backend) or DSN (sqlite/postgres)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	st, err := openStore(*backend, *path)
	if err != nil {
		log.Fatalf("pref-cli: open store: %v", err)
	}
	defer st.Close()

	switch args[0] {
	case "add", "create":
		if len(args) != 3 {
			log.Fatal("pref-cli: usage: pref-cli add <player_name> <password>")
		}
		runAdd(st, args[1], args[2])
	case "list":
		runList(st)
	case "history":
		if len(args) != 2 {
			log.Fatal("pref-cli: usage: pref-cli history <player_id>")
		}
		runHistory(st, args[1])
	case "repair":
		runRepair(st)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pref-cli [-backend=file|sqlite|postgres] [-path=...] <command>")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  add <player_name> <password>  create a new user")
	fmt.Fprintln(os.Stderr, "  list                          list every user")
	fmt.Fprintln(os.Stderr, "  history <player_id>           show a user's game history")
	fmt.Fprintln(os.Stderr, "  repair                        rewrite the store file (file backend only)")
}

// runAdd is the sole path by which a User entity comes into existence:
// it mints a player id, hashes the password, and persists the record.
func runAdd(st store.Store, playerName, password string) {
	if _, ok, err := st.UserByName(playerName); err != nil {
		log.Fatalf("pref-cli: lookup user: %v", err)
	} else if ok {
		log.Fatalf("pref-cli: player name %q already taken", playerName)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("pref-cli: hash password: %v", err)
	}

	u := store.User{
		PlayerID:     auth.NewPlayerID(),
		PlayerName:   playerName,
		PasswordHash: hash,
	}
	if err := st.AddUser(u); err != nil {
		log.Fatalf("pref-cli: add user: %v", err)
	}
	fmt.Printf("created %s (%s)\n", u.PlayerName, u.PlayerID)
}

func openStore(backend, path string) (store.Store, error) {
	switch backend {
	case "sqlite", "postgres":
		return store.OpenSQLStore(backend, path, 5, 2)
	default:
		return store.OpenFileStore(path)
	}
}

func runList(st store.Store) {
	l, ok := st.(lister)
	if !ok {
		log.Fatal("pref-cli: this backend cannot enumerate users")
	}
	users, err := l.Users()
	if err != nil {
		log.Fatalf("pref-cli: list users: %v", err)
	}
	for _, u := range users {
		fmt.Printf("%s\t%s\t%d game(s)\t%d token(s)\n", u.PlayerID, u.PlayerName, len(u.Games), len(u.AuthTokens))
	}
}

func runHistory(st store.Store, playerID string) {
	u, ok, err := st.UserByID(playerID)
	if err != nil {
		log.Fatalf("pref-cli: lookup user: %v", err)
	}
	if !ok {
		log.Fatalf("pref-cli: no such user %q", playerID)
	}
	fmt.Printf("%s (%s)\n", u.PlayerName, u.PlayerID)
	for _, g := range u.Games {
		fmt.Printf("  game %d [%s] %ds pool=%d dump=%d whists=%d mmr=%d at %d\n",
			g.ID, g.GameType, g.DurationSec, g.Pool, g.Dump, g.Whists, g.MMR, g.Timestamp)
	}
}

func runRepair(st store.Store) {
	r, ok := st.(repairer)
	if !ok {
		log.Fatal("pref-cli: repair is only supported on the file backend")
	}
	if err := r.Repair(); err != nil {
		log.Fatalf("pref-cli: repair: %v", err)
	}
	fmt.Println("store repaired")
}
