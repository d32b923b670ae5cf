package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreAddAndLoadUser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.gob")

	fs, err := OpenFileStore(path)
	require.NoError(t, err)

	u := User{PlayerID: "p0", PlayerName: "alice", PasswordHash: "hash"}
	require.NoError(t, fs.AddUser(u))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	got, ok, err := reopened.UserByID("p0")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", got.PlayerName)

	byName, ok, err := reopened.UserByName("alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p0", byName.PlayerID)
}

func TestFileStoreRejectsDuplicatePlayerName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.gob")

	fs, err := OpenFileStore(path)
	require.NoError(t, err)

	require.NoError(t, fs.AddUser(User{PlayerID: "p0", PlayerName: "alice", PasswordHash: "h"}))
	err = fs.AddUser(User{PlayerID: "p1", PlayerName: "alice", PasswordHash: "h2"})
	require.Error(t, err)
}

func TestFileStoreTokenLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.gob")

	fs, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.AddUser(User{PlayerID: "p0", PlayerName: "alice", PasswordHash: "h"}))

	require.NoError(t, fs.AddToken("p0", "digest-a"))
	require.NoError(t, fs.AddToken("p0", "digest-b"))

	u, _, err := fs.UserByID("p0")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"digest-a", "digest-b"}, u.AuthTokens)

	require.NoError(t, fs.RevokeToken("p0", "digest-a"))
	u, _, err = fs.UserByID("p0")
	require.NoError(t, err)
	require.Equal(t, []string{"digest-b"}, u.AuthTokens)
}

func TestFileStoreAppendOrUpdateGameMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.gob")

	fs, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.AddUser(User{PlayerID: "p0", PlayerName: "alice", PasswordHash: "h"}))

	require.NoError(t, fs.AppendOrUpdateGame("p0", Game{ID: 1, GameType: "Normal", Dump: 5}))
	require.NoError(t, fs.AppendOrUpdateGame("p0", Game{ID: 2, GameType: "Ranked", Dump: 2}))
	// Re-applying game 1 with an updated Dump must overwrite, not duplicate.
	require.NoError(t, fs.AppendOrUpdateGame("p0", Game{ID: 1, GameType: "Normal", Dump: 9}))

	u, _, err := fs.UserByID("p0")
	require.NoError(t, err)
	require.Len(t, u.Games, 2)

	var first Game
	for _, g := range u.Games {
		if g.ID == 1 {
			first = g
		}
	}
	require.Equal(t, int32(9), first.Dump)
}

func TestFileStoreMutationOnUnknownUserFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.gob")

	fs, err := OpenFileStore(path)
	require.NoError(t, err)

	require.ErrorIs(t, fs.AddToken("ghost", "digest"), ErrUserNotFound)
	require.ErrorIs(t, fs.RevokeToken("ghost", "digest"), ErrUserNotFound)
	require.ErrorIs(t, fs.AppendOrUpdateGame("ghost", Game{ID: 1}), ErrUserNotFound)
}
