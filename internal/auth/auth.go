// Package auth implements the credential service: password hashing,
// player id minting, and client auth-token generation/digesting.
//
// Grounded on the original server's choice of Argon2id for password
// hashing and BLAKE2b-256 for the at-rest token digest
// (original_source/server/src/auth.hpp), expressed here with
// golang.org/x/crypto's argon2 and blake2b packages.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
)

// Argon2id cost parameters. Chosen to be memory-hard on commodity
// hardware; tune via config if the deployment target needs otherwise.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 2
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword returns a self-describing hash string encoding the
// Argon2id parameters, salt, and digest, e.g.
// "argon2id$v=19$m=65536,t=1,p=2$<salt-hex>$<hash-hex>".
func HashPassword(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	digest := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf(
		"argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		hex.EncodeToString(salt), hex.EncodeToString(digest),
	), nil
}

// VerifyPassword reports whether plaintext matches storedHash, constant
// time on the digest comparison. Any parsing error yields false.
func VerifyPassword(plaintext, storedHash string) bool {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	salt, err := hex.DecodeString(parts[3])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[4])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NewPlayerID mints a fresh lowercase UUIDv4 string.
func NewPlayerID() string {
	return strings.ToLower(uuid.New().String())
}

// NewClientToken returns 32 cryptographically random bytes encoded as
// lowercase hex. This is the literal token value handed to the client;
// only its digest is ever persisted.
func NewClientToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// TokenDigest returns the hex-encoded BLAKE2b-256 digest of the raw
// bytes behind a hex-encoded client token. Only this digest is stored;
// tokens cannot be recovered from it.
func TokenDigest(clientTokenHex string) (string, error) {
	raw, err := hex.DecodeString(clientTokenHex)
	if err != nil {
		return "", fmt.Errorf("auth: decode token: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
