package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("correct horse battery staple", hash) {
		t.Fatalf("expected correct password to verify")
	}
	if VerifyPassword("wrong password", hash) {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if VerifyPassword("anything", "not-a-real-hash") {
		t.Fatalf("malformed hash must not verify")
	}
}

func TestNewPlayerIDIsLowercaseUUID(t *testing.T) {
	id := NewPlayerID()
	if id != stringsToLower(id) {
		t.Fatalf("player id must be lowercase: %s", id)
	}
	if len(id) != 36 {
		t.Fatalf("player id length = %d, want 36", len(id))
	}
}

func stringsToLower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + 32
		}
	}
	return string(out)
}

func TestTokenDigestDeterministicAndUnique(t *testing.T) {
	tokenA, err := NewClientToken()
	if err != nil {
		t.Fatalf("NewClientToken: %v", err)
	}
	tokenB, err := NewClientToken()
	if err != nil {
		t.Fatalf("NewClientToken: %v", err)
	}
	if tokenA == tokenB {
		t.Fatalf("two generated tokens collided")
	}

	digestA1, err := TokenDigest(tokenA)
	if err != nil {
		t.Fatalf("TokenDigest: %v", err)
	}
	digestA2, err := TokenDigest(tokenA)
	if err != nil {
		t.Fatalf("TokenDigest: %v", err)
	}
	if digestA1 != digestA2 {
		t.Fatalf("digest must be deterministic for the same token")
	}

	digestB, err := TokenDigest(tokenB)
	if err != nil {
		t.Fatalf("TokenDigest: %v", err)
	}
	if digestA1 == digestB {
		t.Fatalf("distinct tokens must not collide on digest")
	}
}

func TestTokenDigestVerifiesOnlyItsOwnToken(t *testing.T) {
	// Invariant: a stored auth-token digest verifies to exactly the
	// client token that produced it and to no other.
	tokens := make([]string, 5)
	digests := make([]string, 5)
	for i := range tokens {
		tok, err := NewClientToken()
		if err != nil {
			t.Fatalf("NewClientToken: %v", err)
		}
		tokens[i] = tok
		digest, err := TokenDigest(tok)
		if err != nil {
			t.Fatalf("TokenDigest: %v", err)
		}
		digests[i] = digest
	}

	for i, tok := range tokens {
		for j, digest := range digests {
			got, err := TokenDigest(tok)
			if err != nil {
				t.Fatalf("TokenDigest: %v", err)
			}
			matches := got == digest
			if i == j && !matches {
				t.Fatalf("token %d should match its own digest", i)
			}
			if i != j && matches {
				t.Fatalf("token %d must not match digest of token %d", i, j)
			}
		}
	}
}
