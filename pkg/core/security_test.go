package core

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	claims := TokenClaims{PlayerID: "p1", DisplayName: "RustyDigger7", IsGuest: true, Expiry: now.Add(time.Hour).Unix()}

	token := SignToken(secret, claims)
	got, ok := VerifyToken(secret, token, now)
	if !ok {
		t.Fatal("valid token rejected")
	}
	if got != claims {
		t.Fatalf("claims = %+v, want %+v", got, claims)
	}
}

func TestTokenTampered(t *testing.T) {
	secret := []byte("test-secret")
	token := SignToken(secret, TokenClaims{PlayerID: "p1"})

	if _, ok := VerifyToken([]byte("other-secret"), token, time.Now()); ok {
		t.Fatal("token verified under wrong secret")
	}
	mangled := strings.Replace(token, ".", "x.", 1)
	if _, ok := VerifyToken(secret, mangled, time.Now()); ok {
		t.Fatal("mangled token verified")
	}
	if _, ok := VerifyToken(secret, "not-a-token", time.Now()); ok {
		t.Fatal("garbage verified")
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	token := SignToken(secret, TokenClaims{PlayerID: "p1", Expiry: now.Add(time.Minute).Unix()})

	if _, ok := VerifyToken(secret, token, now); !ok {
		t.Fatal("unexpired token rejected")
	}
	if _, ok := VerifyToken(secret, token, now.Add(2*time.Minute)); ok {
		t.Fatal("expired token accepted")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("deepmine chunk modification log "), 100)
	packed := Compress(src)
	if len(packed) >= len(src) {
		t.Fatalf("repetitive input did not shrink: %d -> %d", len(src), len(packed))
	}
	if got := Decompress(packed); !bytes.Equal(got, src) {
		t.Fatal("round trip mismatch")
	}
}

func TestHashStable(t *testing.T) {
	a := Hash([]byte("abc"))
	b := Hash([]byte("abc"))
	if a != b || len(a) != 64 {
		t.Fatalf("hash unstable or wrong width: %q vs %q", a, b)
	}
	if Hash([]byte("abd")) == a {
		t.Fatal("distinct inputs collided")
	}
}
