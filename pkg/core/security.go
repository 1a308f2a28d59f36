package core

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

var bufferPool = sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}

// --- Compression ---

func Compress(src []byte) []byte {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)
	zw := lz4.NewWriter(buf)
	zw.Write(src)
	zw.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func Decompress(src []byte) []byte {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)
	zr := lz4.NewReader(bytes.NewReader(src))
	io.Copy(buf, zr)
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// --- Hashing ---

func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// --- Bearer Tokens ---

// TokenClaims is the signed payload a client presents on auth.
type TokenClaims struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	Expiry      int64  `json:"expiry"` // unix seconds
}

// SignToken mints "base64(claims).hex(hmac-sha256)".
func SignToken(secret []byte, claims TokenClaims) string {
	payload, _ := json.Marshal(claims)
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + hex.EncodeToString(mac.Sum(nil))
}

// VerifyToken checks the signature and expiry. Expired or tampered
// tokens return ok=false.
func VerifyToken(secret []byte, token string, now time.Time) (TokenClaims, bool) {
	var claims TokenClaims
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return claims, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return claims, false
	}
	sig, err := hex.DecodeString(parts[1])
	if err != nil {
		return claims, false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return claims, false
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return claims, false
	}
	if claims.Expiry != 0 && now.Unix() > claims.Expiry {
		return claims, false
	}
	return claims, true
}
