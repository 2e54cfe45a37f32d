// Package token implements the signed token and receipt wire format: a
// URL-safe base64 JSON payload and a URL-safe base64 HMAC-SHA256 of
// that payload, joined by a dot. Signing and verification are pure
// functions over byte slices; verification is constant-time.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// enc is unpadded URL-safe base64 (- and _, no =). Decoding is strict,
// so a signature whose unused trailing bits differ is rejected.
var enc = base64.RawURLEncoding.Strict()

// Sign encodes payload and appends its MAC: base64url(payload) + "." +
// base64url(HMAC-SHA256(base64url(payload))).
func Sign(key, payload []byte) string {
	body := enc.EncodeToString(payload)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(body))
	return body + "." + enc.EncodeToString(mac.Sum(nil))
}

// Verify checks a token's MAC in constant time and returns the decoded
// payload. Malformed tokens and signature mismatches return ok=false.
func Verify(key []byte, tok string) (payload []byte, ok bool) {
	body, sig, found := strings.Cut(tok, ".")
	if !found || body == "" || sig == "" {
		return nil, false
	}
	gotMAC, err := enc.DecodeString(sig)
	if err != nil {
		return nil, false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(body))
	if !hmac.Equal(gotMAC, mac.Sum(nil)) {
		return nil, false
	}
	decoded, err := enc.DecodeString(body)
	if err != nil {
		return nil, false
	}
	return decoded, true
}
