// Package signer provides the optional Ed25519 co-signature on verdict
// receipts. When the operator configures a signing key, receipts carry
// a public-key-verifiable signature in addition to the HMAC, so a
// relying party can check them without holding the shared secret.
package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// ErrUnsupportedKey is returned for non-Ed25519 key material.
var ErrUnsupportedKey = errors.New("signer: unsupported key type (expected Ed25519)")

// Signer co-signs receipt payloads.
type Signer struct {
	priv ed25519.PrivateKey
}

// Load reads an Ed25519 private key from path. Raw 32-byte seeds, raw
// 64-byte private keys, and OpenSSH-format files are accepted.
func Load(path string) (*Signer, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	switch len(keyData) {
	case ed25519.SeedSize:
		return &Signer{priv: ed25519.NewKeyFromSeed(keyData)}, nil
	case ed25519.PrivateKeySize:
		return &Signer{priv: ed25519.PrivateKey(keyData)}, nil
	}

	parsed, err := ssh.ParseRawPrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	switch k := parsed.(type) {
	case *ed25519.PrivateKey:
		return &Signer{priv: *k}, nil
	case ed25519.PrivateKey:
		return &Signer{priv: k}, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedKey, parsed)
	}
}

// New wraps an in-memory private key; used by tests.
func New(priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv}
}

// Sign returns the base64url signature over payload.
func (s *Signer) Sign(payload []byte) string {
	return base64.RawURLEncoding.EncodeToString(ed25519.Sign(s.priv, payload))
}

// PublicKey returns the base64url-encoded verification key.
func (s *Signer) PublicKey() string {
	pub := s.priv.Public().(ed25519.PublicKey)
	return base64.RawURLEncoding.EncodeToString(pub)
}

// Verify checks sig over payload against a base64url public key.
func Verify(publicKey string, payload []byte, sig string) bool {
	pub, err := base64.RawURLEncoding.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, raw)
}
