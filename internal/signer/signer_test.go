package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestSignVerify(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s := New(priv)

	payload := []byte(`{"challengeId":"abc","verified":true}`)
	sig := s.Sign(payload)

	if !Verify(s.PublicKey(), payload, sig) {
		t.Fatal("signature failed to verify")
	}
	if Verify(s.PublicKey(), []byte("other"), sig) {
		t.Error("signature verified over wrong payload")
	}
	if Verify(s.PublicKey(), payload, sig[:len(sig)-2]+"AA") {
		t.Error("tampered signature verified")
	}
}

func TestLoadRawSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, seed, 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load raw seed: %v", err)
	}

	payload := []byte("payload")
	if !Verify(s.PublicKey(), payload, s.Sign(payload)) {
		t.Error("seed-loaded signer produced bad signature")
	}
}

func TestLoadRawPrivateKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, priv, 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load raw private key: %v", err)
	}
	if s.PublicKey() != New(priv).PublicKey() {
		t.Error("loaded key does not match source key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing key file")
	}
}
