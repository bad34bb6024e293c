package tokens

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var ErrCorruptKey = errors.New("signing key file is unreadable or corrupt")

// KeyPair is loaded once at startup and only read afterwards.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

type KeyOptions struct {
	// AllowRegenerate replaces an unreadable or corrupt key file with a new
	// key. Every outstanding access token stops verifying when that happens.
	AllowRegenerate bool
	Logger          *slog.Logger
}

func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// ParseKeyPair accepts the raw 64-byte ed25519 private key (seed followed by
// public key) and checks that both halves agree.
func ParseKeyPair(raw []byte) (*KeyPair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrCorruptKey, ed25519.PrivateKeySize, len(raw))
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived, raw) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrCorruptKey)
	}
	priv := ed25519.PrivateKey(bytes.Clone(raw))
	return &KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

// LoadOrCreateKeyPair reads the key file at path. A missing file is a
// bootstrap: a key is generated and written. An unreadable or corrupt file is
// an error unless opts.AllowRegenerate is set.
func LoadOrCreateKeyPair(path string, opts KeyOptions) (*KeyPair, error) {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	l = l.With("component", "tokens.keypair", "path", path)

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.Warn("signing_key_missing", "reason", "generating new key pair")
		return createKeyPair(path)
	case err != nil:
		if !opts.AllowRegenerate {
			return nil, fmt.Errorf("%w: %v", ErrCorruptKey, err)
		}
		l.Error("signing_key_regenerated", "reason", "key file unreadable, all sessions are invalidated", "error", err)
		return createKeyPair(path)
	}

	kp, err := ParseKeyPair(raw)
	if err != nil {
		if !opts.AllowRegenerate {
			return nil, err
		}
		l.Error("signing_key_regenerated", "reason", "key file corrupt, all sessions are invalidated", "error", err)
		return createKeyPair(path)
	}
	return kp, nil
}

func createKeyPair(path string) (*KeyPair, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := writeKeyFile(path, kp.Private); err != nil {
		return nil, err
	}
	return kp, nil
}

func writeKeyFile(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".signing-key-*")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod key file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install key file: %w", err)
	}
	return nil
}
