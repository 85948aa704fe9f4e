package vault

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/goliatone/go-pageguard/pkg/fingerprint"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// NonceSize is the length of the nonce prefixed to every ciphertext.
const NonceSize = chacha20poly1305.NonceSize

// derivationInfo binds the derived key to a derivation version so a
// future formula change yields distinct keys instead of silent garbage.
func derivationInfo(version int) []byte {
	return []byte(fmt.Sprintf("go-pageguard.vault.v%d", version))
}

// deriveKey hashes the current fingerprint and expands it into an AEAD
// key. Callers must clear the returned slice once done.
func deriveKey(ctx context.Context, src fingerprint.Source, version int) ([]byte, error) {
	digest, err := fingerprint.Compute(ctx, src)
	if err != nil {
		return nil, err
	}
	reader := hkdf.New(sha256.New, digest[:], nil, derivationInfo(version))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		clear(key)
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305: %w", err)
	}
	return aead, nil
}

// seal returns base64(nonce || ciphertext || tag).
func seal(key []byte, plaintext string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func unseal(key []byte, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plain), nil
}
