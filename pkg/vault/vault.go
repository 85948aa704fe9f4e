// Package vault persists third-party API keys encrypted under a key derived
// from the device fingerprint. The derived key is rebuilt for every
// operation and cleared afterwards; plaintext only lives in memory.
package vault

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-pageguard/pkg/fingerprint"
	"github.com/goliatone/go-pageguard/pkg/interfaces/kv"
	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
	"github.com/goliatone/go-pageguard/pkg/providers"
)

// CurrentDerivationVersion is the key derivation formula new records use.
const CurrentDerivationVersion = 1

const (
	cipherPrefix    = "encrypted_"
	timestampPrefix = "key_timestamp_"
	versionPrefix   = "key_version_"
)

// Dependencies wires the store, fingerprint source and logger.
type Dependencies struct {
	Store  kv.Store
	Source fingerprint.Source
	Logger logger.Logger
	// DerivationVersion defaults to CurrentDerivationVersion.
	DerivationVersion int
	Now               func() time.Time
}

// Vault encrypts, stores and retrieves provider credentials.
type Vault struct {
	store   kv.Store
	source  fingerprint.Source
	logger  logger.Logger
	version int
	now     func() time.Time
}

// New constructs a vault.
func New(deps Dependencies) (*Vault, error) {
	if deps.Store == nil {
		return nil, ErrStoreRequired
	}
	if deps.Source == nil {
		return nil, ErrSourceRequired
	}
	deps.Logger = logger.OrNop(deps.Logger)
	if deps.DerivationVersion == 0 {
		deps.DerivationVersion = CurrentDerivationVersion
	}
	if deps.DerivationVersion < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, deps.DerivationVersion)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Vault{
		store:   deps.Store,
		source:  deps.Source,
		logger:  deps.Logger,
		version: deps.DerivationVersion,
		now:     deps.Now,
	}, nil
}

// Encrypt seals plaintext with a freshly derived key and returns
// base64(nonce || ciphertext || tag).
func (v *Vault) Encrypt(ctx context.Context, plaintext string) (string, error) {
	key, err := deriveKey(ctx, v.source, v.version)
	if err != nil {
		return "", fmt.Errorf("%w: derive key: %w", ErrEncryption, err)
	}
	defer clear(key)
	out, err := seal(key, plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	return out, nil
}

// Decrypt reverses Encrypt. Any failure, including a fingerprint that no
// longer matches the one used at encryption time, is ErrDecryption.
func (v *Vault) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	key, err := deriveKey(ctx, v.source, v.version)
	if err != nil {
		return "", fmt.Errorf("%w: derive key: %w", ErrDecryption, err)
	}
	defer clear(key)
	out, err := unseal(key, ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return out, nil
}

// Store encrypts plaintext and writes it under name, replacing any
// previous record.
func (v *Vault) Store(ctx context.Context, name, plaintext string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if plaintext == "" {
		return ErrEmptyValue
	}
	ciphertext, err := v.Encrypt(ctx, plaintext)
	if err != nil {
		return err
	}
	keys := recordKeys(name)
	err = v.store.Set(ctx, map[string]string{
		keys.cipher:    ciphertext,
		keys.timestamp: v.now().UTC().Format(time.RFC3339Nano),
		keys.version:   strconv.Itoa(v.version),
	})
	if err != nil {
		return fmt.Errorf("vault: store %q: %w", name, err)
	}
	v.logger.Debug("vault: credential stored",
		logger.Field{Key: "name", Value: name},
		logger.Field{Key: "ciphertext", Value: maskValue(ciphertext)},
	)
	return nil
}

// Retrieve returns the plaintext stored under name. It reports false when
// the record is absent, written by another device or derivation version,
// corrupted, or unreadable; those cases are logged, never returned.
func (v *Vault) Retrieve(ctx context.Context, name string) (string, bool) {
	name, err := normalizeName(name)
	if err != nil {
		v.logger.Warn("vault: retrieve rejected", logger.Field{Key: "error", Value: err})
		return "", false
	}
	keys := recordKeys(name)
	values, err := v.store.Get(ctx, []string{keys.cipher, keys.version})
	if err != nil {
		v.logger.Warn("vault: read credential failed",
			logger.Field{Key: "name", Value: name},
			logger.Field{Key: "error", Value: err},
		)
		return "", false
	}
	ciphertext := values[keys.cipher]
	if ciphertext == "" {
		return "", false
	}
	if raw, ok := values[keys.version]; ok && raw != strconv.Itoa(v.version) {
		v.logger.Warn("vault: credential uses a different derivation version",
			logger.Field{Key: "name", Value: name},
			logger.Field{Key: "record_version", Value: raw},
			logger.Field{Key: "current_version", Value: v.version},
		)
		return "", false
	}
	plaintext, err := v.Decrypt(ctx, ciphertext)
	if err != nil {
		v.logger.Warn("vault: credential unusable",
			logger.Field{Key: "name", Value: name},
			logger.Field{Key: "error", Value: err},
		)
		return "", false
	}
	return plaintext, true
}

// Exists reports whether a ciphertext is stored under name. It does not
// check that the record decrypts.
func (v *Vault) Exists(ctx context.Context, name string) bool {
	name, err := normalizeName(name)
	if err != nil {
		return false
	}
	key := recordKeys(name).cipher
	values, err := v.store.Get(ctx, []string{key})
	if err != nil {
		v.logger.Warn("vault: exists check failed",
			logger.Field{Key: "name", Value: name},
			logger.Field{Key: "error", Value: err},
		)
		return false
	}
	return values[key] != ""
}

// Remove deletes the ciphertext, timestamp and version entries for name.
func (v *Vault) Remove(ctx context.Context, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	keys := recordKeys(name)
	if err := v.store.Remove(ctx, []string{keys.cipher, keys.timestamp, keys.version}); err != nil {
		return fmt.Errorf("vault: remove %q: %w", name, err)
	}
	return nil
}

// StoredAt returns the last write time recorded for name.
func (v *Vault) StoredAt(ctx context.Context, name string) (time.Time, bool) {
	name, err := normalizeName(name)
	if err != nil {
		return time.Time{}, false
	}
	key := recordKeys(name).timestamp
	values, err := v.store.Get(ctx, []string{key})
	if err != nil {
		return time.Time{}, false
	}
	raw, ok := values[key]
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Describe returns non-sensitive metadata for name.
func (v *Vault) Describe(ctx context.Context, name string) (map[string]any, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	keys := recordKeys(name)
	values, err := v.store.Get(ctx, []string{keys.cipher, keys.timestamp, keys.version})
	if err != nil {
		return nil, fmt.Errorf("vault: describe %q: %w", name, err)
	}
	if values[keys.cipher] == "" {
		return nil, fmt.Errorf("vault: describe %q: %w", name, kv.ErrNotFound)
	}
	return map[string]any{
		"name":       name,
		"stored_at":  values[keys.timestamp],
		"version":    values[keys.version],
		"ciphertext": maskValue(values[keys.cipher]),
	}, nil
}

// StoreFor stores the key for a catalog provider.
func (v *Vault) StoreFor(ctx context.Context, p providers.Provider, plaintext string) error {
	name, err := providerKeyName(p)
	if err != nil {
		return err
	}
	return v.Store(ctx, name, plaintext)
}

// RetrieveFor returns the key stored for a catalog provider.
func (v *Vault) RetrieveFor(ctx context.Context, p providers.Provider) (string, bool) {
	name, err := providerKeyName(p)
	if err != nil {
		v.logger.Warn("vault: retrieve rejected", logger.Field{Key: "error", Value: err})
		return "", false
	}
	return v.Retrieve(ctx, name)
}

// ExistsFor reports whether a key is stored for a catalog provider.
func (v *Vault) ExistsFor(ctx context.Context, p providers.Provider) bool {
	name, err := providerKeyName(p)
	if err != nil {
		return false
	}
	return v.Exists(ctx, name)
}

// RemoveFor deletes the key stored for a catalog provider.
func (v *Vault) RemoveFor(ctx context.Context, p providers.Provider) error {
	name, err := providerKeyName(p)
	if err != nil {
		return err
	}
	return v.Remove(ctx, name)
}

type keySet struct {
	cipher    string
	timestamp string
	version   string
}

func recordKeys(name string) keySet {
	return keySet{
		cipher:    cipherPrefix + name,
		timestamp: timestampPrefix + name,
		version:   versionPrefix + name,
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

func providerKeyName(p providers.Provider) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, string(p))
	}
	return p.KeyName(), nil
}
