package vault

import "errors"

var (
	// ErrEncryption covers key derivation and sealing failures.
	ErrEncryption = errors.New("vault: encryption failed")
	// ErrDecryption covers malformed ciphertext, tag mismatch and
	// fingerprint drift. Callers treat it as "no usable credential".
	ErrDecryption = errors.New("vault: decryption failed")

	ErrInvalidName        = errors.New("vault: invalid credential name")
	ErrEmptyValue         = errors.New("vault: empty value")
	ErrUnknownProvider    = errors.New("vault: unknown provider")
	ErrStoreRequired      = errors.New("vault: store is required")
	ErrSourceRequired     = errors.New("vault: fingerprint source is required")
	ErrUnsupportedVersion = errors.New("vault: unsupported derivation version")
)
