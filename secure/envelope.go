package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// EncryptionMode selects how command payloads are protected on the wire.
type EncryptionMode byte

const (
	// EncryptionNone leaves payloads in the clear; Protect and Unprotect are
	// the identity function.
	EncryptionNone EncryptionMode = 0x00
	// EncryptionStrong wraps payloads in AES-256-GCM.
	EncryptionStrong EncryptionMode = 0x02
)

// ErrDecryptionFailed is returned when a protected payload cannot be
// authenticated and decrypted. Tampering surfaces here, never as corrupted
// plaintext handed to the TLV decoder.
var ErrDecryptionFailed = errors.New("decryption failed")

// Envelope applies the session's encryption mode to serialized payloads
// before and after transport.
type Envelope struct {
	mode EncryptionMode
	aead cipher.AEAD
}

// NewEnvelope builds an envelope for the given mode. A key is required for
// any mode other than EncryptionNone.
func NewEnvelope(mode EncryptionMode, key []byte) (*Envelope, error) {
	if mode == EncryptionNone {
		return &Envelope{mode: mode}, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope key: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Envelope{mode: mode, aead: aead}, nil
}

// Mode returns the envelope's encryption mode.
func (e *Envelope) Mode() EncryptionMode {
	return e.mode
}

// Protect encrypts a serialized payload. The nonce is prepended to the
// ciphertext.
func (e *Envelope) Protect(plain []byte) ([]byte, error) {
	if e.mode == EncryptionNone {
		return plain, nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return e.aead.Seal(nonce, nonce, plain, nil), nil
}

// Unprotect authenticates and decrypts a protected payload. Any tampering
// or truncation fails with ErrDecryptionFailed.
func (e *Envelope) Unprotect(protected []byte) ([]byte, error) {
	if e.mode == EncryptionNone {
		return protected, nil
	}

	if len(protected) < e.aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	nonce := protected[:e.aead.NonceSize()]
	plain, err := e.aead.Open(nil, nonce, protected[e.aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plain, nil
}
