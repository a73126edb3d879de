package cardwallet

import (
	"crypto/ecdsa"

	"github.com/hwsdk/cardwallet-go/secure"
)

// Config carries caller configuration for a session.
type Config struct {
	// AttestationMode is the verification depth the caller requires.
	AttestationMode AttestationMode

	// AllowUntrustedCards lets a failed or skipped verdict fall through to a
	// user decision instead of a hard failure.
	AllowUntrustedCards bool

	// LegacyEncoding makes wallet commands address wallets by public key
	// instead of slot index, as older firmware expects.
	LegacyEncoding bool
}

// SessionEnvironment is the mutable state a session carries across command
// invocations. Commands read a snapshot per invocation; the session applies
// mutations only between invocations, never while a command is in flight.
type SessionEnvironment struct {
	Card   *Card
	Config Config

	// AccessCodeHash is the normalized digest of the user's access code,
	// included in requests when the card demands it.
	AccessCodeHash []byte

	// TerminalKey is the terminal-side key pair for the encrypted channel.
	TerminalKey *ecdsa.PrivateKey

	EncryptionMode secure.EncryptionMode
	EncryptionKey  []byte
}

// NewSessionEnvironment builds an environment with no card snapshot and
// encryption off.
func NewSessionEnvironment(config Config) *SessionEnvironment {
	return &SessionEnvironment{
		Config:         config,
		EncryptionMode: secure.EncryptionNone,
	}
}

// SetAccessCode normalizes and hashes a user-entered access code into the
// environment.
func (env *SessionEnvironment) SetAccessCode(code string) {
	env.AccessCodeHash = secure.HashAccessCode(code)
}
