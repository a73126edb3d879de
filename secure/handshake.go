package secure

import (
	"crypto/ecdsa"
	"crypto/sha256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	kdfIterations  = 50
	envelopeKeyLen = 32
)

// GenerateTerminalKey creates a fresh secp256k1 key pair for the terminal
// side of the session.
func GenerateTerminalKey() (*ecdsa.PrivateKey, error) {
	return ethcrypto.GenerateKey()
}

// RawPublicKey returns the uncompressed public key of a terminal key pair,
// the form the card expects inside request payloads.
func RawPublicKey(key *ecdsa.PrivateKey) []byte {
	return ethcrypto.FromECDSAPub(&key.PublicKey)
}

// SharedSecret computes the ECDH shared secret between the terminal key and
// the card's uncompressed public key.
func SharedSecret(terminalKey *ecdsa.PrivateKey, cardPublicKey []byte) ([]byte, error) {
	cardPub, err := ethcrypto.UnmarshalPubkey(cardPublicKey)
	if err != nil {
		return nil, err
	}

	x, _ := ethcrypto.S256().ScalarMult(cardPub.X, cardPub.Y, terminalKey.D.Bytes())
	return x.Bytes(), nil
}

// DeriveEnvelopeKey stretches the ECDH shared secret into an AES-256 session
// key using a per-session salt.
func DeriveEnvelopeKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, kdfIterations, envelopeKeyLen, sha256.New)
}

// HashAccessCode normalizes a user-entered code to NFKD and hashes it. The
// card stores the same digest, so normalization must match exactly across
// platforms and input methods.
func HashAccessCode(code string) []byte {
	normalized := norm.NFKD.String(code)
	digest := sha256.Sum256([]byte(normalized))
	return digest[:]
}
