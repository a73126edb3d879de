// Package attestation implements the card attestation protocol: card-key and
// wallet-key challenge/response rounds, the online verification step, and the
// decision state machine that folds partial results into a final verdict.
package attestation

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	cardwallet "github.com/hwsdk/cardwallet-go"
	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/tlv"
)

const challengeSize = 16

// ErrCardVerificationFailed means a cryptographic check did not pass. It is
// never treated as success and never silently swallowed; the decision policy
// adjudicates it.
var ErrCardVerificationFailed = errors.New("card verification failed")

func newChallenge() ([]byte, error) {
	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// verifySignature checks a raw 64-byte r||s signature over digest against a
// compressed or uncompressed secp256k1 public key. Malformed inputs count as
// a failed verification, not an error.
func verifySignature(publicKey, digest, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}

	pub, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return false
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false
	}

	return btcecdsa.NewSignature(&r, &s).Verify(digest, pub)
}

// AttestCardKeyCommand runs the card-key challenge/response round. The card
// signs challenge||salt, extended with a hash of the linked-card public keys
// when any are present.
type AttestCardKeyCommand struct {
	challenge []byte

	Salt      []byte
	Signature []byte
}

func NewAttestCardKeyCommand() (*AttestCardKeyCommand, error) {
	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}
	return &AttestCardKeyCommand{challenge: challenge}, nil
}

func (c *AttestCardKeyCommand) Ins() uint8 {
	return apdu.InsAttestCardKey
}

func (c *AttestCardKeyCommand) Precheck(card *cardwallet.Card) error {
	if card == nil {
		return cardwallet.ErrPreflightReadRequired
	}
	if card.CardID == "" || len(card.PublicKey) == 0 {
		return cardwallet.ErrNotPersonalized
	}
	return nil
}

func (c *AttestCardKeyCommand) Serialize(env *cardwallet.SessionEnvironment) (tlv.Tlvs, error) {
	b := tlv.NewBuilder()
	if err := b.Append(tlv.TagCardID, env.Card.CardID); err != nil {
		return nil, err
	}
	if err := b.Append(tlv.TagChallenge, c.challenge); err != nil {
		return nil, err
	}
	return b.Tlvs(), nil
}

func (c *AttestCardKeyCommand) Deserialize(env *cardwallet.SessionEnvironment, resp tlv.Tlvs) error {
	salt, err := tlv.DecodeBytes(resp, tlv.TagSalt)
	if err != nil {
		return err
	}
	sig, err := tlv.DecodeBytes(resp, tlv.TagCardSignature)
	if err != nil {
		return err
	}

	c.Salt = salt
	c.Signature = sig

	return nil
}

// Verify checks the response signature against the card's declared public
// key. A mismatch is an outcome, not an error.
func (c *AttestCardKeyCommand) Verify(card *cardwallet.Card) bool {
	message := make([]byte, 0, len(c.challenge)+len(c.Salt)+sha256.Size)
	message = append(message, c.challenge...)
	message = append(message, c.Salt...)

	if len(card.LinkedCardPublicKeys) > 0 {
		h := sha256.New()
		for _, key := range card.LinkedCardPublicKeys {
			h.Write(key)
		}
		message = append(message, h.Sum(nil)...)
	}

	digest := sha256.Sum256(message)

	return verifySignature(card.PublicKey, digest[:], c.Signature)
}

// AttestWalletKeyCommand runs the per-wallet challenge/response round for a
// single wallet slot.
type AttestWalletKeyCommand struct {
	wallet    cardwallet.CardWallet
	challenge []byte

	Salt      []byte
	Signature []byte
	Counter   int64
}

func NewAttestWalletKeyCommand(wallet cardwallet.CardWallet) (*AttestWalletKeyCommand, error) {
	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}
	return &AttestWalletKeyCommand{wallet: wallet, challenge: challenge}, nil
}

func (c *AttestWalletKeyCommand) Ins() uint8 {
	return apdu.InsAttestWalletKey
}

func (c *AttestWalletKeyCommand) Precheck(card *cardwallet.Card) error {
	if card == nil {
		return cardwallet.ErrPreflightReadRequired
	}
	if _, ok := card.Wallet(c.wallet.Index); !ok {
		return cardwallet.ErrWalletNotFound
	}
	return nil
}

func (c *AttestWalletKeyCommand) Serialize(env *cardwallet.SessionEnvironment) (tlv.Tlvs, error) {
	b := tlv.NewBuilder()

	// older firmware addresses wallets by public key instead of slot index
	if env.Config.LegacyEncoding {
		if err := b.Append(tlv.TagWalletPublicKey, c.wallet.PublicKey); err != nil {
			return nil, err
		}
	} else {
		if err := b.Append(tlv.TagWalletIndex, int64(c.wallet.Index)); err != nil {
			return nil, err
		}
	}

	if err := b.Append(tlv.TagChallenge, c.challenge); err != nil {
		return nil, err
	}

	if env.Card.Settings.RequiresAccessCode() && len(env.AccessCodeHash) > 0 {
		if err := b.Append(tlv.TagAccessCodeHash, env.AccessCodeHash); err != nil {
			return nil, err
		}
	}

	return b.Tlvs(), nil
}

func (c *AttestWalletKeyCommand) Deserialize(env *cardwallet.SessionEnvironment, resp tlv.Tlvs) error {
	salt, err := tlv.DecodeBytes(resp, tlv.TagSalt)
	if err != nil {
		return err
	}
	sig, err := tlv.DecodeBytes(resp, tlv.TagWalletSignature)
	if err != nil {
		return err
	}
	counter, _, err := tlv.DecodeOptionalInt(resp, tlv.TagWalletCounter)
	if err != nil {
		return err
	}

	c.Salt = salt
	c.Signature = sig
	c.Counter = counter

	return nil
}

// Verify checks the response signature against the wallet's public key.
func (c *AttestWalletKeyCommand) Verify() bool {
	message := make([]byte, 0, len(c.challenge)+len(c.Salt))
	message = append(message, c.challenge...)
	message = append(message, c.Salt...)
	digest := sha256.Sum256(message)

	return verifySignature(c.wallet.PublicKey, digest[:], c.Signature)
}

// MapError refines an invalid-params status: the card has no such wallet
// slot.
func (c *AttestWalletKeyCommand) MapError(card *cardwallet.Card, err error) error {
	var bad *apdu.ErrBadResponse
	if errors.As(err, &bad) && bad.Sw == apdu.SwInvalidParams {
		return cardwallet.ErrWalletNotFound
	}
	return err
}
