package cardwallet

import (
	"crypto/ecdsa"
	"crypto/rand"

	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/secure"
	"github.com/hwsdk/cardwallet-go/tlv"
)

// OpenSessionCommand negotiates a fresh envelope key with the card. The
// terminal sends a new public key and a salt; both sides derive the session
// key from the ECDH secret. The handshake travels outside the envelope: the
// card cannot decrypt under a key it does not yet hold.
type OpenSessionCommand struct {
	terminalKey *ecdsa.PrivateKey
	salt        []byte
}

func NewOpenSessionCommand() (*OpenSessionCommand, error) {
	terminalKey, err := secure.GenerateTerminalKey()
	if err != nil {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	return &OpenSessionCommand{terminalKey: terminalKey, salt: salt}, nil
}

func (c *OpenSessionCommand) Ins() uint8 {
	return apdu.InsOpenSession
}

func (c *OpenSessionCommand) Precheck(card *Card) error {
	if card == nil {
		return ErrPreflightReadRequired
	}
	if len(card.PublicKey) == 0 {
		return ErrNotPersonalized
	}
	return nil
}

func (c *OpenSessionCommand) Serialize(env *SessionEnvironment) (tlv.Tlvs, error) {
	b := tlv.NewBuilder()
	if err := b.Append(tlv.TagTerminalPublicKey, secure.RawPublicKey(c.terminalKey)); err != nil {
		return nil, err
	}
	if err := b.Append(tlv.TagSalt, c.salt); err != nil {
		return nil, err
	}
	return b.Tlvs(), nil
}

// Deserialize accepts an empty acknowledgement; the card proves key
// possession on the next enveloped exchange.
func (c *OpenSessionCommand) Deserialize(env *SessionEnvironment, resp tlv.Tlvs) error {
	return nil
}

// TerminalKey returns the key pair generated for this handshake.
func (c *OpenSessionCommand) TerminalKey() *ecdsa.PrivateKey {
	return c.terminalKey
}

// EnvelopeKey derives the negotiated session key against the card's public
// key.
func (c *OpenSessionCommand) EnvelopeKey(cardPublicKey []byte) ([]byte, error) {
	secret, err := secure.SharedSecret(c.terminalKey, cardPublicKey)
	if err != nil {
		return nil, err
	}
	return secure.DeriveEnvelopeKey(secret, c.salt), nil
}
