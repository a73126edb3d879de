package attestation

import (
	"crypto/sha256"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cardwallet "github.com/hwsdk/cardwallet-go"
	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/tlv"
)

func TestAttestCardKeyVerifyLinkedKeys(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	linked := [][]byte{{0x04, 0xAA}, {0x04, 0xBB}}
	card := &cardwallet.Card{
		CardID:               "CB7100000042",
		PublicKey:            ethcrypto.FromECDSAPub(&key.PublicKey),
		LinkedCardPublicKeys: linked,
	}

	cmd, err := NewAttestCardKeyCommand()
	require.NoError(t, err)
	cmd.Salt = []byte("0123456789abcdef")

	// the signed message covers the hash of the linked keys
	h := sha256.New()
	for _, k := range linked {
		h.Write(k)
	}
	message := append(append([]byte{}, cmd.challenge...), cmd.Salt...)
	message = append(message, h.Sum(nil)...)
	digest := sha256.Sum256(message)

	sig, err := ethcrypto.Sign(digest[:], key)
	require.NoError(t, err)
	cmd.Signature = sig[:64]

	assert.True(t, cmd.Verify(card))

	// without the linked-key extension the same signature must not verify
	card.LinkedCardPublicKeys = nil
	assert.False(t, cmd.Verify(card))
}

func TestAttestCardKeyVerifyMalformed(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	card := &cardwallet.Card{
		CardID:    "CB7100000042",
		PublicKey: ethcrypto.FromECDSAPub(&key.PublicKey),
	}

	cmd, err := NewAttestCardKeyCommand()
	require.NoError(t, err)
	cmd.Salt = []byte("0123456789abcdef")

	// wrong length, garbage bytes, and a corrupt public key all count as a
	// failed verification rather than a panic or error
	cmd.Signature = []byte{0x01, 0x02}
	assert.False(t, cmd.Verify(card))

	cmd.Signature = make([]byte, 64)
	assert.False(t, cmd.Verify(card))

	card.PublicKey = []byte{0x99}
	assert.False(t, cmd.Verify(card))
}

func TestAttestWalletKeySerializeEncodings(t *testing.T) {
	wallet := cardwallet.CardWallet{Index: 3, PublicKey: []byte{0x02, 0x11}}
	card := &cardwallet.Card{CardID: "CB7100000042", Wallets: []cardwallet.CardWallet{wallet}}

	cmd, err := NewAttestWalletKeyCommand(wallet)
	require.NoError(t, err)

	env := cardwallet.NewSessionEnvironment(cardwallet.Config{})
	env.Card = card
	tlvs, err := cmd.Serialize(env)
	require.NoError(t, err)

	index, err := tlv.DecodeInt(tlvs, tlv.TagWalletIndex)
	require.NoError(t, err)
	assert.EqualValues(t, 3, index)
	assert.False(t, tlvs.Contains(tlv.TagWalletPublicKey))

	env = cardwallet.NewSessionEnvironment(cardwallet.Config{LegacyEncoding: true})
	env.Card = card
	tlvs, err = cmd.Serialize(env)
	require.NoError(t, err)

	pub, err := tlv.DecodeBytes(tlvs, tlv.TagWalletPublicKey)
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey, pub)
	assert.False(t, tlvs.Contains(tlv.TagWalletIndex))
}

func TestAttestWalletKeyMapError(t *testing.T) {
	cmd, err := NewAttestWalletKeyCommand(cardwallet.CardWallet{Index: 9})
	require.NoError(t, err)

	mapped := cmd.MapError(nil, apdu.NewErrBadResponse(apdu.SwInvalidParams, "invalid params"))
	assert.ErrorIs(t, mapped, cardwallet.ErrWalletNotFound)

	other := apdu.NewErrBadResponse(apdu.SwInsNotSupported, "not supported")
	assert.Equal(t, other, cmd.MapError(nil, other))
}

func TestAttestWalletKeyPrecheck(t *testing.T) {
	cmd, err := NewAttestWalletKeyCommand(cardwallet.CardWallet{Index: 9})
	require.NoError(t, err)

	assert.ErrorIs(t, cmd.Precheck(nil), cardwallet.ErrPreflightReadRequired)

	card := &cardwallet.Card{CardID: "CB7100000042"}
	assert.ErrorIs(t, cmd.Precheck(card), cardwallet.ErrWalletNotFound)

	card.Wallets = []cardwallet.CardWallet{{Index: 9}}
	assert.NoError(t, cmd.Precheck(card))
}
