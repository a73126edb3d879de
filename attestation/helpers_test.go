package attestation

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"sync"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	cardwallet "github.com/hwsdk/cardwallet-go"
	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/tlv"
)

// cardResponder emulates the card applet behind the transport: it answers
// attestation commands with real signatures from its own keys.
type cardResponder struct {
	t *testing.T

	cardKey    *ecdsa.PrivateKey
	walletKeys map[int]*ecdsa.PrivateKey
	counters   map[int]int64
	linkedKeys [][]byte

	badCardSig   bool
	badWalletSig map[int]bool
	walletSw     uint16

	calls       int
	walletOrder []int
	pauseCount  int
}

func newCardResponder(t *testing.T) *cardResponder {
	t.Helper()

	cardKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	return &cardResponder{
		t:            t,
		cardKey:      cardKey,
		walletKeys:   make(map[int]*ecdsa.PrivateKey),
		counters:     make(map[int]int64),
		badWalletSig: make(map[int]bool),
	}
}

func (r *cardResponder) addWallet(index int, counter int64) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(r.t, err)
	r.walletKeys[index] = key
	r.counters[index] = counter
}

// card builds the snapshot matching the responder's keys.
func (r *cardResponder) card() *cardwallet.Card {
	card := &cardwallet.Card{
		CardID:               "CB7100000042",
		PublicKey:            ethcrypto.FromECDSAPub(&r.cardKey.PublicKey),
		FirmwareVersion:      cardwallet.FirmwareVersion{Major: 4, Minor: 12},
		LinkedCardPublicKeys: r.linkedKeys,
	}
	for index, key := range r.walletKeys {
		card.Wallets = append(card.Wallets, cardwallet.CardWallet{
			Index:     index,
			PublicKey: ethcrypto.FromECDSAPub(&key.PublicKey),
		})
	}
	// map iteration order is random; wallets live in slot order on the card
	for i := 0; i < len(card.Wallets); i++ {
		for j := i + 1; j < len(card.Wallets); j++ {
			if card.Wallets[j].Index < card.Wallets[i].Index {
				card.Wallets[i], card.Wallets[j] = card.Wallets[j], card.Wallets[i]
			}
		}
	}
	return card
}

func (r *cardResponder) sign(key *ecdsa.PrivateKey, challenge, salt []byte, linked [][]byte) []byte {
	message := append([]byte{}, challenge...)
	message = append(message, salt...)
	if len(linked) > 0 {
		h := sha256.New()
		for _, k := range linked {
			h.Write(k)
		}
		message = append(message, h.Sum(nil)...)
	}
	digest := sha256.Sum256(message)

	sig, err := ethcrypto.Sign(digest[:], key)
	require.NoError(r.t, err)

	return sig[:64]
}

func (r *cardResponder) Transceive(ctx context.Context, request []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.calls++

	ins := request[0]
	tlvs, err := tlv.Deserialize(request[1:])
	require.NoError(r.t, err)

	salt := make([]byte, 16)
	_, err = rand.Read(salt)
	require.NoError(r.t, err)

	switch ins {
	case apdu.InsAttestCardKey:
		challenge, err := tlv.DecodeBytes(tlvs, tlv.TagChallenge)
		require.NoError(r.t, err)

		sig := r.sign(r.cardKey, challenge, salt, r.linkedKeys)
		if r.badCardSig {
			sig[10] ^= 0xFF
		}

		b := tlv.NewBuilder()
		require.NoError(r.t, b.Append(tlv.TagSalt, salt))
		require.NoError(r.t, b.Append(tlv.TagCardSignature, sig))
		return r.ok(b.Tlvs()), nil

	case apdu.InsAttestWalletKey:
		if r.walletSw != 0 {
			return []byte{byte(r.walletSw >> 8), byte(r.walletSw & 0xFF)}, nil
		}

		index, err := tlv.DecodeInt(tlvs, tlv.TagWalletIndex)
		require.NoError(r.t, err)
		r.walletOrder = append(r.walletOrder, int(index))

		key, ok := r.walletKeys[int(index)]
		require.True(r.t, ok, "unknown wallet %d", index)

		challenge, err := tlv.DecodeBytes(tlvs, tlv.TagChallenge)
		require.NoError(r.t, err)

		sig := r.sign(key, challenge, salt, nil)
		if r.badWalletSig[int(index)] {
			sig[10] ^= 0xFF
		}

		b := tlv.NewBuilder()
		require.NoError(r.t, b.Append(tlv.TagSalt, salt))
		require.NoError(r.t, b.Append(tlv.TagWalletSignature, sig))
		require.NoError(r.t, b.Append(tlv.TagWalletCounter, r.counters[int(index)]))
		return r.ok(b.Tlvs()), nil
	}

	r.t.Fatalf("unexpected instruction 0x%02X", ins)
	return nil, nil
}

func (r *cardResponder) ok(tlvs tlv.Tlvs) []byte {
	payload, err := tlvs.Serialize()
	require.NoError(r.t, err)
	return append(payload, 0x90, 0x00)
}

func (r *cardResponder) Pause() { r.pauseCount++ }
func (r *cardResponder) Resume() {}

// fakeVerifier scripts consecutive GetCardInfo outcomes.
type fakeVerifier struct {
	mu      sync.Mutex
	calls   int
	results []error
	record  *VerificationRecord
	block   chan struct{}
}

func (v *fakeVerifier) GetCardInfo(ctx context.Context, cardID string, cardPublicKey []byte) (*VerificationRecord, error) {
	v.mu.Lock()
	call := v.calls
	v.calls++
	block := v.block
	v.mu.Unlock()

	if block != nil && call == 0 {
		<-block
	}

	var err error
	if call < len(v.results) {
		err = v.results[call]
	}
	if err != nil {
		return nil, err
	}

	record := v.record
	if record == nil {
		record = &VerificationRecord{CardID: cardID, PublicKey: cardPublicKey}
	}
	return record, nil
}

func (v *fakeVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// fakePrompt answers prompts from scripted choices.
type fakePrompt struct {
	failChoices    []string // "continue" or "cancel"
	offlineChoices []string // "continue", "cancel" or "retry"

	failCalls    int
	offlineCalls int
	warnCalls    int
}

func (p *fakePrompt) AttestationDidFail(onContinue func(), onCancel func()) {
	choice := "continue"
	if p.failCalls < len(p.failChoices) {
		choice = p.failChoices[p.failCalls]
	}
	p.failCalls++

	if choice == "cancel" {
		onCancel()
		return
	}
	onContinue()
}

func (p *fakePrompt) AttestationCompletedOffline(onContinue func(), onCancel func(), onRetry func()) {
	choice := "continue"
	if p.offlineCalls < len(p.offlineChoices) {
		choice = p.offlineChoices[p.offlineCalls]
	}
	p.offlineCalls++

	switch choice {
	case "cancel":
		onCancel()
	case "retry":
		onRetry()
	default:
		onContinue()
	}
}

func (p *fakePrompt) AttestationCompletedWithWarnings(onContinue func()) {
	p.warnCalls++
	onContinue()
}

func newTaskSession(t *testing.T, responder *cardResponder, config cardwallet.Config) *cardwallet.Session {
	t.Helper()

	env := cardwallet.NewSessionEnvironment(config)
	session, err := cardwallet.NewSession(responder, env)
	require.NoError(t, err)
	session.SetCard(responder.card())

	return session
}
