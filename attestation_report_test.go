package cardwallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttestationStatusPrecedence(t *testing.T) {
	// failed > skipped > warning > verifiedOffline > verified > notAttested
	order := []AttestationStatus{
		AttestationFailed,
		AttestationSkipped,
		AttestationWarning,
		AttestationVerifiedOffline,
		AttestationVerified,
		AttestationNone,
	}

	for i, cardKey := range order {
		for j, walletKeys := range order {
			a := Attestation{CardKey: cardKey, WalletKeys: walletKeys}

			expected := cardKey
			if j < i {
				expected = walletKeys
			}

			assert.Equal(t, expected, a.Status(),
				"cardKey=%s walletKeys=%s", cardKey, walletKeys)
		}
	}
}

func TestAttestationModeOrdering(t *testing.T) {
	assert.True(t, ModeOffline < ModeNormal)
	assert.True(t, ModeNormal < ModeFull)
}

func TestAttestationModeSatisfies(t *testing.T) {
	modes := []AttestationMode{ModeOffline, ModeNormal, ModeFull}

	for _, achieved := range modes {
		for _, requested := range modes {
			assert.Equal(t, achieved >= requested, achieved.Satisfies(requested),
				"achieved=%s requested=%s", achieved, requested)
		}
	}
}
