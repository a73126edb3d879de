package cardwallet

import (
	"context"

	"github.com/hwsdk/cardwallet-go/tlv"
)

// MaxPayloadSize is the hard ceiling on a serialized request payload.
const MaxPayloadSize = 2048

// Command is one card operation. The session drives each command through a
// fixed lifecycle: precheck, serialize, transceive, deserialize, error
// mapping, and — for recoverable failures only — a single retry.
//
// Precheck must be pure and side-effect free; it runs before any transport
// I/O and may short-circuit with a terminal error. Serialize builds the
// request TLV sequence from command parameters and the environment.
// Deserialize consumes the decoded response and stores the typed result on
// the concrete command.
type Command interface {
	Ins() uint8
	Precheck(card *Card) error
	Serialize(env *SessionEnvironment) (tlv.Tlvs, error)
	Deserialize(env *SessionEnvironment, resp tlv.Tlvs) error
}

// ErrorMapper lets a command remap a transport-level status error to a more
// specific domain error using card state.
type ErrorMapper interface {
	MapError(card *Card, err error) error
}

// AccessCodeProvider supplies a freshly entered access code when the card
// rejects a command with an access-code-required status.
type AccessCodeProvider interface {
	RequestAccessCode(ctx context.Context) (string, error)
}
