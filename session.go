package cardwallet

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/secure"
	"github.com/hwsdk/cardwallet-go/tlv"
)

// Session owns one logical card conversation. It drives commands through
// their lifecycle one at a time; the transport is never shared between
// concurrent invocations.
type Session struct {
	mu        sync.Mutex
	transport Transport
	env       *SessionEnvironment
	envelope  *secure.Envelope
	codes     AccessCodeProvider
}

// NewSession builds a session over the given transport. The environment's
// encryption mode decides whether payloads are enveloped.
func NewSession(transport Transport, env *SessionEnvironment) (*Session, error) {
	envelope, err := secure.NewEnvelope(env.EncryptionMode, env.EncryptionKey)
	if err != nil {
		return nil, err
	}

	return &Session{
		transport: transport,
		env:       env,
		envelope:  envelope,
	}, nil
}

// SetAccessCodeProvider installs the collaborator asked for re-entry when
// the card demands a fresh access code.
func (s *Session) SetAccessCodeProvider(p AccessCodeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = p
}

// Environment returns the session environment. Mutations must happen only
// between command invocations.
func (s *Session) Environment() *SessionEnvironment {
	return s.env
}

// Card returns the current card snapshot, nil before the first read.
func (s *Session) Card() *Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.Card
}

// SetCard replaces the card snapshot held by the environment.
func (s *Session) SetCard(card *Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env.Card = card
}

// ApplyAttestation writes a terminal attestation verdict back onto the card
// record.
func (s *Session) ApplyAttestation(a Attestation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env.Card != nil {
		verdict := a
		s.env.Card.Attestation = &verdict
	}
}

// PauseTransport releases the hardware session mid-flow.
func (s *Session) PauseTransport() {
	s.transport.Pause()
}

// ResumeTransport re-acquires the hardware session.
func (s *Session) ResumeTransport() {
	s.transport.Resume()
}

// Run executes one command through the full lifecycle. Only errors
// classified recoverable trigger a single re-attempt of the serialize
// through deserialize stages with an updated environment; everything else
// propagates to the caller unchanged.
func (s *Session) Run(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cmd.Precheck(s.env.Card); err != nil {
		return err
	}

	err := s.attempt(ctx, cmd)
	if err == nil || !IsRecoverable(err) {
		return err
	}

	if err := s.recover(ctx, err); err != nil {
		return err
	}

	return s.attempt(ctx, cmd)
}

func (s *Session) attempt(ctx context.Context, cmd Command) error {
	tlvs, err := cmd.Serialize(s.env)
	if err != nil {
		return err
	}

	payload, err := tlvs.Serialize()
	if err != nil {
		return err
	}
	if len(payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	protected, err := s.envelope.Protect(payload)
	if err != nil {
		return err
	}

	request := apdu.NewCommand(cmd.Ins(), protected)

	raw, err := s.transport.Transceive(ctx, request.Serialize())
	if err != nil {
		return &TransportError{Op: "transceive", Err: err}
	}

	resp, err := apdu.ParseResponse(raw)
	if err != nil {
		return &TransportError{Op: "parse response", Err: err}
	}

	if !resp.IsOK() {
		err := statusError(resp.Sw)
		if mapper, ok := cmd.(ErrorMapper); ok {
			err = mapper.MapError(s.env.Card, err)
		}
		return err
	}

	plain, err := s.envelope.Unprotect(resp.Data)
	if err != nil {
		return err
	}

	decoded, err := tlv.Deserialize(plain)
	if err != nil {
		return err
	}

	return cmd.Deserialize(s.env, decoded)
}

// recover refreshes the environment for the retry of a recoverable failure.
func (s *Session) recover(ctx context.Context, cause error) error {
	switch {
	case errors.Is(cause, ErrAccessCodeRequired):
		if s.codes == nil {
			return cause
		}
		code, err := s.codes.RequestAccessCode(ctx)
		if err != nil {
			return ErrUserCancelled
		}
		s.env.SetAccessCode(code)
		log.Debug("access code refreshed, retrying command")
		return nil

	case errors.Is(cause, ErrStaleEncryptionKey):
		if err := s.renegotiateEnvelope(ctx); err != nil {
			return cause
		}
		log.Debug("envelope key renegotiated, retrying command")
		return nil
	}

	return cause
}

// renegotiateEnvelope runs the open-session handshake against the card and
// installs the negotiated envelope key.
func (s *Session) renegotiateEnvelope(ctx context.Context) error {
	if s.env.Card == nil || len(s.env.Card.PublicKey) == 0 {
		return ErrPreflightReadRequired
	}

	cmd, err := NewOpenSessionCommand()
	if err != nil {
		return err
	}

	// the handshake runs in the clear: the card cannot decrypt under a key
	// it does not yet hold
	plaintext, err := secure.NewEnvelope(secure.EncryptionNone, nil)
	if err != nil {
		return err
	}
	saved := s.envelope
	s.envelope = plaintext
	err = s.attempt(ctx, cmd)
	s.envelope = saved
	if err != nil {
		return err
	}

	key, err := cmd.EnvelopeKey(s.env.Card.PublicKey)
	if err != nil {
		return err
	}

	envelope, err := secure.NewEnvelope(s.env.EncryptionMode, key)
	if err != nil {
		return err
	}

	s.env.TerminalKey = cmd.TerminalKey()
	s.env.EncryptionKey = key
	s.envelope = envelope

	return nil
}

// statusError translates a non-OK status word into a domain error.
func statusError(sw uint16) error {
	switch sw {
	case apdu.SwInvalidParams:
		return apdu.NewErrBadResponse(sw, "invalid parameters")
	case apdu.SwInsNotSupported:
		return ErrFirmwareNotSupported
	case apdu.SwAccessCodeRequired:
		return ErrAccessCodeRequired
	case apdu.SwStaleEncryptionKey:
		return ErrStaleEncryptionKey
	default:
		return apdu.NewErrBadResponse(sw, "unexpected response")
	}
}
