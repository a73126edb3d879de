package attestation

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	cardwallet "github.com/hwsdk/cardwallet-go"
	"github.com/hwsdk/cardwallet-go/trust"
)

// CounterWarningThreshold is the wallet signature count above which a wallet
// is flagged for suspicious activity.
const CounterWarningThreshold = 100000

// walletAttestFirmwareMajor is the first firmware major version whose applet
// implements the wallet-key attestation instruction.
const walletAttestFirmwareMajor = 2

// Task runs one attestation flow against the session's card and produces a
// final verdict. A task is single-use.
type Task struct {
	session  *cardwallet.Session
	verifier Verifier
	prompt   PromptDelegate
	cache    *trust.Cache

	online onlineCell
	report cardwallet.Attestation
	logger *log.Entry
}

// NewTask wires an attestation task. The verifier may be nil for offline
// mode; a nil prompt auto-accepts warnings but turns failed verdicts into
// hard errors.
func NewTask(session *cardwallet.Session, verifier Verifier, prompt PromptDelegate, cache *trust.Cache) *Task {
	return &Task{
		session:  session,
		verifier: verifier,
		prompt:   prompt,
		cache:    cache,
		logger:   log.WithField("task", "attestation"),
	}
}

// Run drives the full state machine: card-key check, mode-dependent online
// dispatch and wallet-key checks, the wait for the online result, and the
// decision policy. On terminal success the verdict is written back onto the
// session's card record.
func (t *Task) Run(ctx context.Context) (*cardwallet.Attestation, error) {
	defer t.online.teardown()

	env := t.session.Environment()
	card := env.Card
	if card == nil || card.CardID == "" {
		return nil, cardwallet.ErrPreflightReadRequired
	}

	mode := env.Config.AttestationMode
	if mode > cardwallet.ModeOffline && card.FirmwareVersion.Major < 1 {
		return nil, cardwallet.ErrUnsupportedAttestationMode
	}

	t.logger = t.logger.WithFields(log.Fields{"card": card.CardID, "mode": mode.String()})

	if done, err := t.attestCardKey(ctx, card, mode); done || err != nil {
		if err != nil {
			return nil, err
		}
		return &t.report, nil
	}

	switch mode {
	case cardwallet.ModeOffline:
		t.session.PauseTransport()

	case cardwallet.ModeNormal:
		t.dispatchOnline(ctx, card)
		t.session.PauseTransport()
		if err := t.awaitOnline(ctx, card, mode); err != nil {
			return nil, err
		}

	case cardwallet.ModeFull:
		t.dispatchOnline(ctx, card)
		if err := t.attestWalletKeys(ctx, card); err != nil {
			return nil, err
		}
		t.session.PauseTransport()
		if err := t.awaitOnline(ctx, card, mode); err != nil {
			return nil, err
		}
	}

	return t.processAttestationReport(ctx, card)
}

// attestCardKey runs the card-key round. The boolean result reports a
// trust-cache short circuit: a cached verdict at or above the requested mode
// ends the task immediately.
func (t *Task) attestCardKey(ctx context.Context, card *cardwallet.Card, mode cardwallet.AttestationMode) (bool, error) {
	cmd, err := NewAttestCardKeyCommand()
	if err != nil {
		return false, err
	}

	if err := t.session.Run(ctx, cmd); err != nil {
		return false, err
	}

	if !cmd.Verify(card) {
		// a signature mismatch is an outcome, not an abort; the decision
		// policy decides tolerance
		t.logger.Warn("card key signature mismatch")
		t.report.CardKey = cardwallet.AttestationFailed
		return false, nil
	}

	if t.cache != nil {
		if rec, ok := t.cache.Lookup(card.PublicKey); ok && rec.Mode.Satisfies(mode) {
			t.logger.Debug("trust cache hit, short-circuiting")
			t.report = rec.Verdict
			t.session.ApplyAttestation(t.report)
			t.session.PauseTransport()
			return true, nil
		}
	}

	t.report.CardKey = cardwallet.AttestationVerifiedOffline

	return false, nil
}

// attestWalletKeys runs one attestation command per wallet, strictly
// sequentially and in card wallet-list order: the commands share the single
// transport session.
func (t *Task) attestWalletKeys(ctx context.Context, card *cardwallet.Card) error {
	if len(card.Wallets) == 0 {
		return nil
	}

	if !card.FirmwareVersion.AtLeast(walletAttestFirmwareMajor, 0) {
		t.logger.Info("firmware too old for wallet-key attestation, skipping")
		t.report.WalletKeys = cardwallet.AttestationSkipped
		return nil
	}

	status := cardwallet.AttestationVerified
	for _, wallet := range card.Wallets {
		cmd, err := NewAttestWalletKeyCommand(wallet)
		if err != nil {
			return err
		}

		// a hard transport/protocol error aborts the whole task
		if err := t.session.Run(ctx, cmd); err != nil {
			return err
		}

		if !cmd.Verify() {
			t.logger.WithField("wallet", wallet.Index).Warn("wallet key signature mismatch")
			status = cardwallet.AttestationFailed
			continue
		}

		// the suspicious-activity check looks at both the freshly reported
		// counter and the one cached on the card record
		if cmd.Counter > CounterWarningThreshold || wallet.SignatureCounter > CounterWarningThreshold {
			t.logger.WithField("wallet", wallet.Index).Warn("wallet signature counter above threshold")
			if status != cardwallet.AttestationFailed {
				status = cardwallet.AttestationWarning
			}
		}

		if w, ok := card.Wallet(wallet.Index); ok {
			w.SignatureCounter = cmd.Counter
		}
	}

	t.report.WalletKeys = status

	return nil
}

// dispatchOnline starts the online verification lookup. Development cards
// are not present in the verification service; their lookup is synthesized
// as an immediate verification failure without touching the network. A
// production card whose offline check failed is still looked up: an online
// success overrides the offline failure.
func (t *Task) dispatchOnline(ctx context.Context, card *cardwallet.Card) {
	if card.IsDevelopmentCard {
		t.online.synthesize(ErrCardVerificationFailed)
		return
	}

	if t.verifier == nil {
		t.online.synthesize(&NetworkError{Err: errors.New("no verifier configured")})
		return
	}

	t.online.dispatch(ctx, t.verifier, card.CardID, card.PublicKey)
}

// awaitOnline folds the online result into the report. A network error is
// logged and never downgrades the verdict; only an explicit verification
// failure does. Success upgrades the card-key status and records the verdict
// in the trust cache.
func (t *Task) awaitOnline(ctx context.Context, card *cardwallet.Card, mode cardwallet.AttestationMode) error {
	res, err := t.online.wait(ctx)
	if err != nil {
		return err
	}

	switch {
	case res.err == nil:
		t.report.CardKey = cardwallet.AttestationVerified
		if t.cache != nil {
			t.cache.Record(card.PublicKey, t.report, mode)
		}

	case errors.Is(res.err, ErrCardVerificationFailed):
		t.report.CardKey = cardwallet.AttestationFailed

	default:
		// service unreachable: keep whatever the offline round established
		t.logger.WithError(res.err).Warn("online verification unavailable")
	}

	return nil
}

// processAttestationReport applies the decision policy to the derived
// verdict, looping when the user asks for an online retry.
func (t *Task) processAttestationReport(ctx context.Context, card *cardwallet.Card) (*cardwallet.Attestation, error) {
	env := t.session.Environment()

	for {
		verdict := t.report

		switch verdict.Status() {
		case cardwallet.AttestationVerified, cardwallet.AttestationNone:
			return t.accept(verdict)

		case cardwallet.AttestationWarning:
			if err := t.promptWarnings(ctx); err != nil {
				return nil, err
			}
			return t.accept(verdict)

		case cardwallet.AttestationVerifiedOffline:
			if env.Config.AttestationMode == cardwallet.ModeOffline {
				return t.accept(verdict)
			}

			choice, err := t.promptOffline(ctx)
			if err != nil {
				return nil, err
			}
			switch choice {
			case choiceContinue:
				return t.accept(verdict)
			case choiceCancel:
				return nil, cardwallet.ErrUserCancelled
			case choiceRetry:
				// a fresh dispatch supersedes the previous pending slot
				t.dispatchOnline(ctx, card)
				if err := t.awaitOnline(ctx, card, env.Config.AttestationMode); err != nil {
					return nil, err
				}
				continue
			}

		case cardwallet.AttestationFailed, cardwallet.AttestationSkipped:
			if !card.IsDevelopmentCard && !env.Config.AllowUntrustedCards {
				return nil, ErrCardVerificationFailed
			}
			if t.prompt == nil {
				return nil, ErrCardVerificationFailed
			}
			if err := t.promptFailed(ctx); err != nil {
				return nil, err
			}
			return t.accept(verdict)
		}
	}
}

func (t *Task) accept(verdict cardwallet.Attestation) (*cardwallet.Attestation, error) {
	t.session.ApplyAttestation(verdict)
	t.logger.WithField("status", verdict.Status().String()).Info("attestation completed")
	return &verdict, nil
}

type promptChoice int

const (
	choiceContinue promptChoice = iota
	choiceCancel
	choiceRetry
)

func (t *Task) promptFailed(ctx context.Context) error {
	ch := make(chan promptChoice, 1)
	t.prompt.AttestationDidFail(
		func() { ch <- choiceContinue },
		func() { ch <- choiceCancel },
	)

	select {
	case choice := <-ch:
		if choice == choiceCancel {
			return cardwallet.ErrUserCancelled
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) promptOffline(ctx context.Context) (promptChoice, error) {
	if t.prompt == nil {
		return choiceContinue, nil
	}

	ch := make(chan promptChoice, 1)
	t.prompt.AttestationCompletedOffline(
		func() { ch <- choiceContinue },
		func() { ch <- choiceCancel },
		func() { ch <- choiceRetry },
	)

	select {
	case choice := <-ch:
		return choice, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (t *Task) promptWarnings(ctx context.Context) error {
	if t.prompt == nil {
		return nil
	}

	ch := make(chan struct{}, 1)
	t.prompt.AttestationCompletedWithWarnings(func() { ch <- struct{}{} })

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
