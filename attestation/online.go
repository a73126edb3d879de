package attestation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// VerificationRecord is the result of a successful online lookup of a card.
type VerificationRecord struct {
	CardID    string
	PublicKey []byte
	BatchID   string
	Issuer    string
}

// Verifier is the external online verification collaborator. A failed lookup
// distinguishes network faults (*NetworkError) from a genuine verification
// failure (ErrCardVerificationFailed): only the latter downgrades a verdict.
type Verifier interface {
	GetCardInfo(ctx context.Context, cardID string, cardPublicKey []byte) (*VerificationRecord, error)
}

// NetworkError wraps a transport-level failure of the online verification
// service. It never downgrades an attestation verdict.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("online verification unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type onlineResult struct {
	record *VerificationRecord
	err    error
}

// onlineCell holds at most one pending online verification. Dispatching a
// new lookup replaces the pending slot; a late completion of a superseded
// attempt is dropped instead of resurrecting the old subscription.
type onlineCell struct {
	mu  sync.Mutex
	gen int
	ch  chan onlineResult
}

// dispatch starts a lookup in the background and installs a fresh result
// slot, superseding any pending attempt.
func (c *onlineCell) dispatch(ctx context.Context, verifier Verifier, cardID string, cardPublicKey []byte) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	ch := make(chan onlineResult, 1)
	c.ch = ch
	c.mu.Unlock()

	requestID := uuid.NewString()
	log.WithFields(log.Fields{"card": cardID, "request": requestID}).Debug("dispatching online verification")

	go func() {
		record, err := verifier.GetCardInfo(ctx, cardID, cardPublicKey)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			log.WithField("request", requestID).Debug("dropping superseded online verification result")
			return
		}
		ch <- onlineResult{record: record, err: err}
	}()
}

// synthesize installs an already-completed result without contacting the
// service, superseding any pending attempt.
func (c *onlineCell) synthesize(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	ch := make(chan onlineResult, 1)
	ch <- onlineResult{err: err}
	c.ch = ch
}

// wait blocks until the current slot completes or the context ends.
func (c *onlineCell) wait(ctx context.Context) (onlineResult, error) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if ch == nil {
		return onlineResult{}, fmt.Errorf("no online verification in flight")
	}

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return onlineResult{}, ctx.Err()
	}
}

// teardown invalidates the slot so a completion arriving after the owning
// task ended is dropped.
func (c *onlineCell) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.ch = nil
}
