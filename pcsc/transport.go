// Package pcsc provides a cardwallet.Transport over a PC/SC smart card
// reader.
package pcsc

import (
	"context"
	"errors"
	"sync"

	"github.com/ebfe/scard"
	log "github.com/sirupsen/logrus"
)

// ErrNoReaders is returned when no PC/SC reader is attached.
var ErrNoReaders = errors.New("no smart card readers found")

// WaitForCard blocks until a card is present in one of the readers and
// returns its index.
func WaitForCard(ctx *scard.Context, readers []string) (int, error) {
	if len(readers) == 0 {
		return -1, ErrNoReaders
	}

	states := make([]scard.ReaderState, len(readers))
	for i := range states {
		states[i].Reader = readers[i]
		states[i].CurrentState = scard.StateUnaware
	}

	for {
		for i := range states {
			if states[i].EventState&scard.StatePresent != 0 {
				return i, nil
			}
			states[i].CurrentState = states[i].EventState
		}
		if err := ctx.GetStatusChange(states, -1); err != nil {
			return -1, err
		}
	}
}

// Transport exchanges request/response buffers with a card in a PC/SC
// reader. It reconnects lazily after a Pause.
type Transport struct {
	mu     sync.Mutex
	ctx    *scard.Context
	reader string
	card   *scard.Card
}

// NewTransport builds a transport for the named reader. The connection is
// opened on first use.
func NewTransport(ctx *scard.Context, reader string) *Transport {
	return &Transport{
		ctx:    ctx,
		reader: reader,
	}
}

func (t *Transport) connect() error {
	if t.card != nil {
		return nil
	}

	card, err := t.ctx.Connect(t.reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return err
	}
	t.card = card

	return nil
}

// Transceive sends one request frame and returns the card's raw response.
func (t *Transport) Transceive(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := t.connect(); err != nil {
		return nil, err
	}

	return t.card.Transmit(request)
}

// Pause releases the reader connection; the card stays in the field.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return
	}
	if err := t.card.Disconnect(scard.LeaveCard); err != nil {
		log.WithError(err).Warn("cannot release card connection")
	}
	t.card = nil
}

// Resume is a no-op: the connection reopens lazily on the next Transceive.
func (t *Transport) Resume() {}
