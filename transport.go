package cardwallet

import (
	"context"
	"fmt"
)

// Transport exchanges raw byte buffers with the card. Implementations are
// session-scoped and not safe for concurrent requests; the session
// serializes all use of the transport.
type Transport interface {
	// Transceive sends a request frame and waits for the card's response.
	// This is the only point in the command lifecycle that blocks on
	// hardware I/O.
	Transceive(ctx context.Context, request []byte) ([]byte, error)

	// Pause releases the hardware session when the flow has no further need
	// for the card mid-task. Resume re-acquires it.
	Pause()
	Resume()
}

// TransportError wraps a failure of the transport collaborator. It aborts
// the current command and propagates unless a retry policy applies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
