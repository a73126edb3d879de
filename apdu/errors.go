package apdu

import "fmt"

// ErrBadResponse carries the status word of a rejected command.
type ErrBadResponse struct {
	Sw      uint16
	message string
}

// NewErrBadResponse creates a new ErrBadResponse with the given status word
// and message.
func NewErrBadResponse(sw uint16, message string) *ErrBadResponse {
	return &ErrBadResponse{
		Sw:      sw,
		message: message,
	}
}

// Error implements the error interface.
func (e *ErrBadResponse) Error() string {
	return fmt.Sprintf("bad response %04X: %s", e.Sw, e.message)
}
