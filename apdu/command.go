// Package apdu implements the raw request/response framing exchanged with
// the card: an instruction byte followed by the (possibly encrypted) TLV
// payload, and a response payload trailed by a 2-byte status word.
package apdu

import "fmt"

// Instruction bytes understood by the card applet.
const (
	InsRead            = 0x01
	InsAttestCardKey   = 0x44
	InsAttestWalletKey = 0x45
	InsReadUserData    = 0x30
	InsWriteUserData   = 0x31
	InsOpenSession     = 0x10
)

// Status words returned in the response trailer.
const (
	SwOK                         uint16 = 0x9000
	SwInvalidParams              uint16 = 0x6A86
	SwInsNotSupported            uint16 = 0x6D00
	SwAccessCodeRequired         uint16 = 0x6982
	SwStaleEncryptionKey         uint16 = 0x6985
	SwErrorProcessingCommand     uint16 = 0x6286
	SwCardWithHigherVersionFirst uint16 = 0x6283
)

// Command is one raw request frame.
type Command struct {
	Ins  uint8
	Data []byte
}

func NewCommand(ins uint8, data []byte) *Command {
	return &Command{
		Ins:  ins,
		Data: data,
	}
}

// Serialize produces the request bytes handed to the transport.
func (c *Command) Serialize() []byte {
	out := make([]byte, 0, 1+len(c.Data))
	out = append(out, c.Ins)
	out = append(out, c.Data...)
	return out
}

// Response is one raw response frame: payload followed by the status word.
type Response struct {
	Data []byte
	Sw   uint16
}

// ParseResponse splits raw transport bytes into payload and status word.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: %d bytes", len(raw))
	}

	trailer := raw[len(raw)-2:]
	data := raw[:len(raw)-2]

	return &Response{
		Data: append([]byte(nil), data...),
		Sw:   uint16(trailer[0])<<8 | uint16(trailer[1]),
	}, nil
}

// IsOK reports whether the card accepted the command.
func (r *Response) IsOK() bool {
	return r.Sw == SwOK
}
