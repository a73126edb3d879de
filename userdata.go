package cardwallet

import (
	"errors"

	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/tlv"
)

// ReadUserDataCommand fetches the free-form data blob stored on the card
// together with its write counter.
type ReadUserDataCommand struct {
	Data    []byte
	Counter int64
}

func NewReadUserDataCommand() *ReadUserDataCommand {
	return &ReadUserDataCommand{}
}

func (c *ReadUserDataCommand) Ins() uint8 {
	return apdu.InsReadUserData
}

func (c *ReadUserDataCommand) Precheck(card *Card) error {
	if card == nil {
		return ErrPreflightReadRequired
	}
	return nil
}

func (c *ReadUserDataCommand) Serialize(env *SessionEnvironment) (tlv.Tlvs, error) {
	b := tlv.NewBuilder()
	if err := b.Append(tlv.TagCardID, env.Card.CardID); err != nil {
		return nil, err
	}
	return b.Tlvs(), nil
}

func (c *ReadUserDataCommand) Deserialize(env *SessionEnvironment, resp tlv.Tlvs) error {
	data, err := tlv.DecodeBytes(resp, tlv.TagUserData)
	if err != nil {
		return err
	}

	counter, _, err := tlv.DecodeOptionalInt(resp, tlv.TagUserCounter)
	if err != nil {
		return err
	}

	c.Data = data
	c.Counter = counter

	return nil
}

// WriteUserDataCommand replaces the card's data blob. On cards with replay
// protection the request carries a counter that must be strictly greater
// than the last written one.
type WriteUserDataCommand struct {
	data    []byte
	counter int64
}

func NewWriteUserDataCommand(data []byte, counter int64) *WriteUserDataCommand {
	return &WriteUserDataCommand{
		data:    data,
		counter: counter,
	}
}

func (c *WriteUserDataCommand) Ins() uint8 {
	return apdu.InsWriteUserData
}

func (c *WriteUserDataCommand) Precheck(card *Card) error {
	if card == nil {
		return ErrPreflightReadRequired
	}
	if card.CardID == "" {
		return ErrNotPersonalized
	}
	return nil
}

func (c *WriteUserDataCommand) Serialize(env *SessionEnvironment) (tlv.Tlvs, error) {
	b := tlv.NewBuilder()
	if err := b.Append(tlv.TagCardID, env.Card.CardID); err != nil {
		return nil, err
	}
	if err := b.Append(tlv.TagUserData, c.data); err != nil {
		return nil, err
	}
	if env.Card.Settings.ProtectsReplay() {
		if err := b.Append(tlv.TagUserCounter, c.counter); err != nil {
			return nil, err
		}
	}
	if len(env.AccessCodeHash) > 0 {
		if err := b.Append(tlv.TagAccessCodeHash, env.AccessCodeHash); err != nil {
			return nil, err
		}
	}
	return b.Tlvs(), nil
}

func (c *WriteUserDataCommand) Deserialize(env *SessionEnvironment, resp tlv.Tlvs) error {
	return nil
}

// MapError refines an invalid-params status: on a card with replay
// protection it means the write carried a stale counter.
func (c *WriteUserDataCommand) MapError(card *Card, err error) error {
	var bad *apdu.ErrBadResponse
	if errors.As(err, &bad) && bad.Sw == apdu.SwInvalidParams && card != nil && card.Settings.ProtectsReplay() {
		return ErrDataCannotBeWritten
	}
	return err
}
