package cardwallet

import (
	"github.com/hwsdk/cardwallet-go/apdu"
	"github.com/hwsdk/cardwallet-go/secure"
	"github.com/hwsdk/cardwallet-go/tlv"
)

// ReadCommand fetches the card snapshot: identity, keys, settings, firmware
// and wallet slots. It is the mandatory first command of every flow.
type ReadCommand struct {
	// Card is the decoded snapshot, populated by Deserialize.
	Card *Card
}

func NewReadCommand() *ReadCommand {
	return &ReadCommand{}
}

func (c *ReadCommand) Ins() uint8 {
	return apdu.InsRead
}

// Precheck is a no-op: read is the command that creates the snapshot other
// prechecks depend on.
func (c *ReadCommand) Precheck(card *Card) error {
	return nil
}

func (c *ReadCommand) Serialize(env *SessionEnvironment) (tlv.Tlvs, error) {
	b := tlv.NewBuilder()

	if env.TerminalKey != nil {
		if err := b.Append(tlv.TagTerminalPublicKey, secure.RawPublicKey(env.TerminalKey)); err != nil {
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

func (c *ReadCommand) Deserialize(env *SessionEnvironment, resp tlv.Tlvs) error {
	cardID, err := tlv.DecodeString(resp, tlv.TagCardID)
	if err != nil {
		return err
	}

	publicKey, err := tlv.DecodeBytes(resp, tlv.TagCardPublicKey)
	if err != nil {
		return err
	}

	firmwareStr, err := tlv.DecodeString(resp, tlv.TagFirmware)
	if err != nil {
		return err
	}
	firmware, err := ParseFirmwareVersion(firmwareStr)
	if err != nil {
		return err
	}

	settings, err := tlv.DecodeInt(resp, tlv.TagSettingsMask)
	if err != nil {
		return err
	}

	card := &Card{
		CardID:          cardID,
		PublicKey:       publicKey,
		FirmwareVersion: firmware,
		Settings:        CardSettings(settings),
	}

	if issuerKey, ok := tlv.DecodeOptionalBytes(resp, tlv.TagIssuerPublicKey); ok {
		card.IssuerPublicKey = issuerKey
	}
	batch, ok, err := tlv.DecodeOptionalString(resp, tlv.TagBatchID)
	if err != nil {
		return err
	}
	if ok {
		card.BatchID = batch
	}
	if resp.Contains(tlv.TagManufactureDate) {
		date, err := tlv.DecodeDate(resp, tlv.TagManufactureDate)
		if err != nil {
			return err
		}
		card.ManufactureDate = date
	}
	if resp.Contains(tlv.TagIsDevelopmentCard) {
		dev, err := tlv.DecodeBool(resp, tlv.TagIsDevelopmentCard)
		if err != nil {
			return err
		}
		card.IsDevelopmentCard = dev
	}

	card.LinkedCardPublicKeys = tlv.DecodeAllBytes(resp, tlv.TagLinkedCardPublicKey)

	wallets, err := tlv.DecodeAllTlvs(resp, tlv.TagWalletRecord)
	if err != nil {
		return err
	}
	for _, record := range wallets {
		wallet, err := parseWalletRecord(record)
		if err != nil {
			return err
		}
		card.Wallets = append(card.Wallets, wallet)
	}

	c.Card = card

	return nil
}

func parseWalletRecord(record tlv.Tlvs) (CardWallet, error) {
	index, err := tlv.DecodeInt(record, tlv.TagWalletIndex)
	if err != nil {
		return CardWallet{}, err
	}

	publicKey, err := tlv.DecodeBytes(record, tlv.TagWalletPublicKey)
	if err != nil {
		return CardWallet{}, err
	}

	counter, _, err := tlv.DecodeOptionalInt(record, tlv.TagWalletCounter)
	if err != nil {
		return CardWallet{}, err
	}

	return CardWallet{
		Index:            int(index),
		PublicKey:        publicKey,
		SignatureCounter: counter,
	}, nil
}
