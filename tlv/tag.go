package tlv

import "fmt"

// Tag identifies a semantic field inside a TLV sequence. Tag values are
// stable wire constants shared with the card firmware.
type Tag uint8

const (
	TagCardID              Tag = 0x01
	TagStatus              Tag = 0x02
	TagCardPublicKey       Tag = 0x03
	TagCardSignature       Tag = 0x04
	TagFirmware            Tag = 0x05
	TagBatchID             Tag = 0x06
	TagManufactureDate     Tag = 0x07
	TagIssuerPublicKey     Tag = 0x08
	TagIsDevelopmentCard   Tag = 0x09
	TagSettingsMask        Tag = 0x0A
	TagAccessCodeHash      Tag = 0x10
	TagPasscodeHash        Tag = 0x11
	TagChallenge           Tag = 0x16
	TagSalt                Tag = 0x17
	TagSessionKeyA         Tag = 0x1A
	TagSessionKeyB         Tag = 0x1B
	TagUserData            Tag = 0x2A
	TagUserCounter         Tag = 0x2C
	TagTerminalPublicKey   Tag = 0x5C
	TagTerminalTransaction Tag = 0x57
	TagWalletIndex         Tag = 0x65
	TagWalletPublicKey     Tag = 0x60
	TagWalletSignature     Tag = 0x61
	TagWalletCounter       Tag = 0x62
	TagWalletRecord        Tag = 0x63
	TagLinkedCardPublicKey Tag = 0x6A
	TagInteractionMode     Tag = 0x23
)

// Kind declares the Go-level shape a tag's value is encoded from and
// decoded into.
type Kind int

const (
	KindBytes Kind = iota
	KindByte
	KindInt
	KindString
	KindBool
	KindDate
	KindCode
	KindTlvs
)

type tagInfo struct {
	name   string
	kind   Kind
	single bool
}

// tagRegistry declares the expected value kind for every known tag and
// whether the tag may appear at most once in a message. Unknown tags decode
// as raw bytes so that an unrecognized record never aborts decoding of the
// known ones.
var tagRegistry = map[Tag]tagInfo{
	TagCardID:              {"CardID", KindString, true},
	TagStatus:              {"Status", KindCode, true},
	TagCardPublicKey:       {"CardPublicKey", KindBytes, true},
	TagCardSignature:       {"CardSignature", KindBytes, true},
	TagFirmware:            {"Firmware", KindString, true},
	TagBatchID:             {"BatchID", KindString, true},
	TagManufactureDate:     {"ManufactureDate", KindDate, true},
	TagIssuerPublicKey:     {"IssuerPublicKey", KindBytes, true},
	TagIsDevelopmentCard:   {"IsDevelopmentCard", KindBool, true},
	TagSettingsMask:        {"SettingsMask", KindInt, true},
	TagAccessCodeHash:      {"AccessCodeHash", KindBytes, true},
	TagPasscodeHash:        {"PasscodeHash", KindBytes, true},
	TagChallenge:           {"Challenge", KindBytes, true},
	TagSalt:                {"Salt", KindBytes, true},
	TagSessionKeyA:         {"SessionKeyA", KindBytes, true},
	TagSessionKeyB:         {"SessionKeyB", KindBytes, true},
	TagUserData:            {"UserData", KindBytes, true},
	TagUserCounter:         {"UserCounter", KindInt, true},
	TagTerminalPublicKey:   {"TerminalPublicKey", KindBytes, true},
	TagTerminalTransaction: {"TerminalTransaction", KindBytes, true},
	TagWalletIndex:         {"WalletIndex", KindInt, true},
	TagWalletPublicKey:     {"WalletPublicKey", KindBytes, false},
	TagWalletSignature:     {"WalletSignature", KindBytes, true},
	TagWalletCounter:       {"WalletCounter", KindInt, true},
	TagWalletRecord:        {"WalletRecord", KindTlvs, false},
	TagLinkedCardPublicKey: {"LinkedCardPublicKey", KindBytes, false},
	TagInteractionMode:     {"InteractionMode", KindCode, true},
}

// KindOf returns the declared value kind for a tag. Unknown tags are treated
// as raw byte sequences.
func KindOf(tag Tag) Kind {
	if info, ok := tagRegistry[tag]; ok {
		return info.kind
	}
	return KindBytes
}

// SingleValued reports whether a tag may appear at most once in one message.
func SingleValued(tag Tag) bool {
	if info, ok := tagRegistry[tag]; ok {
		return info.single
	}
	return false
}

func (t Tag) String() string {
	if info, ok := tagRegistry[t]; ok {
		return info.name
	}
	return fmt.Sprintf("Tag(0x%02X)", uint8(t))
}
