// Package cardwallet is an SDK for talking to a contactless secure element
// over a TLV-based command protocol, including the multi-step attestation
// flow that establishes how much the card can be trusted.
package cardwallet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CardSettings is the settings bit mask reported by the card.
type CardSettings int64

const (
	// SettingsProtectReplay means write commands carry a monotonic counter and
	// the card rejects stale values.
	SettingsProtectReplay CardSettings = 1 << 0
	// SettingsAllowLinkedCards means secondary card public keys take part in
	// the card-key attestation message.
	SettingsAllowLinkedCards CardSettings = 1 << 1
	// SettingsRequireAccessCode means most commands demand the access code
	// hash in their request payload.
	SettingsRequireAccessCode CardSettings = 1 << 2
)

func (s CardSettings) ProtectsReplay() bool     { return s&SettingsProtectReplay != 0 }
func (s CardSettings) AllowsLinkedCards() bool  { return s&SettingsAllowLinkedCards != 0 }
func (s CardSettings) RequiresAccessCode() bool { return s&SettingsRequireAccessCode != 0 }

// CardWallet is one wallet key slot on the card. SignatureCounter is the
// last counter value observed for the slot, either from a read or from a
// wallet-key attestation round.
type CardWallet struct {
	Index            int
	PublicKey        []byte
	SignatureCounter int64
}

// Card is the snapshot of card state held by the session. It is populated
// by the read command and must exist before attestation starts.
type Card struct {
	CardID               string
	PublicKey            []byte
	IssuerPublicKey      []byte
	FirmwareVersion      FirmwareVersion
	BatchID              string
	ManufactureDate      time.Time
	Settings             CardSettings
	IsDevelopmentCard    bool
	LinkedCardPublicKeys [][]byte
	Wallets              []CardWallet

	// Attestation holds the verdict of the last completed attestation task,
	// written back by the task on terminal success.
	Attestation *Attestation
}

// Wallet returns the wallet at the given slot index.
func (c *Card) Wallet(index int) (*CardWallet, bool) {
	for i := range c.Wallets {
		if c.Wallets[i].Index == index {
			return &c.Wallets[i], true
		}
	}
	return nil, false
}

// FirmwareVersion is the card applet version, e.g. "4.12r". The optional
// trailing letter marks a firmware type (release, development, special).
type FirmwareVersion struct {
	Major int
	Minor int
	Type  string
}

// ParseFirmwareVersion parses "major.minor" with an optional trailing type
// letter.
func ParseFirmwareVersion(s string) (FirmwareVersion, error) {
	var v FirmwareVersion

	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return v, fmt.Errorf("invalid firmware version %q", s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return v, fmt.Errorf("invalid firmware version %q", s)
	}

	minorStr := parts[1]
	typeIdx := strings.IndexFunc(minorStr, func(r rune) bool { return r < '0' || r > '9' })
	typ := ""
	if typeIdx >= 0 {
		typ = minorStr[typeIdx:]
		minorStr = minorStr[:typeIdx]
	}

	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return v, fmt.Errorf("invalid firmware version %q", s)
	}

	v.Major = major
	v.Minor = minor
	v.Type = typ

	return v, nil
}

// AtLeast reports whether the version is major.minor or newer.
func (v FirmwareVersion) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d%s", v.Major, v.Minor, v.Type)
}
