package cardwallet

// AttestationStatus is the outcome of one attestation component.
type AttestationStatus int

const (
	AttestationNone AttestationStatus = iota
	AttestationVerified
	AttestationVerifiedOffline
	AttestationWarning
	AttestationSkipped
	AttestationFailed
)

// severity orders statuses for verdict derivation:
// failed > skipped > warning > verifiedOffline > verified > notAttested.
func (s AttestationStatus) severity() int {
	switch s {
	case AttestationFailed:
		return 5
	case AttestationSkipped:
		return 4
	case AttestationWarning:
		return 3
	case AttestationVerifiedOffline:
		return 2
	case AttestationVerified:
		return 1
	default:
		return 0
	}
}

func (s AttestationStatus) String() string {
	switch s {
	case AttestationNone:
		return "notAttested"
	case AttestationVerified:
		return "verified"
	case AttestationVerifiedOffline:
		return "verifiedOffline"
	case AttestationWarning:
		return "warning"
	case AttestationSkipped:
		return "skipped"
	case AttestationFailed:
		return "failed"
	}
	return "unknown"
}

// Attestation is the verdict of one attestation task.
type Attestation struct {
	CardKey    AttestationStatus `cbor:"1,keyasint"`
	WalletKeys AttestationStatus `cbor:"2,keyasint"`
}

// Status derives the overall verdict: the most severe of the component
// statuses.
func (a Attestation) Status() AttestationStatus {
	worst := a.CardKey
	if a.WalletKeys.severity() > worst.severity() {
		worst = a.WalletKeys
	}
	return worst
}

// AttestationMode selects how much verification an attestation task
// performs. Modes are ordered by trust level: a verdict achieved under a
// higher mode satisfies a request for a lower one.
type AttestationMode int

const (
	ModeOffline AttestationMode = iota
	ModeNormal
	ModeFull
)

// Satisfies reports whether a verdict achieved under mode m covers a fresh
// request for the given mode.
func (m AttestationMode) Satisfies(requested AttestationMode) bool {
	return m >= requested
}

func (m AttestationMode) String() string {
	switch m {
	case ModeOffline:
		return "offline"
	case ModeNormal:
		return "normal"
	case ModeFull:
		return "full"
	}
	return "unknown"
}
