package cardwallet

import "errors"

var (
	// ErrPreflightReadRequired is returned when a flow that needs the card
	// snapshot starts before the card was read.
	ErrPreflightReadRequired = errors.New("card must be read before this operation")

	// ErrNotPersonalized is a precheck failure for cards that left the
	// factory without personalization data.
	ErrNotPersonalized = errors.New("card is not personalized")

	// ErrFirmwareNotSupported is a precheck failure for commands the card's
	// firmware version cannot run.
	ErrFirmwareNotSupported = errors.New("firmware version does not support this command")

	// ErrWalletNotFound is returned when a command addresses a wallet slot
	// the card does not have.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrPayloadTooLarge is a terminal serialize failure for requests above
	// the hard payload ceiling.
	ErrPayloadTooLarge = errors.New("request payload exceeds size ceiling")

	// ErrUserCancelled is surfaced when the user dismisses a prompt instead
	// of choosing a continuation.
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrAccessCodeRequired is recoverable: the session asks for re-entry of
	// the access code and retries the command once.
	ErrAccessCodeRequired = errors.New("access code required")

	// ErrStaleEncryptionKey is recoverable: the session renegotiates the
	// envelope key and retries the command once.
	ErrStaleEncryptionKey = errors.New("stale encryption key")

	// ErrDataCannotBeWritten is the remap of an invalid-params status on a
	// card with replay protection: the write carried a stale counter.
	ErrDataCannotBeWritten = errors.New("data cannot be written: stale counter")

	// ErrUnsupportedAttestationMode is a configuration error: the requested
	// attestation mode is not available for the card's firmware.
	ErrUnsupportedAttestationMode = errors.New("attestation mode not supported by card firmware")
)

// IsRecoverable reports whether the command lifecycle may retry after
// refreshing the session environment. Everything else propagates unchanged.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrAccessCodeRequired) || errors.Is(err, ErrStaleEncryptionKey)
}
