package attestation

// PromptDelegate is the external collaborator that presents attestation
// outcomes to the user and reports the chosen continuation through the
// callbacks.
type PromptDelegate interface {
	// AttestationDidFail offers accept-with-warning or cancel for a failed
	// or skipped verdict on a card where untrusted use is allowed.
	AttestationDidFail(onContinue func(), onCancel func())

	// AttestationCompletedOffline offers accept, cancel, or an online retry
	// when only the offline check completed.
	AttestationCompletedOffline(onContinue func(), onCancel func(), onRetry func())

	// AttestationCompletedWithWarnings informs the user before continuing.
	AttestationCompletedWithWarnings(onContinue func())
}
