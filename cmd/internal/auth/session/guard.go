package session

import "time"

// Verdict classifies a presented refresh secret whose record is known but
// not live.
type Verdict int

const (
	// VerdictExpired means the record aged out normally. No family action.
	VerdictExpired Verdict = iota

	// VerdictBenign means the record was revoked for a non-rotation reason
	// (logout, family already burned). Rejected, no further action.
	VerdictBenign

	// VerdictGraced means the record was rotated away moments ago and the
	// grace window tolerates the duplicate. Rejected, family survives.
	VerdictGraced

	// VerdictReplay means a rotated secret came back outside any grace
	// window. The family must be revoked and the caller alerted.
	VerdictReplay
)

// classifyReuse decides what a dead record being presented again means.
//
// Only rotation counts as replay evidence: a secret the server retired by
// handing out a successor, now presented again, implies two holders. Expiry
// and deliberate revocation carry no such signal.
func classifyReuse(rec Record, now time.Time, grace time.Duration) Verdict {
	if !rec.Revoked() {
		// Not revoked but filtered out of the valid lookup: expired.
		return VerdictExpired
	}

	if rec.RevokedReason == nil || *rec.RevokedReason != ReasonRotation {
		return VerdictBenign
	}

	if grace > 0 && rec.RevokedAt != nil && now.Sub(*rec.RevokedAt) <= grace {
		return VerdictGraced
	}

	return VerdictReplay
}
