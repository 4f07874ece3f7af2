// Package classify implements the §7 error taxonomy: turning a raw
// transport or contract error into one of the named classes the
// supervisor and submitter react to. Classification is substring-based,
// following the same strings.Contains(errStr, "...") idiom used for
// retryable send errors in the reference Ethereum client, since JSON-RPC
// providers return free-text error strings rather than typed errors.
package classify

import "strings"

// Class is the outcome of classifying a submission or query error.
type Class int

const (
	// Success indicates the call completed with no error at all; callers
	// generally don't classify a nil error, but Class zero is reserved so a
	// zero-valued Class never collides with a real error classification.
	Success Class = iota
	// Transient covers RPC connectivity failures, timeouts, and rate
	// limits. Policy: retry with doubled sleep, don't advance checkpoint.
	Transient
	// Benign covers the destination contract rejecting an already-consumed
	// sequence. Policy: treat as success for this sequence.
	Benign
	// Fatal covers invalid signature, unknown method, or any other revert.
	// Policy: log full context and halt the supervisor.
	Fatal
	// ResourceExhausted covers insufficient destination-signer funds.
	// Policy: retry on the assumption an operator tops up. The supervisor
	// retries it on every error tick with no retry limit; it is never
	// escalated to Fatal.
	ResourceExhausted
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case Transient:
		return "transient"
	case Benign:
		return "benign"
	case Fatal:
		return "fatal"
	case ResourceExhausted:
		return "resource_exhausted"
	default:
		return "unknown"
	}
}

// Stable destination-contract revert strings (§6). Matching below keys on
// the shorter §4.6 substrings ("Nonce has already been used", "Invalid
// signature") rather than these full strings, so a provider that reformats
// or drops the "Bridge: " prefix still classifies correctly.
const (
	RevertInvalidSignature = "Bridge: Invalid signature."
	RevertNonceUsed        = "Bridge: Nonce has already been used."
)

const (
	revertNonceUsedSubstring        = "Nonce has already been used"
	revertInvalidSignatureSubstring = "Invalid signature"
)

var transientSubstrings = []string{
	"connection refused",
	"no such host",
	"timeout",
	"context deadline exceeded",
	"EOF",
	"rate limit",
	"too many requests",
	"connection reset",
	"i/o timeout",
}

var resourceExhaustionSubstrings = []string{
	"insufficient funds",
	"gas required exceeds allowance",
}

// SubmitError classifies an error returned while submitting or awaiting a
// release transaction's receipt. A nil error is not meaningful input and
// returns Success.
func SubmitError(err error) Class {
	if err == nil {
		return Success
	}
	msg := err.Error()

	switch {
	case strings.Contains(msg, revertNonceUsedSubstring):
		return Benign
	case strings.Contains(msg, revertInvalidSignatureSubstring):
		return Fatal
	case containsAny(msg, resourceExhaustionSubstrings):
		return ResourceExhausted
	case containsAny(msg, transientSubstrings):
		return Transient
	default:
		// Any other revert reason is unexpected misconfiguration; §7 says
		// log with full context and halt rather than silently skip.
		return Fatal
	}
}

// QueryError classifies an error from a head/log query against a chain
// client. Query errors never warrant a Fatal/Benign verdict — only
// Transient or (for provider rate limiting) ResourceExhausted-adjacent
// transient handling, so this narrows to the two classes relevant to C1/C5.
func QueryError(err error) Class {
	if err == nil {
		return Success
	}
	return Transient
}

func containsAny(msg string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
