package common

import "errors"

// Validation errors (§7): local, never fatal, propagated only as a dropped
// artifact. Named after the kinds enumerated in spec.md §4.3/§7.
var (
	ErrInvalidParent    = errors.New("invalid parent: prev_hash does not match tip")
	ErrInvalidPoW       = errors.New("invalid proof of work")
	ErrInvalidTimestamp = errors.New("invalid timestamp: not monotonically non-decreasing")
	ErrInvalidTx        = errors.New("invalid transaction")
	ErrInvalidCoinbase  = errors.New("invalid coinbase accounting")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Transport errors (§7): session-fatal, close and deregister the session.
var (
	ErrFrameTooLarge   = errors.New("frame exceeds maximum size")
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrPeerClosed      = errors.New("peer closed")
	ErrWriteQueueFull  = errors.New("outbound write queue full")
	ErrRequestTimeout  = errors.New("request timed out")
)

// ErrCorrupt marks an invariant violation inside BlockchainStore. This is a
// process-fatal condition: the store must never be left inconsistent, so
// callers that observe it should crash loudly rather than continue (§7).
var ErrCorrupt = errors.New("blockchain store invariant violated")
