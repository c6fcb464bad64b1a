package ciddag

import "errors"

var (
	// ErrUnknownPredecessor is returned by Insert when the cited
	// predecessor digest is not in the store. Recoverable: fetch the
	// predecessor and retry.
	ErrUnknownPredecessor = errors.New("ciddag: unknown predecessor")

	// ErrDigestCollision is returned when a computed digest already exists
	// bound to different content. This is a tamper signal, never retried.
	ErrDigestCollision = errors.New("ciddag: digest collision")

	// ErrUnknownDigest is returned when a lookup or verification starts
	// from a digest that is not in the store.
	ErrUnknownDigest = errors.New("ciddag: unknown digest")

	// ErrBrokenLink is returned by VerifyChain when a recomputed digest
	// does not match the stored one. Tamper signal.
	ErrBrokenLink = errors.New("ciddag: broken link")

	// ErrDisconnected is returned by VerifyChain when the walk reaches a
	// root (or a missing entry) without meeting the requested endpoint.
	// Recoverable when the gap is fetchable.
	ErrDisconnected = errors.New("ciddag: chain disconnected")

	// ErrCycleDetected is returned by VerifyChain when a digest repeats
	// during the walk. Structurally impossible for honest data; defends
	// against corrupted stores.
	ErrCycleDetected = errors.New("ciddag: cycle detected")
)
