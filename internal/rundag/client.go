package rundag

import "context"

// Client is the opaque handle for a blocked caller. The host key-value
// store's client-blocking primitive is the real implementation; tests use a
// fake. A nil Client means the caller already detached.
type Client interface {
	// Unblock asynchronously delivers rinfo's result to the caller and
	// takes ownership of rinfo's disposal. It is called at most once per
	// DagRunInfo.
	Unblock(ctx context.Context, rinfo *DagRunInfo)
}
