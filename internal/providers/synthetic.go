package providers

import "github.com/google/uuid"

// newSyntheticToolCallID mints a call id for providers that omit one in
// their response. Never reused across agent-loop iterations: each call
// to this function produces a fresh id.
func newSyntheticToolCallID() string {
	return "synthetic-" + uuid.NewString()
}
