package app

import (
	"context"

	"github.com/gregiteen/ai-devices/internal/fragment"
	"github.com/gregiteen/ai-devices/internal/remote"
)

// handle ties an open stream to the session it belongs to.
type handle struct {
	sessionID string
	ctx       context.Context
	stream    remote.Stream
}

// StreamOpenedMsg is sent when the backend accepted a submission.
type StreamOpenedMsg struct {
	h *handle
}

// StreamOpenErrorMsg is sent when a submission could not be delivered.
type StreamOpenErrorMsg struct {
	SessionID string
	Err       error
}

// FragmentMsg wraps one fragment read from a stream.
type FragmentMsg struct {
	h   *handle
	Raw fragment.Raw
}

// StreamEndMsg is sent when a stream ends, normally (io.EOF) or not.
type StreamEndMsg struct {
	h   *handle
	Err error
}

// ClearNoticeMsg clears a transient notice after a timeout.
type ClearNoticeMsg struct{}
