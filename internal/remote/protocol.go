// Package remote submits requests to the assistant backend and reads back the
// fragment stream it produces. The wire format is NDJSON over a unix or tcp
// socket, or one JSON envelope per text message over a websocket.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gregiteen/ai-devices/internal/fragment"
	"github.com/gregiteen/ai-devices/internal/settings"
)

// Envelope event kinds.
const (
	EventFragment = "fragment"
	EventDone     = "done"
	EventError    = "error"
)

// Request is sent once per submission.
type Request struct {
	Cmd      string            `json:"cmd"`
	Text     string            `json:"text,omitempty"`
	Audio    []byte            `json:"audio,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Settings settings.Snapshot `json:"settings"`
	Gating   Gating            `json:"gating"`
}

// Gating tells the backend which toggles the client can actually offer.
type Gating struct {
	TTSAvailable      bool `json:"ttsAvailable"`
	InternetAvailable bool `json:"internetAvailable"`
	PhotosAvailable   bool `json:"photosAvailable"`
}

// NewSubmit builds a submit request.
func NewSubmit(text string, snap settings.Snapshot, gating Gating) Request {
	return Request{Cmd: "submit", Text: text, Settings: snap, Gating: gating}
}

// Response acknowledges a request.
type Response struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Envelope wraps one streamed item.
type Envelope struct {
	Event    string          `json:"event"`
	Fragment json.RawMessage `json:"fragment,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// ErrRejected is returned when the backend refuses a request.
var ErrRejected = errors.New("request rejected")

// RemoteError is a failure reported by the backend mid-stream.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "remote error: " + e.Message }

// errSkip marks envelopes the client does not understand.
var errSkip = errors.New("skip envelope")

// decodeEnvelope turns one envelope into a fragment. It returns io.EOF for
// the terminal done envelope.
func decodeEnvelope(data []byte) (fragment.Raw, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Event {
	case EventFragment:
		if len(env.Fragment) == 0 {
			return fragment.Raw{}, nil
		}
		return fragment.Parse(env.Fragment)
	case EventDone:
		return nil, io.EOF
	case EventError:
		return nil, &RemoteError{Message: env.Message}
	}
	return nil, errSkip
}

func checkResponse(resp Response) error {
	if resp.OK {
		return nil
	}
	if resp.Error == "" {
		return ErrRejected
	}
	return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
}
