package mediastream

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stream event names.
const (
	// Inbound (edge to application).
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventDTMF      = "dtmf"

	// Outbound only (application to edge).
	EventClear = "clear"
)

// Message is one media stream frame. Exactly one of the payload fields is
// set, according to Event.
type Message struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSid      string        `json:"streamSid,omitempty"`
	Start          *StartPayload `json:"start,omitempty"`
	Media          *MediaPayload `json:"media,omitempty"`
	Mark           *MarkPayload  `json:"mark,omitempty"`
	Stop           *StopPayload  `json:"stop,omitempty"`
	DTMF           *DTMFPayload  `json:"dtmf,omitempty"`
}

// StartPayload carries stream metadata from the start event.
type StartPayload struct {
	AccountSid       string            `json:"accountSid,omitempty"`
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      *MediaFormat      `json:"mediaFormat,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaFormat describes the audio encoding of a stream.
type MediaFormat struct {
	Encoding   string `json:"encoding,omitempty"` // "audio/x-mulaw"
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// MediaPayload carries one chunk of base64-encoded audio.
type MediaPayload struct {
	Track     string       `json:"track,omitempty"`
	Chunk     string       `json:"chunk,omitempty"`
	Timestamp Milliseconds `json:"timestamp,omitempty"`
	Payload   string       `json:"payload"`
}

// MarkPayload names a synchronization marker.
type MarkPayload struct {
	Name string `json:"name"`
}

// StopPayload carries stream teardown metadata.
type StopPayload struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
}

// DTMFPayload carries a keypad digit press.
type DTMFPayload struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

// Milliseconds is a duration in milliseconds since stream start. The edge
// encodes it as a JSON string; numbers are accepted too.
type Milliseconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (m *Milliseconds) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", string(b), err)
	}
	*m = Milliseconds(v)
	return nil
}

// MarshalJSON implements json.Marshaler, using the wire's string form.
func (m Milliseconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(m), 10))
}

// DecodeError reports a frame that could not be decoded. Callers should
// drop the frame and continue reading; the stream itself is still healthy.
type DecodeError struct {
	Data []byte
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("mediastream: malformed frame: %v", e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses one wire frame.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Data: data, Err: err}
	}
	if msg.Event == "" {
		return nil, &DecodeError{Data: data, Err: fmt.Errorf("missing event field")}
	}
	return &msg, nil
}

// NewMediaMessage builds an outbound audio frame for the given stream.
func NewMediaMessage(streamSid, payloadBase64 string) *Message {
	return &Message{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media:     &MediaPayload{Payload: payloadBase64},
	}
}

// NewMarkMessage builds an outbound synchronization marker.
func NewMarkMessage(streamSid, name string) *Message {
	return &Message{
		Event:     EventMark,
		StreamSid: streamSid,
		Mark:      &MarkPayload{Name: name},
	}
}

// NewClearMessage builds an outbound buffer-clear directive.
func NewClearMessage(streamSid string) *Message {
	return &Message{
		Event:     EventClear,
		StreamSid: streamSid,
	}
}
