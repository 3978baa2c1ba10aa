package openairt

import "encoding/json"

// Client event types (sent from client to server).
const (
	EventTypeSessionUpdate            = "session.update"
	EventTypeInputAudioBufferAppend   = "input_audio_buffer.append"
	EventTypeConversationItemCreate   = "conversation.item.create"
	EventTypeConversationItemTruncate = "conversation.item.truncate"
	EventTypeResponseCreate           = "response.create"
	EventTypeResponseCancel           = "response.cancel"
)

// Server event types (sent from server to client).
const (
	// Error event
	EventTypeError = "error"

	// Session events
	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	// Conversation events
	EventTypeConversationItemCreated   = "conversation.item.created"
	EventTypeConversationItemTruncated = "conversation.item.truncated"

	// Input audio buffer events
	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	// Response events
	EventTypeResponseCreated    = "response.created"
	EventTypeResponseDone       = "response.done"
	EventTypeResponseAudioDelta = "response.audio.delta"
	EventTypeResponseAudioDone  = "response.audio.done"

	// Rate limits event
	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// ServerEvent represents a server event received from the Realtime API.
// It is decoded once at the socket boundary; consumers dispatch on Type.
type ServerEvent struct {
	// Type is the event type.
	Type string `json:"type"`

	// EventID is the unique identifier for this event.
	EventID string `json:"event_id,omitzero"`

	// Session contains session information (for session.created, session.updated).
	Session *SessionResource `json:"session,omitzero"`

	// Response contains response information (for response.* events).
	Response *ResponseResource `json:"response,omitzero"`

	// ItemID is the conversation item this event refers to.
	ItemID string `json:"item_id,omitzero"`

	// ContentIndex is the index of the content part.
	ContentIndex int `json:"content_index,omitzero"`

	// AudioStartMs is the start time in milliseconds (for speech_started).
	AudioStartMs int `json:"audio_start_ms,omitzero"`

	// AudioEndMs is the end time in milliseconds (for speech_stopped, truncated).
	AudioEndMs int `json:"audio_end_ms,omitzero"`

	// Delta contains incremental content for *.delta events. For audio
	// deltas this is base64-encoded audio in the session's output format,
	// relayed without transcoding.
	Delta string `json:"delta,omitzero"`

	// ErrorInfo contains error details for error events.
	ErrorInfo *EventError `json:"error,omitzero"`

	// Raw contains the original JSON message.
	Raw json.RawMessage `json:"-"`
}

// === Client event envelopes ===
//
// Outbound directives form a closed set of typed structs marshaled once at
// the boundary, rather than free-form maps.

type sessionUpdateEvent struct {
	EventID string         `json:"event_id"`
	Type    string         `json:"type"`
	Session *SessionConfig `json:"session"`
}

type inputAudioBufferAppendEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Audio   string `json:"audio"`
}

type conversationItemCreateEvent struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Item    *clientItem   `json:"item"`
}

type clientItem struct {
	Type    string              `json:"type"`
	Role    string              `json:"role,omitzero"`
	Content []clientContentPart `json:"content,omitzero"`
}

type clientContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitzero"`
}

type conversationItemTruncateEvent struct {
	EventID      string `json:"event_id"`
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

type responseCreateEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}
