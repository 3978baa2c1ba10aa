package openairt

import "iter"

// Session is a live Realtime API session.
type Session interface {
	// UpdateSession updates the session configuration.
	// This should be sent once after connecting, before streaming audio.
	UpdateSession(config *SessionConfig) error

	// AppendAudioBase64 appends base64-encoded audio to the input buffer.
	// The payload must already be in the session's input audio format; it
	// is relayed verbatim.
	AppendAudioBase64(audioBase64 string) error

	// AddAssistantMessage adds an assistant text message to the
	// conversation, e.g. to seed an opening line before the first turn.
	AddAssistantMessage(text string) error

	// CreateResponse requests the model to generate a response.
	// In server_vad mode the server does this automatically after each
	// turn; call it manually to speak seeded conversation items.
	CreateResponse() error

	// TruncateItem truncates a conversation item's audio at audioEndMs.
	// The server discards audio beyond the cut point so conversational
	// history matches what the listener actually heard.
	TruncateItem(itemID string, contentIndex int, audioEndMs int) error

	// SendRaw sends a raw JSON-marshalable event to the server.
	// Use this for events not covered by helper methods.
	SendRaw(event any) error

	// Events returns an iterator over server events.
	// The iterator yields events until the session is closed or an error
	// occurs. After an error is yielded, iteration stops.
	Events() iter.Seq2[*ServerEvent, error]

	// SessionID returns the session ID assigned by the server.
	// Returns empty string if session.created has not been received yet.
	SessionID() string

	// Close closes the session connection. Safe to call more than once.
	Close() error
}
