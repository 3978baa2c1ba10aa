package openairt

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// webSocketSession is a WebSocket-based realtime session.
type webSocketSession struct {
	conn      *websocket.Conn
	config    *ConnectConfig
	sessionID string
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

// connect establishes a WebSocket connection.
func (c *Client) connect(ctx context.Context, config *ConnectConfig) (*webSocketSession, error) {
	if config == nil {
		config = &ConnectConfig{}
	}
	if config.Model == "" {
		config.Model = ModelGPT4oRealtimePreview
	}

	url := fmt.Sprintf("%s?model=%s", c.config.wsURL, config.Model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.config.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("openairt: failed to connect: %w", err)
	}

	session := &webSocketSession{
		conn:     conn,
		config:   config,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}

	go session.readLoop()

	return session, nil
}

// generateEventID generates a unique client event ID.
func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// UpdateSession updates the session configuration.
func (s *webSocketSession) UpdateSession(config *SessionConfig) error {
	return s.sendEvent(&sessionUpdateEvent{
		EventID: generateEventID(),
		Type:    EventTypeSessionUpdate,
		Session: config,
	})
}

// AppendAudioBase64 appends base64-encoded audio to the input buffer.
func (s *webSocketSession) AppendAudioBase64(audioBase64 string) error {
	return s.sendEvent(&inputAudioBufferAppendEvent{
		EventID: generateEventID(),
		Type:    EventTypeInputAudioBufferAppend,
		Audio:   audioBase64,
	})
}

// AddAssistantMessage adds an assistant text message to the conversation.
func (s *webSocketSession) AddAssistantMessage(text string) error {
	return s.sendEvent(&conversationItemCreateEvent{
		EventID: generateEventID(),
		Type:    EventTypeConversationItemCreate,
		Item: &clientItem{
			Type: "message",
			Role: "assistant",
			Content: []clientContentPart{
				{Type: "text", Text: text},
			},
		},
	})
}

// CreateResponse requests the model to generate a response.
func (s *webSocketSession) CreateResponse() error {
	return s.sendEvent(&responseCreateEvent{
		EventID: generateEventID(),
		Type:    EventTypeResponseCreate,
	})
}

// TruncateItem truncates a conversation item.
func (s *webSocketSession) TruncateItem(itemID string, contentIndex int, audioEndMs int) error {
	return s.sendEvent(&conversationItemTruncateEvent{
		EventID:      generateEventID(),
		Type:         EventTypeConversationItemTruncate,
		ItemID:       itemID,
		ContentIndex: contentIndex,
		AudioEndMs:   audioEndMs,
	})
}

// SendRaw sends a raw event to the server.
func (s *webSocketSession) SendRaw(event any) error {
	return s.sendEvent(event)
}

// Events returns an iterator over server events.
func (s *webSocketSession) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

// Close closes the session. Subsequent calls return the first result.
func (s *webSocketSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// SessionID returns the session ID.
func (s *webSocketSession) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// sendEvent marshals and sends an event to the server.
func (s *webSocketSession) sendEvent(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if jsonBytes, err := json.Marshal(event); err == nil {
			str := string(jsonBytes)
			if len(str) > 500 {
				str = str[:500] + "..."
			}
			slog.Debug("sending event", "content", str)
		}
	}

	return s.conn.WriteJSON(event)
}

// readLoop reads events from the WebSocket connection.
func (s *webSocketSession) readLoop() {
	defer close(s.eventsCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{err: fmt.Errorf("read error: %w", err)}:
			}
			return
		}

		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			msgStr := string(message)
			if len(msgStr) > 1000 {
				msgStr = msgStr[:1000] + "..."
			}
			slog.Debug("received message", "len", len(message), "content", msgStr)
		}

		event, err := parseEvent(message)
		if err != nil {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{err: err}:
			}
			continue
		}

		// Track session ID
		if event.Type == EventTypeSessionCreated && event.Session != nil {
			s.mu.Lock()
			s.sessionID = event.Session.ID
			s.mu.Unlock()
		}

		// Error events are surfaced as errors
		if event.Type == EventTypeError && event.ErrorInfo != nil {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{err: event.ErrorInfo.ToError()}:
			}
			continue
		}

		select {
		case <-s.closeCh:
			return
		case s.eventsCh <- eventOrError{event: event}:
		}
	}
}

// parseEvent parses a raw JSON message into a ServerEvent.
func parseEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	event.Raw = message
	return &event, nil
}

// Ensure webSocketSession implements Session interface.
var _ Session = (*webSocketSession)(nil)
