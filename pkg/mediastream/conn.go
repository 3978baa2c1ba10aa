package mediastream

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one end of a media stream duplex connection.
//
// Read blocks until a frame arrives. A *DecodeError means the frame was
// malformed but the connection is still usable; any other error means the
// connection is gone. Writes are safe for concurrent use.
type Conn interface {
	// Read returns the next inbound frame.
	Read() (*Message, error)

	// WriteMedia sends an audio chunk to the edge.
	WriteMedia(streamSid, payloadBase64 string) error

	// WriteMark sends a synchronization marker to the edge. The edge echoes
	// it back as a mark event once prior audio has been played out.
	WriteMark(streamSid, name string) error

	// WriteClear tells the edge to discard audio buffered for playback.
	WriteClear(streamSid string) error

	// Close closes the connection. Safe to call more than once.
	Close() error
}

// WSConn adapts a websocket connection to Conn.
type WSConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWSConn wraps an upgraded websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Read returns the next inbound frame.
func (c *WSConn) Read() (*Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// WriteMedia sends an audio chunk to the edge.
func (c *WSConn) WriteMedia(streamSid, payloadBase64 string) error {
	return c.write(NewMediaMessage(streamSid, payloadBase64))
}

// WriteMark sends a synchronization marker to the edge.
func (c *WSConn) WriteMark(streamSid, name string) error {
	return c.write(NewMarkMessage(streamSid, name))
}

// WriteClear tells the edge to discard buffered playback audio.
func (c *WSConn) WriteClear(streamSid string) error {
	return c.write(NewClearMessage(streamSid))
}

// write serializes writes; gorilla/websocket permits one concurrent writer.
func (c *WSConn) write(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Close closes the underlying websocket.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

var _ Conn = (*WSConn)(nil)
