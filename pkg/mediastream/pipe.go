package mediastream

import (
	"errors"
	"sync"
)

// ErrPipeClosed is returned by pipe operations after either end closed.
var ErrPipeClosed = errors.New("mediastream: pipe closed")

// Pipe returns an in-memory connected pair of Conns. Frames written on one
// end are read on the other. Closing either end closes both.
//
// The edge end additionally exposes Send for injecting arbitrary inbound
// frames (start, media with timestamps, stop), which the Conn write methods
// deliberately cannot produce.
func Pipe() (edge, app *PipeConn) {
	done := make(chan struct{})
	once := new(sync.Once)
	a := &PipeConn{in: make(chan *Message, 64), done: done, closeOnce: once}
	b := &PipeConn{in: make(chan *Message, 64), done: done, closeOnce: once}
	a.peer, b.peer = b, a
	return a, b
}

// PipeConn is one end of an in-memory media stream, for tests.
type PipeConn struct {
	in        chan *Message
	peer      *PipeConn
	done      chan struct{}
	closeOnce *sync.Once
}

// Read returns the next frame written by the peer.
func (c *PipeConn) Read() (*Message, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.done:
		// Drain frames written before close.
		select {
		case msg := <-c.in:
			return msg, nil
		default:
			return nil, ErrPipeClosed
		}
	}
}

// Send injects a frame to be read by the peer.
func (c *PipeConn) Send(msg *Message) error {
	select {
	case <-c.done:
		return ErrPipeClosed
	default:
	}
	select {
	case c.peer.in <- msg:
		return nil
	case <-c.done:
		return ErrPipeClosed
	}
}

// WriteMedia sends an audio chunk to the peer.
func (c *PipeConn) WriteMedia(streamSid, payloadBase64 string) error {
	return c.Send(NewMediaMessage(streamSid, payloadBase64))
}

// WriteMark sends a synchronization marker to the peer.
func (c *PipeConn) WriteMark(streamSid, name string) error {
	return c.Send(NewMarkMessage(streamSid, name))
}

// WriteClear sends a buffer-clear directive to the peer.
func (c *PipeConn) WriteClear(streamSid string) error {
	return c.Send(NewClearMessage(streamSid))
}

// Close closes both ends.
func (c *PipeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

var _ Conn = (*PipeConn)(nil)
