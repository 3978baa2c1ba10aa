// Package mediastream implements the Twilio Media Streams wire protocol for
// bidirectional call audio.
//
// A media stream carries JSON text frames over a websocket. The telephony
// edge sends lifecycle and audio events (connected, start, media, mark,
// stop); the application sends media, mark and clear frames tagged with the
// stream SID assigned in the start event. Audio payloads are base64 G.711
// mu-law at 8kHz and are never transcoded here.
//
// Conn abstracts the duplex connection. WSConn adapts a live websocket;
// Pipe provides an in-memory pair for tests.
package mediastream
