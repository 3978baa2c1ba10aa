// Package telephony places outbound calls and generates call-control markup
// via the Twilio REST API.
//
// It is deliberately thin: call signaling (ringing, hangup, status) is owned
// by the provider. The one piece of markup it produces is the TwiML that
// tells the provider to open a bidirectional media stream to the bridge's
// websocket endpoint.
package telephony
