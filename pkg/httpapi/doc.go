// Package httpapi exposes the voice bridge over HTTP: call-control markup
// for incoming calls, an outbound call trigger, and the media stream
// websocket that carries live call audio.
//
// Each accepted media stream runs its own bridge with its own AI session;
// calls are fully independent and a failing call never affects others.
package httpapi
