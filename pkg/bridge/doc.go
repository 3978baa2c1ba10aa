// Package bridge relays audio between a telephony media stream and an
// OpenAI Realtime session for the lifetime of one phone call.
//
// Caller audio flows edge -> AI as buffer-append events; synthesized speech
// flows AI -> edge as media frames, each followed by a synchronization
// marker. When the AI's voice activity detector reports that the caller
// started speaking over an in-flight response, the bridge truncates that
// response at the amount of audio the caller actually heard and clears the
// edge playback buffer (barge-in).
//
// All per-call state lives in CallState, guarded by a single mutex shared by
// both relay directions. Nothing is shared across calls; each Bridge.Run
// call owns its own pair of connections and tears both down when either side
// ends.
package bridge
