package telephony

import "github.com/twilio/twilio-go/twiml"

// ConnectStreamTwiML returns voice markup that greets the caller and opens a
// bidirectional media stream to the given websocket URL.
func ConnectStreamTwiML(streamURL string) (string, error) {
	say := &twiml.VoiceSay{
		Message: "Please wait while we connect your call to our A I voice assistant.",
	}
	pause := &twiml.VoicePause{
		Length: "1",
	}
	sayReady := &twiml.VoiceSay{
		Message: "You may start talking now.",
	}
	stream := &twiml.VoiceStream{
		Url: streamURL,
	}
	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}
	return twiml.Voice([]twiml.Element{say, pause, sayReady, connect})
}
