package telephony

import (
	"strings"
	"testing"
)

func TestConnectStreamTwiML(t *testing.T) {
	markup, err := ConnectStreamTwiML("wss://example.com/media-stream")
	if err != nil {
		t.Fatalf("ConnectStreamTwiML: %v", err)
	}

	for _, want := range []string{
		"<Response>",
		"<Say>",
		"<Pause",
		"<Connect>",
		`<Stream url="wss://example.com/media-stream"`,
	} {
		if !strings.Contains(markup, want) {
			t.Errorf("markup missing %q:\n%s", want, markup)
		}
	}

	// The stream must come after the spoken greeting so the caller hears
	// the prompt before audio starts flowing.
	if strings.Index(markup, "<Say>") > strings.Index(markup, "<Connect>") {
		t.Errorf("greeting should precede connect:\n%s", markup)
	}
}
