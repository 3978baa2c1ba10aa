// voicebridge bridges phone calls to a realtime AI voice agent.
//
// Usage:
//
//	voicebridge serve                     # Run the webhook and media server
//	voicebridge serve -f pam.yaml         # Run with a custom agent profile
//	voicebridge call +33612345678         # Place an outbound call
//
// Credentials are read from the environment; a .env file in the working
// directory is honored.
package main

import (
	"fmt"
	"os"

	"github.com/pamlabs/voicebridge/cmd/voicebridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
