package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voicebridge",
	Short: "Phone call to AI voice agent bridge",
	Long: `voicebridge connects phone calls to a realtime AI voice agent.

It serves the provider webhooks, bridges live call audio to the AI
session over websockets and lets the agent be interrupted naturally
when the caller starts speaking.

Credentials are read from the environment (a .env file is honored):

  OPENAI_API_KEY        required to serve calls
  TWILIO_ACCOUNT_SID    required to place outbound calls
  TWILIO_AUTH_TOKEN     required to place outbound calls
  TWILIO_PHONE_NUMBER   required to place outbound calls
  DOMAIN                public hostname for webhook URLs
  PORT                  listen port (default 5050)`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
