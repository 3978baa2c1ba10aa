package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pamlabs/voicebridge/cmd/voicebridge/internal/config"
	"github.com/pamlabs/voicebridge/pkg/telephony"
)

var callDomain string

var callCmd = &cobra.Command{
	Use:   "call <number>",
	Short: "Place an outbound call to a phone number",
	Long: `Place an outbound call. The callee is connected to the voice agent
served by a running voicebridge instance at the configured domain.

The number must be in E.164 format.

Example:
  voicebridge call +33612345678 --domain agent.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if callDomain != "" {
			cfg.Domain = callDomain
		}
		if cfg.Domain == "" {
			return fmt.Errorf("a public domain is required, set DOMAIN or --domain")
		}
		if !cfg.HasTelephony() {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are required")
		}

		client, err := telephony.NewClient(telephony.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioPhoneNumber,
		})
		if err != nil {
			return err
		}

		voiceURL := "https://" + cfg.Domain + "/incoming-call"
		sid, err := client.PlaceCall(args[0], voiceURL)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Call placed: %s\n", sid)
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callDomain, "domain", "", "public hostname of the running server")
}
