package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pamlabs/voicebridge/cmd/voicebridge/internal/config"
	"github.com/pamlabs/voicebridge/pkg/bridge"
	"github.com/pamlabs/voicebridge/pkg/httpapi"
	"github.com/pamlabs/voicebridge/pkg/openairt"
	"github.com/pamlabs/voicebridge/pkg/telephony"
)

var (
	serveAddr       string
	serveDomain     string
	serveConfigFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the voice bridge server",
	Long: `Run the HTTP server that answers provider webhooks and bridges calls.

Examples:
  # Serve on the default port with the built-in persona
  voicebridge serve

  # Custom port and agent profile
  voicebridge serve --addr :8080 --config pam.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveConfigFile != "" {
			if err := cfg.LoadProfile(serveConfigFile); err != nil {
				return err
			}
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		if serveDomain != "" {
			cfg.Domain = serveDomain
		}
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
		return runServer(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides PORT)")
	serveCmd.Flags().StringVar(&serveDomain, "domain", "", "public hostname (overrides DOMAIN)")
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "f", "", "agent profile YAML file")
}

func runServer(cfg *config.Config) error {
	logger := slog.Default()

	var placer httpapi.CallPlacer
	if cfg.HasTelephony() {
		client, err := telephony.NewClient(telephony.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioPhoneNumber,
		})
		if err != nil {
			return err
		}
		placer = client
	} else {
		logger.Warn("telephony credentials not set, outbound calls disabled")
	}

	srv := httpapi.New(httpapi.Config{
		Domain: cfg.Domain,
		Model:  cfg.Agent.Model,
		Agent: bridge.AgentConfig{
			Model:        cfg.Agent.Model,
			Voice:        cfg.Agent.Voice,
			Instructions: cfg.Agent.Instructions,
			Greeting:     cfg.Agent.Greeting,
			Temperature:  cfg.Agent.Temperature,
			VADThreshold: cfg.Agent.VADThreshold,
			VADSilenceMs: cfg.Agent.VADSilenceMs,
			IdleTimeout:  cfg.Agent.IdleTimeout(),
		},
	}, openairt.NewClient(cfg.OpenAIAPIKey), placer, logger)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "domain", cfg.Domain)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
