// Package config loads the voicebridge runtime configuration from the
// environment and an optional YAML agent profile.
//
// Secrets come from environment variables, with a .env file loaded first
// when present. The agent profile (persona, voice, tuning) lives in YAML
// so it can be edited without touching credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Default agent persona. Pam presents a live demo to callers who filled in
// the contact form, covering reception, support, sales and technical help.
const defaultInstructions = "Tu es Pam, une agente téléphonique IA qui présente une démo aux " +
	"utilisateurs ayant rempli un formulaire sur notre site web. Tu traites des demandes de " +
	"secrétariat, du support client, des ventes et de l'assistance technique. Commence par un " +
	"accueil chaleureux, reconnais la soumission du formulaire, puis présente tes capacités " +
	"avec des exemples concrets. Reste respectueuse, claire et professionnelle en tout temps, " +
	"et adapte-toi au contexte de l'utilisateur."

const defaultGreeting = "Bonjour, ici Pam. Merci d'avoir pris contact. Comment puis-je vous aider aujourd'hui ?"

// AgentProfile is the YAML-editable portion of the configuration.
type AgentProfile struct {
	Model          string  `yaml:"model"`
	Voice          string  `yaml:"voice"`
	Instructions   string  `yaml:"instructions"`
	Greeting       string  `yaml:"greeting"`
	Temperature    float64 `yaml:"temperature"`
	VADThreshold   float64 `yaml:"vad_threshold"`
	VADSilenceMs   int     `yaml:"vad_silence_ms"`
	IdleTimeoutSec int     `yaml:"idle_timeout_seconds"`
}

// IdleTimeout converts the profile's idle timeout to a duration.
func (p AgentProfile) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutSec) * time.Second
}

// Config is the full runtime configuration.
type Config struct {
	// OpenAIAPIKey authenticates AI sessions. Required to serve calls.
	OpenAIAPIKey string

	// Telephony provider credentials. Optional; without them the server
	// still bridges inbound calls but cannot place outbound ones.
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Domain is the externally visible hostname (no scheme). Optional;
	// the server falls back to each request's Host header.
	Domain string

	// Addr is the listen address, derived from PORT.
	Addr string

	Agent AgentProfile
}

// DefaultProfile returns the built-in agent profile.
func DefaultProfile() AgentProfile {
	return AgentProfile{
		Model:        "gpt-4o-realtime-preview-2024-10-01",
		Voice:        "alloy",
		Instructions: defaultInstructions,
		Greeting:     defaultGreeting,
		Temperature:  0.8,
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	// Ignore a missing .env, it is a development convenience.
	godotenv.Load()

	cfg := &Config{
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		Domain:            os.Getenv("DOMAIN"),
		Addr:              ":5050",
		Agent:             DefaultProfile(),
	}

	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("config: invalid PORT %q", port)
		}
		cfg.Addr = ":" + port
	}

	return cfg, nil
}

// LoadProfile merges a YAML agent profile file over the current profile.
// Fields absent from the file keep their existing values.
func (c *Config) LoadProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Agent); err != nil {
		return fmt.Errorf("config: parse profile %s: %w", path, err)
	}
	return nil
}

// HasTelephony reports whether provider credentials are fully configured.
func (c *Config) HasTelephony() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}
