package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pamlabs/voicebridge/pkg/bridge"
	"github.com/pamlabs/voicebridge/pkg/mediastream"
	"github.com/pamlabs/voicebridge/pkg/openairt"
	"github.com/pamlabs/voicebridge/pkg/telephony"
)

// CallPlacer places outbound calls. *telephony.Client implements it.
type CallPlacer interface {
	PlaceCall(to, voiceURL string) (string, error)
}

// SessionDialer opens AI sessions. *openairt.Client implements it.
type SessionDialer interface {
	Connect(ctx context.Context, config *openairt.ConnectConfig) (openairt.Session, error)
}

// Config holds the server settings.
type Config struct {
	// Domain is the externally visible hostname used in generated markup
	// and stream URLs. Empty falls back to the request's Host header.
	Domain string

	// Model is the realtime model for new sessions.
	Model string

	// Agent configures the voice agent for every call.
	Agent bridge.AgentConfig
}

// Server is the HTTP edge of the voice bridge.
type Server struct {
	cfg      Config
	dialer   SessionDialer
	placer   CallPlacer
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server. placer may be nil when provider credentials are not
// configured; the outbound call endpoint then reports an error.
func New(cfg Config, dialer SessionDialer, placer CallPlacer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		dialer: dialer,
		placer: placer,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/incoming-call", s.handleIncomingCall)
	mux.HandleFunc("/make-outbound-call", s.handleOutboundCall)
	mux.HandleFunc("/media-stream", s.handleMediaStream)
	return mux
}

// host resolves the externally visible hostname for URL generation.
func (s *Server) host(r *http.Request) string {
	if s.cfg.Domain != "" {
		return s.cfg.Domain
	}
	return r.Host
}

// handleIncomingCall returns markup directing the provider to open a media
// stream for the call. The provider may fetch it with GET or POST.
func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	streamURL := "wss://" + s.host(r) + "/media-stream"
	markup, err := telephony.ConnectStreamTwiML(streamURL)
	if err != nil {
		s.logger.Error("twiml generation failed", "error", err)
		http.Error(w, "markup generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(markup))
}

type outboundCallRequest struct {
	To string `json:"to"`
}

type outboundCallResponse struct {
	Success bool   `json:"success,omitempty"`
	CallSid string `json:"callSid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleOutboundCall places a call to the requested number. The answered
// call fetches /incoming-call and is bridged like an inbound one.
func (s *Server) handleOutboundCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, outboundCallResponse{Error: "POST required"})
		return
	}

	var req outboundCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, outboundCallResponse{Error: "invalid JSON body"})
		return
	}
	if req.To == "" {
		writeJSON(w, http.StatusBadRequest, outboundCallResponse{Error: "'to' number is required"})
		return
	}
	if !telephony.ValidNumber(req.To) {
		writeJSON(w, http.StatusBadRequest, outboundCallResponse{Error: "'to' must be an E.164 number"})
		return
	}
	if s.placer == nil {
		writeJSON(w, http.StatusInternalServerError, outboundCallResponse{Error: "telephony credentials are not configured"})
		return
	}

	voiceURL := "https://" + s.host(r) + "/incoming-call"
	callSid, err := s.placer.PlaceCall(req.To, voiceURL)
	if err != nil {
		s.logger.Error("outbound call rejected", "to", req.To, "error", err)
		writeJSON(w, http.StatusInternalServerError, outboundCallResponse{Error: err.Error()})
		return
	}

	s.logger.Info("outbound call placed", "to", req.To, "call_sid", callSid)
	writeJSON(w, http.StatusOK, outboundCallResponse{Success: true, CallSid: callSid})
}

// handleMediaStream upgrades the media websocket and bridges the call.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Info("media stream accepted")

	edge := mediastream.NewWSConn(wsConn)
	session, err := s.dialer.Connect(r.Context(), &openairt.ConnectConfig{Model: s.cfg.Model})
	if err != nil {
		logger.Error("ai session dial failed", "error", err)
		edge.Close()
		return
	}

	b := bridge.New(s.cfg.Agent, logger)
	if err := b.Run(context.Background(), edge, session); err != nil {
		logger.Error("bridge failed", "error", err)
	}
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
