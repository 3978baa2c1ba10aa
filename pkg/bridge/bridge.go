package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pamlabs/voicebridge/pkg/mediastream"
	"github.com/pamlabs/voicebridge/pkg/openairt"
)

// AgentConfig describes the voice agent for one call. Recognized options are
// passed through to the AI session verbatim.
type AgentConfig struct {
	// Model is the realtime model ID. Empty selects the client default.
	Model string

	// Voice is the synthesis voice identity.
	Voice string

	// Instructions is the system prompt.
	Instructions string

	// Greeting, when non-empty, is spoken by the assistant as soon as the
	// call connects, before the caller's first turn.
	Greeting string

	// Temperature is the sampling temperature. Zero means server default.
	Temperature float64

	// VADThreshold tunes interruption detection sensitivity (0 = default).
	VADThreshold float64

	// VADSilenceMs is the end-of-speech silence duration (0 = default).
	VADSilenceMs int

	// IdleTimeout closes the call when no inbound media arrives for this
	// long. Zero disables the watchdog.
	IdleTimeout time.Duration
}

// sessionConfig translates the agent settings into a session.update payload.
func (a AgentConfig) sessionConfig() *openairt.SessionConfig {
	cfg := &openairt.SessionConfig{
		Modalities:        []string{openairt.ModalityText, openairt.ModalityAudio},
		Instructions:      a.Instructions,
		Voice:             a.Voice,
		InputAudioFormat:  openairt.AudioFormatG711ULaw,
		OutputAudioFormat: openairt.AudioFormatG711ULaw,
		TurnDetection: &openairt.TurnDetection{
			Type:              openairt.VADServerVAD,
			Threshold:         a.VADThreshold,
			SilenceDurationMs: a.VADSilenceMs,
		},
	}
	if a.Temperature != 0 {
		t := a.Temperature
		cfg.Temperature = &t
	}
	return cfg
}

// Bridge relays one phone call between the telephony edge and an AI session.
type Bridge struct {
	agent  AgentConfig
	logger *slog.Logger
}

// New creates a bridge with the given agent configuration.
func New(agent AgentConfig, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{agent: agent, logger: logger}
}

// Run drives one call until either side disconnects or ctx is canceled.
// It configures the AI session, then relays both directions concurrently.
// Both connections are closed exactly once before Run returns; the return
// is the "session ended" signal, with no reconnection attempted.
func (b *Bridge) Run(ctx context.Context, edge mediastream.Conn, ai openairt.Session) error {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			if err := edge.Close(); err != nil {
				b.logger.Debug("closing media stream", "error", err)
			}
			if err := ai.Close(); err != nil {
				b.logger.Debug("closing ai session", "error", err)
			}
		})
	}
	defer closeBoth()

	if err := ai.UpdateSession(b.agent.sessionConfig()); err != nil {
		return fmt.Errorf("bridge: session update: %w", err)
	}
	if b.agent.Greeting != "" {
		if err := ai.AddAssistantMessage(b.agent.Greeting); err != nil {
			return fmt.Errorf("bridge: seed greeting: %w", err)
		}
		if err := ai.CreateResponse(); err != nil {
			return fmt.Errorf("bridge: request greeting response: %w", err)
		}
	}

	state := NewCallState(b.logger)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeBoth()
		case <-done:
		}
	}()

	var idle *time.Timer
	if b.agent.IdleTimeout > 0 {
		idle = time.AfterFunc(b.agent.IdleTimeout, func() {
			b.logger.Warn("idle timeout, ending call", "timeout", b.agent.IdleTimeout)
			closeBoth()
		})
		defer idle.Stop()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer closeBoth()
		b.relayUpstream(state, edge, ai, idle)
	}()
	go func() {
		defer wg.Done()
		defer closeBoth()
		b.relayDownstream(state, edge, ai)
	}()
	wg.Wait()

	b.logger.Info("call ended", "stream_sid", state.StreamSid())
	return nil
}

// relayUpstream consumes telephony frames and forwards caller audio to the
// AI session. It returns when the edge connection ends.
func (b *Bridge) relayUpstream(state *CallState, edge mediastream.Conn, ai openairt.Session, idle *time.Timer) {
	for {
		msg, err := edge.Read()
		if err != nil {
			var de *mediastream.DecodeError
			if errors.As(err, &de) {
				// Drop the frame, keep the call alive.
				b.logger.Warn("dropping malformed media frame", "error", err)
				continue
			}
			b.logger.Info("media stream closed", "error", err)
			return
		}

		switch msg.Event {
		case mediastream.EventConnected:
			b.logger.Debug("media stream connected")

		case mediastream.EventStart:
			if msg.Start == nil {
				b.logger.Warn("start event without payload")
				continue
			}
			state.StreamStarted(msg.Start.StreamSid)
			b.logger.Info("stream started",
				"stream_sid", msg.Start.StreamSid, "call_sid", msg.Start.CallSid)

		case mediastream.EventMedia:
			if msg.Media == nil {
				b.logger.Warn("media event without payload")
				continue
			}
			if idle != nil {
				idle.Reset(b.agent.IdleTimeout)
			}
			state.InboundMedia(int64(msg.Media.Timestamp))
			if err := ai.AppendAudioBase64(msg.Media.Payload); err != nil {
				// The AI socket may already be gone during teardown;
				// stale audio is worthless, so drop silently.
				b.logger.Debug("dropping inbound frame", "error", err)
			}

		case mediastream.EventMark:
			if msg.Mark == nil {
				b.logger.Warn("mark event without payload")
				continue
			}
			state.MarkAcknowledged(msg.Mark.Name)

		case mediastream.EventStop:
			b.logger.Info("stream stopped", "stream_sid", msg.StreamSid)
			return

		case mediastream.EventDTMF:
			b.logger.Debug("dtmf received")

		default:
			b.logger.Warn("unknown media stream event", "event", msg.Event)
		}
	}
}

// relayDownstream consumes AI session events and forwards synthesized audio
// to the telephony edge. It returns when the session ends.
func (b *Bridge) relayDownstream(state *CallState, edge mediastream.Conn, ai openairt.Session) {
	for event, err := range ai.Events() {
		if err != nil {
			b.logger.Error("ai session error", "error", err)
			return
		}

		switch event.Type {
		case openairt.EventTypeSessionCreated:
			id := ""
			if event.Session != nil {
				id = event.Session.ID
			}
			b.logger.Info("ai session created", "session_id", id)

		case openairt.EventTypeResponseAudioDelta:
			if event.Delta == "" {
				continue
			}
			d := state.AudioDelta(event.ItemID)
			if d.StreamSid == "" {
				continue
			}
			if err := edge.WriteMedia(d.StreamSid, event.Delta); err != nil {
				b.logger.Info("media stream write failed", "error", err)
				return
			}
			if err := edge.WriteMark(d.StreamSid, d.MarkName); err != nil {
				b.logger.Info("media stream write failed", "error", err)
				return
			}

		case openairt.EventTypeInputAudioBufferSpeechStarted:
			tr := state.SpeechStarted()
			if tr.Truncate {
				b.logger.Info("caller barge-in, truncating response",
					"item_id", tr.ItemID, "audio_end_ms", tr.AudioEndMs)
				if err := ai.TruncateItem(tr.ItemID, 0, int(tr.AudioEndMs)); err != nil {
					b.logger.Debug("truncate failed", "error", err)
				}
			}
			if tr.Clear {
				if err := edge.WriteClear(tr.StreamSid); err != nil {
					b.logger.Info("media stream write failed", "error", err)
					return
				}
			}

		case openairt.EventTypeResponseDone:
			state.ResponseDone()

		default:
			b.logger.Debug("ai event", "type", event.Type)
		}
	}
}
