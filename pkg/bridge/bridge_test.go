package bridge

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pamlabs/voicebridge/pkg/mediastream"
	"github.com/pamlabs/voicebridge/pkg/openairt"
)

var errSessionClosed = errors.New("session closed")

type truncateCall struct {
	itemID     string
	audioEndMs int
}

// fakeSession is an in-memory openairt.Session driven by tests.
type fakeSession struct {
	mu         sync.Mutex
	updates    []*openairt.SessionConfig
	appended   []string
	assistant  []string
	responses  int
	truncates  []truncateCall
	closeCalls int

	events    chan *openairt.ServerEvent
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		events: make(chan *openairt.ServerEvent, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeSession) push(event *openairt.ServerEvent) {
	f.events <- event
}

func (f *fakeSession) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeSession) UpdateSession(config *openairt.SessionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, config)
	return nil
}

func (f *fakeSession) AppendAudioBase64(audioBase64 string) error {
	if f.isClosed() {
		return errSessionClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, audioBase64)
	return nil
}

func (f *fakeSession) AddAssistantMessage(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assistant = append(f.assistant, text)
	return nil
}

func (f *fakeSession) CreateResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses++
	return nil
}

func (f *fakeSession) TruncateItem(itemID string, contentIndex int, audioEndMs int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.truncates = append(f.truncates, truncateCall{itemID: itemID, audioEndMs: audioEndMs})
	return nil
}

func (f *fakeSession) SendRaw(event any) error { return nil }

func (f *fakeSession) Events() iter.Seq2[*openairt.ServerEvent, error] {
	return func(yield func(*openairt.ServerEvent, error) bool) {
		for {
			select {
			case <-f.closed:
				return
			case event := <-f.events:
				if !yield(event, nil) {
					return
				}
			}
		}
	}
}

func (f *fakeSession) SessionID() string { return "sess_test" }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSession) appendedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

func (f *fakeSession) truncateCalls() []truncateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]truncateCall(nil), f.truncates...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// readFrame returns the next outbound frame seen by the edge.
func readFrame(t *testing.T, edge *mediastream.PipeConn) *mediastream.Message {
	t.Helper()
	type result struct {
		msg *mediastream.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := edge.Read()
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("edge read: %v", r.err)
		}
		return r.msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return nil
	}
}

func startBridge(t *testing.T, agent AgentConfig) (*mediastream.PipeConn, *fakeSession, chan struct{}) {
	t.Helper()
	edge, app := mediastream.Pipe()
	ai := newFakeSession()
	b := New(agent, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := b.Run(context.Background(), app, ai); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		edge.Close()
		<-done
	})
	return edge, ai, done
}

func TestRunConfiguresSession(t *testing.T) {
	edge, ai, _ := startBridge(t, AgentConfig{
		Voice:        "alloy",
		Instructions: "be brief",
		Greeting:     "Bonjour, ici Pam.",
		Temperature:  0.8,
	})

	waitFor(t, "session update", func() bool {
		ai.mu.Lock()
		defer ai.mu.Unlock()
		return len(ai.updates) == 1 && len(ai.assistant) == 1 && ai.responses == 1
	})

	ai.mu.Lock()
	cfg := ai.updates[0]
	greeting := ai.assistant[0]
	ai.mu.Unlock()

	if cfg.Voice != "alloy" || cfg.Instructions != "be brief" {
		t.Errorf("session config = %+v; want voice/instructions passed through", cfg)
	}
	if cfg.InputAudioFormat != openairt.AudioFormatG711ULaw || cfg.OutputAudioFormat != openairt.AudioFormatG711ULaw {
		t.Errorf("audio formats = %q/%q; want g711_ulaw both ways", cfg.InputAudioFormat, cfg.OutputAudioFormat)
	}
	if cfg.TurnDetection == nil || cfg.TurnDetection.Type != openairt.VADServerVAD {
		t.Errorf("turn detection = %+v; want server_vad", cfg.TurnDetection)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.8 {
		t.Errorf("temperature = %v; want 0.8", cfg.Temperature)
	}
	if greeting != "Bonjour, ici Pam." {
		t.Errorf("greeting = %q", greeting)
	}

	edge.Close()
}

func TestRunForwardsCallerAudio(t *testing.T) {
	edge, ai, _ := startBridge(t, AgentConfig{})

	edge.Send(&mediastream.Message{
		Event: mediastream.EventStart,
		Start: &mediastream.StartPayload{StreamSid: "MZ1", CallSid: "CA1"},
	})
	edge.Send(&mediastream.Message{
		Event: mediastream.EventMedia,
		Media: &mediastream.MediaPayload{Timestamp: 20, Payload: "Zmlyc3Q="},
	})
	edge.Send(&mediastream.Message{
		Event: mediastream.EventMedia,
		Media: &mediastream.MediaPayload{Timestamp: 40, Payload: "c2Vjb25k"},
	})

	waitFor(t, "forwarded audio", func() bool { return ai.appendedCount() == 2 })
	ai.mu.Lock()
	defer ai.mu.Unlock()
	if ai.appended[0] != "Zmlyc3Q=" || ai.appended[1] != "c2Vjb25k" {
		t.Errorf("appended = %v; want payloads relayed verbatim in order", ai.appended)
	}
}

func TestRunDeliversSpeechWithMarks(t *testing.T) {
	edge, ai, _ := startBridge(t, AgentConfig{})

	edge.Send(&mediastream.Message{
		Event: mediastream.EventStart,
		Start: &mediastream.StartPayload{StreamSid: "MZ1"},
	})
	edge.Send(&mediastream.Message{
		Event: mediastream.EventMedia,
		Media: &mediastream.MediaPayload{Timestamp: 100, Payload: "aW4="},
	})
	waitFor(t, "inbound media", func() bool { return ai.appendedCount() == 1 })

	ai.push(&openairt.ServerEvent{
		Type:   openairt.EventTypeResponseAudioDelta,
		ItemID: "item_1",
		Delta:  "b3V0",
	})

	media := readFrame(t, edge)
	if media.Event != mediastream.EventMedia || media.StreamSid != "MZ1" || media.Media.Payload != "b3V0" {
		t.Fatalf("outbound frame = %+v; want media for MZ1", media)
	}
	mark := readFrame(t, edge)
	if mark.Event != mediastream.EventMark || mark.Mark == nil || mark.Mark.Name == "" {
		t.Fatalf("outbound frame = %+v; want named mark after media", mark)
	}
}

func TestRunBargeIn(t *testing.T) {
	edge, ai, _ := startBridge(t, AgentConfig{})

	edge.Send(&mediastream.Message{
		Event: mediastream.EventStart,
		Start: &mediastream.StartPayload{StreamSid: "MZ1"},
	})
	edge.Send(&mediastream.Message{
		Event: mediastream.EventMedia,
		Media: &mediastream.MediaPayload{Timestamp: 500, Payload: "YQ=="},
	})
	waitFor(t, "inbound media", func() bool { return ai.appendedCount() == 1 })

	// The AI starts speaking at caller clock 500.
	ai.push(&openairt.ServerEvent{
		Type:   openairt.EventTypeResponseAudioDelta,
		ItemID: "item_1",
		Delta:  "b3V0",
	})
	readFrame(t, edge) // media
	readFrame(t, edge) // mark

	// Caller clock advances to 900, then the caller talks over the AI.
	edge.Send(&mediastream.Message{
		Event: mediastream.EventMedia,
		Media: &mediastream.MediaPayload{Timestamp: 900, Payload: "Yg=="},
	})
	waitFor(t, "second inbound frame", func() bool { return ai.appendedCount() == 2 })

	ai.push(&openairt.ServerEvent{Type: openairt.EventTypeInputAudioBufferSpeechStarted})

	waitFor(t, "truncate directive", func() bool { return len(ai.truncateCalls()) == 1 })
	tc := ai.truncateCalls()[0]
	if tc.itemID != "item_1" || tc.audioEndMs != 400 {
		t.Errorf("truncate = %+v; want item_1 cut at 400ms", tc)
	}

	clear := readFrame(t, edge)
	if clear.Event != mediastream.EventClear || clear.StreamSid != "MZ1" {
		t.Errorf("outbound frame = %+v; want clear for MZ1", clear)
	}

	// A second speech-start with no new delta must not truncate again.
	ai.push(&openairt.ServerEvent{Type: openairt.EventTypeInputAudioBufferSpeechStarted})
	ai.push(&openairt.ServerEvent{Type: openairt.EventTypeResponseDone})
	waitFor(t, "events drained", func() bool { return len(ai.events) == 0 })
	if got := ai.truncateCalls(); len(got) != 1 {
		t.Errorf("truncate calls = %d; want 1", len(got))
	}
}

func TestRunEdgeDisconnectClosesSessionOnce(t *testing.T) {
	edge, ai, done := startBridge(t, AgentConfig{})

	edge.Send(&mediastream.Message{
		Event: mediastream.EventStart,
		Start: &mediastream.StartPayload{StreamSid: "MZ1"},
	})
	edge.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after edge disconnect")
	}

	ai.mu.Lock()
	defer ai.mu.Unlock()
	if ai.closeCalls != 1 {
		t.Errorf("session Close calls = %d; want exactly 1", ai.closeCalls)
	}
}

func TestRunStopEventEndsCall(t *testing.T) {
	edge, ai, done := startBridge(t, AgentConfig{})

	edge.Send(&mediastream.Message{
		Event: mediastream.EventStart,
		Start: &mediastream.StartPayload{StreamSid: "MZ1"},
	})
	edge.Send(&mediastream.Message{Event: mediastream.EventStop, StreamSid: "MZ1"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop event")
	}
	if !ai.isClosed() {
		t.Error("session not closed after stop event")
	}
}

func TestRunContextCancelEndsCall(t *testing.T) {
	edge, app := mediastream.Pipe()
	defer edge.Close()
	ai := newFakeSession()
	b := New(AgentConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx, app, ai)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}

// dialEdge returns a raw client connection playing the telephony provider
// and the upgraded server side wrapped for the bridge.
func dialEdge(t *testing.T) (*websocket.Conn, *mediastream.WSConn) {
	t.Helper()

	serverConn := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConn <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	provider, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { provider.Close() })

	select {
	case conn := <-serverConn:
		return provider, mediastream.NewWSConn(conn)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server connection")
		return nil, nil
	}
}

func TestRunSurvivesMalformedFrame(t *testing.T) {
	provider, app := dialEdge(t)
	ai := newFakeSession()
	b := New(AgentConfig{}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := b.Run(context.Background(), app, ai); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	frames := []string{
		`{"event":"start","streamSid":"MZ1","start":{"streamSid":"MZ1"}}`,
		`not json at all`,
		`{"event":"media","streamSid":"MZ1","media":{"timestamp":true}}`,
		`{"event":"media","streamSid":"MZ1","media":{"timestamp":"20","payload":"YQ=="}}`,
	}
	for _, f := range frames {
		if err := provider.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("provider write: %v", err)
		}
	}

	// The frame after the garbage must still be relayed.
	waitFor(t, "audio after malformed frames", func() bool { return ai.appendedCount() == 1 })
	ai.mu.Lock()
	payload := ai.appended[0]
	ai.mu.Unlock()
	if payload != "YQ==" {
		t.Errorf("appended = %q; want the valid frame's payload", payload)
	}

	if err := provider.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"stop","streamSid":"MZ1"}`)); err != nil {
		t.Fatalf("provider write: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop event")
	}
}

func TestRunIdleTimeoutEndsCall(t *testing.T) {
	edge, app := mediastream.Pipe()
	defer edge.Close()
	ai := newFakeSession()
	b := New(AgentConfig{IdleTimeout: 30 * time.Millisecond}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(context.Background(), app, ai)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after idle timeout")
	}
	if !ai.isClosed() {
		t.Error("session not closed after idle timeout")
	}
}
