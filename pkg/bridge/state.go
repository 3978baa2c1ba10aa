package bridge

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// CallState tracks one call's relay state. Both relay directions mutate it
// concurrently, so every transition happens under one mutex; methods return
// value decisions and the caller performs I/O outside the lock.
//
// Invariant: activeItemID is non-empty if and only if the response start
// timestamp is anchored. latestInboundMs never decreases within a stream.
type CallState struct {
	mu     sync.Mutex
	logger *slog.Logger

	streamSid       string
	latestInboundMs int64

	activeItemID    string
	responseStartMs int64
	anchored        bool

	pendingMarks []string
}

// NewCallState creates state for a new call.
func NewCallState(logger *slog.Logger) *CallState {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallState{logger: logger}
}

// Delivery describes the frames to send for one audio delta.
// A zero Delivery means the delta cannot be forwarded.
type Delivery struct {
	StreamSid string
	MarkName  string
}

// Truncation describes the directives to issue for one interruption.
type Truncation struct {
	// Truncate is true when a truncate directive should be sent for ItemID
	// with AudioEndMs as the cut point.
	Truncate   bool
	ItemID     string
	AudioEndMs int64

	// Clear is true when a buffer-clear should be sent for StreamSid.
	Clear     bool
	StreamSid string
}

// StreamStarted records the stream SID from a start event and resets the
// sub-conversation state: active item, response anchor, inbound clock and
// any stale pending marks from a previous stream on the same socket.
func (s *CallState) StreamStarted(streamSid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streamSid = streamSid
	s.latestInboundMs = 0
	s.activeItemID = ""
	s.responseStartMs = 0
	s.anchored = false
	s.pendingMarks = nil
}

// StreamSid returns the stream identifier, or empty before the start event.
func (s *CallState) StreamSid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSid
}

// InboundMedia advances the caller clock to the frame's timestamp.
// A regressing timestamp is ignored; the clock never goes backwards.
func (s *CallState) InboundMedia(timestampMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timestampMs < s.latestInboundMs {
		s.logger.Debug("ignoring regressing media timestamp",
			"timestamp_ms", timestampMs, "latest_ms", s.latestInboundMs)
		return
	}
	s.latestInboundMs = timestampMs
}

// LatestInboundMs returns the caller clock in milliseconds.
func (s *CallState) LatestInboundMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestInboundMs
}

// MarkAcknowledged pops the oldest pending marker. Acknowledgments arrive
// oldest-first; a mismatched name is logged as an anomaly rather than
// corrupting the queue. A mark with nothing pending is a no-op.
func (s *CallState) MarkAcknowledged(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pendingMarks) == 0 {
		s.logger.Debug("mark acknowledged with empty queue", "name", name)
		return
	}
	oldest := s.pendingMarks[0]
	s.pendingMarks = s.pendingMarks[1:]
	if oldest != name {
		s.logger.Warn("mark acknowledged out of order",
			"expected", oldest, "got", name)
	}
}

// PendingMarks returns the number of unacknowledged markers.
func (s *CallState) PendingMarks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingMarks)
}

// AudioDelta registers one synthesized audio chunk for itemID and returns
// where to deliver it. The first delta of an item anchors the response start
// to the current caller clock; later deltas never move the anchor. A mark
// token is allocated and queued for each delivered chunk.
//
// Deltas arriving before the stream started cannot be tagged and are not
// delivered; deltas without an item identifier are delivered but do not
// touch the interruption state.
func (s *CallState) AudioDelta(itemID string) Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamSid == "" {
		s.logger.Debug("dropping audio delta before stream start", "item_id", itemID)
		return Delivery{}
	}
	if itemID == "" {
		s.logger.Warn("audio delta without item id")
	} else {
		if !s.anchored {
			s.responseStartMs = s.latestInboundMs
			s.anchored = true
		}
		s.activeItemID = itemID
	}

	name := "mark_" + uuid.New().String()[:12]
	s.pendingMarks = append(s.pendingMarks, name)
	return Delivery{StreamSid: s.streamSid, MarkName: name}
}

// SpeechStarted runs the interruption procedure. It is a no-op when no item
// is in flight, so issuing it twice in a row is harmless. When at least one
// marker has been acknowledged-or-pending the cut point is the caller-clock
// time elapsed since the response started; with no marker outstanding
// nothing has provably been played, so the item is cut at zero.
func (s *CallState) SpeechStarted() Truncation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeItemID == "" {
		return Truncation{}
	}

	tr := Truncation{
		Truncate: true,
		ItemID:   s.activeItemID,
	}
	if len(s.pendingMarks) > 0 {
		elapsed := s.latestInboundMs - s.responseStartMs
		if elapsed < 0 {
			elapsed = 0
		}
		tr.AudioEndMs = elapsed
	}
	if s.streamSid != "" {
		tr.Clear = true
		tr.StreamSid = s.streamSid
	}

	s.pendingMarks = nil
	s.activeItemID = ""
	s.responseStartMs = 0
	s.anchored = false
	return tr
}

// ResponseDone records the natural completion of the in-flight response.
func (s *CallState) ResponseDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeItemID = ""
	s.responseStartMs = 0
	s.anchored = false
}

// Speaking reports whether a response item is in flight.
func (s *CallState) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeItemID != ""
}
