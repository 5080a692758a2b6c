// Package analytics delivers best-effort events to the companion
// server. Delivery is fire-and-forget: events go into a bounded queue
// drained by a background goroutine, failures are logged and dropped,
// and nothing here ever blocks or fails a game operation.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Event names used by the game.
const (
	EventVisitRecorded     = "visit_recorded"
	EventEditionDownloaded = "edition_downloaded"
	EventEditionActivated  = "edition_activated"
)

// Event is the analytics payload. Only Event is required; the rest is
// filled per event type.
type Event struct {
	ID         string `json:"id,omitempty"`
	Event      string `json:"event"`
	EditionID  string `json:"edition_id,omitempty"`
	LocationID string `json:"location_id,omitempty"`
	Location   string `json:"location,omitempty"`
	Type       string `json:"type,omitempty"`
	Points     int    `json:"points,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Sink accepts events for eventual delivery.
type Sink interface {
	Track(e Event)
}

// Discard is a Sink that drops everything. Useful default in tests.
type Discard struct{}

func (Discard) Track(Event) {}

const queueSize = 64

// Tracker is the HTTP-backed Sink. Create with NewTracker, then run
// Run in a background goroutine for the life of the process.
type Tracker struct {
	url    string
	client *http.Client
	logger *slog.Logger
	queue  chan Event
}

func NewTracker(baseURL string, logger *slog.Logger) *Tracker {
	return &Tracker{
		url:    baseURL + "/api/analytics/track",
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		queue:  make(chan Event, queueSize),
	}
}

// Track enqueues an event. If the queue is full the event is dropped;
// analytics never applies backpressure to the game.
func (t *Tracker) Track(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	select {
	case t.queue <- e:
	default:
		t.logger.Warn("analytics queue full, dropping event", "event", e.Event)
	}
}

// Run drains the queue until ctx is cancelled. Always returns nil:
// analytics failure is not a reason to stop the process.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-t.queue:
			if err := t.send(ctx, e); err != nil {
				t.logger.Warn("analytics delivery failed", "event", e.Event, "error", err)
			}
		}
	}
}

func (t *Tracker) send(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var ack struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("server rejected event")
	}
	return nil
}
