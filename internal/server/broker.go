package server

import (
	"encoding/json"
	"sync"
)

// GameEvent is the payload published to SSE subscribers so the
// presentation layer can refresh without polling.
type GameEvent struct {
	Type       string `json:"type"`
	EditionID  string `json:"editionId,omitempty"`
	LocationID string `json:"locationId,omitempty"`
	Points     int    `json:"points,omitempty"`
}

// Event types pushed to the presentation layer.
const (
	eventVisitRecorded    = "visit_recorded"
	eventEditionActivated = "edition_activated"
	eventSettingsUpdated  = "settings_updated"
	eventStoreCleared     = "store_cleared"
)

// Broker is an in-process pub/sub for SSE events. The game is
// single-profile, so there is one topic.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded game events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(event GameEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
