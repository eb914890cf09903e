// Package alerts raises stored farm alerts and fans them out to live
// subscribers.
package alerts

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/agrisense/farm-advisor/internal/store"
)

const subscriberBuffer = 32

// Subscription receives alerts for one farm, or for every farm when FarmID
// is empty.
type Subscription struct {
	FarmID string
	C      <-chan store.Alert

	events chan store.Alert
}

// Hub is an in-process pub/sub for newly raised alerts. Slow subscribers
// miss events rather than block publishers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: map[*Subscription]struct{}{},
		logger:      logger,
	}
}

func (h *Hub) Subscribe(farmID string) *Subscription {
	events := make(chan store.Alert, subscriberBuffer)
	sub := &Subscription{FarmID: strings.TrimSpace(farmID), C: events, events: events}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.events)
}

func (h *Hub) Publish(alert store.Alert) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		if sub.FarmID != "" && sub.FarmID != alert.FarmID {
			continue
		}
		select {
		case sub.events <- alert:
		default:
			h.logger.Warn("alert subscriber is slow, dropping event", "farm_id", alert.FarmID, "alert_id", alert.ID)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
