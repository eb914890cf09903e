// Package heartbeat tracks the liveness of background components: the alert
// sweep, the edge inbox and the model client.
package heartbeat

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type State string

const (
	StateStarting State = "starting"
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateDisabled State = "disabled"
	StateStopped  State = "stopped"
	StateStale    State = "stale"
)

// Reporter is what components call as they run.
type Reporter interface {
	Starting(component, message string)
	Beat(component, message string)
	Degrade(component, message string, err error)
	Disabled(component, message string)
	Stopped(component, message string)
}

type ComponentStatus struct {
	Name       string    `json:"name"`
	State      State     `json:"state"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	LastBeatAt time.Time `json:"lastBeatAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Snapshot struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Overall     string            `json:"overall"`
	Components  []ComponentStatus `json:"components"`
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]ComponentStatus
	now        func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		components: map[string]ComponentStatus{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *Registry) Starting(component, message string) {
	r.set(component, StateStarting, message, nil)
}

func (r *Registry) Beat(component, message string) {
	r.set(component, StateHealthy, message, nil)
}

func (r *Registry) Degrade(component, message string, err error) {
	r.set(component, StateDegraded, message, err)
}

func (r *Registry) Disabled(component, message string) {
	r.set(component, StateDisabled, message, nil)
}

func (r *Registry) Stopped(component, message string) {
	r.set(component, StateStopped, message, nil)
}

func (r *Registry) set(component string, state State, message string, err error) {
	name := strings.ToLower(strings.TrimSpace(component))
	if name == "" {
		return
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.components[name]
	status.Name = name
	status.State = state
	status.Message = strings.TrimSpace(message)
	status.Error = ""
	if err != nil {
		status.Error = err.Error()
	}
	status.UpdatedAt = now
	if state == StateHealthy || status.LastBeatAt.IsZero() {
		status.LastBeatAt = now
	}
	r.components[name] = status
}

// Snapshot reports running components that have not beaten within
// staleAfter as stale. A zero staleAfter disables the check.
func (r *Registry) Snapshot(staleAfter time.Duration) Snapshot {
	now := r.now()
	r.mu.RLock()
	results := make([]ComponentStatus, 0, len(r.components))
	for _, status := range r.components {
		if staleAfter > 0 && (status.State == StateHealthy || status.State == StateStarting) && now.Sub(status.LastBeatAt) > staleAfter {
			status.State = StateStale
		}
		results = append(results, status)
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return Snapshot{
		GeneratedAt: now,
		Overall:     overall(results),
		Components:  results,
	}
}

func (s State) Degraded() bool {
	return s == StateDegraded || s == StateStale
}

func overall(items []ComponentStatus) string {
	if len(items) == 0 {
		return "unknown"
	}
	starting := false
	active := false
	for _, item := range items {
		switch {
		case item.State.Degraded():
			return string(StateDegraded)
		case item.State == StateStarting:
			starting = true
		case item.State == StateHealthy:
			active = true
		}
	}
	switch {
	case starting:
		return string(StateStarting)
	case active:
		return string(StateHealthy)
	default:
		return "idle"
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
