// Package sse routes search progress events to exactly one Server-Sent Events
// connection per client id.
package sse

import "github.com/jonesrussell/north-cloud/exchange-search/internal/domain"

// Event is a Server-Sent Event.
// Format: event: <Type>\ndata: <JSON payload>\n\n
type Event struct {
	Type  string `json:"type"`
	Data  any    `json:"data"`
	ID    string `json:"id,omitempty"`
	Retry int    `json:"retry,omitempty"`
}

// Event types observed by the search UI.
const (
	EventTypeConnected      = "connected"
	EventTypeSearchProgress = "search-progress"
	EventTypeSearchComplete = "search-complete"
)

// Publisher delivers events to one connection. Implementations must not block
// and must ignore unknown ids.
type Publisher interface {
	Publish(connectionID string, event Event)
}

// ConnectedData is the payload of the first event on every stream.
type ConnectedData struct {
	ClientID string `json:"clientId"`
}

// ProgressData is the payload of search-progress events.
type ProgressData struct {
	Stage domain.Stage `json:"stage"`
}

// NewProgressEvent creates a search-progress event for the stage being entered.
func NewProgressEvent(stage domain.Stage) Event {
	return Event{Type: EventTypeSearchProgress, Data: ProgressData{Stage: stage}}
}

// NewCompleteEvent creates the search-complete event.
func NewCompleteEvent() Event {
	return Event{Type: EventTypeSearchComplete, Data: struct{}{}}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(string, Event) {}
