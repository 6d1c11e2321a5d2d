package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

const (
	headerContentType     = "Content-Type"
	headerCacheControl    = "Cache-Control"
	headerConnection      = "Connection"
	headerXAccelBuffering = "X-Accel-Buffering"

	sseContentType = "text/event-stream"

	maxClientIDLength = 128
)

// Handler streams one connection's events. The connection id is taken from
// the clientId query parameter or generated, and is announced in the first
// "connected" event. The id is unregistered when the client goes away.
func Handler(registry *Registry, logger infralogger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("clientId")
		if len(id) > maxClientIDLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "clientId too long"})
			return
		}
		if id == "" {
			id = uuid.New().String()
		}

		cl, err := registry.register(id)
		switch {
		case errors.Is(err, ErrDuplicateConnection):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case err != nil:
			logger.Warn("SSE registration rejected", infralogger.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		registry.notifyCount()
		defer registry.remove(cl)

		// Streams outlive the server write timeout.
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

		setSSEHeaders(c.Writer)
		connected := Event{Type: EventTypeConnected, Data: ConnectedData{ClientID: id}, Retry: DefaultRetryMillis}
		if err = writeEvent(c.Writer, connected); err != nil {
			logger.Debug("Failed to write connection event", infralogger.Error(err))
			return
		}

		logger.Debug("SSE client connected",
			infralogger.String("connection_id", id),
			infralogger.String("remote_addr", c.ClientIP()),
		)

		streamEvents(c, cl.events, registry.HeartbeatInterval(), logger)
	}
}

func setSSEHeaders(w gin.ResponseWriter) {
	w.Header().Set(headerContentType, sseContentType)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	w.Header().Set(headerXAccelBuffering, "no")
	w.WriteHeader(http.StatusOK)
}

func streamEvents(c *gin.Context, events <-chan Event, heartbeat time.Duration, logger infralogger.Logger) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				logger.Debug("SSE event channel closed")
				return
			}
			if err := writeEvent(c.Writer, event); err != nil {
				logger.Debug("SSE write failed (client likely disconnected)",
					infralogger.Error(err),
					infralogger.String("event_type", event.Type),
				)
				return
			}
		case <-ticker.C:
			if err := writeHeartbeat(c.Writer); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// WriteEvent encodes event in SSE wire format.
func WriteEvent(w io.Writer, event Event) error {
	if event.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
			return fmt.Errorf("write event type: %w", err)
		}
	}
	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return fmt.Errorf("write event id: %w", err)
		}
	}
	if event.Retry > 0 {
		if _, err := fmt.Fprintf(w, "retry: %d\n", event.Retry); err != nil {
			return fmt.Errorf("write retry: %w", err)
		}
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err = fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event data: %w", err)
	}
	return nil
}

func writeEvent(w gin.ResponseWriter, event Event) error {
	if err := WriteEvent(w, event); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func writeHeartbeat(w gin.ResponseWriter) error {
	if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	w.Flush()
	return nil
}
