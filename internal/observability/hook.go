package observability

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

// EventField marks a log entry as a structured event. Entries carrying it are
// shipped regardless of level.
const EventField = "event"

// pusher is the part of LokiClient the hook needs.
type pusher interface {
	Push(ctx context.Context, labels map[string]string, data map[string]any) error
}

// LokiHook ships logrus entries to Loki in the background.
type LokiHook struct {
	client   pusher
	minLevel logger.Level
	timeout  time.Duration
	// sync makes Fire push inline. Used by tests.
	sync bool
}

// NewLokiHook ships entries at minLevel or more severe, plus every event
// entry.
func NewLokiHook(client *LokiClient, minLevel logger.Level) *LokiHook {
	return &LokiHook{client: client, minLevel: minLevel, timeout: 5 * time.Second}
}

// Levels implements logrus.Hook. Filtering by level happens in Fire so that
// events below minLevel still pass.
func (h *LokiHook) Levels() []logger.Level {
	return logger.AllLevels
}

// Fire implements logrus.Hook.
func (h *LokiHook) Fire(entry *logger.Entry) error {
	event, isEvent := entry.Data[EventField].(string)
	if !isEvent && entry.Level > h.minLevel {
		return nil
	}

	labels := map[string]string{
		"level": entry.Level.String(),
		"type":  "log",
	}
	if isEvent {
		labels["type"] = event
	}

	data := make(map[string]any, len(entry.Data)+1)
	for k, v := range entry.Data {
		data[k] = v
	}
	data["msg"] = entry.Message

	push := func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		// Logging through logrus here would re-enter the hook.
		_ = h.client.Push(ctx, labels, data)
	}
	if h.sync {
		push()
		return nil
	}
	go push()
	return nil
}
