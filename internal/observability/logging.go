// Package observability configures process logging and the structured events
// the server emits (tool calls, requests, security events). Entries can be
// shipped to Grafana Loki through LokiHook.
package observability

import (
	"os"
	"strings"

	"github.com/go-faster/errors"
	logger "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. format is "json" or "text".
// When Loki is configured in the environment, a LokiHook shipping warnings
// and events is installed.
func Setup(level, format string) error {
	lvl, err := logger.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	logger.SetLevel(lvl)
	logger.SetOutput(os.Stderr)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logger.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logger.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("invalid log format %q", format)
	}

	loki := LokiConfigFromEnv()
	if !loki.Enabled() {
		logger.Debug("observability: Loki not configured, shipping disabled")
		return nil
	}
	logger.AddHook(NewLokiHook(NewLokiClient(loki), logger.WarnLevel))
	logger.WithField("app", loki.App).Info("observability: Loki shipping enabled")
	return nil
}

// LogToolCall records one tool invocation.
func LogToolCall(requestID, tool string, durationMs int64, status, errMsg string) {
	entry := logger.WithFields(logger.Fields{
		EventField:    "tool_call",
		"request_id":  requestID,
		"tool":        tool,
		"duration_ms": durationMs,
		"status":      status,
	})
	if errMsg != "" {
		entry.WithField("error", errMsg).Error("tool call failed")
		return
	}
	entry.Info("tool call")
}

// LogRequest records one HTTP request.
func LogRequest(requestID, method, path string, statusCode int, durationMs int64) {
	logger.WithFields(logger.Fields{
		EventField:    "request",
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}).Info("request")
}

// LogSecurityEvent records a security-relevant occurrence such as a rejected
// token or a recovered panic.
func LogSecurityEvent(requestID, event string, details map[string]any) {
	fields := logger.Fields{
		EventField:   "security",
		"request_id": requestID,
		"security":   event,
	}
	for k, v := range details {
		fields[k] = v
	}
	logger.WithFields(fields).Warn("security event")
}
