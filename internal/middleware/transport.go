package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"gitingest-mcp/server/internal/jsonrpc"
)

// maxBodyBytes bounds a single JSON-RPC message.
const maxBodyBytes = 4 << 20

// sessionBuffer is the number of responses queued per SSE session.
const sessionBuffer = 100

// RequestProcessor processes JSON-RPC requests. Implemented by the MCP
// handler. A nil response means nothing is sent back.
type RequestProcessor interface {
	Handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response
}

// session represents an SSE connection session.
type session struct {
	id       string
	messages chan []byte
}

// transport manages SSE/Inline transport for MCP.
type transport struct {
	processor RequestProcessor
	endpoint  string
	sessions  map[string]*session
	mu        sync.RWMutex
}

// Transport creates an http.Handler that manages SSE and inline JSON-RPC
// transport. endpoint is the path announced to SSE clients for posting
// messages back.
func Transport(processor RequestProcessor, endpoint string) http.Handler {
	return &transport{
		processor: processor,
		endpoint:  endpoint,
		sessions:  make(map[string]*session),
	}
}

func (t *transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t.handleSSE(w, r)
	case http.MethodPost:
		t.handleMessage(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *transport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s := &session{
		id:       uuid.NewString(),
		messages: make(chan []byte, sessionBuffer),
	}

	t.mu.Lock()
	t.sessions[s.id] = s
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.sessions, s.id)
		t.mu.Unlock()
	}()

	log := logger.WithFields(logger.Fields{"session": s.id, "request_id": GetRequestID(r.Context())})

	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", t.endpoint, s.id)
	flusher.Flush()
	log.Info("SSE connection established")

	for {
		select {
		case msg := <-s.messages:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			log.Info("SSE connection closed")
			return
		}
	}
}

// decode reads one request. On failure it returns the parse error response.
func decode(w http.ResponseWriter, r *http.Request) (*jsonrpc.Request, *jsonrpc.Response, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, err
	}
	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, jsonrpc.NewError(nil, jsonrpc.ParseError, "Parse error"), nil
	}
	return &req, nil, nil
}

func (t *transport) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		t.handleInlineMessage(w, r)
		return
	}

	t.mu.RLock()
	s, ok := t.sessions[sessionID]
	t.mu.RUnlock()

	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	req, parseErr, err := decode(w, r)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if parseErr != nil {
		t.send(s, parseErr)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	logger.WithFields(logger.Fields{
		"method":     req.Method,
		"id":         req.ID,
		"session":    sessionID,
		"request_id": GetRequestID(r.Context()),
	}).Debug("received request")

	if resp := t.processor.Handle(r.Context(), req); resp != nil {
		t.send(s, resp)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (t *transport) handleInlineMessage(w http.ResponseWriter, r *http.Request) {
	req, resp, err := decode(w, r)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if req != nil {
		logger.WithFields(logger.Fields{
			"method":     req.Method,
			"id":         req.ID,
			"request_id": GetRequestID(r.Context()),
		}).Debug("received inline request")
		resp = t.processor.Handle(r.Context(), req)
	}

	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.WithError(err).Warn("failed to write response")
	}
}

func (t *transport) send(s *session, resp *jsonrpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.WithError(err).WithField("session", s.id).Error("failed to encode response")
		return
	}
	select {
	case s.messages <- data:
	default:
		logger.WithField("session", s.id).Warn("session message buffer full")
	}
}
