// Package http adapts net/http requests onto the dispatcher's generic
// request surface: endpoint matching, CORS, request-ID propagation, body
// limits and JSON envelopes.
package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/objectgateway/canonical"
	"github.com/c360/objectgateway/dispatcher"
	"github.com/c360/objectgateway/types"
)

// DefaultMaxRequestSize bounds request bodies when the config leaves the
// limit unset.
const DefaultMaxRequestSize = 10 << 20 // 10 MB

// Config holds the HTTP adapter settings.
type Config struct {
	Addr           string   `json:"addr"`
	CORSOrigins    []string `json:"corsOrigins"`
	MaxRequestSize int64    `json:"maxRequestSize"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http adapter: addr cannot be empty")
	}
	return nil
}

// getOrGenerateRequestID extracts the request ID from headers or generates
// a new one for tracing across the gateway.
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Gateway translates HTTP traffic into dispatcher requests.
type Gateway struct {
	config     Config
	dispatcher *dispatcher.Dispatcher
	store      canonical.Store
	logger     *slog.Logger

	// Metrics (atomic operations)
	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
	bytesReceived   atomic.Uint64
	bytesSent       atomic.Uint64

	mu           sync.RWMutex
	lastActivity time.Time
}

// NewGateway creates the HTTP adapter.
func NewGateway(config Config, d *dispatcher.Dispatcher, store canonical.Store, logger *slog.Logger) (*Gateway, error) {
	if d == nil {
		return nil, fmt.Errorf("http adapter: dispatcher cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("http adapter: canonical store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = DefaultMaxRequestSize
	}
	return &Gateway{
		config:     config,
		dispatcher: d,
		store:      store,
		logger:     logger.With("component", "gateway.http"),
	}, nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.requestsTotal.Add(1)
	g.touch()

	requestID := getOrGenerateRequestID(r)
	w.Header().Set("X-Request-ID", requestID)
	g.applyCORS(w, r)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := g.readBody(r)
	if err != nil {
		g.requestsFailed.Add(1)
		g.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	segments := splitPath(r.URL.Path)
	endpoint, err := g.matchEndpoint(r, segments)
	if err != nil {
		g.requestsFailed.Add(1)
		g.writeError(w, http.StatusInternalServerError, "endpoint lookup failed")
		return
	}
	if endpoint == nil {
		g.requestsFailed.Add(1)
		g.writeError(w, http.StatusNotFound, "no endpoint matches this path")
		return
	}

	req := &dispatcher.Request{
		Method:   r.Method,
		Endpoint: endpoint,
		Path:     segments,
		RawQuery: r.URL.RawQuery,
		Headers:  flattenHeaders(r.Header),
		Body:     body,
		User:     r.Header.Get("X-User-ID"),
	}

	resp := g.dispatcher.Handle(r.Context(), req)
	g.writeResponse(w, requestID, resp)
}

// readBody decodes a JSON object body, tolerating an empty body.
func (g *Gateway) readBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxRequestSize))
	if err != nil {
		return nil, err
	}
	g.bytesReceived.Add(uint64(len(data)))
	if len(data) == 0 {
		return nil, nil
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// matchEndpoint picks the most specific endpoint whose path template
// matches the request segments. Nil without error means no match.
func (g *Gateway) matchEndpoint(r *http.Request, segments []string) (*types.Endpoint, error) {
	endpoints, err := g.store.ListEndpoints(r.Context())
	if err != nil {
		return nil, err
	}

	var best *types.Endpoint
	for _, candidate := range endpoints {
		if _, ok := candidate.Match(segments); !ok {
			continue
		}
		if best == nil || candidate.Specificity() > best.Specificity() {
			best = candidate
		}
	}
	return best, nil
}

func (g *Gateway) writeResponse(w http.ResponseWriter, requestID string, resp *dispatcher.Response) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	if resp.Body == nil {
		w.WriteHeader(resp.Status)
		g.countOutcome(resp.Status)
		return
	}

	data, err := json.Marshal(resp.Body)
	if err != nil {
		g.logger.Error("encoding response failed", "requestID", requestID, "error", err)
		g.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	n, _ := w.Write(data)
	g.bytesSent.Add(uint64(n))
	g.countOutcome(resp.Status)
}

func (g *Gateway) countOutcome(status int) {
	if status < http.StatusBadRequest {
		g.requestsSuccess.Add(1)
	} else {
		g.requestsFailed.Add(1)
	}
}

func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	allowed := false
	for _, allowedOrigin := range g.config.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}

	if allowed {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-User-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")
	}
}

// writeError writes an error response envelope.
func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":  message,
		"status": statusCode,
	}

	data, _ := json.Marshal(response)
	w.Write(data)
}

// Stats reports the adapter's request counters.
func (g *Gateway) Stats() map[string]uint64 {
	return map[string]uint64{
		"requestsTotal":   g.requestsTotal.Load(),
		"requestsSuccess": g.requestsSuccess.Load(),
		"requestsFailed":  g.requestsFailed.Load(),
		"bytesReceived":   g.bytesReceived.Load(),
		"bytesSent":       g.bytesSent.Load(),
	}
}

func (g *Gateway) touch() {
	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}
