package twincore

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the response header carrying the request ID, as Shopify sends it.
	RequestIDHeader = "X-Request-Id"
	// CallLimitHeader reports bucket usage as "<used>/<size>".
	CallLimitHeader = "X-Shopify-Shop-Api-Call-Limit"
	// AccessTokenHeader identifies the API client for call limiting.
	AccessTokenHeader = "X-Shopify-Access-Token"

	// LeakRate is how many calls per second drain from a client's bucket.
	LeakRate = 2

	callLimitMessage = "Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service."
)

// RequestLogEntry is one recorded API call, served by /_admin/requests.
type RequestLogEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      string            `json:"query,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	StatusCode int               `json:"status_code"`
	DurationMS float64           `json:"duration_ms"`
	RequestID  string            `json:"request_id,omitempty"`
}

// RequestLog keeps the most recent requests, oldest first.
type RequestLog struct {
	mu      sync.RWMutex
	entries []RequestLogEntry
	limit   int
}

// NewRequestLog returns a log holding at most limit entries.
func NewRequestLog(limit int) *RequestLog {
	return &RequestLog{entries: make([]RequestLogEntry, 0, limit), limit: limit}
}

// Add records an entry. At capacity the oldest entry is dropped.
func (l *RequestLog) Add(entry RequestLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.limit {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
}

// Entries returns a snapshot of the log.
func (l *RequestLog) Entries() []RequestLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]RequestLogEntry(nil), l.entries...)
}

// Clear empties the log.
func (l *RequestLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// FaultConfig makes requests to one API path fail or stall.
type FaultConfig struct {
	// Method restricts the fault to one HTTP method; empty matches all.
	Method     string `json:"method,omitempty"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
	DelayMS    int    `json:"delay_ms,omitempty"`
	// Rate is the probability in [0, 1] that a matching request faults.
	// Zero is stored as 1.
	Rate float64 `json:"rate"`
}

// Delay is the stall applied before the fault answers.
func (f FaultConfig) Delay() time.Duration {
	return time.Duration(f.DelayMS) * time.Millisecond
}

// FaultRegistry maps API paths to injected faults.
type FaultRegistry struct {
	mu     sync.RWMutex
	faults map[string]FaultConfig
}

// NewFaultRegistry returns an empty registry.
func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: make(map[string]FaultConfig)}
}

// Set registers fault for path, replacing any previous one.
func (fr *FaultRegistry) Set(path string, fault FaultConfig) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fault.Rate == 0 {
		fault.Rate = 1.0
	}
	fault.Method = strings.ToUpper(fault.Method)
	fr.faults[path] = fault
}

// Remove deletes the fault for path and reports whether there was one.
func (fr *FaultRegistry) Remove(path string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	_, ok := fr.faults[path]
	delete(fr.faults, path)
	return ok
}

var versionedPrefix = regexp.MustCompile(`^/admin/api/[^/]+/`)

// faultKeys lists the registry keys a request path can match, most
// specific first. A fault on /admin/orders.json also covers
// /admin/api/<version>/orders.json, and the .json suffix is optional.
func faultKeys(path string) []string {
	paths := []string{path}
	if loc := versionedPrefix.FindStringIndex(path); loc != nil {
		paths = append(paths, "/admin/"+path[loc[1]:])
	}
	keys := append([]string(nil), paths...)
	for _, p := range paths {
		if trimmed := strings.TrimSuffix(p, ".json"); trimmed != p {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// Check returns the fault that applies to a request, or nil. The first
// registered key that matches decides; its rate is then rolled once.
func (fr *FaultRegistry) Check(method, path string) *FaultConfig {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	for _, key := range faultKeys(path) {
		f, ok := fr.faults[key]
		if !ok || (f.Method != "" && f.Method != method) {
			continue
		}
		if f.Rate >= 1.0 || rand.Float64() < f.Rate {
			return &f
		}
		return nil
	}
	return nil
}

// All returns a copy of every registered fault keyed by path.
func (fr *FaultRegistry) All() map[string]FaultConfig {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	out := make(map[string]FaultConfig, len(fr.faults))
	for k, v := range fr.faults {
		out[k] = v
	}
	return out
}

// Reset removes every fault.
func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	clear(fr.faults)
}

// CallLimiter is Shopify's leaky bucket: each access token may burst up
// to the bucket size, and the bucket drains at LeakRate calls per second.
type CallLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	used float64
	last time.Time
}

// NewCallLimiter returns a limiter reading time from now, or the wall
// clock when now is nil.
func NewCallLimiter(now func() time.Time) *CallLimiter {
	if now == nil {
		now = time.Now
	}
	return &CallLimiter{buckets: make(map[string]*bucket), now: now}
}

// Take adds one call to the token's bucket of the given size. It returns
// the calls in the bucket afterwards and false when the bucket was full,
// in which case nothing is added.
func (cl *CallLimiter) Take(token string, size int) (int, bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	b, ok := cl.buckets[token]
	if !ok {
		b = &bucket{last: now}
		cl.buckets[token] = b
	}
	b.used -= now.Sub(b.last).Seconds() * LeakRate
	if b.used < 0 {
		b.used = 0
	}
	b.last = now

	if b.used+1 > float64(size) {
		return int(math.Ceil(b.used)), false
	}
	b.used++
	return int(math.Ceil(b.used)), true
}

// Reset empties every bucket.
func (cl *CallLimiter) Reset() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	clear(cl.buckets)
}

// Middleware holds the twin's shared request state and the handlers that use it.
// Handlers read the config through settings, so runtime updates never race
// with requests in flight.
type Middleware struct {
	mu     sync.RWMutex // guards *cfg
	cfg    *Config
	logger *slog.Logger
	ReqLog *RequestLog
	Faults *FaultRegistry
	Calls  *CallLimiter
}

// NewMiddleware builds the middleware set for cfg. A nil logger discards output.
func NewMiddleware(cfg *Config, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Middleware{
		cfg:    cfg,
		logger: logger,
		ReqLog: NewRequestLog(1000),
		Faults: NewFaultRegistry(),
		Calls:  NewCallLimiter(nil),
	}
}

// settings returns a copy of the current config.
func (m *Middleware) settings() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// updateSettings applies fn to a copy of the config and stores the copy
// only when fn succeeds.
func (m *Middleware) updateSettings(fn func(*Config) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.cfg
	if err := fn(&next); err != nil {
		return err
	}
	*m.cfg = next
	return nil
}

// RequestID gives every request an id: the incoming X-Request-Id, or a
// fresh UUID. The id is echoed on the response and stored under chi's
// request id key.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), chimw.RequestIDKey, id)))
	})
}

// CORS lets browser-based tools call the twin from any origin.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Accept, Content-Type, "+AccessTokenHeader)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader+", "+CallLimitHeader)
		h.Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// RequestLog records every request in ReqLog and logs it at debug level.
// Headers are only kept in verbose mode.
func (m *Middleware) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		entry := RequestLogEntry{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			Query:      r.URL.RawQuery,
			StatusCode: rec.statusCode,
			DurationMS: float64(elapsed) / float64(time.Millisecond),
			RequestID:  chimw.GetReqID(r.Context()),
		}
		if m.settings().Verbose {
			entry.Headers = make(map[string]string, len(r.Header))
			for k := range r.Header {
				entry.Headers[k] = r.Header.Get(k)
			}
		}
		m.ReqLog.Add(entry)

		m.logger.Debug("request",
			"method", entry.Method,
			"path", entry.Path,
			"status", entry.StatusCode,
			"duration", elapsed,
			"request_id", entry.RequestID,
		)
	})
}

// LatencyInjection delays each request by 80-120% of the configured latency.
func (m *Middleware) LatencyInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if latency := m.settings().Latency; latency > 0 {
			jitter := 0.8 + rand.Float64()*0.4
			time.Sleep(time.Duration(float64(latency) * jitter))
		}
		next.ServeHTTP(w, r)
	})
}

// RandomFailure answers 500 for the configured fraction of requests.
func (m *Middleware) RandomFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rate := m.settings().FailRate; rate > 0 && rand.Float64() < rate {
			Error(w, http.StatusInternalServerError, "simulated random failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CallLimit applies the per-token leaky bucket when Config.CallLimit is
// positive. Every answered call carries the bucket usage header; a call
// into a full bucket gets 429 with Retry-After.
func (m *Middleware) CallLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := m.settings().CallLimit
		if size <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		used, ok := m.Calls.Take(r.Header.Get(AccessTokenHeader), size)
		w.Header().Set(CallLimitHeader, strconv.Itoa(used)+"/"+strconv.Itoa(size))
		if !ok {
			w.Header().Set("Retry-After", "2.0")
			Error(w, http.StatusTooManyRequests, callLimitMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FaultInjection answers matching requests from the fault registry. It
// belongs inside the API route group so the control plane stays reachable.
func (m *Middleware) FaultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fault := m.Faults.Check(r.Method, r.URL.Path)
		if fault == nil {
			next.ServeHTTP(w, r)
			return
		}
		if delay := fault.Delay(); delay > 0 {
			time.Sleep(delay)
		}
		if fault.StatusCode <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fault.StatusCode)
		if fault.Body != "" {
			fmt.Fprint(w, fault.Body)
			return
		}
		fmt.Fprintf(w, `{"errors":"injected fault (%d)"}`, fault.StatusCode)
	})
}
