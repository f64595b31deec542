// Package twincore provides the base HTTP server, CLI flags, middleware chain,
// and response helpers for the Shopify twin.
package twincore

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Config is the twin's runtime configuration, read from flags.
type Config struct {
	Name     string // used as the "twin" attribute of every log record
	Port     int
	Latency  time.Duration
	FailRate float64
	// CallLimit is the leaky bucket size per access token; zero disables
	// call limiting and the call limit header.
	CallLimit int
	SeedFile  string
	Verbose   bool
}

// ParseFlags reads the twin flags from the command line.
func ParseFlags(twinName string) *Config {
	return ParseFlagSet(flag.CommandLine, twinName, os.Args[1:])
}

// ParseFlagSet reads the twin flags from args into a new Config. PORT is
// consulted when -port is not given.
func ParseFlagSet(fs *flag.FlagSet, twinName string, args []string) *Config {
	cfg := &Config{Name: twinName}
	fs.IntVar(&cfg.Port, "port", 0, "HTTP listen port")
	fs.DurationVar(&cfg.Latency, "latency", 0, "base simulated latency, jittered by +/-20%")
	fs.Float64Var(&cfg.FailRate, "fail-rate", 0, "fraction of requests answered with 500 (0.0-1.0)")
	fs.IntVar(&cfg.CallLimit, "call-limit", 0, "per-token call bucket size, e.g. 40; 0 disables")
	fs.StringVar(&cfg.SeedFile, "seed-file", "", "YAML or JSON fixture loaded on start")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "debug logging and request headers in the request log")
	_ = fs.Parse(args)

	if cfg.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
			cfg.Port = p
		}
	}
	return cfg
}

// Twin is a chi router with the shared middleware stack mounted and a
// runtime-tunable Config. API and control plane routes are added by the
// caller on Router. Config is shared with the middleware; once the twin
// serves, read it through GetConfig.
type Twin struct {
	Config *Config
	Router *chi.Mux
	Logger *slog.Logger
	mw     *Middleware
}

// New builds a Twin that logs JSON to stdout, at debug level when verbose.
func New(cfg *Config) *Twin {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("twin", cfg.Name)

	r := chi.NewRouter()
	mw := NewMiddleware(cfg, logger)

	// Latency and failure read the config per request, so runtime updates
	// apply immediately.
	r.Use(mw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.CORS)
	r.Use(mw.RequestLog)
	r.Use(mw.LatencyInjection)
	r.Use(mw.RandomFailure)

	return &Twin{
		Config: cfg,
		Router: r,
		Logger: logger,
		mw:     mw,
	}
}

// Middleware exposes the request log, fault registry and call limiter.
func (t *Twin) Middleware() *Middleware {
	return t.mw
}

// GetConfig reports the runtime configuration for GET /_admin/config.
func (t *Twin) GetConfig() map[string]any {
	cfg := t.mw.settings()
	return map[string]any{
		"name":       cfg.Name,
		"port":       cfg.Port,
		"latency":    cfg.Latency.String(),
		"fail_rate":  cfg.FailRate,
		"call_limit": cfg.CallLimit,
		"verbose":    cfg.Verbose,
	}
}

// UpdateConfig applies PUT /_admin/config. Only latency, fail_rate,
// call_limit and verbose are mutable, and nothing is applied unless every
// update is valid.
func (t *Twin) UpdateConfig(updates map[string]any) error {
	return t.mw.updateSettings(func(next *Config) error {
		return applyUpdates(next, updates)
	})
}

func applyUpdates(next *Config, updates map[string]any) error {
	for k, v := range updates {
		switch k {
		case "latency":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("latency must be a duration string")
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid latency duration: %w", err)
			}
			if d < 0 {
				return fmt.Errorf("latency must not be negative")
			}
			next.Latency = d
		case "fail_rate":
			f, ok := v.(float64)
			if !ok || f < 0 || f > 1 {
				return fmt.Errorf("fail_rate must be a number between 0.0 and 1.0")
			}
			next.FailRate = f
		case "call_limit":
			f, ok := v.(float64)
			if !ok || f < 0 || f != float64(int(f)) {
				return fmt.Errorf("call_limit must be a non-negative integer")
			}
			next.CallLimit = int(f)
		case "verbose":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("verbose must be a boolean")
			}
			next.Verbose = b
		case "name", "port", "seed_file":
			return fmt.Errorf("%s cannot be changed at runtime", k)
		default:
			return fmt.Errorf("unknown config key: %s", k)
		}
	}
	return nil
}

// Serve listens on the configured port until ctx is done, then shuts
// down gracefully.
func (t *Twin) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", t.mw.settings().Port),
		Handler:      t.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		t.Logger.Info("starting twin", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	t.Logger.Info("shutting down twin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ServeHTTP implements http.Handler so Twin can be used directly in tests.
func (t *Twin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.Router.ServeHTTP(w, r)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes a Shopify-style error body: {"errors": "<message>"}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"errors": message})
}

// NotFound writes the 404 body Shopify returns for unknown resources.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not Found")
}

// FieldErrors writes a 422 with per-field messages, e.g.
// {"errors": {"title": ["can't be blank"]}}.
func FieldErrors(w http.ResponseWriter, fields map[string][]string) {
	JSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fields})
}
