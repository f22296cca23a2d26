// Package dashboard serves the read-only monitoring UI. It runs as its own
// process with no channel back into the decision loop: it only polls the
// tick and signal stores, and tolerates a slightly stale tail.
package dashboard

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const storePollInterval = 1 * time.Second

type tickReader interface {
	TicksAfter(index uint64) ([]domain.TickRecord, error)
}

type signalReader interface {
	SignalsAfter(index uint64) ([]domain.SignalRecord, error)
}

// Server exposes the HTML UI and SSE streams over the persisted stores.
type Server struct {
	Addr        string
	TickStore   tickReader
	SignalStore signalReader
}

// NewServer creates a dashboard server instance.
func NewServer(addr string, ticks tickReader, signals signalReader) *Server {
	return &Server{Addr: addr, TickStore: ticks, SignalStore: signals}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ticks/stream", s.handleTickStream)
	mux.HandleFunc("/signals/stream", s.handleSignalStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic ACME certificates,
// plus an HTTP server on port 80 for the HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http (acme) server shutdown error: %v", err)
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("https server shutdown error: %v", err)
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http (acme) server error: %v", err)
		}
	}()

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleTickStream(w http.ResponseWriter, r *http.Request) {
	if s.TickStore == nil {
		http.Error(w, "tick store not available", http.StatusServiceUnavailable)
		return
	}
	s.stream(w, r, "tick", func(lastIndex uint64) ([]ssePayload, error) {
		records, err := s.TickStore.TicksAfter(lastIndex)
		if err != nil {
			return nil, err
		}
		payloads := make([]ssePayload, len(records))
		for i, rec := range records {
			payloads[i] = ssePayload{index: rec.Index, value: rec.Tick}
		}
		return payloads, nil
	})
}

func (s *Server) handleSignalStream(w http.ResponseWriter, r *http.Request) {
	if s.SignalStore == nil {
		http.Error(w, "signal store not available", http.StatusServiceUnavailable)
		return
	}
	s.stream(w, r, "signal", func(lastIndex uint64) ([]ssePayload, error) {
		records, err := s.SignalStore.SignalsAfter(lastIndex)
		if err != nil {
			return nil, err
		}
		payloads := make([]ssePayload, len(records))
		for i, rec := range records {
			payloads[i] = ssePayload{index: rec.Index, value: rec.Signal}
		}
		return payloads, nil
	})
}

type ssePayload struct {
	index uint64
	value any
}

// stream polls the store by index and pushes new records as SSE events.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, event string, fetch func(lastIndex uint64) ([]ssePayload, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat so proxies keep the connection alive
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(storePollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	send := func() error {
		payloads, err := fetch(lastIndex)
		if err != nil {
			return err
		}
		for _, p := range payloads {
			body, err := json.Marshal(p.value)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: %s\n", event)
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
			lastIndex = p.index
		}
		return nil
	}

	if err := send(); err != nil {
		http.Error(w, "failed to load records", http.StatusInternalServerError)
		log.Printf("%s stream initial load: %v", event, err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := send(); err != nil {
				log.Printf("%s stream poll: %v", event, err)
				return
			}
		}
	}
}
