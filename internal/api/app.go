package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 6 << 20 // Lambda's payload ceiling; the server mirrors it.

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/execute", h.handleExecute)
	mux.HandleFunc("/v1/snowflake", h.handleSnowflake)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	status, envelope := h.Execute(r.Context(), NormalizeHeaders(r.Header), body)
	if err := writeJSON(w, status, envelope); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleSnowflake(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	status, resp := h.Snowflake(r.Context(), NormalizeHeaders(r.Header), body)
	if err := writeJSON(w, status, resp); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return nil, false
	}
	defer func() {
		_ = r.Body.Close()
	}()
	return body, true
}

// RunServer runs the HTTP server exposing both endpoints. This is a blocking call.
func RunServer(port int, h *Handler) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("skyflow proxy listening on %s\n", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

// RunServerInterruptible runs the server in the background in a Go routine and immediately returns a chan to
// the caller. The caller can then send a signal to the chan to gracefully shutdown the server.
// It's up to the caller to wait for in the main Go routine to keep the server running.
func RunServerInterruptible(port int, h *Handler) (stop chan<- struct{}, done <-chan error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// one-shot channels for control & completion
	stopCh := make(chan struct{})
	doneCh := make(chan error, 1) // buffered so goroutines can finish without blocking

	// server goroutine
	go func() {
		log.Printf("skyflow proxy listening on %s\n", srv.Addr)
		err := srv.ListenAndServe()
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneCh <- err
			return
		}
		doneCh <- nil
	}()

	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) // graceful; in-flight requests get time to finish
	}()
	return stopCh, doneCh
}
