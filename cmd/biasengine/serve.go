package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and serve the event stream, metrics, and webhook intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for the HTTP surface")
	return cmd
}

// runServe wires the application then serves three already-in-scope
// collaborators over a bare stdlib mux: the event hub's websocket upgrade
// (C10), the Prometheus handler, and the webhook intake functions (C11)
// behind a bearer-token check. It does not build a request router or
// response-shaping layer of its own - every handler either delegates
// straight into a C10/C11 function or decodes one already-tagged domain
// payload type and calls through.
func runServe(addr string) error {
	application, err := loadApp()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", application.hub.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", application.healthzHandler)
	mux.Handle("/webhook/", application.authenticated(application.webhookHandler))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go application.scheduler.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("biasengine: serving /ws, /metrics, /healthz, /webhook")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("biasengine: shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func (a *app) healthzHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.dbManager.Ping(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// authenticated rejects any request whose bearer token does not match the
// configured webhook.bearer_token, the same shared-secret scheme C11's
// functions were written against.
func (a *app) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token != a.cfg.Webhook.BearerToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// webhookHandler dispatches to the path-matched C11 intake function after
// decoding its one typed payload; it performs no routing beyond this
// single switch and no response shaping beyond a status code.
func (a *app) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	path := strings.TrimPrefix(r.URL.Path, "/webhook/")

	var err error
	switch path {
	case "tick":
		var payload domain.TickPayload
		if decErr := json.NewDecoder(r.Body).Decode(&payload); decErr != nil {
			http.Error(w, decErr.Error(), http.StatusBadRequest)
			return
		}
		err = webhook.IngestTick(ctx, a.kv, payload)
	case "market-tide":
		var payload domain.MarketTidePayload
		if decErr := json.NewDecoder(r.Body).Decode(&payload); decErr != nil {
			http.Error(w, decErr.Error(), http.StatusBadRequest)
			return
		}
		err = webhook.IngestMarketTide(ctx, a.kv, payload)
	case "flow":
		var payload domain.FlowPayload
		if decErr := json.NewDecoder(r.Body).Decode(&payload); decErr != nil {
			http.Error(w, decErr.Error(), http.StatusBadRequest)
			return
		}
		err = webhook.IngestFlow(ctx, a.kv, payload)
	case "pivot-alert":
		var payload domain.PivotAlertPayload
		if decErr := json.NewDecoder(r.Body).Decode(&payload); decErr != nil {
			http.Error(w, decErr.Error(), http.StatusBadRequest)
			return
		}
		err = webhook.IngestPivotAlert(ctx, a.kv, payload)
	case "sector-strength":
		var payload domain.SectorStrengthPayload
		if decErr := json.NewDecoder(r.Body).Decode(&payload); decErr != nil {
			http.Error(w, decErr.Error(), http.StatusBadRequest)
			return
		}
		err = webhook.IngestSectorStrength(ctx, a.kv, payload)
	default:
		http.Error(w, "unknown webhook path", http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
