package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/exporter"
	"github.com/benmeehan/freebox-agent/internal/middleware"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

// WifiController is the part of the router client the control surface drives.
type WifiController interface {
	GetWifiStatus(ctx context.Context) (freebox.WifiState, error)
	UpdateWifiStatus(ctx context.Context, update freebox.UpdateWifiState) (freebox.WifiState, error)
}

// ErrorPayload is the body of every error response.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ControlService serves the local HTTP control surface.
type ControlService struct {
	listenAddress   string
	restartDelay    time.Duration
	shutdownTimeout time.Duration
	wifi            WifiController
	exporter        *exporter.Exporter
	logger          zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewControlService initializes a new ControlService. exp may be nil, in
// which case /metrics is not served.
func NewControlService(
	listenAddress string,
	restartDelay time.Duration,
	shutdownTimeout time.Duration,
	wifi WifiController,
	exp *exporter.Exporter,
	logger zerolog.Logger,
) *ControlService {
	return &ControlService{
		listenAddress:   listenAddress,
		restartDelay:    restartDelay,
		shutdownTimeout: shutdownTimeout,
		wifi:            wifi,
		exporter:        exp,
		logger:          logger,
	}
}

// Router builds the route table.
func (c *ControlService) Router() http.Handler {
	r := chi.NewRouter()

	var observe middleware.RequestObserver
	if c.exporter != nil {
		observe = c.exporter.ControlRequest
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(c.logger, observe))

	r.Get("/wifi", c.handleGetWifi)
	r.Post("/restart_wifi", c.handleRestartWifi)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	if c.exporter != nil {
		r.Method(http.MethodGet, "/metrics", c.exporter.Handler())
	}

	return r
}

// Start binds the listen address and serves in the background.
func (c *ControlService) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server != nil {
		c.logger.Warn().Msg("ControlService is already running")
		return errors.New("control service is already running")
	}

	ln, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.listenAddress, err)
	}

	c.listener = ln
	c.server = &http.Server{
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	c.wg.Add(1)
	go func(srv *http.Server) {
		defer c.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().Err(err).Msg("Control server stopped unexpectedly")
		}
	}(c.server)

	c.logger.Info().Str("address", ln.Addr().String()).Msg("ControlService started successfully")
	return nil
}

// Addr returns the bound address, or "" when not running.
func (c *ControlService) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// Stop shuts the server down, waiting up to the shutdown timeout for
// in-flight requests.
func (c *ControlService) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server == nil {
		c.logger.Warn().Msg("ControlService is not running")
		return errors.New("control service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	defer cancel()

	err := c.server.Shutdown(ctx)
	c.wg.Wait()
	c.server = nil
	c.listener = nil

	if err != nil {
		return fmt.Errorf("failed to shut down control server: %w", err)
	}
	c.logger.Info().Msg("ControlService stopped successfully")
	return nil
}

func (c *ControlService) handleGetWifi(w http.ResponseWriter, r *http.Request) {
	state, err := c.wifi.GetWifiStatus(r.Context())
	if err != nil {
		c.writeError(w, "get wifi status", err)
		return
	}
	if c.exporter != nil {
		c.exporter.SetWifiEnabled(state.Enabled)
	}
	writeText(w, http.StatusOK, fmt.Sprintf("wifi enabled: %t!", state.Enabled))
}

func (c *ControlService) handleRestartWifi(w http.ResponseWriter, r *http.Request) {
	if _, err := c.wifi.UpdateWifiStatus(r.Context(), freebox.UpdateWifiState{Enabled: false}); err != nil {
		c.writeError(w, "disable wifi", err)
		return
	}
	if c.exporter != nil {
		c.exporter.SetWifiEnabled(false)
	}
	c.logger.Info().Dur("delay", c.restartDelay).Msg("Wi-Fi disabled, waiting before enabling it again")

	// Wi-Fi must come back even if the caller goes away.
	timer := time.NewTimer(c.restartDelay)
	select {
	case <-timer.C:
	case <-r.Context().Done():
		timer.Stop()
	}

	state, err := c.wifi.UpdateWifiStatus(context.WithoutCancel(r.Context()), freebox.UpdateWifiState{Enabled: true})
	if err != nil {
		c.writeError(w, "enable wifi", err)
		return
	}
	if c.exporter != nil {
		c.exporter.SetWifiEnabled(state.Enabled)
	}
	writeText(w, http.StatusOK, "done")
}

func (c *ControlService) writeError(w http.ResponseWriter, op string, err error) {
	status, code := StatusForError(err)
	c.logger.Error().Err(err).Str("op", op).Int("status", status).Msg("Router call failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]ErrorPayload{"error": {Code: code, Message: err.Error()}}); encErr != nil {
		c.logger.Warn().Err(encErr).Msg("Failed to write error response")
	}
}

// StatusForError maps a client failure to an HTTP status and a stable code.
func StatusForError(err error) (int, string) {
	var (
		sessionErr *freebox.SessionError
		requestErr *freebox.RequestError
		remoteErr  *freebox.RemoteError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "router_timeout"
	case errors.As(err, &sessionErr):
		return http.StatusBadGateway, "session_failed"
	case errors.As(err, &remoteErr) && remoteErr.AuthRejected():
		return http.StatusBadGateway, "router_auth_rejected"
	case errors.As(err, &requestErr):
		return http.StatusBadGateway, "router_request_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
