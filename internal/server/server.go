// Package server exposes the command channel over a local websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"ant-crawler/internal/command"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const codeInternal = "INTERNAL"

// Dispatcher executes commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, call command.Call) (any, error)
	Status(ctx context.Context) (command.Status, error)
}

// Request is one command sent by a client.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response answers the request with the same id.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result any             `json:"result"`
	Error  *command.Error  `json:"error,omitempty"`
}

// Server serves /ws and /healthz.
type Server struct {
	dispatcher Dispatcher
	log        *slog.Logger
	upgrader   websocket.Upgrader
	timeout    time.Duration
}

// New creates a server for the dispatcher.
func New(d Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: d,
		log:        logger.With("component", "server"),
		timeout:    5 * time.Second,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin admits non-browser clients (no Origin) and pages served from this machine.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil {
		switch host := u.Hostname(); host {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
	}
	s.log.Warn("Rejected websocket origin", "origin", origin, "remote", r.RemoteAddr)
	return false
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("Command server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	st, err := s.dispatcher.Status(ctx)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	log := s.log.With("conn", uuid.NewString()[:8])
	log.Info("Client connected", "remote", r.RemoteAddr)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Client read failed", "error", err)
			} else {
				log.Info("Client disconnected")
			}
			return
		}

		resp := s.handle(r.Context(), log, payload)
		if err := conn.WriteJSON(resp); err != nil {
			log.Warn("Client write failed", "error", err)
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, log *slog.Logger, payload []byte) Response {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Debug("Discarding malformed request", "error", err)
		return Response{Error: &command.Error{Code: command.CodeBadArgs, Message: err.Error()}}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Debug("Command received", "method", req.Method, "id", string(req.ID))
	result, err := s.dispatcher.Dispatch(ctx, command.Call{Method: req.Method, Args: req.Args})
	if err == nil {
		return Response{ID: req.ID, Result: result}
	}

	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		cmdErr = &command.Error{Code: codeInternal, Message: err.Error()}
	}
	log.Info("Command failed", "method", req.Method, "code", cmdErr.Code, "error", cmdErr.Message)
	return Response{ID: req.ID, Error: cmdErr}
}
