package terminal

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mkrutov/termgate/internal/logging"
	"github.com/mkrutov/termgate/internal/server/auth"
	"github.com/mkrutov/termgate/internal/server/config"
	"github.com/mkrutov/termgate/internal/server/tools"
	"github.com/mkrutov/termgate/internal/server/users"
)

// Supervisor runs one state machine per websocket connection:
//
//	Connected -> Authenticating -> Provisioning -> Active -> Terminated
//
// A failed auth event leaves the connection in Connected so the client may
// retry. Provisioning failures degrade silently. A spawn failure leaves the
// connection open with no process owned; the client is told via an error
// event. Closing the socket in any state kills the owned process.
type Supervisor struct {
	users       *users.Service
	provisioner *tools.Provisioner
	cfg         *config.Config
	logger      logging.Logger
	registry    *Registry
	upgrader    websocket.Upgrader
}

func NewSupervisor(us *users.Service, p *tools.Provisioner, cfg *config.Config, l logging.Logger) *Supervisor {
	return &Supervisor{
		users:       us,
		provisioner: p,
		cfg:         cfg,
		logger:      l.With("module", "terminal"),
		registry:    NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the in-protocol auth event is the trust boundary
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Registry exposes the supervisory session registry for metrics and
// shutdown.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// HandleWS upgrades the request and drives the connection's state machine
// until the socket closes.
func (s *Supervisor) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	log := s.logger.With("conn_id", connID)
	sc := NewSafeConn(conn)

	log.Info(r.Context(), "connection open")
	s.serve(r.Context(), connID, sc, log)
	log.Info(r.Context(), "connection closed")
}

func (s *Supervisor) serve(ctx context.Context, connID string, sc *SafeConn, log logging.Logger) {
	defer sc.Close()

	var (
		sess          *Session
		authenticated bool
	)
	defer func() {
		if sess != nil {
			s.registry.Remove(connID)
			sess.Kill()
		}
	}()

	for {
		messageType, data, err := sc.ReadMessage()
		if err != nil {
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if sess != nil {
				if err := sess.WriteInput(data); err != nil {
					log.Warn(ctx, "pty write failed", "error", err)
				}
			}

		case websocket.TextMessage:
			var ev ClientEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Warn(ctx, "malformed event", "error", err)
				continue
			}

			switch ev.Type {
			case EventAuth:
				if authenticated {
					continue
				}
				claims, err := s.users.VerifyToken(ev.Token)
				if err != nil {
					// retryable: the connection stays open
					_ = sc.WriteJSON(authFailedEvent("invalid credentials"))
					continue
				}
				authenticated = true
				_ = sc.WriteJSON(authSuccessEvent(claims.Username, claims.HomeDir))
				sess = s.startSession(ctx, connID, claims, sc, log)

			case EventData:
				if sess != nil {
					if err := sess.WriteInput([]byte(ev.Data)); err != nil {
						log.Warn(ctx, "pty write failed", "error", err)
					}
				}

			case EventResize:
				if sess != nil && ev.Cols > 0 && ev.Rows > 0 {
					if err := sess.Resize(ev.Cols, ev.Rows); err != nil {
						log.Warn(ctx, "pty resize failed", "error", err)
					}
				}
			}
		}
	}
}

// startSession runs tool provisioning synchronously, streaming progress to
// the client, then spawns the engine process and starts the output pump.
// Returns nil on spawn failure, leaving the connection in its degraded
// no-process state.
func (s *Supervisor) startSession(ctx context.Context, connID string, claims *auth.Claims, sc *SafeConn, log logging.Logger) *Session {

	toolList := s.cfg.ToolAllowList
	if len(toolList) == 0 {
		toolList = s.provisioner.Discover(ctx)
	}
	s.provisioner.Provision(ctx, toolList, func(line string) {
		_ = sc.WriteJSON(progressEvent(line))
	})

	sess, err := StartSession(connID, claims, s.cfg)
	if err != nil {
		log.Error(ctx, "engine spawn failed", "user", claims.Username, "error", err)
		_ = sc.WriteJSON(errorEvent("failed to start session"))
		return nil
	}

	s.registry.Add(sess)
	log.Info(ctx, "session started", "user", claims.Username)

	_ = sc.WriteJSON(readyEvent())

	go s.pump(ctx, sess, sc, log)

	return sess
}

// pump relays PTY output chunks to the client in order, then reaps the
// process and forwards its exit code. It never returns before Wait so the
// child is always reaped exactly once.
func (s *Supervisor) pump(ctx context.Context, sess *Session, sc *SafeConn, log logging.Logger) {
	buf := make([]byte, 4096)
	for {
		n, err := sess.ReadOutput(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if werr := sc.WriteMessage(websocket.BinaryMessage, chunk); werr != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}

	code := sess.Wait()
	s.registry.Remove(sess.ID)
	log.Info(ctx, "session ended", "user", sess.Username, "exit_code", code)

	_ = sc.WriteJSON(exitEvent(code))
}
