package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/mkrutov/termgate/internal/server/auth"
	"github.com/mkrutov/termgate/internal/server/config"
)

// Default terminal geometry before the client reports its own.
const (
	DefaultCols uint16 = 80
	DefaultRows uint16 = 24
)

// Session owns exactly one PTY-backed engine process. It is created by the
// connection that spawned it and never shared across connections.
type Session struct {
	ID        string
	Username  string
	StartedAt time.Time

	mu   sync.Mutex
	ptmx *os.File
	cmd  *exec.Cmd
	cols uint16
	rows uint16
}

// StartSession spawns the engine process in the user's home directory with
// the user's personal API credential (or the server-wide default) injected
// into the environment. The PTY starts at the default 80x24 geometry.
func StartSession(id string, claims *auth.Claims, cfg *config.Config) (*Session, error) {

	cmd := exec.Command(cfg.EngineCommand)
	cmd.Dir = claims.HomeDir

	env := append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)
	credential := claims.APICredential
	if credential == "" {
		credential = cfg.DefaultAPICredential
	}
	if credential != "" && cfg.APICredentialEnvVar != "" {
		env = append(env, cfg.APICredentialEnvVar+"="+credential)
	}
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: DefaultCols, Rows: DefaultRows})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	return &Session{
		ID:        id,
		Username:  claims.Username,
		StartedAt: time.Now(),
		ptmx:      ptmx,
		cmd:       cmd,
		cols:      DefaultCols,
		rows:      DefaultRows,
	}, nil
}

// WriteInput writes client bytes verbatim to the process's input stream.
func (s *Session) WriteInput(data []byte) error {
	s.mu.Lock()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return nil
	}
	_, err := ptmx.Write(data)
	return err
}

// ReadOutput blocks on the next output chunk from the process.
func (s *Session) ReadOutput(buf []byte) (int, error) {
	s.mu.Lock()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return 0, os.ErrClosed
	}
	return ptmx.Read(buf)
}

// Resize updates the terminal geometry without restarting the process.
func (s *Session) Resize(cols, rows uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptmx == nil {
		return nil
	}
	s.cols, s.rows = cols, rows
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Size reports the current terminal geometry.
func (s *Session) Size() (cols, rows uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Wait blocks until the process exits and returns its exit code.
func (s *Session) Wait() int {
	err := s.cmd.Wait()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

// Kill forcibly terminates the process and closes the PTY. Safe to call
// multiple times and after the process has already exited.
func (s *Session) Kill() {
	s.mu.Lock()
	ptmx := s.ptmx
	s.ptmx = nil
	s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if ptmx != nil {
		_ = ptmx.Close()
	}
}
