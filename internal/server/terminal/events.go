// Package terminal implements the real-time session protocol: a
// per-connection state machine that authenticates the websocket, provisions
// engine tools, spawns one PTY-backed engine process in the user's sandbox,
// and relays bytes until teardown.
//
// Control events travel as JSON text frames in both directions. Raw
// terminal bytes travel as binary frames: PTY output server→client, and
// keyboard input client→server (a JSON "data" event is also accepted for
// clients that cannot send binary frames).
package terminal

// Client→server event types.
const (
	EventAuth   = "auth"
	EventData   = "data"
	EventResize = "resize"
)

// Server→client event types.
const (
	EventAuthSuccess = "auth-success"
	EventAuthFailed  = "auth-failed"
	EventProgress    = "progress"
	EventReady       = "ready"
	EventExit        = "exit"
	EventError       = "error"
)

// ClientEvent is a decoded inbound control frame.
type ClientEvent struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Data  string `json:"data,omitempty"`
	Cols  uint16 `json:"cols,omitempty"`
	Rows  uint16 `json:"rows,omitempty"`
}

// UserInfo is the public view of the authenticated principal.
type UserInfo struct {
	Username         string `json:"username"`
	WorkingDirectory string `json:"workingDirectory"`
}

// ServerEvent is an outbound control frame.
type ServerEvent struct {
	Type    string    `json:"type"`
	User    *UserInfo `json:"user,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message,omitempty"`
	Code    *int      `json:"code,omitempty"`
}

func authSuccessEvent(username, workingDirectory string) ServerEvent {
	return ServerEvent{
		Type: EventAuthSuccess,
		User: &UserInfo{Username: username, WorkingDirectory: workingDirectory},
	}
}

func authFailedEvent(reason string) ServerEvent {
	return ServerEvent{Type: EventAuthFailed, Reason: reason}
}

func progressEvent(line string) ServerEvent {
	return ServerEvent{Type: EventProgress, Message: line}
}

func readyEvent() ServerEvent {
	return ServerEvent{Type: EventReady}
}

func exitEvent(code int) ServerEvent {
	return ServerEvent{Type: EventExit, Code: &code}
}

func errorEvent(message string) ServerEvent {
	return ServerEvent{Type: EventError, Message: message}
}
