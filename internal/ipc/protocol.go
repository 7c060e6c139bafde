// Package ipc is the unix-socket control surface the UI and speech
// collaborators use to drive an owning visor session.
package ipc

// Command names accepted by a session owner.
const (
	CommandStatus = "status"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandAsk    = "ask"
	CommandPhrase = "phrase"
	CommandQuit   = "quit"
)

// Request is one newline-framed JSON command. Phrase carries the recognized
// speech text for CommandPhrase and is empty otherwise.
type Request struct {
	Command string `json:"command"`
	Phrase  string `json:"phrase,omitempty"`
}

// Response is the reply to one Request. Phrases is populated on status
// replies with the trigger phrases the speech collaborator should register.
type Response struct {
	OK      bool     `json:"ok"`
	State   string   `json:"state,omitempty"`
	Message string   `json:"message,omitempty"`
	Phrases []string `json:"phrases,omitempty"`
	Error   string   `json:"error,omitempty"`
}
