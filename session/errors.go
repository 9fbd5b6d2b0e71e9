package session

import (
	"errors"
	"strings"
)

var (
	// ErrSessionActive is returned by Start while another session is not
	//  yet closed.
	ErrSessionActive = errors.New("commit session already active")

	// ErrHandshakeTimeout is returned when the external command did not
	//  announce its artifact within the handshake timeout. The command may
	//  still be running.
	ErrHandshakeTimeout = errors.New("external command did not open its editor in time")

	// ErrCommandExited is returned when the external command exited
	//  before announcing its artifact.
	ErrCommandExited = errors.New("external command exited before opening its editor")

	// ErrReapTimeout is reported when the released command did not exit in
	//  time. The session still closes.
	ErrReapTimeout = errors.New("external command did not exit after release")
)

// ChildError carries the error output of the external command.
type ChildError struct {
	Message string
}

func (e *ChildError) Error() string {
	return e.Message
}

// childMessage joins stderr lines into one trimmed message.
func childMessage(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
