// Package editor hosts a commit session in a terminal. The announced file is
// opened in the user's own editor and the way that editor exits is mapped to
// a session trigger.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/ejoffe/sprcommit/hook"
	"github.com/rs/zerolog/log"
)

// ErrNothingOpen is returned by Run before a session opened a file.
var ErrNothingOpen = errors.New("no file open")

// Terminal runs the user's editor in the foreground of the terminal.
type Terminal struct {
	command string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer

	mu       sync.Mutex
	path     string
	triggers map[hook.Trigger]func()
}

// NewTerminal returns a host for command, empty means $VISUAL, $EDITOR or vi.
func NewTerminal(command string, stdin io.Reader, stdout io.Writer, stderr io.Writer) *Terminal {
	return &Terminal{
		command:  command,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		triggers: map[hook.Trigger]func(){},
	}
}

// Command resolves the editor to run.
func (t *Terminal) Command() string {
	if t.command != "" {
		return t.command
	}
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return "vi"
}

func (t *Terminal) Open(path string) error {
	_, err := os.Stat(path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.path = path
	t.mu.Unlock()
	return nil
}

func (t *Terminal) OnTrigger(path string, trigger hook.Trigger, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.triggers[trigger] = fn
}

func (t *Terminal) Notify(msg string) {
	fmt.Fprintln(t.stderr, msg)
}

// Run edits the open file and fires the matching trigger.
//
// A changed file fires Saved and an unchanged one ViewClosed. An editor
// failure, an unreadable file or a canceled ctx fires Discarded after
// truncating the file, so git aborts on the empty message. Once a file is
// open Run always fires a trigger.
func (t *Terminal) Run(ctx context.Context) (hook.Trigger, error) {
	t.mu.Lock()
	path := t.path
	t.mu.Unlock()
	if path == "" {
		return hook.None, ErrNothingOpen
	}

	before, err := os.ReadFile(path)
	if err != nil {
		return t.discard(path), err
	}

	command := t.Command()
	log.Debug().Str("editor", command).Str("path", path).Msg("editor run")
	cmd := exec.CommandContext(ctx, "sh", "-c", command+` "$1"`, "sh", path)
	cmd.Stdin = t.stdin
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr
	err = cmd.Run()
	if ctx.Err() != nil {
		return t.discard(path), nil
	}
	if err != nil {
		return t.discard(path), fmt.Errorf("editor %s: %w", strings.Fields(command)[0], err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		return t.discard(path), err
	}
	trigger := hook.ViewClosed
	if !bytes.Equal(before, after) {
		trigger = hook.Saved
	}
	t.fire(trigger)
	return trigger, nil
}

func (t *Terminal) discard(path string) hook.Trigger {
	err := os.Truncate(path, 0)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("discard message")
	}
	t.fire(hook.Discarded)
	return hook.Discarded
}

func (t *Terminal) fire(trigger hook.Trigger) {
	t.mu.Lock()
	fn := t.triggers[trigger]
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
