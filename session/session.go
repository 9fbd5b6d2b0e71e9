package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ejoffe/profiletimer"
	"github.com/ejoffe/sprcommit/config"
	"github.com/ejoffe/sprcommit/hook"
	"github.com/ejoffe/sprcommit/job"
	"github.com/ejoffe/sprcommit/watcher"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State of a commit session. Sessions only move forward.
type State int

const (
	Idle State = iota
	Starting
	Editing
	Finishing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Editing:
		return "editing"
	case Finishing:
		return "finishing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Spawner starts the external command.
type Spawner interface {
	Spawn(args []string, cfg job.Config) (*job.Job, error)
}

// Editor is the host editing environment.
type Editor interface {
	// Open makes path the active editing context.
	Open(path string) error

	// OnTrigger registers fn to run when trigger happens for path.
	OnTrigger(path string, trigger hook.Trigger, fn func())

	// Notify shows msg to the user.
	Notify(msg string)
}

// Config of one session.
type Config struct {
	// Args are passed to the Spawner, e.g. commit --verbose.
	Args []string

	HandshakeTimeout time.Duration
	ReapTimeout      time.Duration
	PollInterval     time.Duration

	// TempDir holds the watcher script and sentinel, empty means os.TempDir().
	TempDir string

	// Home is forwarded to the external command as HOME, empty means the
	//  current user's home directory.
	Home string
}

// NewConfig builds a session config from the user config.
func NewConfig(cfg *config.Config, args []string) Config {
	return Config{
		Args:             args,
		HandshakeTimeout: cfg.HandshakeTimeout(),
		ReapTimeout:      cfg.ReapTimeout(),
		PollInterval:     cfg.PollInterval(),
		TempDir:          cfg.User.TempDir,
	}
}

// Result of a finished session.
type Result struct {
	Trigger  hook.Trigger
	Reaped   bool
	ExitCode int

	// Output is what the external command printed after the announcement.
	Output []string

	// Message is the trimmed error output surfaced to the user.
	Message string

	// Err joins ErrReapTimeout and *ChildError when they apply.
	Err error
}

// Session drives one external command through the editor handshake.
type Session struct {
	cfg     Config
	editor  Editor
	waiter  job.Waiter
	timer   profiletimer.Timer
	onClose func(*Session)

	prefix string
	path   string
	job    *job.Job
	fanin  *hook.FanIn

	mu     sync.Mutex
	state  State
	result Result

	sentinelWrites int
	reapAttempts   int
}

const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultReapTimeout      = 2 * time.Second
)

func newSession(cfg Config, editor Editor, timer profiletimer.Timer) *Session {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.ReapTimeout <= 0 {
		cfg.ReapTimeout = DefaultReapTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = job.PollInterval
	}
	s := &Session{
		cfg:    cfg,
		editor: editor,
		waiter: job.Waiter{Interval: cfg.PollInterval},
		timer:  timer,
		state:  Idle,
	}
	s.fanin = hook.NewFanIn(s.finish)
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	log.Debug().Str("prefix", s.prefix).Stringer("from", s.state).Stringer("to", state).Msg("session")
	s.state = state
	s.mu.Unlock()
}

// IsActive is true from Starting until Closed.
func (s *Session) IsActive() bool {
	state := s.State()
	return state != Idle && state != Closed
}

// Path is the artifact announced by the external command.
func (s *Session) Path() string {
	return s.path
}

// Prefix is the unique path prefix of the watcher files.
func (s *Session) Prefix() string {
	return s.prefix
}

// Job is the external command.
func (s *Session) Job() *job.Job {
	return s.job
}

// Done is closed once the session finalized. It is never closed for a
// session that failed to start.
func (s *Session) Done() <-chan struct{} {
	return s.fanin.Done()
}

// Result returns the outcome, valid once Done is closed.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Finalize ends the session. Only the first call across all triggers does
// any work, it returns true for that call. Sessions that never reached
// Editing cannot be finalized.
func (s *Session) Finalize(trigger hook.Trigger) bool {
	if s.State() < Editing {
		return false
	}
	return s.fanin.Fire(trigger)
}

// start spawns the external command and waits for its announcement.
func (s *Session) start(ctx context.Context, spawner Spawner) error {
	s.setState(Starting)

	tempDir := s.cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	s.prefix = filepath.Join(tempDir, "spr-commit-"+uuid.New().String()[:8])

	home := s.cfg.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			log.Debug().Err(err).Msg("no home directory to forward")
		}
	}

	scriptPath := watcher.ScriptPath(s.prefix)
	script := watcher.Script(watcher.Config{
		Prefix:       s.prefix,
		PollInterval: s.cfg.PollInterval,
	})
	err := os.WriteFile(scriptPath, []byte(script), 0700)
	if err != nil {
		s.setState(Closed)
		return fmt.Errorf("write watcher script: %w", err)
	}

	env := []string{"GIT_EDITOR=" + watcher.EditorCommand(scriptPath)}
	if home != "" {
		env = append(env, "HOME="+home)
	}
	j, err := spawner.Spawn(s.cfg.Args, job.Config{
		Env:        env,
		SplitLines: true,
	})
	if err != nil {
		s.removeFiles()
		s.setState(Closed)
		return err
	}
	s.job = j
	s.timer.Step("Session::Spawn")

	s.waiter.WaitFor(ctx, j, s.cfg.HandshakeTimeout, announcedOrExited)
	s.timer.Step("Session::Handshake")
	if !job.HasOutputLine(j) {
		// a command that has not reached its editor yet fails on the
		//  missing script instead of blocking forever
		s.removeFiles()
		s.setState(Closed)
		if !j.Running() {
			msg := childMessage(j.ErrorOutput())
			if msg == "" {
				msg = childMessage(j.Output())
			}
			return fmt.Errorf("%w (exit %d): %w", ErrCommandExited, j.ExitCode(), &ChildError{Message: msg})
		}
		log.Warn().Int("pid", j.Pid()).Str("prefix", s.prefix).Msg("external command left running")
		return fmt.Errorf("%w after %s", ErrHandshakeTimeout, s.cfg.HandshakeTimeout)
	}

	s.path = j.Output()[0]
	if !filepath.IsAbs(s.path) && j.Dir != "" {
		s.path = filepath.Join(j.Dir, s.path)
	}
	log.Debug().Str("path", s.path).Int("pid", j.Pid()).Msg("session ready")
	return nil
}

func announcedOrExited(j *job.Job) bool {
	return job.HasOutputLine(j) || job.HasExited(j)
}

// subscribe moves to Editing and routes every trigger into the fan-in.
func (s *Session) subscribe() {
	s.setState(Editing)
	for _, trigger := range hook.All {
		s.editor.OnTrigger(s.path, trigger, s.fanin.Adapter(trigger))
	}
}

// edit hands the announced artifact to the editor.
func (s *Session) edit() error {
	err := s.editor.Open(s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	return nil
}

// discard empties the artifact so the external command aborts.
func (s *Session) discard() {
	err := os.Truncate(s.path, 0)
	if err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("discard artifact")
	}
}

// finish releases the watcher, reaps the external command and closes.
func (s *Session) finish(trigger hook.Trigger) {
	s.setState(Finishing)
	result := Result{Trigger: trigger, ExitCode: -1}
	var errs []error

	s.sentinelWrites++
	err := os.WriteFile(watcher.SentinelPath(s.prefix), nil, 0600)
	if err != nil {
		log.Error().Err(err).Str("prefix", s.prefix).Msg("write sentinel")
		errs = append(errs, fmt.Errorf("write sentinel: %w", err))
	}

	s.reapAttempts++
	result.Reaped = s.waiter.Wait(context.Background(), s.job, s.cfg.ReapTimeout)
	s.timer.Step("Session::Reap")
	if result.Reaped {
		result.ExitCode = s.job.ExitCode()
		s.removeFiles()
	} else {
		log.Warn().Int("pid", s.job.Pid()).Dur("timeout", s.cfg.ReapTimeout).Msg("external command still running")
		errs = append(errs, ErrReapTimeout)
	}

	output := s.job.Output()
	if len(output) > 1 {
		result.Output = output[1:]
	}
	errOutput := s.job.ErrorOutput()
	if len(errOutput) > 0 {
		result.Message = childMessage(errOutput)
		if result.Message != "" {
			s.editor.Notify(result.Message)
			errs = append(errs, &ChildError{Message: result.Message})
		}
	}
	result.Err = errors.Join(errs...)

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()
	s.setState(Closed)

	if s.onClose != nil {
		s.onClose(s)
	}
}

func (s *Session) removeFiles() {
	for _, path := range []string{watcher.ScriptPath(s.prefix), watcher.SentinelPath(s.prefix)} {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Str("path", path).Msg("remove watcher file")
		}
	}
}
