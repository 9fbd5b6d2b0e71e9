package job

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrSpawnFailure is returned when the external command cannot be started.
var ErrSpawnFailure = errors.New("spawn failure")

// Status of a job.
type Status int

const (
	Running Status = iota
	Exited
	Killed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Killed:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config holds the options recognized by Spawn.
type Config struct {
	// Dir is the working directory of the command, empty for the current one.
	Dir string

	// Env is an ordered list of NAME=VALUE overrides merged onto the
	//  inherited environment.
	Env []string

	// SplitLines exposes output as discrete lines. When false every read
	//  chunk is appended as is.
	SplitLines bool
}

// Job wraps one asynchronously started external command.
type Job struct {
	// Command is the argv the job was started with.
	Command []string

	// Dir is the working directory the job was started in.
	Dir string

	// Started is the time the process was started.
	Started time.Time

	cmd  *exec.Cmd
	done chan struct{}

	mu        sync.RWMutex
	output    []string
	errOutput []string
	status    Status
	exitCode  int
}

// Spawn starts command in the background and returns immediately.
//
// The returned job accumulates stdout and stderr as they are produced.
// If the command cannot be started no job is returned and the error wraps
// ErrSpawnFailure.
func Spawn(command []string, cfg Config) (*Job, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSpawnFailure)
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = MergeEnv(os.Environ(), cfg.Env)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailure, command[0], err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailure, command[0], err)
	}

	j := &Job{
		Command:  append([]string(nil), command...),
		Dir:      cfg.Dir,
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: -1,
	}

	log.Debug().Strs("command", command).Str("dir", cfg.Dir).Msg("job spawn")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailure, command[0], err)
	}
	j.Started = time.Now()

	var readers sync.WaitGroup
	readers.Add(2)
	go j.readLoop(&readers, stdout, cfg.SplitLines, &j.output)
	go j.readLoop(&readers, stderr, cfg.SplitLines, &j.errOutput)
	go j.waitLoop(&readers)

	return j, nil
}

// SpawnShell runs command through sh -c.
func SpawnShell(command string, cfg Config) (*Job, error) {
	return Spawn([]string{"sh", "-c", command}, cfg)
}

func (j *Job) readLoop(wg *sync.WaitGroup, r io.Reader, splitLines bool, dst *[]string) {
	defer wg.Done()

	if splitLines {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			j.appendTo(dst, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			log.Debug().Err(err).Strs("command", j.Command).Msg("job read")
			// keep draining so the child never blocks on a full pipe
			io.Copy(io.Discard, r)
		}
		return
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			j.appendTo(dst, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func (j *Job) appendTo(dst *[]string, s string) {
	j.mu.Lock()
	*dst = append(*dst, s)
	j.mu.Unlock()
}

// waitLoop reaps the process once both pipes are drained.
func (j *Job) waitLoop(readers *sync.WaitGroup) {
	readers.Wait()
	err := j.cmd.Wait()

	exitCode := 0
	status := Exited
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				status = Killed
			}
		} else {
			exitCode = -1
		}
	}

	j.mu.Lock()
	j.exitCode = exitCode
	j.status = status
	j.mu.Unlock()

	log.Debug().Strs("command", j.Command).Stringer("status", status).Int("code", exitCode).
		Dur("runtime", time.Since(j.Started)).Msg("job done")
	close(j.done)
}

// Output returns a copy of the stdout lines produced so far.
func (j *Job) Output() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]string(nil), j.output...)
}

// ErrorOutput returns a copy of the stderr lines produced so far.
func (j *Job) ErrorOutput() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]string(nil), j.errOutput...)
}

// OutputLen returns the number of stdout lines produced so far.
func (j *Job) OutputLen() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.output)
}

// Status returns the current status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Running is true until the process exited and its output was drained.
func (j *Job) Running() bool {
	return j.Status() == Running
}

// ExitCode returns the exit code, or -1 while running.
func (j *Job) ExitCode() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.exitCode
}

// Pid returns the process id of the child.
func (j *Job) Pid() int {
	if j.cmd.Process == nil {
		return -1
	}
	return j.cmd.Process.Pid
}

// Done is closed once the job leaves Running.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// MergeEnv applies overrides onto base.
//
// An override replaces the base entry with the same name. Base entries
// with an empty value are dropped.
func MergeEnv(base []string, overrides []string) []string {
	overridden := map[string]bool{}
	for _, kv := range overrides {
		name, _, _ := strings.Cut(kv, "=")
		overridden[name] = true
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || overridden[name] {
			continue
		}
		env = append(env, kv)
	}
	return append(env, overrides...)
}
