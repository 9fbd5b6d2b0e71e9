package mockgit

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ejoffe/sprcommit/job"
	"github.com/stretchr/testify/require"
)

// NewMockGit returns a git mock that asserts the order of git invocations.
//
// Queries are answered with canned output, spawns run a shell stub in
// place of git.
func NewMockGit(t *testing.T) *mock {
	return &mock{
		assert:  require.New(t),
		rootdir: t.TempDir(),
	}
}

type mock struct {
	assert  *require.Assertions
	rootdir string

	mu          sync.Mutex
	expectedCmd []string
	response    []cmdresponse
	spawned     []*job.Job
	spawnEnv    [][]string
}

type cmdresponse struct {
	valid  bool
	output string
	script string
}

func (m *mock) Git(args string, output *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Printf("CMD: git %s\n", args)

	resp := m.next("git " + args)
	if resp.valid {
		m.assert.NotNil(output)
		*output = resp.output
	} else {
		m.assert.Nil(output)
	}
	return nil
}

func (m *mock) Spawn(args []string, cfg job.Config) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Printf("SPAWN: git %s\n", strings.Join(args, " "))

	resp := m.next("git " + strings.Join(args, " "))
	if cfg.Dir == "" {
		cfg.Dir = m.rootdir
	}
	j, err := job.SpawnShell(resp.script, cfg)
	if err != nil {
		return nil, err
	}
	m.spawned = append(m.spawned, j)
	m.spawnEnv = append(m.spawnEnv, cfg.Env)
	return j, nil
}

func (m *mock) RootDir() string {
	return m.rootdir
}

func (m *mock) next(actual string) cmdresponse {
	m.assert.NotEmpty(m.expectedCmd, "unexpected command: %s", actual)
	m.assert.Equal(m.expectedCmd[0], actual)
	resp := m.response[0]
	m.expectedCmd = m.expectedCmd[1:]
	m.response = m.response[1:]
	return resp
}

// ExpectStaged expects the staged changes query and answers with files.
func (m *mock) ExpectStaged(files ...string) {
	m.expect("git diff --cached --name-only").respond(strings.Join(files, "\n"))
}

// ExpectCommit expects git commit with flags and runs script in its place.
//
// The script sees the same environment git would, so it can invoke
// $GIT_EDITOR on a message file to exercise the editor handshake.
func (m *mock) ExpectCommit(script string, flags ...string) {
	m.expect(strings.Join(append([]string{"git commit"}, flags...), " ")).run(script)
}

// Spawned returns the jobs started so far.
func (m *mock) Spawned() []*job.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*job.Job(nil), m.spawned...)
}

// SpawnEnv returns the environment overrides of the i'th spawn.
func (m *mock) SpawnEnv(i int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawnEnv[i]
}

// ExpectationsMet asserts every expected command was invoked.
func (m *mock) ExpectationsMet() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assert.Empty(m.expectedCmd, "expected commands not run")
}

func (m *mock) expect(cmd string, args ...interface{}) *mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedCmd = append(m.expectedCmd, fmt.Sprintf(cmd, args...))
	m.response = append(m.response, cmdresponse{valid: false})
	return m
}

func (m *mock) respond(output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response[len(m.response)-1] = cmdresponse{
		valid:  true,
		output: output,
	}
}

func (m *mock) run(script string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response[len(m.response)-1].script = script
}
