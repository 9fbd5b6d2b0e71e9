package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// announceStub writes path after 50ms and exits once prefix.exit exists.
func announceStub(prefix string, path string) string {
	return fmt.Sprintf(`sleep 0.05; echo '%s'; while [ ! -e '%s.exit' ]; do sleep 0.1; done`, path, prefix)
}

func TestWait(t *testing.T) {
	fast := spawnShell(t, "exit 0", Config{SplitLines: true})
	assert.True(t, Wait(fast, 2*time.Second))

	slow := spawnShell(t, "sleep 5", Config{SplitLines: true})
	start := time.Now()
	assert.False(t, Wait(slow, 200*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.True(t, slow.Running())
}

func TestWaitContextCancel(t *testing.T) {
	slow := spawnShell(t, "sleep 5", Config{SplitLines: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, DefaultWaiter.Wait(ctx, slow, 5*time.Second))
}

func TestWaitForAnnouncement(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "s1")
	announced := filepath.Join(prefix, "MSG")
	j := spawnShell(t, announceStub(prefix, announced), Config{SplitLines: true})

	require.True(t, WaitFor(j, time.Second, HasOutputLine))
	assert.Equal(t, announced, j.Output()[0])
	assert.True(t, j.Running())

	require.NoError(t, os.WriteFile(prefix+".exit", nil, 0600))
	assert.True(t, Wait(j, time.Second))
	assert.Equal(t, 0, j.ExitCode())
}

func TestWaitForNeverSatisfied(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "s1")
	j := spawnShell(t, fmt.Sprintf(`while [ ! -e '%s.exit' ]; do sleep 0.1; done`, prefix), Config{SplitLines: true})

	start := time.Now()
	assert.False(t, WaitFor(j, 200*time.Millisecond, HasOutputLine))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.True(t, j.Running())
}

func TestWaitForImmediate(t *testing.T) {
	j := spawnShell(t, "sleep 1", Config{SplitLines: true})
	calls := 0
	assert.True(t, WaitFor(j, time.Hour, func(*Job) bool {
		calls++
		return true
	}))
	assert.Equal(t, 1, calls)
}

func TestWaitForObservesCompletion(t *testing.T) {
	j := spawnShell(t, "exit 0", Config{SplitLines: true})
	waiter := Waiter{Interval: time.Hour}
	start := time.Now()
	assert.True(t, waiter.WaitFor(context.Background(), j, 5*time.Second, HasExited))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitAll(t *testing.T) {
	tests := []struct {
		name     string
		scripts  []string
		expected bool
	}{
		{name: "Empty", scripts: nil, expected: true},
		{name: "AllFast", scripts: []string{"exit 0", "exit 1", "sleep 0.1"}, expected: true},
		{name: "OneStraggler", scripts: []string{"exit 0", "sleep 5", "exit 0"}, expected: false},
	}

	for _, tc := range tests {
		var jobs []*Job
		for _, script := range tc.scripts {
			jobs = append(jobs, spawnShell(t, script, Config{SplitLines: true}))
		}
		assert.Equal(t, tc.expected, WaitAll(time.Second, jobs...), tc.name)
	}
}

func TestWaiterInterval(t *testing.T) {
	assert.Equal(t, PollInterval, Waiter{}.interval())
	assert.Equal(t, 10*time.Millisecond, Waiter{Interval: 10 * time.Millisecond}.interval())
}
