package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ejoffe/sprcommit/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{
			name: "Defaults",
			cfg:  Config{Prefix: "/tmp/spr-commit-deadbeef"},
			expected: `#!/bin/sh
printf '%s\n' "$1"
while [ ! -e '/tmp/spr-commit-deadbeef.exit' ]; do
	sleep 0.1
done
exit 0
`,
		},
		{
			name: "LiteralAnnouncement",
			cfg: Config{
				Prefix:       "/tmp/it's",
				PollInterval: 250 * time.Millisecond,
				Announce:     "/tmp/s1/MSG",
			},
			expected: `#!/bin/sh
printf '%s\n' '/tmp/s1/MSG'
while [ ! -e '/tmp/it'\''s.exit' ]; do
	sleep 0.25
done
exit 0
`,
		},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, Script(tc.cfg), tc.name)
		assert.Equal(t, Script(tc.cfg), Script(tc.cfg), tc.name)
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/tmp/p.exit", SentinelPath("/tmp/p"))
	assert.Equal(t, "/tmp/p.sh", ScriptPath("/tmp/p"))
	assert.Equal(t, "sh '/tmp/a b.sh'", EditorCommand("/tmp/a b.sh"))
}

func TestScriptBlocksUntilSentinel(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "spr-commit-test")
	require.NoError(t, os.WriteFile(ScriptPath(prefix), []byte(Script(Config{Prefix: prefix})), 0700))

	j, err := job.Spawn([]string{"sh", ScriptPath(prefix), "/repo/.git/COMMIT_EDITMSG"}, job.Config{SplitLines: true})
	require.NoError(t, err)

	require.True(t, job.WaitFor(j, 2*time.Second, job.HasOutputLine))
	assert.Equal(t, []string{"/repo/.git/COMMIT_EDITMSG"}, j.Output())
	assert.False(t, job.Wait(j, 300*time.Millisecond))

	require.NoError(t, os.WriteFile(SentinelPath(prefix), nil, 0600))
	require.True(t, job.Wait(j, 2*time.Second))
	assert.Equal(t, 0, j.ExitCode())
}
