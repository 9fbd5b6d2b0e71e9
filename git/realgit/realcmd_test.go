package realgit

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/ejoffe/sprcommit/config"
	"github.com/ejoffe/sprcommit/git"
	"github.com/ejoffe/sprcommit/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *gitcmd {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	out, err := exec.Command("git", "init", "-q", dir).CombinedOutput()
	require.NoError(t, err, string(out))
	return &gitcmd{config: config.EmptyConfig(), rootdir: dir}
}

func TestGitQuery(t *testing.T) {
	c := newRepo(t)

	var output string
	require.NoError(t, c.Git("rev-parse --is-inside-work-tree", &output))
	assert.Equal(t, "true", output)

	assert.Error(t, c.Git("rev-parse --verify HEAD", nil))
}

func TestHasStagedChanges(t *testing.T) {
	c := newRepo(t)

	staged, err := git.HasStagedChanges(c)
	require.NoError(t, err)
	assert.False(t, staged)

	require.NoError(t, os.WriteFile(filepath.Join(c.rootdir, "engine.txt"), []byte("more power\n"), 0644))
	require.NoError(t, c.Git("add engine.txt", nil))

	staged, err = git.HasStagedChanges(c)
	require.NoError(t, err)
	assert.True(t, staged)
}

func TestSpawnUsesRootDir(t *testing.T) {
	c := newRepo(t)
	j, err := c.Spawn([]string{"rev-parse", "--show-toplevel"}, job.Config{SplitLines: true})
	require.NoError(t, err)
	require.True(t, job.Wait(j, 10*time.Second))
	require.Len(t, j.Output(), 1)

	expected, err := filepath.EvalSymlinks(c.rootdir)
	require.NoError(t, err)
	actual, err := filepath.EvalSymlinks(j.Output()[0])
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.Equal(t, c.rootdir, c.RootDir())
}
