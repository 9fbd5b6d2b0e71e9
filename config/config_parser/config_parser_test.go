package config_parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ejoffe/sprcommit/git/mockgit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFilePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	mock := mockgit.NewMockGit(t)

	assert.Equal(t, filepath.Join(mock.RootDir(), ".spr-commit.yml"), RepoConfigFilePath(mock))
	assert.Equal(t, filepath.Join(home, ".spr-commit.yml"), UserConfigFilePath())
	assert.Equal(t, filepath.Join(home, ".spr-commit.state"), InternalConfigFilePath())
}

func TestParseConfigLayers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	mock := mockgit.NewMockGit(t)

	require.NoError(t, os.WriteFile(UserConfigFilePath(),
		[]byte("editor: hx\nhandshakeTimeoutMs: 9000\n"), 0644))
	require.NoError(t, os.WriteFile(RepoConfigFilePath(mock),
		[]byte("handshakeTimeoutMs: 200\nsignoff: true\n"), 0644))

	cfg := ParseConfig(mock)
	assert.Equal(t, "hx", cfg.User.Editor)
	assert.True(t, cfg.User.Signoff)
	assert.Equal(t, 200*time.Millisecond, cfg.HandshakeTimeout())
	assert.Equal(t, 1, cfg.Internal.RunCount)

	cfg = ParseConfig(mock)
	assert.Equal(t, 2, cfg.Internal.RunCount)
	assert.FileExists(t, InternalConfigFilePath())
}
