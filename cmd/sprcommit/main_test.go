package main

import (
	"testing"

	"github.com/ejoffe/sprcommit/git"
	"github.com/ejoffe/sprcommit/git/mockgit"
	"github.com/stretchr/testify/assert"
)

func TestPreflight(t *testing.T) {
	mock := mockgit.NewMockGit(t)
	mock.ExpectStaged()
	mock.ExpectStaged("engine.go")

	assert.Error(t, preflight(mock, git.CommitOptions{}))
	assert.NoError(t, preflight(mock, git.CommitOptions{}))
	assert.NoError(t, preflight(mock, git.CommitOptions{All: true}))
	assert.NoError(t, preflight(mock, git.CommitOptions{AllowEmpty: true}))

	// the mock root is not a repository
	assert.Error(t, preflight(mock, git.CommitOptions{Amend: true}))
	mock.ExpectationsMet()
}
