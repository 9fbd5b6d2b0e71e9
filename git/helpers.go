package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"
)

// ErrNotRepository is returned when no git repository encloses a directory.
var ErrNotRepository = errors.New("not a git repository")

// CommitOptions select the flags passed to git commit.
type CommitOptions struct {
	Amend      bool
	All        bool
	AllowEmpty bool
	NoVerify   bool
	Signoff    bool
	Verbose    bool
}

// CommitArgs returns the git arguments for a commit with opts.
func CommitArgs(opts CommitOptions) []string {
	args := []string{"commit"}
	if opts.Amend {
		args = append(args, "--amend")
	}
	if opts.All {
		args = append(args, "--all")
	}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	if opts.NoVerify {
		args = append(args, "--no-verify")
	}
	if opts.Signoff {
		args = append(args, "--signoff")
	}
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

// RepoRoot returns the top level directory of the repository enclosing dir.
func RepoRoot(dir string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return filepath.Clean(wt.Filesystem.Root()), nil
}

// HasHead returns true if the repository at root has at least one commit.
func HasHead(root string) (bool, error) {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return false, err
	}
	_, err = repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasStagedChanges returns true if the index differs from HEAD.
func HasStagedChanges(gitcmd GitInterface) (bool, error) {
	var output string
	err := gitcmd.Git("diff --cached --name-only", &output)
	if err != nil {
		return false, err
	}
	log.Debug().Str("staged", output).Msg("HasStagedChanges")
	return output != "", nil
}
