package realgit

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ejoffe/sprcommit/config"
	"github.com/ejoffe/sprcommit/git"
	"github.com/ejoffe/sprcommit/job"
	"github.com/rs/zerolog/log"
)

// queryTimeout bounds one-off git queries.
const queryTimeout = 30 * time.Second

// NewGitCmd returns a new git cmd instance rooted at the repository
// enclosing the current directory.
func NewGitCmd(cfg *config.Config) *gitcmd {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	rootdir, err := git.RepoRoot(cwd)
	if err != nil {
		panic(err)
	}

	return &gitcmd{
		config:  cfg,
		rootdir: rootdir,
	}
}

type gitcmd struct {
	config  *config.Config
	rootdir string
}

func (c *gitcmd) Git(argStr string, output *string) error {
	// runs a one-off git query
	//  if output is not nil it will be set to the stdout of the command
	j, err := c.Spawn(strings.Split(argStr, " "), job.Config{
		Env:        []string{"GIT_EDITOR=true"},
		SplitLines: true,
	})
	if err != nil {
		return err
	}
	if !job.Wait(j, queryTimeout) {
		return fmt.Errorf("git %s: no exit after %s", argStr, queryTimeout)
	}

	if output != nil {
		*output = strings.TrimSpace(strings.Join(j.Output(), "\n"))
	}
	if j.ExitCode() != 0 {
		errOutput := strings.Join(j.ErrorOutput(), "\n")
		fmt.Fprintf(os.Stderr, "git error: %s\n", errOutput)
		return fmt.Errorf("git %s: exit status %d", argStr, j.ExitCode())
	}
	return nil
}

func (c *gitcmd) Spawn(args []string, cfg job.Config) (*job.Job, error) {
	log.Debug().Msg("git " + strings.Join(args, " "))
	if c.config.User.LogGitCommands {
		fmt.Printf("> git %s\n", strings.Join(args, " "))
	}
	if cfg.Dir == "" {
		cfg.Dir = c.rootdir
	}
	return job.Spawn(append([]string{"git"}, args...), cfg)
}

func (c *gitcmd) RootDir() string {
	return c.rootdir
}
