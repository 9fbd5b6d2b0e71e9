package git

import "github.com/ejoffe/sprcommit/job"

type GitInterface interface {
	// Git runs a one-off query, output is set to its trimmed stdout.
	Git(args string, output *string) error

	// Spawn starts git with args in the background.
	Spawn(args []string, cfg job.Config) (*job.Job, error)

	RootDir() string
}
