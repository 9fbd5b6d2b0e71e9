package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ejoffe/profiletimer"
	"github.com/ejoffe/sprcommit/config"
	"github.com/ejoffe/sprcommit/config/config_parser"
	"github.com/ejoffe/sprcommit/editor"
	"github.com/ejoffe/sprcommit/git"
	"github.com/ejoffe/sprcommit/git/realgit"
	"github.com/ejoffe/sprcommit/hook"
	"github.com/ejoffe/sprcommit/pretty"
	"github.com/ejoffe/sprcommit/session"
	"github.com/ejoffe/sprcommit/terminal"
	flags "github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	version = "dev"
	commit  = "dversion"
	date    = "unknown"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !terminal.IsTerminal(os.Stderr),
	})
}

// command line opts
type opts struct {
	Debug       bool `short:"d" long:"debug" description:"Show runtime debug info."`
	Version     bool `short:"v" long:"version" description:"Show version info."`
	Amend       bool `long:"amend" description:"Amend the tip of the current branch."`
	All         bool `short:"a" long:"all" description:"Stage modified and deleted files before committing."`
	AllowEmpty  bool `long:"allow-empty" description:"Allow a commit without changes."`
	NoVerify    bool `short:"n" long:"no-verify" description:"Bypass the pre-commit and commit-msg hooks."`
	Signoff     bool `short:"s" long:"signoff" description:"Add a Signed-off-by trailer."`
	VerboseDiff bool `long:"verbose-diff" description:"Show the staged diff in the commit message template."`
	ShowConfig  bool `long:"show-config" description:"Print the effective configuration and exit."`
}

func main() {
	var opts opts
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.Parse()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("spr-commit version : %s : %s : %s\n", version, date, commit[:8])
		os.Exit(0)
	}

	if opts.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	gitcmd := realgit.NewGitCmd(config.DefaultConfig())
	cfg := config_parser.ParseConfig(gitcmd)
	gitcmd = realgit.NewGitCmd(cfg)

	if opts.ShowConfig {
		out, err := yaml.Marshal(cfg.User)
		check(err)
		fmt.Print(string(out))
		os.Exit(0)
	}

	commitOpts := git.CommitOptions{
		Amend:      opts.Amend,
		All:        opts.All,
		AllowEmpty: opts.AllowEmpty,
		NoVerify:   opts.NoVerify,
		Signoff:    opts.Signoff || cfg.User.Signoff,
		Verbose:    opts.VerboseDiff || cfg.User.VerboseDiff,
	}
	err = preflight(gitcmd, commitOpts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var timer profiletimer.Timer = profiletimer.StartNoopTimer()
	if opts.Debug {
		timer = profiletimer.StartProfileTimer()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := editor.NewTerminal(cfg.User.Editor, os.Stdin, os.Stdout, os.Stderr)
	manager := session.NewManager(gitcmd, host, timer)
	s, err := manager.Start(ctx, session.NewConfig(cfg, git.CommitArgs(commitOpts)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, err = host.Run(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("editor")
		s.Finalize(hook.Discarded)
	}
	<-s.Done()
	result := s.Result()

	for _, line := range result.Output {
		fmt.Println(line)
	}

	if opts.Debug {
		pretty.PrefixPrettyWriter(os.Stderr, "session", map[string]interface{}{
			"trigger":  result.Trigger.String(),
			"reaped":   result.Reaped,
			"exitCode": result.ExitCode,
			"prefix":   s.Prefix(),
			"path":     s.Path(),
		})
		err := timer.ShowResults()
		check(err)
	}

	if errors.Is(result.Err, session.ErrReapTimeout) {
		fmt.Fprintf(os.Stderr, "git is still running (pid %d)\n", s.Job().Pid())
		os.Exit(1)
	}
	os.Exit(result.ExitCode)
}

// preflight rejects commits git would refuse before opening an editor.
func preflight(gitcmd git.GitInterface, opts git.CommitOptions) error {
	if opts.Amend {
		hasHead, err := git.HasHead(gitcmd.RootDir())
		if err != nil {
			return err
		}
		if !hasHead {
			return errors.New("nothing to amend: the repository has no commits")
		}
		return nil
	}
	if opts.All || opts.AllowEmpty {
		return nil
	}
	staged, err := git.HasStagedChanges(gitcmd)
	if err != nil {
		return err
	}
	if !staged {
		return errors.New("nothing staged to commit (use \"git add\" or --all)")
	}
	return nil
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
