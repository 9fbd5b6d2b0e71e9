package config_parser

import (
	"os"
	"path"
	"path/filepath"

	"github.com/ejoffe/rake"
	"github.com/ejoffe/sprcommit/config"
	"github.com/ejoffe/sprcommit/git"
	"github.com/rs/zerolog/log"
)

// ParseConfig layers defaults, the user config and the repository config.
func ParseConfig(gitcmd git.GitInterface) *config.Config {
	cfg := config.EmptyConfig()

	rake.LoadSources(cfg.User,
		rake.DefaultSource(),
		rake.YamlFileSource(UserConfigFilePath()),
		rake.YamlFileSource(RepoConfigFilePath(gitcmd)),
	)

	rake.LoadSources(cfg.Internal,
		rake.DefaultSource(),
		rake.YamlFileSource(InternalConfigFilePath()),
	)

	cfg.Internal.RunCount = cfg.Internal.RunCount + 1

	rake.LoadSources(cfg.Internal,
		rake.YamlFileWriter(InternalConfigFilePath()))

	log.Debug().Interface("user", cfg.User).Int("runCount", cfg.Internal.RunCount).Msg("config")
	return cfg
}

func RepoConfigFilePath(gitcmd git.GitInterface) string {
	rootdir := gitcmd.RootDir()
	filepath := filepath.Clean(path.Join(rootdir, ".spr-commit.yml"))
	return filepath
}

func UserConfigFilePath() string {
	rootdir, err := os.UserHomeDir()
	check(err)
	filepath := filepath.Clean(path.Join(rootdir, ".spr-commit.yml"))
	return filepath
}

func InternalConfigFilePath() string {
	rootdir, err := os.UserHomeDir()
	check(err)
	filepath := filepath.Clean(path.Join(rootdir, ".spr-commit.state"))
	return filepath
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
