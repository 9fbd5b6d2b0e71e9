// Package watcher generates the shell program installed as the external
// command's editor. The program announces a value on stdout and then blocks
// until a sentinel file appears next to its prefix.
package watcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultPollInterval is how often the script checks for the sentinel file.
const DefaultPollInterval = 100 * time.Millisecond

// FirstArg announces the first argument the script is invoked with, which is
// the file git hands to its editor.
const FirstArg = `"$1"`

// Config describes one watcher script.
type Config struct {
	// Prefix is a unique path prefix. The sentinel is Prefix + ".exit".
	Prefix string

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Announce is a shell word printed on the first line of output.
	//  Empty means FirstArg. Anything else is printed literally.
	Announce string
}

// SentinelPath returns the file whose existence releases the script.
func SentinelPath(prefix string) string {
	return prefix + ".exit"
}

// ScriptPath returns where the script for prefix is installed.
func ScriptPath(prefix string) string {
	return prefix + ".sh"
}

// EditorCommand returns a GIT_EDITOR value that runs the script at path.
func EditorCommand(path string) string {
	return "sh " + Quote(path)
}

// Script returns the script body for cfg.
func Script(cfg Config) string {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	announce := FirstArg
	if cfg.Announce != "" && cfg.Announce != FirstArg {
		announce = Quote(cfg.Announce)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#!/bin/sh\n")
	fmt.Fprintf(&b, "printf '%%s\\n' %s\n", announce)
	fmt.Fprintf(&b, "while [ ! -e %s ]; do\n", Quote(SentinelPath(cfg.Prefix)))
	fmt.Fprintf(&b, "\tsleep %s\n", seconds(interval))
	fmt.Fprintf(&b, "done\n")
	fmt.Fprintf(&b, "exit 0\n")
	return b.String()
}

// Quote single-quotes s for sh.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
