package sidecar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Launcher is a validated command capable of running the scanner package:
// the executable plus any leading arguments ("uv tool run" style).
type Launcher struct {
	Command string
	Args    []string
}

// ErrLauncherNotFound means no usable launcher was found after exhausting
// every resolution strategy for both the primary and secondary commands.
var ErrLauncherNotFound = errors.New("no scanner launcher found: install uv (https://docs.astral.sh/uv/) so the analysis sidecar can be started")

const probeTimeout = 5 * time.Second

// Resolver locates an executable able to run the analysis service package.
type Resolver interface {
	Resolve() (Launcher, error)
}

// NewResolver returns the default layered resolver. override, when non-empty,
// is tried first as an explicit launcher path from configuration.
func NewResolver(override string, logger *slog.Logger) Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &launcherResolver{override: override, logger: logger}
}

type launcherResolver struct {
	override string
	logger   *slog.Logger

	// installDirs, when non-nil, replaces the platform's well-known
	// install directories (used by tests).
	installDirs []string
}

// Resolve tries the primary command first, then falls back to the secondary
// run-without-installing form, so users with only `uv` on PATH still succeed.
func (r *launcherResolver) Resolve() (Launcher, error) {
	if cmd, ok := r.search("uvx"); ok {
		return Launcher{Command: cmd}, nil
	}
	if cmd, ok := r.search("uv"); ok {
		return Launcher{Command: cmd, Args: []string{"tool", "run"}}, nil
	}
	return Launcher{}, ErrLauncherNotFound
}

// search runs the layered candidate strategies in order and returns the
// first candidate that actually executes cleanly.
func (r *launcherResolver) search(name string) (string, bool) {
	for _, candidate := range r.candidates(name) {
		if candidate == "" {
			continue
		}
		if r.probe(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// candidates produces the ordered resolution strategies: config override,
// bare command name, well-known install directories, every PATH directory,
// and finally the platform's locate utility.
func (r *launcherResolver) candidates(name string) []string {
	var out []string

	if r.override != "" {
		out = append(out, r.override)
	}
	out = append(out, name)

	dirs := r.installDirs
	if dirs == nil {
		home, _ := os.UserHomeDir()
		dirs = wellKnownDirs(home)
	}
	for _, dir := range dirs {
		for _, suffix := range executableSuffixes() {
			out = append(out, filepath.Join(dir, name+suffix))
		}
	}

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		for _, suffix := range executableSuffixes() {
			out = append(out, filepath.Join(dir, name+suffix))
		}
	}

	out = append(out, locate(name)...)
	return out
}

// probe validates a candidate by invoking it with a version flag and
// requiring a clean exit. A stale or non-executable match fails here and is
// skipped silently; a hung candidate is cut off by the timeout.
func (r *launcherResolver) probe(candidate string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, candidate, "--version").Run(); err != nil {
		r.logger.Debug("launcher candidate rejected", "candidate", candidate, "error", err)
		return false
	}
	return true
}

func wellKnownDirs(home string) []string {
	if runtime.GOOS == "windows" {
		local := os.Getenv("LOCALAPPDATA")
		var dirs []string
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "bin"))
		}
		if local != "" {
			dirs = append(dirs, filepath.Join(local, "Programs", "uv"))
		}
		return dirs
	}
	dirs := []string{"/usr/local/bin", "/opt/homebrew/bin"}
	if home != "" {
		dirs = append([]string{filepath.Join(home, ".local", "bin"), filepath.Join(home, ".cargo", "bin")}, dirs...)
	}
	return dirs
}

func executableSuffixes() []string {
	if runtime.GOOS == "windows" {
		return []string{".exe", ".cmd", ".bat"}
	}
	return []string{""}
}

// locate asks the system lookup utility for the command, one invocation form
// per platform. Output may span several lines (Windows `where` lists every
// match); each line becomes a candidate.
func locate(name string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "where", name)
	} else {
		cmd = exec.CommandContext(ctx, "which", name)
	}
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}

// String is the human-readable invocation form, for logs.
func (l Launcher) String() string {
	if len(l.Args) == 0 {
		return l.Command
	}
	return fmt.Sprintf("%s %s", l.Command, strings.Join(l.Args, " "))
}
