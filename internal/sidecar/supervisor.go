// Package sidecar supervises the local analysis service: it discovers,
// health-checks, lazily starts, reuses, and tears down one scanner process
// per host process, or defers to a user-configured external endpoint.
package sidecar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// scannerPackage is the analysis service package the launcher runs,
	// e.g. `uvx skillscan server --port 8000`.
	scannerPackage   = "skillscan"
	serverSubcommand = "server"

	// DefaultPort is where a managed sidecar listens unless configured.
	DefaultPort = 8000

	healthTimeout  = 3 * time.Second
	healthInterval = 500 * time.Millisecond
	startupTimeout = 30 * time.Second
)

// Config selects between an external endpoint (never spawned or killed here)
// and a managed process on the given port.
type Config struct {
	// ExternalURL, when set, is a user-operated scanner endpoint. The
	// supervisor only health-checks it and never owns any process.
	ExternalURL string

	// Port is where a managed sidecar listens. Zero means DefaultPort.
	Port int

	// Launcher overrides resolver discovery with an explicit executable.
	Launcher string
}

// Supervisor is the process-wide lifecycle state machine. It owns at most
// one managed scanner process at a time; callers only ever receive a URL.
type Supervisor struct {
	cfg      Config
	logger   *slog.Logger
	resolver Resolver
	health   *http.Client

	// group collapses concurrent start attempts into one: callers that
	// arrive while a spawn is in flight wait for the same outcome.
	group singleflight.Group

	mu   sync.Mutex
	proc *exec.Cmd // nil unless a managed process is believed running
	url  string    // endpoint when ready (managed or adopted)

	// start is the managed-start path, replaceable in tests.
	start func(ctx context.Context) (string, error)
}

// New builds a supervisor. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Supervisor {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		cfg:      cfg,
		logger:   logger,
		resolver: NewResolver(cfg.Launcher, logger),
		health:   &http.Client{Timeout: healthTimeout},
	}
	s.start = s.startManaged
	return s
}

// EnsureEndpoint returns the base URL of a healthy scanner endpoint, or ""
// when none could be made available. It never returns an error: failure to
// provide an endpoint is an expected condition the caller folds into its
// result.
func (s *Supervisor) EnsureEndpoint(ctx context.Context) string {
	// External mode: re-check health on every call, never spawn.
	if s.cfg.ExternalURL != "" {
		if s.healthy(ctx, s.cfg.ExternalURL) {
			return s.cfg.ExternalURL
		}
		s.logger.Warn("configured scanner endpoint is not responding", "url", s.cfg.ExternalURL)
		return ""
	}

	// Reuse the held endpoint if it is still healthy; kill a managed
	// process that stopped answering so a fresh start can follow.
	if url := s.currentEndpoint(); url != "" {
		if s.healthy(ctx, url) {
			return url
		}
		s.logger.Warn("scanner sidecar became unhealthy, discarding", "url", url)
		s.dropCurrent()
	}

	result, err, _ := s.group.Do("start", func() (any, error) {
		return s.start(ctx)
	})
	if err != nil {
		s.logger.Error("failed to start scanner sidecar", "error", err)
		return ""
	}
	return result.(string)
}

// Shutdown terminates a managed process if one exists. Safe to call more
// than once; meant for host-process exit, including signal-triggered exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil && s.proc.Process != nil {
		s.logger.Info("stopping scanner sidecar", "pid", s.proc.Process.Pid)
		kill(s.proc.Process)
	}
	s.proc = nil
	s.url = ""
}

func (s *Supervisor) currentEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Supervisor) dropCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil && s.proc.Process != nil {
		kill(s.proc.Process)
	}
	s.proc = nil
	s.url = ""
}

func (s *Supervisor) managedURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.cfg.Port)
}

// startManaged brings up a managed sidecar: adopt anything already healthy
// on the target port, otherwise resolve a launcher, spawn the scanner, and
// poll its health endpoint until it answers or the startup deadline passes.
func (s *Supervisor) startManaged(ctx context.Context) (string, error) {
	url := s.managedURL()

	// Something started out-of-band on our port is adopted, not respawned.
	if s.healthy(ctx, url) {
		s.logger.Info("adopting scanner already listening", "url", url)
		s.setReady(nil, url)
		return url, nil
	}

	launcher, err := s.resolver.Resolve()
	if err != nil {
		return "", err
	}

	args := append(append([]string{}, launcher.Args...),
		scannerPackage, serverSubcommand, "--port", strconv.Itoa(s.cfg.Port))
	cmd := exec.Command(launcher.Command, args...)
	cmd.SysProcAttr = sysProcAttr()

	s.forwardOutput(cmd)

	s.logger.Info("starting scanner sidecar", "launcher", launcher.String(), "port", s.cfg.Port)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("spawn scanner: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	deadline := time.NewTimer(startupTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-exited:
			return "", fmt.Errorf("scanner exited during startup: %w", err)
		case <-deadline.C:
			kill(cmd.Process)
			<-exited
			return "", fmt.Errorf("scanner did not become healthy within %s", startupTimeout)
		case <-ctx.Done():
			kill(cmd.Process)
			<-exited
			return "", ctx.Err()
		case <-ticker.C:
			if s.healthy(ctx, url) {
				s.setReady(cmd, url)
				go s.watchExit(cmd, exited)
				return url, nil
			}
		}
	}
}

func (s *Supervisor) setReady(cmd *exec.Cmd, url string) {
	s.mu.Lock()
	s.proc = cmd
	s.url = url
	s.mu.Unlock()
}

// watchExit resets state to idle when the managed process dies on its own,
// so the next call starts a fresh one instead of reusing a dead handle.
func (s *Supervisor) watchExit(cmd *exec.Cmd, exited <-chan error) {
	err := <-exited
	s.logger.Warn("scanner sidecar exited", "error", err)
	s.mu.Lock()
	if s.proc == cmd {
		s.proc = nil
		s.url = ""
	}
	s.mu.Unlock()
}

// forwardOutput streams the child's stdout and stderr into the log so
// scanner diagnostics end up next to ours.
func (s *Supervisor) forwardOutput(cmd *exec.Cmd) {
	stdout, err := cmd.StdoutPipe()
	if err == nil {
		go s.logLines(stdout, "stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err == nil {
		go s.logLines(stderr, "stderr")
	}
}

func (s *Supervisor) logLines(r io.Reader, stream string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug("scanner sidecar output", "stream", stream, "line", scanner.Text())
	}
}

// healthy reports whether base answers its health endpoint with a 2xx.
// Transport failures of any kind count as unhealthy.
func (s *Supervisor) healthy(ctx context.Context, base string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.health.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
