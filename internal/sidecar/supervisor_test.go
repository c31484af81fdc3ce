package sidecar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return port
}

func TestExternalEndpointHealthy(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	s := New(Config{ExternalURL: srv.URL}, testLogger())

	if got := s.EnsureEndpoint(context.Background()); got != srv.URL {
		t.Errorf("EnsureEndpoint = %q, want %q", got, srv.URL)
	}
}

func TestExternalEndpointUnhealthyNeverSpawns(t *testing.T) {
	srv := healthServer(t, http.StatusServiceUnavailable)
	s := New(Config{ExternalURL: srv.URL}, testLogger())
	s.start = func(context.Context) (string, error) {
		t.Error("start attempted in external mode")
		return "", nil
	}

	if got := s.EnsureEndpoint(context.Background()); got != "" {
		t.Errorf("EnsureEndpoint = %q, want empty", got)
	}
}

func TestAdoptExistingListener(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	s := New(Config{Port: serverPort(t, srv)}, testLogger())

	want := fmt.Sprintf("http://127.0.0.1:%d", s.cfg.Port)
	if got := s.EnsureEndpoint(context.Background()); got != want {
		t.Fatalf("EnsureEndpoint = %q, want %q", got, want)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		t.Error("adopted endpoint must not carry a process handle")
	}
	if s.url != want {
		t.Errorf("supervisor url = %q, want %q", s.url, want)
	}
}

func TestConcurrentEnsureSingleStart(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	s := New(Config{Port: 1}, testLogger()) // nothing listens on port 1

	var starts atomic.Int32
	endpoint := srv.URL
	s.start = func(context.Context) (string, error) {
		starts.Add(1)
		time.Sleep(200 * time.Millisecond)
		s.setReady(nil, endpoint)
		return endpoint, nil
	}

	const callers = 10
	results := make([]string, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = s.EnsureEndpoint(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	if n := starts.Load(); n != 1 {
		t.Errorf("start invoked %d times, want 1", n)
	}
	for i, got := range results {
		if got != endpoint {
			t.Errorf("caller %d got %q, want %q", i, got, endpoint)
		}
	}
}

func TestResolverMissReturnsEmptyWithoutSpawn(t *testing.T) {
	s := New(Config{Port: 1}, testLogger())
	s.resolver = resolverFunc(func() (Launcher, error) {
		return Launcher{}, ErrLauncherNotFound
	})

	if got := s.EnsureEndpoint(context.Background()); got != "" {
		t.Errorf("EnsureEndpoint = %q, want empty", got)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		t.Error("no process may be spawned when the launcher is missing")
	}
}

func TestUnhealthyEndpointReplaced(t *testing.T) {
	dead := healthServer(t, http.StatusInternalServerError)
	fresh := healthServer(t, http.StatusOK)

	s := New(Config{Port: 1}, testLogger())
	s.url = dead.URL
	s.start = func(context.Context) (string, error) {
		s.setReady(nil, fresh.URL)
		return fresh.URL, nil
	}

	if got := s.EnsureEndpoint(context.Background()); got != fresh.URL {
		t.Errorf("EnsureEndpoint = %q, want %q", got, fresh.URL)
	}
}

type resolverFunc func() (Launcher, error)

func (f resolverFunc) Resolve() (Launcher, error) { return f() }
