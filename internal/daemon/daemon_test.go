package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"chromaflow/internal/api"
	"chromaflow/internal/csvio"
	"chromaflow/internal/daemon"
	"chromaflow/internal/storeaccess"
	"chromaflow/internal/testsupport"
)

type runningDaemon struct {
	baseURL string
	cancel  context.CancelFunc
	done    chan error
	stopped bool
}

func startDaemon(t *testing.T, d *daemon.Daemon, listener net.Listener) *runningDaemon {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &runningDaemon{
		baseURL: "http://" + listener.Addr().String(),
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() { r.done <- d.Run(ctx) }()
	t.Cleanup(func() { r.stop(t) })
	return r
}

func (r *runningDaemon) stop(t *testing.T) {
	t.Helper()
	if r.stopped {
		return
	}
	r.stopped = true
	r.cancel()
	select {
	case err := <-r.done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func waitForState(t *testing.T, baseURL string, ok func(api.StateResponse) bool) api.StateResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var last api.StateResponse
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/state")
		if err == nil {
			var state api.StateResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&state)
			resp.Body.Close()
			if decodeErr == nil {
				last = state
				if ok(state) {
					return state
				}
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("state never matched, last %+v", last)
	return last
}

func newListener(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestDaemonSeedsEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoreDSN("memory://seed"), testsupport.WithSeedDemo(true))
	session, err := storeaccess.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("storeaccess.Open: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	listener := newListener(t)
	d, err := daemon.New(cfg, session.Bridge, nil, daemon.WithListener(listener))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	r := startDaemon(t, d, listener)

	want := len(csvio.Parse(csvio.SampleCSV))
	state := waitForState(t, r.baseURL, func(s api.StateResponse) bool { return s.Count == want })
	if !state.Dirty {
		t.Fatal("expected seeded items to be unsaved")
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}
}

func TestDaemonLoadsExistingItemsWithoutSeeding(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSeedDemo(true))
	remote := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedStore(t, remote, csvio.Parse("NO,ITEM\nA-1,BEAM\n"))

	session := storeaccess.WithRemote(remote, cfg.CachePath(), nil)
	listener := newListener(t)
	d, err := daemon.New(cfg, session.Bridge, nil, daemon.WithListener(listener))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	r := startDaemon(t, d, listener)

	state := waitForState(t, r.baseURL, func(s api.StateResponse) bool { return s.Count > 0 })
	if state.Count != 1 || state.Dirty {
		t.Fatalf("expected one clean item, got %+v", state)
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoreDSN("memory://lock"))
	session, err := storeaccess.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("storeaccess.Open: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	listener := newListener(t)
	first, err := daemon.New(cfg, session.Bridge, nil, daemon.WithListener(listener))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	r := startDaemon(t, first, listener)
	waitForState(t, r.baseURL, func(api.StateResponse) bool { return true })

	second, err := daemon.New(cfg, session.Bridge, nil, daemon.WithListener(newListener(t)))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Run(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestNewRequiresBridge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil); err == nil {
		t.Fatal("expected error without a bridge")
	}
}
