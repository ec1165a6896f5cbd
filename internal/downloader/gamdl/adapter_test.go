package gamdl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/downloader"
	"github.com/tinoosan/tunebridge/internal/metrics"
	"github.com/tinoosan/tunebridge/internal/parser"
)

// TestHelperProcess stands in for gamdl when the adapter re-executes the
// test binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("GAMDL_HELPER_MODE") {
	case "album":
		fmt.Println("Checking for updates...")
		fmt.Println("track 1/2 9 started")
		fmt.Print("progress 10%\rprogress 50%\n")
		fmt.Println("track 1/2 completed")
		fmt.Fprintln(os.Stderr, "track 2/2 10 started")
		fmt.Println("progress 100%")
		fmt.Println("track 2/2 completed")
		os.Exit(0)
	case "long-line":
		fmt.Println(strings.Repeat("#", 2<<20))
		fmt.Println("track 1/1 a started")
		fmt.Println("track 1/1 completed")
		os.Exit(0)
	case "silent-fail":
		os.Exit(3)
	case "args":
		fmt.Println(strings.Join(helperArgs(), " "))
		os.Exit(0)
	}
	os.Exit(0)
}

func helperArgs() []string {
	for i, a := range os.Args {
		if a == "--" {
			return os.Args[i+1:]
		}
	}
	return nil
}

func newTestAdapter(t *testing.T, mode string, opts Options) (*Adapter, chan downloader.Event) {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("GAMDL_HELPER_MODE", mode)
	opts.Tool = os.Args[0]
	opts.BaseArgs = []string{"-test.run=^TestHelperProcess$", "--"}
	ch := make(chan downloader.Event, 64)
	a := NewAdapter(opts, downloader.NewChanReporter(ch))
	a.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return a, ch
}

func drain(ch chan downloader.Event) []downloader.Event {
	var out []downloader.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestStartReportsLinesInOrderThenExit(t *testing.T) {
	dir := t.TempDir()
	a, ch := newTestAdapter(t, "album", Options{ProgressDir: dir})
	job := &data.Job{ID: "album-123-abc", Codec: "alac", Targets: []string{"https://music.apple.com/us/album/123?i=9"}}

	pid, err := a.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid = %d", pid)
	}
	a.Wait()

	var types []downloader.EventType
	for _, e := range drain(ch) {
		if e.ID != job.ID {
			t.Fatalf("event for wrong job: %+v", e)
		}
		types = append(types, e.Type)
	}
	want := []downloader.EventType{
		downloader.EventStart,
		downloader.EventTrackStart,
		downloader.EventProgress,
		downloader.EventProgress,
		downloader.EventTrackDone,
		downloader.EventTrackStart,
		downloader.EventProgress,
		downloader.EventTrackDone,
		downloader.EventExit,
	}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("events = %v\nwant %v", types, want)
	}
	if a.Active() != 0 {
		t.Fatalf("active = %d after exit", a.Active())
	}

	raw, err := os.ReadFile(filepath.Join(dir, "download_"+job.ID+".log"))
	if err != nil {
		t.Fatalf("read output log: %v", err)
	}
	if !strings.Contains(string(raw), "track 1/2 9 started") || !strings.Contains(string(raw), "Checking for updates...") {
		t.Fatalf("output log missing lines:\n%s", raw)
	}
}

func TestStartSurvivesOverlongOutputLine(t *testing.T) {
	a, ch := newTestAdapter(t, "long-line", Options{})
	if _, err := a.Start(context.Background(), &data.Job{ID: "j"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	a.Wait()

	var types []downloader.EventType
	var exit *downloader.Exit
	for _, e := range drain(ch) {
		types = append(types, e.Type)
		if e.Type == downloader.EventExit {
			exit = e.Exit
		}
	}
	want := []downloader.EventType{downloader.EventStart, downloader.EventTrackStart, downloader.EventTrackDone, downloader.EventExit}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("events = %v\nwant %v", types, want)
	}
	if exit == nil || exit.Code != 0 || exit.Err != nil {
		t.Fatalf("tool did not exit cleanly: %+v", exit)
	}
}

func TestStartAfterCloseIsRefused(t *testing.T) {
	a, ch := newTestAdapter(t, "album", Options{})
	a.Close()
	if _, err := a.Start(context.Background(), &data.Job{ID: "j"}); !errors.Is(err, data.ErrShuttingDown) {
		t.Fatalf("start after close = %v", err)
	}
	a.Wait()
	if n := len(drain(ch)); n != 0 {
		t.Fatalf("refused start reported %d events", n)
	}
}

func TestPeerJobsRebuildFinishedJob(t *testing.T) {
	dir := t.TempDir()
	owner, _ := newTestAdapter(t, "album", Options{ProgressDir: dir})
	job := &data.Job{ID: "album-123-abc", Resource: "album:123", Status: data.StatusStarting}
	if _, err := owner.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}
	owner.Wait()

	other := NewAdapter(Options{ProgressDir: dir}, nil)
	peers, err := other.PeerJobs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(peers) != 1 {
		t.Fatalf("peers = %v", peers)
	}
	j := peers[0]
	if j.ID != job.ID || j.Resource != "album:123" || j.PID <= 0 {
		t.Fatalf("peer job = %+v", j)
	}
	if j.Status != data.StatusComplete || j.Progress.Completed != 2 || j.Progress.Total != 2 {
		t.Fatalf("rebuilt progress = %+v status %s", j.Progress, j.Status)
	}

	if err := other.Forget(context.Background(), job.ID); err != nil {
		t.Fatal(err)
	}
	if peers, _ := other.PeerJobs(context.Background()); len(peers) != 0 {
		t.Fatalf("forgotten job still listed: %v", peers)
	}
}

func TestPeerJobsStates(t *testing.T) {
	dir := t.TempDir()
	a := NewAdapter(Options{ProgressDir: dir}, nil)
	write := func(id string, pid int, exit *exitState) {
		t.Helper()
		st := jobState{Job: &data.Job{ID: id, Status: data.StatusStarting}, PID: pid, Exit: exit}
		if err := writeState(a.statePath(id), st); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(a.logPath("live"), []byte("track 2/5 x started\r\n[download]  40% of 1MiB\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	write("live", os.Getpid(), nil)
	write("vanished", 1<<30, nil)
	write("stale", 1, &exitState{Code: 0, At: time.Now().Add(-2 * time.Hour)})

	peers, err := a.PeerJobs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]*data.Job{}
	for _, j := range peers {
		byID[j.ID] = j
	}
	if len(byID) != 2 {
		t.Fatalf("peers = %v", peers)
	}
	live := byID["live"]
	if live == nil || !live.Alive() || live.Status != data.StatusRunning || live.Progress.Current != 2 || live.Progress.Percent != 40 {
		t.Fatalf("live = %+v", live)
	}
	gone := byID["vanished"]
	if gone == nil || gone.Status != data.StatusFailed || len(gone.Errors) != 1 {
		t.Fatalf("vanished = %+v", gone)
	}
	if _, err := os.Stat(a.statePath("stale")); !os.IsNotExist(err) {
		t.Fatalf("stale record kept: %v", err)
	}
}

func TestPinnedParserIgnoresOtherFormats(t *testing.T) {
	a, ch := newTestAdapter(t, "album", Options{})
	a.SetParser(parser.New(parser.GamdlV2))
	if _, err := a.Start(context.Background(), &data.Job{ID: "j"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	a.Wait()
	// the helper prints plain/1 lines only
	if n := len(drain(ch)); n != 2 {
		t.Fatalf("events = %d want Start and Exit only", n)
	}
}

func TestStartNonZeroExit(t *testing.T) {
	a, ch := newTestAdapter(t, "silent-fail", Options{})
	if _, err := a.Start(context.Background(), &data.Job{ID: "j"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	a.Wait()
	events := drain(ch)
	last := events[len(events)-1]
	if last.Type != downloader.EventExit || last.Exit == nil {
		t.Fatalf("last event = %+v", last)
	}
	if last.Exit.Code != 3 || last.Exit.Err != nil {
		t.Fatalf("exit = %+v", last.Exit)
	}
}

func TestStartPassesCodecAndTargets(t *testing.T) {
	a, ch := newTestAdapter(t, "args", Options{})
	job := &data.Job{ID: "j", Codec: "alac", Targets: []string{"u1", "u2"}}
	if _, err := a.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}
	a.Wait()
	got := a.args(job)
	want := []string{"-test.run=^TestHelperProcess$", "--", "--song-codec", "alac", "--use-wrapper", "u1", "u2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v want %v", got, want)
	}
	// the helper echoes unrecognised text, so only Start and Exit surface
	if n := len(drain(ch)); n != 2 {
		t.Fatalf("events = %d want 2", n)
	}
}

func TestStartToolMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PATH", t.TempDir())
	a := NewAdapter(Options{Tool: filepath.Join(t.TempDir(), "gamdl")}, nil)
	if _, err := os.Stat("/usr/local/bin/gamdl"); err == nil {
		t.Skip("gamdl installed system-wide")
	}
	if _, err := os.Stat("/opt/homebrew/bin/gamdl"); err == nil {
		t.Skip("gamdl installed system-wide")
	}

	before := testutil.ToFloat64(metrics.Launches.WithLabelValues(metrics.LaunchNotFound))
	_, err := a.Start(context.Background(), &data.Job{ID: "j"})
	var le *data.LaunchError
	if !errors.As(err, &le) || !errors.Is(err, data.ErrToolNotFound) {
		t.Fatalf("expected LaunchError wrapping ErrToolNotFound, got %v", err)
	}
	if err := a.Ping(context.Background()); !errors.Is(err, data.ErrToolNotFound) {
		t.Fatalf("ping = %v", err)
	}
	if got := testutil.ToFloat64(metrics.Launches.WithLabelValues(metrics.LaunchNotFound)); got != before+1 {
		t.Fatalf("not_found launches = %v want %v", got, before+1)
	}
}

func TestStartExecFailure(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "gamdl")
	if err := os.WriteFile(bad, []byte("not a program"), 0o755); err != nil {
		t.Fatal(err)
	}
	a := NewAdapter(Options{Tool: bad}, nil)
	_, err := a.Start(context.Background(), &data.Job{ID: "j"})
	if !data.IsLaunchError(err) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
	if a.Active() != 0 {
		t.Fatalf("failed launch left an active process")
	}
}

func TestExitOf(t *testing.T) {
	if e := exitOf(nil); e.Code != 0 || e.Err != nil {
		t.Fatalf("nil: %+v", e)
	}
	waitErr := errors.New("wait: no child processes")
	if e := exitOf(waitErr); e.Code != -1 || !errors.Is(e.Err, waitErr) {
		t.Fatalf("wait error: %+v", e)
	}
}

func TestEnvPrependsExtraPath(t *testing.T) {
	t.Setenv("PATH", "/orig/bin")
	a := NewAdapter(Options{ExtraPath: []string{"/custom/bin"}}, nil)
	var path string
	for _, kv := range a.env() {
		if strings.HasPrefix(kv, "PATH=") {
			if path != "" {
				t.Fatalf("duplicate PATH entries")
			}
			path = strings.TrimPrefix(kv, "PATH=")
		}
	}
	dirs := filepath.SplitList(path)
	if dirs[0] != "/custom/bin" {
		t.Fatalf("PATH = %s", path)
	}
	if dirs[len(dirs)-1] != "/orig/bin" {
		t.Fatalf("original PATH not kept last: %s", path)
	}
}

func TestCleanupLogs(t *testing.T) {
	dir := t.TempDir()
	a := NewAdapter(Options{ProgressDir: dir}, nil)
	old := filepath.Join(dir, "download_old.log")
	fresh := filepath.Join(dir, "download_new.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if n := a.cleanupLogs(time.Now().Add(-time.Hour)); n != 1 {
		t.Fatalf("removed %d want 1", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old log still present")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s removed: %v", p, err)
		}
	}
}
