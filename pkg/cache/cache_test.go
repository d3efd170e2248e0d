package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scala-steward/coursier/pkg/errors"
	"github.com/scala-steward/coursier/pkg/observability"
)

// artifactServer serves a body and its SHA-1 checksum, counting GETs per
// path.
type artifactServer struct {
	mu     sync.Mutex
	bodies map[string]string
	gets   map[string]int
	srv    *httptest.Server
}

func newArtifactServer(t *testing.T) *artifactServer {
	t.Helper()
	a := &artifactServer{
		bodies: make(map[string]string),
		gets:   make(map[string]int),
	}
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.gets[r.URL.Path]++
		body, ok := a.bodies[r.URL.Path]
		a.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(a.srv.Close)
	return a
}

// serve registers a body and a matching checksum file for path.
func (a *artifactServer) serve(path, body string) {
	sum := sha1.Sum([]byte(body))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bodies[path] = body
	a.bodies[path+".sha1"] = hex.EncodeToString(sum[:])
}

func (a *artifactServer) getCount(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gets[path]
}

func (a *artifactServer) url(path string) string { return a.srv.URL + path }

func TestFetchAndCacheHit(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/a-1.0.jar", "artifact bytes")
	c := New(t.TempDir())

	local, err := c.Fetch(context.Background(), srv.url("/a-1.0.jar"), FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(data) != "artifact bytes" {
		t.Errorf("content = %q", data)
	}

	// Second fetch under a non-Update policy must not touch the network.
	if _, err := c.Fetch(context.Background(), srv.url("/a-1.0.jar"), FetchOptions{}); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if n := srv.getCount("/a-1.0.jar"); n != 1 {
		t.Errorf("artifact GETs = %d, want 1", n)
	}
}

func TestFetchWritesChecksumSidecarBeforeFile(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/b.jar", "hello")
	c := New(t.TempDir())

	local, err := c.Fetch(context.Background(), srv.url("/b.jar"), FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	sum, err := os.ReadFile(local + ".sha1")
	if err != nil {
		t.Fatalf("checksum sidecar missing: %v", err)
	}
	want := sha1.Sum([]byte("hello"))
	if got := strings.TrimSpace(string(sum)); got != hex.EncodeToString(want[:]) {
		t.Errorf("sidecar = %q", got)
	}
	if _, err := os.Stat(local + ".part"); !os.IsNotExist(err) {
		t.Error(".part file left behind")
	}
	if _, err := os.Stat(local + ".lock"); !os.IsNotExist(err) {
		t.Error(".lock file left behind")
	}
}

func TestConcurrentFetchSingleFlight(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/big.jar", strings.Repeat("x", 1<<16))
	c := New(t.TempDir())

	const workers = 8
	var wg sync.WaitGroup
	var failures atomic.Int32
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local, err := c.Fetch(context.Background(), srv.url("/big.jar"), FetchOptions{})
			if err != nil {
				failures.Add(1)
				return
			}
			data, err := os.ReadFile(local)
			if err != nil || len(data) != 1<<16 {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n != 0 {
		t.Fatalf("%d workers failed", n)
	}
	if n := srv.getCount("/big.jar"); n != 1 {
		t.Errorf("artifact GETs = %d, want exactly 1", n)
	}
}

func TestChecksumMismatch(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/bad.jar", "body")
	srv.mu.Lock()
	srv.bodies["/bad.jar.sha1"] = strings.Repeat("0", 40) // wrong hash
	srv.mu.Unlock()

	c := New(t.TempDir())
	_, err := c.Fetch(context.Background(), srv.url("/bad.jar"), FetchOptions{})
	if !errors.Is(err, errors.ErrCodeChecksumMismatch) {
		t.Fatalf("err = %v, want CHECKSUM_MISMATCH", err)
	}

	local, _ := c.LocalPath(srv.url("/bad.jar"))
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Error("final file created despite checksum mismatch")
	}
	if _, err := os.Stat(local + ".part"); !os.IsNotExist(err) {
		t.Error(".part left behind after checksum mismatch")
	}
}

func TestMissingChecksumAccepted(t *testing.T) {
	srv := newArtifactServer(t)
	srv.mu.Lock()
	srv.bodies["/naked.jar"] = "no checksum upstream"
	srv.mu.Unlock()

	c := New(t.TempDir())
	local, err := c.Fetch(context.Background(), srv.url("/naked.jar"), FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !fileExists(local) {
		t.Error("artifact not cached")
	}
}

func TestLocalOnlyNotInCache(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Fetch(context.Background(), "https://repo.example.com/a.jar", FetchOptions{
		Policies: []Policy{LocalOnly},
	})
	if !errors.Is(err, errors.ErrCodeNotInCache) {
		t.Fatalf("err = %v, want NOT_IN_CACHE", err)
	}
}

func TestSnapshotRevalidation(t *testing.T) {
	body := "snapshot content"
	sum := sha1.Sum([]byte(body))
	var notModified atomic.Bool
	var conditionalSeen atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".sha1") {
			_, _ = fmt.Fprint(w, hex.EncodeToString(sum[:]))
			return
		}
		if r.Header.Get("If-Modified-Since") != "" {
			conditionalSeen.Store(true)
			if notModified.Load() {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		_, _ = fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := New(t.TempDir(), WithTTL(24*time.Hour))
	url := srv.URL + "/foo-1.0-SNAPSHOT.jar"

	local, err := c.Fetch(context.Background(), url, FetchOptions{Changing: true})
	if err != nil {
		t.Fatalf("initial Fetch failed: %v", err)
	}

	// Age the last probe beyond the TTL.
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(local+".lastCheck", old, old); err != nil {
		t.Fatalf("aging .lastCheck: %v", err)
	}

	notModified.Store(true)
	if _, err := c.Fetch(context.Background(), url, FetchOptions{Changing: true}); err != nil {
		t.Fatalf("revalidating Fetch failed: %v", err)
	}
	if !conditionalSeen.Load() {
		t.Error("no conditional request issued for stale changing artifact")
	}

	fi, err := os.Stat(local + ".lastCheck")
	if err != nil {
		t.Fatalf("stat .lastCheck: %v", err)
	}
	if time.Since(fi.ModTime()) > time.Minute {
		t.Error(".lastCheck not bumped after 304")
	}

	// Fresh again: no more upstream probes.
	conditionalSeen.Store(false)
	if _, err := c.Fetch(context.Background(), url, FetchOptions{Changing: true}); err != nil {
		t.Fatalf("fresh Fetch failed: %v", err)
	}
	if conditionalSeen.Load() {
		t.Error("probe issued while .lastCheck still fresh")
	}
}

func TestNonChangingSkipsRevalidation(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/stable.jar", "v1")
	c := New(t.TempDir())
	url := srv.url("/stable.jar")

	local, err := c.Fetch(context.Background(), url, FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	old := time.Now().Add(-72 * time.Hour)
	_ = os.Chtimes(local+".lastCheck", old, old)

	if _, err := c.Fetch(context.Background(), url, FetchOptions{}); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if n := srv.getCount("/stable.jar"); n != 1 {
		t.Errorf("GETs = %d, want 1 (non-changing URL must not revalidate)", n)
	}
}

func TestUpdatePolicyRedownloads(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/f.jar", "old")
	c := New(t.TempDir())
	url := srv.url("/f.jar")

	if _, err := c.Fetch(context.Background(), url, FetchOptions{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	srv.serve("/f.jar", "new")

	local, err := c.Fetch(context.Background(), url, FetchOptions{Policies: []Policy{Update}})
	if err != nil {
		t.Fatalf("forced Fetch failed: %v", err)
	}
	data, _ := os.ReadFile(local)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestFetchCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := New(t.TempDir())
	_, err := c.Fetch(ctx, srv.URL+"/slow.jar", FetchOptions{})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}

	local, _ := c.LocalPath(srv.URL + "/slow.jar")
	if _, err := os.Stat(local + ".part"); !os.IsNotExist(err) {
		t.Error(".part left behind after cancellation")
	}
}

func TestFetchEvents(t *testing.T) {
	srv := newArtifactServer(t)
	srv.serve("/ev.jar", "event payload")

	ev := &recordingEvents{}
	c := New(t.TempDir(), WithEvents(ev))
	if _, err := c.Fetch(context.Background(), srv.url("/ev.jar"), FetchOptions{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.started == 0 || ev.finished == 0 {
		t.Errorf("events = %+v, want started and finished", ev)
	}
	if ev.bytes != int64(len("event payload")) {
		t.Errorf("progress bytes = %d, want %d", ev.bytes, len("event payload"))
	}
}

type recordingEvents struct {
	mu       sync.Mutex
	started  int
	finished int
	failed   int
	bytes    int64
}

func (e *recordingEvents) Started(string) { e.mu.Lock(); e.started++; e.mu.Unlock() }
func (e *recordingEvents) Progress(url string, n int64) {
	// The checksum file is fetched through the same cache and reports
	// its own progress; only the artifact's bytes are recorded.
	if strings.HasSuffix(url, ".sha1") {
		return
	}
	e.mu.Lock()
	e.bytes = n
	e.mu.Unlock()
}
func (e *recordingEvents) Finished(string)      { e.mu.Lock(); e.finished++; e.mu.Unlock() }
func (e *recordingEvents) Failed(string, error) { e.mu.Lock(); e.failed++; e.mu.Unlock() }

type countingCacheHooks struct {
	mu        sync.Mutex
	hits      int
	misses    int
	downloads int
	bytes     int64
}

func (h *countingCacheHooks) OnHit(string)  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *countingCacheHooks) OnMiss(string) { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *countingCacheHooks) OnDownload(_ string, bytes int64, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.downloads++
	if err == nil {
		h.bytes += bytes
	}
}

type nopCacheHooks struct{}

func (nopCacheHooks) OnHit(string)                                   {}
func (nopCacheHooks) OnMiss(string)                                  {}
func (nopCacheHooks) OnDownload(string, int64, time.Duration, error) {}

func TestCacheObservabilityHooks(t *testing.T) {
	t.Cleanup(func() { observability.SetCacheHooks(nopCacheHooks{}) })
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)

	srv := newArtifactServer(t)
	srv.serve("/obs.jar", "observed payload")
	c := New(t.TempDir())
	url := srv.url("/obs.jar")

	if _, err := c.Fetch(context.Background(), url, FetchOptions{}); err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}
	if _, err := c.Fetch(context.Background(), url, FetchOptions{}); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	// First fetch: artifact miss+download plus its checksum sidecar
	// miss+download. Second fetch: one artifact hit, no network.
	if hooks.misses != 2 || hooks.downloads != 2 {
		t.Errorf("misses = %d, downloads = %d, want 2 each", hooks.misses, hooks.downloads)
	}
	if hooks.hits != 1 {
		t.Errorf("hits = %d, want 1", hooks.hits)
	}
	if hooks.bytes < int64(len("observed payload")) {
		t.Errorf("bytes = %d, want at least the artifact size", hooks.bytes)
	}
}

func TestLocalPathLayout(t *testing.T) {
	c := New("/cache")
	tests := []struct {
		url  string
		want string
	}{
		{
			"https://repo.example.com/org/name/1.0/name-1.0.jar",
			"/cache/https/repo.example.com/org/name/1.0/name-1.0.jar",
		},
		{
			"http://host:8080/a.jar",
			"/cache/http/host:8080/a.jar",
		},
		{
			"https://host/a.jar?version=2",
			"/cache/https/host/a.jar?q=" + "version%3D2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := c.LocalPath(tt.url)
			if err != nil {
				t.Fatalf("LocalPath failed: %v", err)
			}
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("LocalPath = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := c.LocalPath("not a url"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("invalid URL err = %v, want INVALID_INPUT", err)
	}
}

func TestParsePolicies(t *testing.T) {
	tests := []struct {
		in      string
		want    []Policy
		wantErr bool
	}{
		{"default", []Policy{LocalUpdateChanging, FetchMissing}, false},
		{"offline", []Policy{LocalOnly}, false},
		{"force", []Policy{Update}, false},
		{"missing", []Policy{FetchMissing}, false},
		{"update", []Policy{LocalUpdate, FetchMissing}, false},
		{"offline,missing", []Policy{LocalOnly, FetchMissing}, false},
		{"offline missing", []Policy{LocalOnly, FetchMissing}, false},
		{"", []Policy{LocalUpdateChanging, FetchMissing}, false},
		{"bogus", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicies(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePolicies failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("policy[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
