// Package cache implements the content-addressed download cache.
//
// Every remote URL maps to one file under the cache root
// (<root>/<scheme>/<host>/<path>) with sidecars next to it: ".sha1" holds
// the expected checksum, ".lastCheck" the last upstream freshness probe,
// ".lock" the cross-process advisory lock, and ".part" the in-flight
// download.
//
// # Single flight
//
// For a given (root, URL) pair at most one download proceeds at any
// instant, across goroutines and across processes. In-process callers
// collapse onto one transfer through a singleflight group and a keyed
// mutex; cross-process exclusion uses an advisory file lock. Waiters
// re-examine the cache state once the holder finishes, so a second
// caller after a successful fetch performs no network I/O under
// non-Update policies.
//
// # Atomicity
//
// Downloads stream to ".part", are fsynced, and are renamed into place
// only after checksum verification; the checksum sidecar is written
// before the rename, so any observer that sees the final file also sees
// its verified sidecar. Readers never need a lock: rename is atomic.
package cache

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scala-steward/coursier/pkg/httputil"
)

// DefaultTTL is how long a freshness probe of a changing URL stays
// valid.
const DefaultTTL = 24 * time.Hour

// Cache is the content-addressed download cache. It is safe for
// concurrent use.
type Cache struct {
	root      string
	ttl       time.Duration
	policies  []Policy
	dl         *httputil.Downloader
	retry      httputil.RetryConfig
	events     FetchEvents
	blockLock  bool
	reqTimeout time.Duration

	locks  *keyedMutex
	flight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the freshness TTL for changing URLs.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithPolicies sets the default policy chain.
func WithPolicies(policies ...Policy) Option {
	return func(c *Cache) { c.policies = policies }
}

// WithDownloader sets the transport.
func WithDownloader(d *httputil.Downloader) Option {
	return func(c *Cache) { c.dl = d }
}

// WithRetry sets the retry budget for transfers.
func WithRetry(cfg httputil.RetryConfig) Option {
	return func(c *Cache) { c.retry = cfg }
}

// WithEvents sets the progress event sink.
func WithEvents(ev FetchEvents) Option {
	return func(c *Cache) { c.events = ev }
}

// WithFailOnLockContention makes a held cross-process lock fail the
// fetch instead of waiting for the holder.
func WithFailOnLockContention() Option {
	return func(c *Cache) { c.blockLock = false }
}

// WithRequestTimeout bounds one URL's transfer wall-clock, retries
// included. Zero means no bound beyond the transport timeouts.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Cache) { c.reqTimeout = d }
}

// New creates a cache rooted at root.
func New(root string, opts ...Option) *Cache {
	c := &Cache{
		root:      root,
		ttl:       DefaultTTL,
		policies:  DefaultPolicies(),
		dl:        httputil.NewDownloader(),
		retry:     httputil.DefaultRetryConfig(),
		events:    NopEvents{},
		blockLock: true,
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// TTL returns the freshness TTL.
func (c *Cache) TTL() time.Duration { return c.ttl }

// FetchOptions adjust a single fetch.
type FetchOptions struct {
	// Changing marks the URL as mutable upstream (snapshots), subjecting
	// it to TTL revalidation under LocalUpdateChanging.
	Changing bool
	// Policies overrides the cache's default policy chain.
	Policies []Policy
	// Checksums is the verification preference order. Algorithm names
	// are tried in order; the empty string accepts the download without
	// verification. Defaults to ["sha1", ""].
	Checksums []string
}

// Fetch ensures the URL is materialized in the cache per the policy
// chain and returns its local path. Concurrent calls for the same URL
// collapse to one transfer.
func (c *Cache) Fetch(ctx context.Context, url string, opts FetchOptions) (string, error) {
	local, err := localPath(c.root, url)
	if err != nil {
		return "", err
	}
	_, err, _ = c.flight.Do(local, func() (any, error) {
		return nil, c.run(ctx, url, local, opts)
	})
	if err != nil {
		return "", err
	}
	return local, nil
}

// LocalPath returns where a URL lives in the cache without fetching it.
func (c *Cache) LocalPath(url string) (string, error) {
	return localPath(c.root, url)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
