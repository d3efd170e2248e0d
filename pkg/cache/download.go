package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scala-steward/coursier/pkg/errors"
	"github.com/scala-steward/coursier/pkg/httputil"
	"github.com/scala-steward/coursier/pkg/observability"
)

// transferMode distinguishes why a download was decided.
type transferMode int

const (
	// modeIfMissing downloads only when the file is still absent after
	// the locks are held.
	modeIfMissing transferMode = iota
	// modeForce downloads unconditionally.
	modeForce
	// modeRevalidate issues a conditional request against the local
	// copy and replaces it on 200.
	modeRevalidate
)

// run evaluates the policy chain for one URL. Called under singleflight.
func (c *Cache) run(ctx context.Context, url, local string, opts FetchOptions) error {
	policies := opts.Policies
	if len(policies) == 0 {
		policies = c.policies
	}

	for _, p := range policies {
		switch p {
		case LocalOnly:
			if fileExists(local) {
				observability.Cache().OnHit(url)
				return nil
			}
			// No decision: a later policy may still download.
		case FetchMissing:
			if fileExists(local) {
				observability.Cache().OnHit(url)
				return nil
			}
			observability.Cache().OnMiss(url)
			return c.download(ctx, url, local, opts, modeIfMissing)
		case Update:
			observability.Cache().OnMiss(url)
			return c.download(ctx, url, local, opts, modeForce)
		case LocalUpdate, LocalUpdateChanging:
			if !fileExists(local) {
				observability.Cache().OnMiss(url)
				return c.download(ctx, url, local, opts, modeIfMissing)
			}
			if p == LocalUpdateChanging && !opts.Changing {
				observability.Cache().OnHit(url)
				return nil
			}
			if c.fresh(local) {
				observability.Cache().OnHit(url)
				return nil
			}
			observability.Cache().OnMiss(url)
			return c.download(ctx, url, local, opts, modeRevalidate)
		}
	}
	return errors.New(errors.ErrCodeNotInCache, "%s not in cache", url)
}

// fresh reports whether the last upstream probe is within the TTL.
func (c *Cache) fresh(local string) bool {
	fi, err := os.Stat(local + suffixLastCheck)
	return err == nil && time.Since(fi.ModTime()) < c.ttl
}

// download serializes on the in-process keyed mutex and the
// cross-process file lock, re-examines the cache state, then transfers.
func (c *Cache) download(ctx context.Context, url, local string, opts FetchOptions, mode transferMode) error {
	c.locks.Lock(local)
	defer c.locks.Unlock(local)

	fl, err := acquireFileLock(local+suffixLock, c.blockLock)
	if err != nil {
		return err
	}
	defer fl.Release()

	// Another goroutine or process may have finished the work while we
	// waited on the locks.
	switch mode {
	case modeIfMissing:
		if fileExists(local) {
			return nil
		}
	case modeRevalidate:
		if c.fresh(local) {
			return nil
		}
	}

	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}

	c.events.Started(url)
	start := time.Now()
	err = httputil.Retry(ctx, c.retry, func() error {
		return c.attempt(ctx, url, local, opts, mode)
	})
	if err != nil {
		switch {
		case ctx.Err() == context.Canceled && !errors.Is(err, errors.ErrCodeCancelled):
			err = errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "fetching %s", url)
		case ctx.Err() == context.DeadlineExceeded:
			err = errors.Wrap(errors.ErrCodeTransport, ctx.Err(), "request timeout fetching %s", url)
		}
		observability.Cache().OnDownload(url, 0, time.Since(start), err)
		c.events.Failed(url, err)
		return err
	}
	var size int64
	if fi, statErr := os.Stat(local); statErr == nil {
		size = fi.Size()
	}
	observability.Cache().OnDownload(url, size, time.Since(start), nil)
	c.events.Finished(url)
	return nil
}

// attempt performs one transfer try: request, stream to .part, verify,
// atomically rename. Retryable failures clean up .part and bubble out as
// RetryableError for the retry loop.
func (c *Cache) attempt(ctx context.Context, url, local string, opts FetchOptions, mode transferMode) error {
	req := httputil.Request{URL: url}
	if mode == modeRevalidate {
		if fi, err := os.Stat(local); err == nil {
			req.IfModifiedSince = fi.ModTime()
		}
		req.ETag = c.lastETag(local)
	}

	resp, err := c.dl.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.NotModified {
		c.bumpLastCheck(local, resp.ETag)
		return nil
	}
	defer resp.Body.Close()

	part := local + suffixPart
	if err := os.MkdirAll(filepath.Dir(part), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeTransport, err, "creating cache dir for %s", url)
	}
	f, err := os.Create(part)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTransport, err, "creating %s", part)
	}

	hash := sha1.New()
	if err := c.stream(ctx, url, resp.Body, io.MultiWriter(f, hash)); err != nil {
		_ = f.Close()
		_ = os.Remove(part)
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "fetching %s", url)
		}
		return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeTransport, err, "streaming %s", url)}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(part)
		return errors.Wrap(errors.ErrCodeTransport, err, "syncing %s", part)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(part)
		return errors.Wrap(errors.ErrCodeTransport, err, "closing %s", part)
	}

	computed := hex.EncodeToString(hash.Sum(nil))
	if err := c.verify(ctx, url, computed, opts, mode); err != nil {
		_ = os.Remove(part)
		return err
	}

	// The checksum sidecar (when one exists) is already in place; the
	// rename makes file and sidecar visible together.
	if err := os.Rename(part, local); err != nil {
		_ = os.Remove(part)
		return errors.Wrap(errors.ErrCodeTransport, err, "committing %s", local)
	}
	c.bumpLastCheck(local, resp.ETag)
	return nil
}

// stream copies body to w in chunks, reporting progress.
func (c *Cache) stream(ctx context.Context, url string, body io.Reader, w io.Writer) error {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			total += int64(n)
			c.events.Progress(url, total)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// verify checks the computed digest against the checksum preference
// list. The checksum file travels through the same cache pipeline, which
// leaves it in place as the ".sha1" sidecar of the artifact. A checksum
// that cannot be fetched demotes to the next list entry; the empty entry
// accepts the artifact unverified.
func (c *Cache) verify(ctx context.Context, url, computed string, opts FetchOptions, mode transferMode) error {
	checksums := opts.Checksums
	if len(checksums) == 0 {
		checksums = []string{"sha1", ""}
	}

	// A forced or revalidating transfer must not trust a stale sidecar.
	sumPolicies := []Policy{FetchMissing}
	if mode != modeIfMissing {
		sumPolicies = []Policy{Update}
	}

	var lastErr error
	for _, alg := range checksums {
		if alg == "" {
			return nil
		}
		sumLocal, err := c.Fetch(ctx, url+"."+alg, FetchOptions{
			Policies:  sumPolicies,
			Checksums: []string{""},
		})
		if err != nil {
			lastErr = err
			continue
		}
		data, err := os.ReadFile(sumLocal)
		if err != nil {
			lastErr = err
			continue
		}
		expected := firstToken(string(data))
		if !strings.EqualFold(expected, computed) {
			return errors.New(errors.ErrCodeChecksumMismatch,
				"%s: %s mismatch: expected %s, got %s", url, alg, expected, computed)
		}
		return nil
	}
	return errors.Wrap(errors.ErrCodeChecksumMismatch, lastErr,
		"%s: no checksum available and unverified downloads not allowed", url)
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// lastETag returns the entity tag recorded by the previous probe, if
// any. The ".lastCheck" sidecar's mtime is the TTL gate; its content is
// the last ETag seen.
func (c *Cache) lastETag(local string) string {
	data, err := os.ReadFile(local + suffixLastCheck)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// bumpLastCheck records a successful upstream probe.
func (c *Cache) bumpLastCheck(local, etag string) {
	path := local + suffixLastCheck
	if err := os.WriteFile(path, []byte(etag+"\n"), 0o644); err == nil {
		now := time.Now()
		_ = os.Chtimes(path, now, now)
	}
}
