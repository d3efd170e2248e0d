package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/scala-steward/coursier/pkg/errors"
)

// keyedMutex serializes in-process access per cache path.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// fileLock is an advisory cross-process lock on a ".lock" companion
// file. The lock file records the holder's pid and a random token for
// diagnostics; its content carries no semantics.
type fileLock struct {
	f    *os.File
	path string
}

// acquireFileLock takes an exclusive advisory lock, creating the lock
// file and its parents as needed. With block unset, a held lock fails
// immediately instead of waiting.
func acquireFileLock(path string, block bool) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransport, err, "creating lock dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransport, err, "opening lock file %s", path)
	}

	how := syscall.LOCK_EX
	if !block {
		how |= syscall.LOCK_NB
	}
	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(errors.ErrCodeTransport, err, "locking %s", path)
	}

	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d %s\n", os.Getpid(), uuid.NewString())
	return &fileLock{f: f, path: path}, nil
}

// Release drops the lock and removes the lock file.
func (l *fileLock) Release() {
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	_ = os.Remove(l.path)
}
