package cache

import (
	"time"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// lockTimeout is the fixed advisory-lock acquisition budget for store/remove
// operations (spec §4.4, §5).
const lockTimeout = 30 * time.Second

const lockPollInterval = 50 * time.Millisecond

// ErrLockTimeout is returned when a per-package-directory lock cannot be
// acquired within lockTimeout.
var ErrLockTimeout = errors.New("timed out acquiring package lock")

// packageLock is the advisory, cross-process lock guarding one package
// directory's store/remove critical section. go-flock's TryLock/Lock/Unlock
// API (this vendored version predates any context-aware variant) forces the
// timeout to be implemented as a poll loop rather than a single blocking
// call, mirrored here from first principles since go-flock is vendored
// but never wired into anything live upstream.
type packageLock struct {
	f *flock.Flock
}

// newPackageLock builds (but does not acquire) a lock over the file at
// lockPath.
func newPackageLock(lockPath string) *packageLock {
	return &packageLock{f: flock.NewFlock(lockPath)}
}

// acquire blocks until the lock is obtained or lockTimeout elapses, in
// which case it returns ErrLockTimeout.
func (l *packageLock) acquire() error {
	deadline := time.Now().Add(lockTimeout)
	for {
		ok, err := l.f.TryLock()
		if err != nil {
			return errors.Wrapf(err, "locking %s", l.f.Path())
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Wrapf(ErrLockTimeout, "%s", l.f.Path())
		}
		time.Sleep(lockPollInterval)
	}
}

func (l *packageLock) release() error {
	return l.f.Unlock()
}
