package adapters

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/ports"
)

const cacheLockRetryDelay = 250 * time.Millisecond

// FileCacheLock guards the Cargo home with an advisory file lock, the
// same mechanism cargo uses for its own package cache.
type FileCacheLock struct {
	RetryDelay time.Duration
}

func NewFileCacheLock() FileCacheLock {
	return FileCacheLock{RetryDelay: cacheLockRetryDelay}
}

func (l FileCacheLock) Acquire(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, ioError("failed to create cache lock directory", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, ioError("failed to lock "+path, err)
	}
	if !locked {
		log.Info().Str("lock", path).Msg("Blocking waiting for file lock on package cache")
		delay := l.RetryDelay
		if delay <= 0 {
			delay = cacheLockRetryDelay
		}
		locked, err = lock.TryLockContext(ctx, delay)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("gave up waiting for package cache lock " + path).
				WithCause(err)
		}
		if !locked {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to lock " + path)
		}
	}
	log.Debug().Str("lock", path).Msg("acquired package cache lock")
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Str("lock", path).Msg("failed to release package cache lock")
		}
	}, nil
}

var _ ports.CacheLockPort = FileCacheLock{}
