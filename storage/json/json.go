package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mostafa-Hesham1/VirtCloud/lock"
	"github.com/Mostafa-Hesham1/VirtCloud/lock/flock"
	"github.com/Mostafa-Hesham1/VirtCloud/storage"
	"github.com/Mostafa-Hesham1/VirtCloud/utils"
)

var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

// Store provides flock-protected read/modify/write access to a JSON file.
// T is the top-level document stored in the file (exported fields with json
// tags). If *T implements storage.Initer, Init() is called after loading.
type Store[T any] struct {
	filePath string
	locker   lock.Locker
}

// New creates a Store persisting to filePath, guarded by the lock file at
// lockPath.
func New[T any](filePath, lockPath string) *Store[T] {
	return &Store[T]{filePath: filePath, locker: flock.New(lockPath)}
}

// With loads the JSON file under lock and passes the deserialized document
// to fn. A missing file yields a zero-value T. The lock is held for the
// duration of fn.
func (s *Store[T]) With(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		var data T
		raw, err := os.ReadFile(s.filePath) //nolint:gosec // engine metadata
		if err != nil {
			if os.IsNotExist(err) {
				initDoc(&data)
				return fn(&data)
			}
			return fmt.Errorf("read %s: %w", s.filePath, err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse %s: %w", s.filePath, err)
		}
		initDoc(&data)
		return fn(&data)
	})
}

// Update performs a read-modify-write on the JSON file under lock.
// If fn returns nil the document is atomically written back; if fn returns
// an error nothing is persisted.
func (s *Store[T]) Update(ctx context.Context, fn func(*T) error) error {
	return s.With(ctx, func(data *T) error {
		if err := fn(data); err != nil {
			return err
		}
		return utils.AtomicWriteJSON(s.filePath, data)
	})
}

func initDoc[T any](data *T) {
	if initer, ok := any(data).(storage.Initer); ok {
		initer.Init()
	}
}
