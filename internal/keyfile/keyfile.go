package keyfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultDeleteConcurrency bounds how many files DeleteAll removes in parallel
// when the caller does not supply a positive limit.
const DefaultDeleteConcurrency = 4

// File is an externally owned diagnosis key file handed to the exposure engine.
type File interface {
	Name() string
	Delete() error
}

// OSFile is a File backed by a path on the local filesystem.
type OSFile struct {
	path string
}

// New returns a handle for the file at path. The file must exist.
func New(path string) (*OSFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("keyfile: path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keyfile: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("keyfile: %s is a directory", path)
	}
	return &OSFile{path: path}, nil
}

// Name returns the path of the file.
func (f *OSFile) Name() string {
	return f.path
}

// Delete removes the file from disk.
func (f *OSFile) Delete() error {
	return os.Remove(f.path)
}

// FailedDelete is one file DeleteAll could not remove.
type FailedDelete struct {
	Name string
	Err  error
}

// DeleteError reports the files DeleteAll could not remove. Handles sharing a
// name are reported separately.
type DeleteError struct {
	Failed []FailedDelete
}

func (e *DeleteError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("keyfile: failed to delete %d file(s): %s", len(e.Failed), strings.Join(names, ", "))
}

// Unwrap exposes the individual deletion errors to errors.Is / errors.As.
func (e *DeleteError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f.Err)
	}
	return out
}

// DeleteAll calls Delete exactly once on every non-nil file, running at most
// concurrency deletions at a time. It always attempts every file; the returned
// error is a *DeleteError listing the ones that failed.
func DeleteAll(files []File, concurrency int) error {
	if len(files) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = DefaultDeleteConcurrency
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	ctx := context.Background()

	var (
		mu     sync.Mutex
		failed []FailedDelete
		wg     sync.WaitGroup
	)
	for _, f := range files {
		if f == nil {
			continue
		}
		// Background never cancels, so Acquire only blocks.
		_ = sem.Acquire(ctx, 1)
		wg.Add(1)
		go func(f File) {
			defer wg.Done()
			defer sem.Release(1)
			if err := f.Delete(); err != nil {
				mu.Lock()
				failed = append(failed, FailedDelete{Name: f.Name(), Err: err})
				mu.Unlock()
			}
		}(f)
	}
	wg.Wait()

	if len(failed) > 0 {
		return &DeleteError{Failed: failed}
	}
	return nil
}
