package keyfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/example/exposure-bridge/internal/keyfile"
)

type countingFile struct {
	name    string
	deletes atomic.Int32
	err     error
}

func (f *countingFile) Name() string { return f.name }

func (f *countingFile) Delete() error {
	f.deletes.Add(1)
	return f.err
}

func TestNewRequiresExistingFile(t *testing.T) {
	if _, err := keyfile.New(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := keyfile.New(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := keyfile.New(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestOSFileDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.zip")
	if err := os.WriteFile(path, []byte("keys"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f, err := keyfile.New(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name() != path {
		t.Fatalf("expected name %s, got %s", path, f.Name())
	}
	if err := keyfile.DeleteAll([]keyfile.File{f}, 1); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file to be removed, stat err = %v", err)
	}
}

func TestDeleteAllDeletesEachFileOnce(t *testing.T) {
	files := make([]*countingFile, 10)
	handles := make([]keyfile.File, 0, len(files)+1)
	for i := range files {
		files[i] = &countingFile{name: filepath.Join("batch", string(rune('a'+i)))}
		handles = append(handles, files[i])
	}
	handles = append(handles, nil)

	if err := keyfile.DeleteAll(handles, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range files {
		if got := f.deletes.Load(); got != 1 {
			t.Fatalf("file %s deleted %d times, want 1", f.name, got)
		}
	}
}

func TestDeleteAllReportsFailuresButAttemptsEveryFile(t *testing.T) {
	boom := errors.New("read-only filesystem")
	ok := &countingFile{name: "ok"}
	bad := &countingFile{name: "bad", err: boom}

	err := keyfile.DeleteAll([]keyfile.File{bad, ok}, 0)
	if err == nil {
		t.Fatalf("expected delete error")
	}
	var delErr *keyfile.DeleteError
	if !errors.As(err, &delErr) {
		t.Fatalf("expected *DeleteError, got %T", err)
	}
	if len(delErr.Failed) != 1 || delErr.Failed[0].Name != "bad" || delErr.Failed[0].Err != boom {
		t.Fatalf("unexpected failures: %+v", delErr.Failed)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected errors.Is to find the cause")
	}
	if ok.deletes.Load() != 1 || bad.deletes.Load() != 1 {
		t.Fatalf("expected both files attempted once")
	}
}

func TestDeleteAllKeepsFailuresWithSameName(t *testing.T) {
	first := &countingFile{name: "export.zip", err: errors.New("permission denied")}
	second := &countingFile{name: "export.zip", err: errors.New("device busy")}

	err := keyfile.DeleteAll([]keyfile.File{first, second}, 2)
	var delErr *keyfile.DeleteError
	if !errors.As(err, &delErr) {
		t.Fatalf("expected *DeleteError, got %v", err)
	}
	if len(delErr.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %+v", delErr.Failed)
	}
	if !errors.Is(err, first.err) || !errors.Is(err, second.err) {
		t.Fatalf("expected both causes to be reachable, got %v", err)
	}
}

func TestDeleteAllEmpty(t *testing.T) {
	if err := keyfile.DeleteAll(nil, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
