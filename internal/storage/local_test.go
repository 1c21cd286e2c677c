package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put_then_get", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loc, err := store.Put(ctx, "invoice-1.pdf", []byte("invoice-v1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc != "/uploads/invoice-1.pdf" {
			t.Errorf("unexpected location %q", loc)
		}

		b, err := store.Get(ctx, loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "invoice-v1" {
			t.Errorf("expected stored bytes back, got %q", b)
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		store, _ := NewLocalStore(t.TempDir())
		_, err := store.Get(ctx, "/uploads/nope.pdf")
		if !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound, got %v", err)
		}
	})

	t.Run("deleted_file", func(t *testing.T) {
		dir := t.TempDir()
		store, _ := NewLocalStore(dir)
		loc, _ := store.Put(ctx, "gone.pdf", []byte("x"))
		if err := os.Remove(filepath.Join(dir, "gone.pdf")); err != nil {
			t.Fatalf("failed to remove file: %v", err)
		}
		_, err := store.Get(ctx, loc)
		if !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound, got %v", err)
		}
	})

	t.Run("no_overwrite", func(t *testing.T) {
		store, _ := NewLocalStore(t.TempDir())
		_, err := store.Put(ctx, "a.pdf", []byte("one"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = store.Put(ctx, "a.pdf", []byte("two"))
		if !errors.Is(err, ErrDocumentExists) {
			t.Errorf("expected ErrDocumentExists, got %v", err)
		}
	})

	t.Run("path_traversal_rejected", func(t *testing.T) {
		store, _ := NewLocalStore(t.TempDir())
		if _, err := store.Put(ctx, "../escape.pdf", []byte("x")); err == nil {
			t.Error("expected traversal name to be rejected")
		}
		if _, err := store.Get(ctx, "/uploads/../../etc/passwd"); !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound, got %v", err)
		}
	})
}

// failingFile creates the real file, then fails on Write.
type failingFile struct {
	*os.File
}

func (f failingFile) Write([]byte) (int, error) {
	return 0, errors.New("no space left on device")
}

func TestLocalStore_FailedWriteLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orig := createExclusive
	createExclusive = func(name string) (io.WriteCloser, error) {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err != nil {
			return nil, err
		}
		return failingFile{f}, nil
	}

	_, err = store.Put(ctx, "invoice-9.pdf", []byte("invoice"))
	createExclusive = orig
	if err == nil {
		t.Fatal("expected write failure")
	}
	if _, statErr := os.Stat(filepath.Join(store.Dir(), "invoice-9.pdf")); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("expected partial file to be removed, stat returned %v", statErr)
	}

	loc, err := store.Put(ctx, "invoice-9.pdf", []byte("invoice"))
	if err != nil {
		t.Fatalf("expected retry under the same name to succeed, got %v", err)
	}
	b, err := store.Get(ctx, loc)
	if err != nil || string(b) != "invoice" {
		t.Errorf("expected retried bytes back, got %q %v", b, err)
	}
}
