//go:build !integration

package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type countingObserver struct{ total int64 }

func (c *countingObserver) OnBytesTransferred(delta int64) { c.total += delta }

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "models", "fire_model.json")
	payload := bytes.Repeat([]byte("x"), 70_000)

	obs := &countingObserver{}
	if err := writeFile(context.Background(), dst, bytes.NewReader(payload), obs); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if obs.total != int64(len(payload)) {
		t.Errorf("observer saw %d bytes, want %d", obs.total, len(payload))
	}
	got, err := os.ReadFile(dst)
	if err != nil || len(got) != len(payload) {
		t.Fatalf("unexpected file: %d bytes, err=%v", len(got), err)
	}
	if _, err := os.Stat(dst + ".part"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestWriteFile_CancelledLeavesNothing(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "combined.parquet")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := writeFile(ctx, dst, bytes.NewReader([]byte("data")), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("cancelled download must not leave the target file")
	}
}
