package credstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SetGetDelete(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, err := store.Get(ctx, SessionKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on empty store = %v; want ErrNotFound", err)
	}

	if err := store.Set(ctx, SessionKey, "sess-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, SessionKey)
	if err != nil || got != "sess-1" {
		t.Errorf("Get = %q, %v; want sess-1", got, err)
	}

	if err := store.Set(ctx, SessionKey, "sess-2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, _ = store.Get(ctx, SessionKey)
	if got != "sess-2" {
		t.Errorf("Get after overwrite = %q; want sess-2", got)
	}

	if err := store.Delete(ctx, SessionKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, SessionKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v; want ErrNotFound", err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, SessionKey); err != nil {
		t.Errorf("second Delete = %v; want nil", err)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.Set(ctx, ServerKey, "https://komga.example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Get(ctx, ServerKey)
	if err != nil || got != "https://komga.example.com" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}

func TestFileStore_EncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.Set(ctx, SessionKey, "super-secret-token"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, credentialFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if bytes.Contains(raw, []byte("super-secret-token")) {
		t.Error("credential file contains the plaintext token")
	}
}

func TestFileStore_WrongDeviceKeyFailsDecrypt(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.Set(ctx, SessionKey, "sess-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Replace the device key; the credential file should no longer open.
	if err := os.Remove(filepath.Join(dir, deviceKeyFile)); err != nil {
		t.Fatalf("Remove key failed: %v", err)
	}
	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := reopened.Get(ctx, SessionKey); err == nil {
		t.Error("Get with a different device key should fail")
	}
}
