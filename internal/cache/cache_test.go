package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "falcon-cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestPutGetRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	source := []byte(`show("hello")`)
	key := Fingerprint(source)
	chunk := []byte{0x46, 0x4e, 0x42, 0x43, 0x01, 0xde, 0xad}

	if err := store.Put(key, chunk); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, found, err := store.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("entry not found after put")
	}
	if string(got) != string(chunk) {
		t.Errorf("chunk = %v, want %v", got, chunk)
	}
}

func TestMiss(t *testing.T) {
	store, _ := openTestStore(t)
	_, found, err := store.Get(Fingerprint([]byte("never stored")))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Error("hit on a key that was never stored")
	}
}

// A one-character source edit must change the key, so the old entry can
// never be served for the new source.
func TestFingerprintInvalidation(t *testing.T) {
	store, _ := openTestStore(t)

	before := []byte(`show(1)`)
	after := []byte(`show(2)`)
	if Fingerprint(before) == Fingerprint(after) {
		t.Fatal("distinct sources share a fingerprint")
	}

	if err := store.Put(Fingerprint(before), []byte("old")); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, found, err := store.Get(Fingerprint(after))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Error("edited source hit the stale entry")
	}
}

func TestPutReplaces(t *testing.T) {
	store, _ := openTestStore(t)
	key := Fingerprint([]byte("src"))

	if err := store.Put(key, []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(key, []byte("v2")); err != nil {
		t.Fatalf("put again: %v", err)
	}
	got, _, err := store.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("chunk = %q, want v2", got)
	}
	n, err := store.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := Fingerprint([]byte("persistent"))
	if err := store.Put(key, []byte("chunk")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	_, found, err := reopened.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Error("entry lost across reopen")
	}
}

func TestPurge(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.Put(Fingerprint([]byte("a")), []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	removed, err := store.Purge(time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Errorf("purge removed %d fresh entries", removed)
	}

	removed, err = store.Purge(-time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Errorf("purge removed %d, want 1", removed)
	}
}
