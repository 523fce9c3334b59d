package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "nested", "cache.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func putRaw(t *testing.T, store *boltStore, key string, value []byte) {
	t.Helper()
	if err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(versionBucket)).Put([]byte(key), value)
	}); err != nil {
		t.Fatalf("put raw: %v", err)
	}
}

func TestBoltStoreSavesAndReadsVersions(t *testing.T) {
	store := openTestStore(t, Options{EntryTTL: time.Hour})

	if _, found, err := store.APIVersion("https://a.local/"); err != nil || found {
		t.Fatalf("expected miss, found=%v err=%v", found, err)
	}

	if err := store.SaveAPIVersion("https://a.local/", "v1beta1"); err != nil {
		t.Fatalf("SaveAPIVersion: %v", err)
	}

	version, found, err := store.APIVersion("https://a.local/")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if version != "v1beta1" {
		t.Fatalf("expected v1beta1, got %q", version)
	}

	if _, found, _ := store.APIVersion("https://b.local/"); found {
		t.Fatalf("expected other cluster to miss")
	}
}

func TestBoltStoreDropsExpiredEntries(t *testing.T) {
	store := openTestStore(t, Options{})
	putRaw(t, store, "https://old.local/", encodeEntry(time.Now().Add(-time.Minute), "v1"))
	putRaw(t, store, "https://junk.local/", []byte{1, 2})

	for _, key := range []string{"https://old.local/", "https://junk.local/"} {
		if _, found, err := store.APIVersion(key); err != nil || found {
			t.Fatalf("%s: expected expired entry to miss, found=%v err=%v", key, found, err)
		}
	}

	if err := store.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(versionBucket)).Get([]byte("https://old.local/")) != nil {
			t.Fatalf("expected expired entry to be deleted")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestBoltStoreCleanupSweepsOtherKeys(t *testing.T) {
	store := openTestStore(t, Options{CleanupInterval: time.Second})
	putRaw(t, store, "https://stale.local/", encodeEntry(time.Now().Add(-time.Minute), "v1"))

	// Fast-forward cleanup cadence.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())

	if err := store.SaveAPIVersion("https://fresh.local/", "v1"); err != nil {
		t.Fatalf("SaveAPIVersion: %v", err)
	}

	var keys int
	if err := store.db.View(func(tx *bolt.Tx) error {
		keys = tx.Bucket([]byte(versionBucket)).Stats().KeyN
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if keys != 1 {
		t.Fatalf("expected only the fresh entry to remain, got %d keys", keys)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveAPIVersion("https://a.local/", "v1"); err != nil {
		t.Fatalf("noop store SaveAPIVersion: %v", err)
	}
	if _, found, _ := store.APIVersion("https://a.local/"); found {
		t.Fatalf("noop store should never hit")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
