package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lamarkesa/pkg/domain"
	"lamarkesa/pkg/notify"
	"lamarkesa/pkg/storage"
	"lamarkesa/pkg/store"
)

// fakeObjectStore is an in-memory stand-in for the MinIO store.
type fakeObjectStore struct {
	mu      sync.Mutex
	host    string
	bucket  string
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		host:    "minio.test:9000",
		bucket:  "lamarkesa",
		objects: map[string][]byte{},
	}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return f.URLFor(key) + "?signed=1", nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) URLFor(key string) string {
	return fmt.Sprintf("http://%s/%s/%s", f.host, f.bucket, key)
}

func (f *fakeObjectStore) KeyFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != f.host {
		return "", false
	}
	key := strings.TrimPrefix(strings.TrimPrefix(u.Path, "/"), f.bucket+"/")
	if key == "" || key == strings.TrimPrefix(u.Path, "/") {
		return "", false
	}
	return key, true
}

func (f *fakeObjectStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func newTestCatalog() (*Catalog, *store.MemoryStore, *fakeObjectStore) {
	dataStore := store.NewMemoryStore()
	objects := newFakeObjectStore()
	c := New(dataStore, objects, nil)
	return c, dataStore, objects
}

func TestAddAssignsIDAndTimestamp(t *testing.T) {
	c, dataStore, _ := newTestCatalog()
	c.Subscribe(context.Background())
	id, err := c.Add(context.Background(), domain.Item{Name: "Gold Ring", Price: 100, Category: "rings"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatalf("expected an assigned id")
	}
	saved, ok, _ := dataStore.GetItem(id)
	if !ok {
		t.Fatalf("item not persisted")
	}
	if saved.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be stamped")
	}
	items := c.Items()
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("snapshot not refreshed after add: %+v", items)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	c, _, _ := newTestCatalog()
	name := "x"
	err := c.Update(context.Background(), "missing", domain.ItemUpdate{Name: &name})
	if !errors.Is(err, store.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestDeleteSkipsForeignImageURL(t *testing.T) {
	c, dataStore, objects := newTestCatalog()
	_ = dataStore.SaveItem(domain.Item{ID: "item-1", Name: "Ring"})
	_ = objects.Put(context.Background(), "jewelry/item-1/ring.jpg", bytes.NewReader([]byte("img")), 3, "image/jpeg")

	err := c.Delete(context.Background(), "item-1", "https://elsewhere.example.com/some/image.jpg")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := dataStore.GetItem("item-1"); ok {
		t.Fatalf("document should be deleted even when the image URL is foreign")
	}
	if !objects.has("jewelry/item-1/ring.jpg") {
		t.Fatalf("foreign URL must not trigger a blob delete")
	}
}

func TestDeleteRemovesOwnedImage(t *testing.T) {
	c, dataStore, objects := newTestCatalog()
	_ = objects.Put(context.Background(), "jewelry/item-1/ring.jpg", bytes.NewReader([]byte("img")), 3, "image/jpeg")
	imageURL := objects.URLFor("jewelry/item-1/ring.jpg")
	_ = dataStore.SaveItem(domain.Item{ID: "item-1", Image: imageURL})

	if err := c.Delete(context.Background(), "item-1", imageURL); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if objects.has("jewelry/item-1/ring.jpg") {
		t.Fatalf("blob should be deleted")
	}
	if _, ok, _ := dataStore.GetItem("item-1"); ok {
		t.Fatalf("document should be deleted")
	}
}

func TestDeleteSuppressesAlreadyDeletedImage(t *testing.T) {
	c, dataStore, objects := newTestCatalog()
	imageURL := objects.URLFor("jewelry/item-1/gone.jpg")
	_ = dataStore.SaveItem(domain.Item{ID: "item-1", Image: imageURL})

	if err := c.Delete(context.Background(), "item-1", imageURL); err != nil {
		t.Fatalf("missing blob must not fail the delete: %v", err)
	}
	if _, ok, _ := dataStore.GetItem("item-1"); ok {
		t.Fatalf("document should be deleted")
	}
}

func TestUploadImage(t *testing.T) {
	c, _, objects := newTestCatalog()
	url, err := c.UploadImage(context.Background(), bytes.NewReader([]byte("img")), 3, "item-1", "gold ring.jpg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	key, ok := objects.KeyFromURL(url)
	if !ok {
		t.Fatalf("returned URL should resolve into the store: %q", url)
	}
	if !strings.HasPrefix(key, "jewelry/item-1/") {
		t.Fatalf("unexpected key %q", key)
	}
	if !objects.has(key) {
		t.Fatalf("object not stored")
	}
}

func TestClearAllDeletesEverything(t *testing.T) {
	c, dataStore, objects := newTestCatalog()
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("jewelry/item-%d/img.jpg", i)
		_ = objects.Put(context.Background(), key, bytes.NewReader([]byte("img")), 3, "image/jpeg")
		_ = dataStore.SaveItem(domain.Item{
			ID:        fmt.Sprintf("item-%d", i),
			Image:     objects.URLFor(key),
			CreatedAt: time.Now().UTC(),
		})
	}
	c.Subscribe(context.Background())
	if err := c.ClearAll(context.Background()); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	items, _ := dataStore.ListItems()
	if len(items) != 0 {
		t.Fatalf("expected empty store, got %d items", len(items))
	}
	for i := 0; i < 5; i++ {
		if objects.has(fmt.Sprintf("jewelry/item-%d/img.jpg", i)) {
			t.Fatalf("image %d not deleted", i)
		}
	}
}

// failingStore fails document deletion for one chosen item.
type failingStore struct {
	*store.MemoryStore
	failID string
}

func (s *failingStore) DeleteItem(id string) error {
	if id == s.failID {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.DeleteItem(id)
}

func TestClearAllAttemptsAllAndSurfacesFailure(t *testing.T) {
	dataStore := &failingStore{MemoryStore: store.NewMemoryStore(), failID: "item-2"}
	c := New(dataStore, newFakeObjectStore(), nil)
	for i := 0; i < 4; i++ {
		_ = dataStore.SaveItem(domain.Item{ID: fmt.Sprintf("item-%d", i), CreatedAt: time.Now().UTC()})
	}
	c.Subscribe(context.Background())
	if err := c.ClearAll(context.Background()); err == nil {
		t.Fatalf("expected the failed deletion to surface")
	}
	items, _ := dataStore.ListItems()
	if len(items) != 1 || items[0].ID != "item-2" {
		t.Fatalf("all other deletions should still complete, got %+v", items)
	}
}

func TestSubscribeReloadsOnChangeEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	notifier, err := notify.NewRedisNotifier(notify.RedisNotifierConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	dataStore := store.NewMemoryStore()
	c := New(dataStore, newFakeObjectStore(), notifier)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Subscribe(ctx)
	c.Subscribe(ctx) // idempotent
	if c.Loading() {
		t.Fatalf("loading should be complete after the initial snapshot")
	}
	if len(c.Items()) != 0 {
		t.Fatalf("expected empty initial snapshot")
	}

	// A write from elsewhere followed by a change event must show up.
	_ = dataStore.SaveItem(domain.Item{ID: "item-1", Name: "Ring", CreatedAt: time.Now().UTC()})
	if err := notifier.PublishChange(ctx); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if items := c.Items(); len(items) == 1 && items[0].ID == "item-1" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot was not replaced after change event")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
