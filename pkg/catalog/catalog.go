package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lamarkesa/pkg/domain"
	"lamarkesa/pkg/notify"
	"lamarkesa/pkg/storage"
	"lamarkesa/pkg/store"
)

// Catalog owns the live item list. All writes go through the data store and
// publish a change event; the list itself is only replaced wholesale by
// snapshot reloads, so readers see either the previous or the next snapshot.
type Catalog struct {
	store   store.Store
	objects storage.ObjectStore
	notes   notify.Notifier

	mu         sync.RWMutex
	items      []domain.Item
	loading    bool
	subscribed bool
}

// New constructs a catalog around its collaborators.
func New(dataStore store.Store, objects storage.ObjectStore, notifier notify.Notifier) *Catalog {
	return &Catalog{
		store:   dataStore,
		objects: objects,
		notes:   notifier,
		loading: true,
	}
}

// Subscribe establishes at most one subscription to the change feed and
// keeps the in-memory list in sync with the store. Errors are logged, never
// returned: the catalog stays usable on its last good snapshot, and loading
// is marked complete either way.
func (c *Catalog) Subscribe(ctx context.Context) {
	c.mu.Lock()
	if c.subscribed {
		c.mu.Unlock()
		return
	}
	c.subscribed = true
	c.mu.Unlock()

	c.reload()

	if c.notes == nil {
		return
	}
	events, err := c.notes.SubscribeChanges(ctx)
	if err != nil {
		slog.Error("catalog change feed unavailable", "err", err)
		return
	}
	go func() {
		for range events {
			c.reload()
		}
	}()
}

func (c *Catalog) reload() {
	items, err := c.store.ListItems()
	if err != nil {
		slog.Error("catalog snapshot load failed", "err", err)
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		return
	}
	c.replaceSnapshot(items)
}

// replaceSnapshot is the single update entry point for the owned list.
func (c *Catalog) replaceSnapshot(items []domain.Item) {
	c.mu.Lock()
	c.items = items
	c.loading = false
	c.mu.Unlock()
}

// Items returns a copy of the current snapshot.
func (c *Catalog) Items() []domain.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Loading reports whether the first snapshot has not arrived yet.
func (c *Catalog) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Add stores a new item, stamping its creation time now, and returns the
// assigned identifier.
func (c *Catalog) Add(ctx context.Context, item domain.Item) (string, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now().UTC()
	if err := c.store.SaveItem(item); err != nil {
		return "", fmt.Errorf("add item: %w", err)
	}
	c.publishChange(ctx)
	return item.ID, nil
}

// Update merges only the provided fields into an existing item.
func (c *Catalog) Update(ctx context.Context, id string, upd domain.ItemUpdate) error {
	if err := c.store.UpdateItem(id, upd); err != nil {
		return err
	}
	c.publishChange(ctx)
	return nil
}

// Delete removes an item document after a best-effort deletion of its image.
// Image failures never block the document delete; only the document delete
// error propagates.
func (c *Catalog) Delete(ctx context.Context, id, imageURL string) error {
	if err := c.deleteItem(ctx, id, imageURL); err != nil {
		return err
	}
	c.publishChange(ctx)
	return nil
}

func (c *Catalog) deleteItem(ctx context.Context, id, imageURL string) error {
	c.deleteImage(ctx, imageURL)
	if err := c.store.DeleteItem(id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// deleteImage removes the blob behind imageURL when it points into our
// store. A URL from elsewhere is skipped; an already-deleted object is an
// expected condition and suppressed; anything else is logged and ignored.
func (c *Catalog) deleteImage(ctx context.Context, imageURL string) {
	if c.objects == nil || strings.TrimSpace(imageURL) == "" {
		return
	}
	key, ok := c.objects.KeyFromURL(imageURL)
	if !ok {
		slog.Debug("image url outside object store, skipping", "url", imageURL)
		return
	}
	if err := c.objects.Delete(ctx, key); err != nil {
		if storage.IsNotFound(err) {
			slog.Debug("image already deleted", "key", key)
			return
		}
		slog.Warn("image delete failed", "key", key, "err", err)
	}
}

// UploadImage stores a file under jewelry/{itemID}/{filename} and returns
// its resolvable URL.
func (c *Catalog) UploadImage(ctx context.Context, r io.Reader, size int64, itemID, filename string) (string, error) {
	name := sanitizeFilename(filepath.Base(filename))
	if name == "" {
		name = "image"
	}
	key := path.Join("jewelry", itemID, name)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := c.objects.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return c.objects.URLFor(key), nil
}

// ClearAll deletes every currently loaded item and its image concurrently.
// All deletions are attempted; the first failure surfaces after the fan-out
// settles. Completed deletions are not rolled back.
func (c *Catalog) ClearAll(ctx context.Context) error {
	items := c.Items()
	var g errgroup.Group
	for _, item := range items {
		item := item
		g.Go(func() error {
			return c.deleteItem(ctx, item.ID, item.Image)
		})
	}
	err := g.Wait()
	c.publishChange(ctx)
	return err
}

func (c *Catalog) publishChange(ctx context.Context) {
	if c.notes == nil {
		c.reload()
		return
	}
	if err := c.notes.PublishChange(ctx); err != nil {
		slog.Warn("change publish failed", "err", err)
		// Keep our own view fresh even when the feed is down.
		c.reload()
	}
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
