package store

import (
	"sort"
	"sync"

	"lamarkesa/pkg/domain"
)

// MemoryStore keeps catalog data in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]domain.Item
	users    map[string]domain.User
	email    map[string]string // email -> user ID
	settings map[string]map[string]any
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]domain.Item),
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		settings: make(map[string]map[string]any),
	}
}

// SaveItem stores or replaces an item record.
func (m *MemoryStore) SaveItem(item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

// UpdateItem merges only the provided fields into an existing item.
func (m *MemoryStore) UpdateItem(id string, upd domain.ItemUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.Price != nil {
		item.Price = *upd.Price
	}
	if upd.Category != nil {
		item.Category = *upd.Category
	}
	if upd.SKU != nil {
		item.SKU = *upd.SKU
	}
	if upd.Image != nil {
		item.Image = *upd.Image
	}
	m.items[id] = item
	return nil
}

// GetItem retrieves an item by ID.
func (m *MemoryStore) GetItem(id string) (domain.Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	return item, ok, nil
}

// ListItems returns items ordered by creation time, newest first.
func (m *MemoryStore) ListItems() ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		res = append(res, item)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// DeleteItem removes an item.
func (m *MemoryStore) DeleteItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// SaveUser registers a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserSettings loads a user's settings document.
func (m *MemoryStore) GetUserSettings(userID string) (domain.UserSettings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.settings[userID]
	if !ok {
		return domain.UserSettings{}, false, nil
	}
	return settingsFromMap(data), true, nil
}

// SaveUserSettings merge-writes fields and returns the merged document.
func (m *MemoryStore) SaveUserSettings(userID string, fields map[string]any) (domain.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.settings[userID]
	if !ok {
		data = map[string]any{}
		m.settings[userID] = data
	}
	for k, v := range fields {
		data[k] = v
	}
	return settingsFromMap(data), nil
}
