package tab

// Store exposes tab lookup for the chat core and HTTP handlers.
type Store interface {
	List() []Tab
	FindByID(id ID) (Tab, bool)
}

// MemoryStore implements Store over a fixed catalogue.
type MemoryStore struct {
	items []Tab
	byID  map[ID]Tab
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied tabs.
func NewMemoryStore(items []Tab) *MemoryStore {
	byID := make(map[ID]Tab, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &MemoryStore{items: append([]Tab(nil), items...), byID: byID}
}

// List returns the catalogue in navigation order.
func (s *MemoryStore) List() []Tab {
	return append([]Tab(nil), s.items...)
}

// FindByID looks up a tab by identifier.
func (s *MemoryStore) FindByID(id ID) (Tab, bool) {
	item, ok := s.byID[id]
	return item, ok
}

// Visible filters tabs down to the ones a user should see.
func Visible(items []Tab, gender string, hidden []string) []Tab {
	visible := make([]Tab, 0, len(items))
	for _, item := range items {
		if item.VisibleTo(gender, hidden) {
			visible = append(visible, item)
		}
	}
	return visible
}
