package prefs

// MemoryRepository is an in-memory Repository for testing.
type MemoryRepository struct {
	values map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{values: make(map[string]string)}
}

func (m *MemoryRepository) Get(key string) (string, error) {
	return m.values[key], nil
}

func (m *MemoryRepository) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *MemoryRepository) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
