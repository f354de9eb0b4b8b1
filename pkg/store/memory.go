package store

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mcclellann/creditos/pkg/models"
)

// MemoryStore holds one session's credits in insertion order. The original
// tool is single-operator, but the HTTP surface can see concurrent
// requests, so access is mutex-guarded.
type MemoryStore struct {
	mu      sync.RWMutex
	credits []*models.Credit
	index   map[uuid.UUID]int
}

// NewMemoryStore creates an empty in-memory credit collection.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[uuid.UUID]int)}
}

func (s *MemoryStore) Add(c *models.Credit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[c.ID] = len(s.credits)
	s.credits = append(s.credits, c.Clone())
	return nil
}

func (s *MemoryStore) Get(id uuid.UUID) (*models.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.credits[i].Clone(), nil
}

func (s *MemoryStore) FindFirstByClient(name string) (*models.Credit, error) {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credits {
		if c.Client == name {
			return c.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Update mutates a copy first so a failed edit leaves the stored credit
// untouched.
func (s *MemoryStore) Update(id uuid.UUID, mutate func(*models.Credit) error) (*models.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s.credits[i].Clone()
	if err := mutate(cp); err != nil {
		return nil, err
	}
	s.credits[i] = cp
	return cp.Clone(), nil
}

func (s *MemoryStore) ReplaceAll(credits []*models.Credit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = make([]*models.Credit, 0, len(credits))
	s.index = make(map[uuid.UUID]int, len(credits))
	for _, c := range credits {
		s.index[c.ID] = len(s.credits)
		s.credits = append(s.credits, c.Clone())
	}
}

func (s *MemoryStore) RefreshAll(mutate func(*models.Credit)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credits {
		mutate(c)
	}
}

func (s *MemoryStore) All() []*models.Credit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Credit, 0, len(s.credits))
	for _, c := range s.credits {
		out = append(out, c.Clone())
	}
	return out
}

func (s *MemoryStore) FilterByStatus(status models.Status) []*models.Credit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Credit{}
	for _, c := range s.credits {
		if c.Status == status {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (s *MemoryStore) FilterByClientSubstring(text string) []*models.Credit {
	needle := strings.ToLower(strings.TrimSpace(text))
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Credit{}
	for _, c := range s.credits {
		if strings.Contains(strings.ToLower(c.Client), needle) {
			out = append(out, c.Clone())
		}
	}
	return out
}
