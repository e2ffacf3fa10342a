package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

type PackageStore struct {
	mu       sync.RWMutex
	packages map[string]domain.Package
}

func NewPackageStore(pkgs ...domain.Package) *PackageStore {
	s := &PackageStore{packages: make(map[string]domain.Package, len(pkgs))}
	for _, p := range pkgs {
		s.packages[p.ID] = p
	}
	return s
}

func (s *PackageStore) Package(_ context.Context, id string) (*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *PackageStore) List(_ context.Context) ([]domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Package, 0, len(s.packages))
	for _, p := range s.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert changes the live price; bookings with a snapshot are unaffected.
func (s *PackageStore) Upsert(_ context.Context, p domain.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[p.ID] = p
	return nil
}
