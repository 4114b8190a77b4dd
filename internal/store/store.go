// Package store keeps processed papers in memory. Last write wins; there are
// no transactions and no persistence across restarts.
package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

// MemoryStore is a concurrency-safe in-memory schemas.PaperStore.
type MemoryStore struct {
	mu     sync.RWMutex
	papers map[string]*schemas.Paper
	logger *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		papers: make(map[string]*schemas.Paper),
		logger: logger.Named("store"),
	}
}

// Add registers a paper under its ID, replacing any existing entry.
func (s *MemoryStore) Add(paper *schemas.Paper) {
	if paper == nil || paper.ID == "" {
		return
	}
	s.mu.Lock()
	s.papers[paper.ID] = paper
	s.mu.Unlock()
	s.logger.Debug("Paper added", zap.String("paper_id", paper.ID))
}

// Get returns the stored paper for id, if any.
func (s *MemoryStore) Get(id string) (*schemas.Paper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paper, ok := s.papers[id]
	return paper, ok
}

// Update overwrites the stored paper. Updating a paper that was never added
// inserts it; the pipeline calls Update after every stage transition.
func (s *MemoryStore) Update(paper *schemas.Paper) {
	if paper == nil || paper.ID == "" {
		return
	}
	s.mu.Lock()
	s.papers[paper.ID] = paper
	s.mu.Unlock()
	s.logger.Debug("Paper updated",
		zap.String("paper_id", paper.ID),
		zap.String("status", string(paper.Status)),
	)
}

// List returns all stored papers in unspecified order.
func (s *MemoryStore) List() []*schemas.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schemas.Paper, 0, len(s.papers))
	for _, p := range s.papers {
		out = append(out, p)
	}
	return out
}
