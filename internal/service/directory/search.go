package directory

import (
	"context"
	"strings"
	"sync"

	"chatting-demo-backend/internal/model"
)

// Searcher fetches the directory once and filters the cached copy on every
// search until Reset.
type Searcher struct {
	svc     *Service
	session model.Session

	mu      sync.Mutex
	entries []model.DirectoryEntry
	loaded  bool
}

func NewSearcher(svc *Service, session model.Session) *Searcher {
	return &Searcher{svc: svc, session: session}
}

// Search returns entries whose name starts with term, ignoring case, other
// than the caller's own.
func (s *Searcher) Search(ctx context.Context, term string) ([]model.SearchResult, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, newError(ErrorCodeValidation, "search term is required", nil)
	}

	entries, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}

	self := s.session.IdentityKey()
	results := make([]model.SearchResult, 0)
	for _, entry := range entries {
		if model.IdentityKey(entry.Email) == self {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(entry.Name), term) {
			continue
		}
		results = append(results, model.SearchResult{Name: entry.Name, Email: entry.Email})
	}
	return results, nil
}

// Reset drops the cached directory; the next search fetches it again.
func (s *Searcher) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.loaded = false
}

func (s *Searcher) directory(ctx context.Context) ([]model.DirectoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.entries, nil
	}
	entries, err := s.svc.ListAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	s.entries = entries
	s.loaded = true
	return entries, nil
}
