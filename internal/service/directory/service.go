package directory

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/record"
	"chatting-demo-backend/internal/store"

	"github.com/rs/zerolog"
)

// RegisterResult separates the user record write from the directory
// upsert, which may fail after the record is already stored.
type RegisterResult struct {
	User             model.User
	DirectoryUpdated bool
	AlreadyListed    bool
	DirectoryErr     error
}

const (
	searcherIdleTTL = 30 * time.Minute
	maxSearchers    = 1024
)

type Service struct {
	store  store.Store
	locks  *store.KeyedMutex
	logger zerolog.Logger
	now    func() time.Time

	mu           sync.Mutex
	searchers    map[string]*searcherEntry
	searcherTTL  time.Duration
	maxSearchers int
}

type searcherEntry struct {
	searcher *Searcher
	lastUsed time.Time
}

func New(st store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:        st,
		locks:        store.NewKeyedMutex(),
		logger:       logger.With().Str("service", "directory").Logger(),
		now:          time.Now,
		searchers:    make(map[string]*searcherEntry),
		searcherTTL:  searcherIdleTTL,
		maxSearchers: maxSearchers,
	}
}

func (s *Service) UserExists(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, newError(ErrorCodeValidation, "email is required", nil)
	}
	_, err := s.store.Get(ctx, model.UserPath(email))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, newError(ErrorCodeInternal, "failed to look up user", err)
}

// RegisterUser writes the user's names at its identity key and lists it in
// the directory unless an entry with the same key is already there.
// Conversations of an existing record are kept.
func (s *Service) RegisterUser(ctx context.Context, user model.User) (RegisterResult, error) {
	user.Email = strings.TrimSpace(user.Email)
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	if addr, err := mail.ParseAddress(user.Email); err != nil || addr.Address != user.Email {
		return RegisterResult{}, newError(ErrorCodeValidation, "a valid email is required", err)
	}
	if user.FirstName == "" {
		return RegisterResult{}, newError(ErrorCodeValidation, "firstName is required", nil)
	}

	key := user.IdentityKey()
	if err := s.writeUserRecord(ctx, user); err != nil {
		if errors.Is(err, store.ErrInvalidPath) {
			return RegisterResult{}, newError(ErrorCodeValidation, "email cannot be stored", err)
		}
		return RegisterResult{}, newError(ErrorCodeWriteFailure, "failed to write user record", err)
	}

	result := RegisterResult{User: user}
	listed, err := s.upsertDirectory(ctx, model.DirectoryEntry{Name: user.DisplayName(), Email: key})
	if err != nil {
		result.DirectoryErr = err
		s.logger.Warn().Err(err).Str("user", key).Msg("user stored but directory not updated")
		return result, newError(ErrorCodePartialFailure, "user registered but directory was not updated", err)
	}
	result.AlreadyListed = listed
	result.DirectoryUpdated = !listed

	s.logger.Info().Str("user", key).Bool("already_listed", listed).Msg("user registered")
	return result, nil
}

func (s *Service) writeUserRecord(ctx context.Context, user model.User) error {
	path := model.UserPath(user.Email)
	unlock := s.locks.Lock(path)
	defer unlock()

	rec := record.EncodeUser(user)
	existing, err := s.store.Get(ctx, path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if current, ok := record.AsRecord(existing); ok {
		if conversations, ok := current[record.KeyConversations]; ok {
			rec[record.KeyConversations] = conversations
		}
	}
	return s.store.Set(ctx, path, rec)
}

// upsertDirectory reports whether the entry was already listed.
func (s *Service) upsertDirectory(ctx context.Context, entry model.DirectoryEntry) (bool, error) {
	unlock := s.locks.Lock(model.UsersPath())
	defer unlock()

	var items []interface{}
	value, err := s.store.Get(ctx, model.UsersPath())
	switch {
	case err == nil:
		items, _ = record.AsList(value)
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}

	for _, item := range items {
		existing, ok := record.DecodeDirectoryEntry(item)
		if ok && model.IdentityKey(existing.Email) == entry.Email {
			return true, nil
		}
	}

	items = append(items, record.EncodeDirectoryEntry(entry))
	if err := s.store.Set(ctx, model.UsersPath(), items); err != nil {
		return false, err
	}
	return false, nil
}

// ListAllUsers returns the whole directory. A missing or malformed
// directory node is NotFound.
func (s *Service) ListAllUsers(ctx context.Context) ([]model.DirectoryEntry, error) {
	value, err := s.store.Get(ctx, model.UsersPath())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrorCodeNotFound, "directory not found", err)
		}
		return nil, newError(ErrorCodeInternal, "failed to fetch directory", err)
	}
	entries, err := record.DecodeDirectory(value)
	if err != nil {
		return nil, newError(ErrorCodeNotFound, "directory not found", err)
	}
	return entries, nil
}

// GetProfile reads the names stored for email.
func (s *Service) GetProfile(ctx context.Context, email string) (model.User, error) {
	value, err := s.store.Get(ctx, model.UserPath(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, newError(ErrorCodeUserNotFound, "user not found", err)
		}
		return model.User{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}
	user, ok := record.DecodeUser(strings.TrimSpace(email), value)
	if !ok {
		return model.User{}, newError(ErrorCodeDecodeFailure, "user record is malformed", nil)
	}
	return user, nil
}

// SearcherFor returns the cached searcher of the session's user. Searchers
// idle for longer than the TTL are dropped, and the least recently used one
// goes when the cache is full.
func (s *Service) SearcherFor(session model.Session) *Searcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	key := session.IdentityKey()
	if entry, ok := s.searchers[key]; ok {
		entry.lastUsed = now
		return entry.searcher
	}

	s.evictSearchers(now)
	searcher := NewSearcher(s, session)
	s.searchers[key] = &searcherEntry{searcher: searcher, lastUsed: now}
	return searcher
}

// evictSearchers makes room for one more searcher. Callers hold s.mu.
func (s *Service) evictSearchers(now time.Time) {
	cutoff := now.Add(-s.searcherTTL)
	for key, entry := range s.searchers {
		if entry.lastUsed.Before(cutoff) {
			delete(s.searchers, key)
		}
	}
	if len(s.searchers) < s.maxSearchers {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range s.searchers {
		if oldestKey == "" || entry.lastUsed.Before(oldest) {
			oldestKey, oldest = key, entry.lastUsed
		}
	}
	delete(s.searchers, oldestKey)
}
