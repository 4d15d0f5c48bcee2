package conversation

import (
	"context"
	"errors"
	"fmt"

	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/record"
	"chatting-demo-backend/internal/store"
)

// loadList reads a list node. Absent nodes are store.ErrNotFound and nodes
// of any other shape are store.ErrMalformed.
func (s *Service) loadList(ctx context.Context, path string) ([]interface{}, error) {
	value, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	items, ok := record.AsList(value)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", store.ErrMalformed, path)
	}
	return items, nil
}

// indexOf returns the position of the first summary with the given id, or -1.
func indexOf(items []interface{}, conversationID string) int {
	for i, item := range items {
		rec, ok := record.AsRecord(item)
		if !ok {
			continue
		}
		if id, _ := rec[record.KeyID].(string); id == conversationID {
			return i
		}
	}
	return -1
}

// requireOwnSummary fails with ConversationNotFound unless the owner's list
// holds conversationID. Only participants may write to a thread.
func (s *Service) requireOwnSummary(ctx context.Context, owner, conversationID string) error {
	items, err := s.loadList(ctx, model.ConversationsPath(owner))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrMalformed) {
			return stageError(StageCheckParticipant, ErrorCodeConversationNotFound, "conversation not found", err)
		}
		return stageError(StageCheckParticipant, ErrorCodeInternal, "failed to load conversations", err)
	}
	if indexOf(items, conversationID) < 0 {
		return stageError(StageCheckParticipant, ErrorCodeConversationNotFound, "conversation not found", nil)
	}
	return nil
}

// appendSummary adds summary to the owner's conversations list, creating
// the list when it is absent or unreadable.
func (s *Service) appendSummary(ctx context.Context, owner string, summary model.Conversation) error {
	path := model.ConversationsPath(owner)
	unlock := s.locks.Lock(path)
	defer unlock()

	items, err := s.loadList(ctx, path)
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrMalformed) {
		return err
	}
	items = append(items, record.EncodeConversation(summary))
	return s.store.Set(ctx, path, items)
}

// appendOwnSummary appends summary to the caller's conversations and writes
// the whole user record back.
func (s *Service) appendOwnSummary(ctx context.Context, owner string, summary model.Conversation) error {
	unlock := s.locks.Lock(model.ConversationsPath(owner))
	defer unlock()

	value, err := s.store.Get(ctx, model.UserPath(owner))
	if err != nil {
		return err
	}
	user, ok := record.AsRecord(value)
	if !ok {
		return fmt.Errorf("%w: user record %s", store.ErrMalformed, model.UserPath(owner))
	}
	conversations, _ := record.AsList(user[record.KeyConversations])
	user[record.KeyConversations] = append(conversations, record.EncodeConversation(summary))
	return s.store.Set(ctx, model.UserPath(owner), user)
}

// updateSummary applies mutate to the owner's first summary whose id is
// conversationID and persists the whole list.
func (s *Service) updateSummary(ctx context.Context, owner, conversationID string, mutate func(record.Record) error) error {
	path := model.ConversationsPath(owner)
	unlock := s.locks.Lock(path)
	defer unlock()

	items, err := s.loadList(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrMalformed) {
			return newError(ErrorCodeConversationNotFound, "conversation not found", err)
		}
		return newError(ErrorCodeInternal, "failed to load conversations", err)
	}

	idx := indexOf(items, conversationID)
	if idx < 0 {
		return newError(ErrorCodeConversationNotFound, "conversation not found", nil)
	}
	rec, _ := record.AsRecord(items[idx])
	if err := mutate(rec); err != nil {
		return err
	}

	if err := s.store.Set(ctx, path, items); err != nil {
		return newError(ErrorCodeWriteFailure, "failed to persist conversations", err)
	}
	return nil
}
