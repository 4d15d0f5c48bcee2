package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/record"
	"chatting-demo-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CreateConversationParams struct {
	OtherUserEmail string
	OtherUserName  string
	FirstMessage   model.Message
}

// CreateConversationResult reports each write of a create independently.
// The counterpart's summary is written concurrently with the caller's and
// its outcome never fails the operation.
type CreateConversationResult struct {
	ConversationID     string
	Conversation       model.Conversation
	Message            model.Message
	CounterpartUpdated bool
	CounterpartErr     error
}

type SendMessageParams struct {
	ConversationID string
	OtherUserEmail string
	SenderName     string
	Message        model.Message
}

// SendMessageResult reports the append and both summary updates.
// A failed summary update leaves the message appended.
type SendMessageResult struct {
	Message             model.Message
	MessageAppended     bool
	SenderSummaryErr    error
	RecipientSummaryErr error
}

func (r SendMessageResult) OK() bool {
	return r.MessageAppended && r.SenderSummaryErr == nil && r.RecipientSummaryErr == nil
}

type Service struct {
	store  store.Store
	locks  *store.KeyedMutex
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func New(st store.Store, logger zerolog.Logger) *Service {
	return NewWithClock(st, logger, time.Now)
}

func NewWithClock(st store.Store, logger zerolog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  st,
		locks:  store.NewKeyedMutex(),
		logger: logger.With().Str("service", "conversation").Logger(),
		now:    now,
		newID:  uuid.NewString,
	}
}

// prepareMessage stamps msg with the sender and fills a missing id and time.
func (s *Service) prepareMessage(session model.Session, senderName string, msg model.Message) (model.Message, record.Record, error) {
	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = s.newID()
	}
	if !model.ValidMessageID(msg.ID) {
		return model.Message{}, nil, newError(ErrorCodeValidation, "message id must not contain spaces or any of / . # $ [ ]", nil)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = s.now()
	}
	msg.SentAt = msg.SentAt.UTC().Truncate(time.Minute)
	if msg.Kind == "" {
		msg.Kind = model.MessageKindText
	}
	msg.SenderEmail = session.IdentityKey()
	msg.SenderName = strings.TrimSpace(senderName)
	if msg.SenderName == "" {
		msg.SenderName = session.Name
	}
	msg.IsRead = false

	if strings.TrimSpace(msg.Content) == "" {
		return model.Message{}, nil, newError(ErrorCodeValidation, "message content is required", nil)
	}
	rec, err := record.EncodeMessage(msg)
	if err != nil {
		return model.Message{}, nil, newError(ErrorCodeValidation, "message kind is not supported", err)
	}
	return msg, rec, nil
}

func (s *Service) CreateConversation(ctx context.Context, session model.Session, params CreateConversationParams) (CreateConversationResult, error) {
	if !session.Valid() {
		return CreateConversationResult{}, newError(ErrorCodeUnauthorized, "session is required", nil)
	}
	otherKey := model.IdentityKey(strings.TrimSpace(params.OtherUserEmail))
	if otherKey == "" {
		return CreateConversationResult{}, newError(ErrorCodeValidation, "otherUserEmail is required", nil)
	}
	msg, encoded, err := s.prepareMessage(session, session.Name, params.FirstMessage)
	if err != nil {
		return CreateConversationResult{}, err
	}

	selfKey := session.IdentityKey()
	if _, err := s.store.Get(ctx, model.UserPath(selfKey)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CreateConversationResult{}, stageError(StageLoadUser, ErrorCodeUserNotFound, "user not found", err)
		}
		return CreateConversationResult{}, stageError(StageLoadUser, ErrorCodeInternal, "failed to load user", err)
	}

	conversationID := model.ConversationID(msg.ID)

	// Held until the thread is written so a concurrent create or send on
	// the same id cannot interleave with the existence check.
	unlockThread := s.locks.Lock(model.MessagesPath(conversationID))
	defer unlockThread()
	if _, err := s.store.Get(ctx, model.ThreadPath(conversationID)); err == nil {
		return CreateConversationResult{}, stageError(StageCheckThread, ErrorCodeConversationExists, "a conversation already starts with this message id", nil)
	} else if !errors.Is(err, store.ErrNotFound) {
		return CreateConversationResult{}, stageError(StageCheckThread, ErrorCodeInternal, "failed to check conversation thread", err)
	}

	latest := record.LatestFromMessage(msg)
	own := model.Conversation{
		ID:             conversationID,
		OtherUserEmail: otherKey,
		Name:           strings.TrimSpace(params.OtherUserName),
		LatestMessage:  latest,
	}
	counterpart := model.Conversation{
		ID:             conversationID,
		OtherUserEmail: selfKey,
		Name:           session.Name,
		LatestMessage:  latest,
	}

	counterpartDone := make(chan error, 1)
	go func() {
		counterpartDone <- s.appendSummary(ctx, otherKey, counterpart)
	}()

	result := CreateConversationResult{
		ConversationID: conversationID,
		Conversation:   own,
		Message:        msg,
	}
	collect := func() {
		result.CounterpartErr = <-counterpartDone
		result.CounterpartUpdated = result.CounterpartErr == nil
		if result.CounterpartErr != nil {
			partialFailures.WithLabelValues("create_conversation", string(StageCounterpartSummary)).Inc()
			s.logger.Warn().
				Err(result.CounterpartErr).
				Str("conversation_id", conversationID).
				Str("stage", string(StageCounterpartSummary)).
				Msg("counterpart summary not written")
		}
	}

	if err := s.appendOwnSummary(ctx, selfKey, own); err != nil {
		collect()
		if errors.Is(err, store.ErrNotFound) {
			return result, stageError(StageSelfSummary, ErrorCodeUserNotFound, "user not found", err)
		}
		return result, stageError(StageSelfSummary, ErrorCodeWriteFailure, "failed to persist conversation summary", err)
	}

	thread := record.Record{record.KeyMessages: []interface{}{encoded}}
	if err := s.store.Set(ctx, model.ThreadPath(conversationID), thread); err != nil {
		collect()
		partialFailures.WithLabelValues("create_conversation", string(StageThread)).Inc()
		s.logger.Error().
			Err(err).
			Str("conversation_id", conversationID).
			Str("stage", string(StageThread)).
			Msg("thread not written after summaries")
		return result, stageError(StageThread, ErrorCodeWriteFailure, "failed to create conversation thread", err)
	}

	collect()
	s.logger.Info().
		Str("conversation_id", conversationID).
		Str("user", selfKey).
		Str("other_user", otherKey).
		Bool("counterpart_updated", result.CounterpartUpdated).
		Msg("conversation created")
	return result, nil
}

func (s *Service) SendMessage(ctx context.Context, session model.Session, params SendMessageParams) (SendMessageResult, error) {
	if !session.Valid() {
		return SendMessageResult{}, newError(ErrorCodeUnauthorized, "session is required", nil)
	}
	conversationID := strings.TrimSpace(params.ConversationID)
	if !model.IsConversationID(conversationID) {
		return SendMessageResult{}, newError(ErrorCodeValidation, "conversation id is invalid", nil)
	}
	otherKey := model.IdentityKey(strings.TrimSpace(params.OtherUserEmail))
	if otherKey == "" {
		return SendMessageResult{}, newError(ErrorCodeValidation, "otherUserEmail is required", nil)
	}
	msg, encoded, err := s.prepareMessage(session, params.SenderName, params.Message)
	if err != nil {
		return SendMessageResult{}, err
	}

	if err := s.requireOwnSummary(ctx, session.IdentityKey(), conversationID); err != nil {
		return SendMessageResult{}, err
	}
	if err := s.appendMessage(ctx, conversationID, encoded); err != nil {
		return SendMessageResult{}, err
	}
	result := SendMessageResult{Message: msg, MessageAppended: true}

	latest := record.EncodeLatestMessage(record.LatestFromMessage(msg))
	setLatest := func(rec record.Record) error {
		rec[record.KeyLatestMessage] = latest
		return nil
	}

	if err := s.updateSummary(ctx, session.IdentityKey(), conversationID, setLatest); err != nil {
		result.SenderSummaryErr = withStage(err, StageSenderSummary)
	}
	if err := s.updateSummary(ctx, otherKey, conversationID, setLatest); err != nil {
		result.RecipientSummaryErr = withStage(err, StageRecipientSummary)
	}

	if !result.OK() {
		log := s.logger.Warn().Str("conversation_id", conversationID).Str("message_id", msg.ID)
		if result.SenderSummaryErr != nil {
			partialFailures.WithLabelValues("send_message", string(StageSenderSummary)).Inc()
			log = log.AnErr("sender_err", result.SenderSummaryErr)
		}
		if result.RecipientSummaryErr != nil {
			partialFailures.WithLabelValues("send_message", string(StageRecipientSummary)).Inc()
			log = log.AnErr("recipient_err", result.RecipientSummaryErr)
		}
		log.Msg("message appended but summaries are stale")
		return result, newError(ErrorCodePartialFailure, "message sent but conversation summaries were not updated", errors.Join(result.SenderSummaryErr, result.RecipientSummaryErr))
	}
	return result, nil
}

func (s *Service) appendMessage(ctx context.Context, conversationID string, encoded record.Record) error {
	path := model.MessagesPath(conversationID)
	unlock := s.locks.Lock(path)
	defer unlock()

	items, err := s.loadList(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrMalformed) {
			return stageError(StageAppendMessage, ErrorCodeConversationNotFound, "conversation not found", err)
		}
		return stageError(StageAppendMessage, ErrorCodeInternal, "failed to load messages", err)
	}
	items = append(items, encoded)
	if err := s.store.Set(ctx, path, items); err != nil {
		return stageError(StageAppendMessage, ErrorCodeWriteFailure, "failed to append message", err)
	}
	return nil
}

// DeleteConversation removes the caller's own summary only. The thread and
// the counterpart's summary are left in place.
func (s *Service) DeleteConversation(ctx context.Context, session model.Session, conversationID string) error {
	if !session.Valid() {
		return newError(ErrorCodeUnauthorized, "session is required", nil)
	}
	path := model.ConversationsPath(session.Email)
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
	remaining := make([]interface{}, 0, len(items)-1)
	remaining = append(remaining, items[:idx]...)
	remaining = append(remaining, items[idx+1:]...)

	if err := s.store.Set(ctx, path, remaining); err != nil {
		return newError(ErrorCodeWriteFailure, "failed to delete conversation", err)
	}
	s.logger.Info().Str("conversation_id", conversationID).Str("user", session.IdentityKey()).Msg("conversation deleted")
	return nil
}

// MarkConversationRead flags the latest message of the caller's own summary
// as read.
func (s *Service) MarkConversationRead(ctx context.Context, session model.Session, conversationID string) error {
	if !session.Valid() {
		return newError(ErrorCodeUnauthorized, "session is required", nil)
	}
	return s.updateSummary(ctx, session.IdentityKey(), conversationID, func(rec record.Record) error {
		latest, ok := record.AsRecord(rec[record.KeyLatestMessage])
		if !ok {
			return newError(ErrorCodeDecodeFailure, "conversation summary has no latest message", nil)
		}
		latest[record.KeyIsRead] = true
		return nil
	})
}

// FetchConversations returns the decoded summaries of email. A user without
// conversations yields an empty list.
func (s *Service) FetchConversations(ctx context.Context, email string) ([]model.Conversation, error) {
	value, err := s.store.Get(ctx, model.ConversationsPath(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []model.Conversation{}, nil
		}
		return nil, newError(ErrorCodeInternal, "failed to fetch conversations", err)
	}
	return decodeConversations(value)
}

func (s *Service) FetchMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	value, err := s.store.Get(ctx, model.MessagesPath(conversationID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrorCodeConversationNotFound, "conversation not found", err)
		}
		return nil, newError(ErrorCodeInternal, "failed to fetch messages", err)
	}
	return decodeMessages(value)
}

// WatchConversations calls fn with the decoded summaries of email now and
// after every change until the subscription is cancelled.
func (s *Service) WatchConversations(ctx context.Context, email string, fn func([]model.Conversation, error)) (*store.Subscription, error) {
	return s.store.Subscribe(ctx, model.ConversationsPath(email), func(snap store.Snapshot) {
		if !snap.Exists {
			fn([]model.Conversation{}, nil)
			return
		}
		fn(decodeConversations(snap.Value))
	})
}

// WatchMessages calls fn with the decoded thread now and after every change
// until the subscription is cancelled.
func (s *Service) WatchMessages(ctx context.Context, conversationID string, fn func([]model.Message, error)) (*store.Subscription, error) {
	return s.store.Subscribe(ctx, model.MessagesPath(conversationID), func(snap store.Snapshot) {
		if !snap.Exists {
			fn(nil, newError(ErrorCodeConversationNotFound, "conversation not found", store.ErrNotFound))
			return
		}
		fn(decodeMessages(snap.Value))
	})
}

func decodeConversations(value interface{}) ([]model.Conversation, error) {
	conversations, err := record.DecodeConversations(value)
	if err != nil {
		return nil, newError(ErrorCodeDecodeFailure, "conversations node is malformed", err)
	}
	return conversations, nil
}

func decodeMessages(value interface{}) ([]model.Message, error) {
	messages, err := record.DecodeMessages(value)
	if err != nil {
		return nil, newError(ErrorCodeDecodeFailure, "messages node is malformed", err)
	}
	return messages, nil
}

func withStage(err error, stage Stage) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		svcErr.Stage = stage
		return svcErr
	}
	return stageError(stage, ErrorCodeInternal, err.Error(), err)
}
