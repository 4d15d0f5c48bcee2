package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatting-demo-backend/internal/dto"
	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/record"
	conversationservice "chatting-demo-backend/internal/service/conversation"
	"chatting-demo-backend/internal/store"
	"chatting-demo-backend/internal/websocket"
)

type ConversationEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	Conversation(http.ResponseWriter, *http.Request) error
	ConversationsStream(http.ResponseWriter, *http.Request) error
	MessagesStream(http.ResponseWriter, *http.Request) error
}

type ConversationPaths struct {
	ConversationPrefix string
	StreamPrefix       string
}

type conversationEndpoints struct {
	service *conversationservice.Service
	streams *websocket.Handler
	paths   ConversationPaths
}

func NewConversationEndpoints(service *conversationservice.Service, streams *websocket.Handler, paths ConversationPaths) ConversationEndpoints {
	return &conversationEndpoints{
		service: service,
		streams: streams,
		paths:   paths,
	}
}

func (h *conversationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListConversations,
		http.MethodPost: h.handleCreateConversation,
	})
}

// Conversation routes /{id}, /{id}/read and /{id}/messages.
func (h *conversationEndpoints) Conversation(w http.ResponseWriter, r *http.Request) error {
	parts, ok := pathParts(r.URL.Path, h.paths.ConversationPrefix)
	if !ok || len(parts) == 0 {
		return notFound(r.URL.Path)
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodDelete: func(w http.ResponseWriter, r *http.Request) error { return h.handleDelete(w, r, id) },
		})
	case len(parts) == 2 && parts[1] == "read":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleMarkRead(w, r, id) },
		})
	case len(parts) == 2 && parts[1] == "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:  func(w http.ResponseWriter, r *http.Request) error { return h.handleListMessages(w, r, id) },
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleSendMessage(w, r, id) },
		})
	default:
		return notFound(r.URL.Path)
	}
}

func (h *conversationEndpoints) handleListConversations(w http.ResponseWriter, r *http.Request) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}

	conversations, err := h.service.FetchConversations(r.Context(), session.Email)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toConversationList(conversations))
}

// handleCreateConversation answers 201, or 207 when the counterpart's
// summary could not be written.
func (h *conversationEndpoints) handleCreateConversation(w http.ResponseWriter, r *http.Request) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.CreateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	msg, err := toMessage(req.Message)
	if err != nil {
		return err
	}

	result, err := h.service.CreateConversation(r.Context(), session, conversationservice.CreateConversationParams{
		OtherUserEmail: req.OtherUserEmail,
		OtherUserName:  req.OtherUserName,
		FirstMessage:   msg,
	})
	if err != nil {
		return serviceError(err)
	}

	resp := dto.CreateConversationResponse{
		ConversationID:     result.ConversationID,
		Conversation:       toConversationResponse(result.Conversation),
		Message:            toMessageResponse(result.Message),
		CounterpartUpdated: result.CounterpartUpdated,
	}
	status := http.StatusCreated
	if result.CounterpartErr != nil {
		status = http.StatusMultiStatus
		resp.Errors = []dto.StepError{stepError(string(conversationservice.StageCounterpartSummary), result.CounterpartErr)}
	}
	return WriteJSON(w, status, resp)
}

func (h *conversationEndpoints) handleDelete(w http.ResponseWriter, r *http.Request, id string) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	if err := h.service.DeleteConversation(r.Context(), session, id); err != nil {
		return serviceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *conversationEndpoints) handleMarkRead(w http.ResponseWriter, r *http.Request, id string) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	if err := h.service.MarkConversationRead(r.Context(), session, id); err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "conversation marked as read"})
}

func (h *conversationEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request, id string) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	if err := h.requireParticipant(r.Context(), session, id); err != nil {
		return err
	}

	messages, err := h.service.FetchMessages(r.Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toMessageList(messages))
}

// handleSendMessage answers 201, or 207 when the message was appended but a
// summary update failed.
func (h *conversationEndpoints) handleSendMessage(w http.ResponseWriter, r *http.Request, id string) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	msg, err := toMessage(req.Message)
	if err != nil {
		return err
	}

	result, err := h.service.SendMessage(r.Context(), session, conversationservice.SendMessageParams{
		ConversationID: id,
		OtherUserEmail: req.OtherUserEmail,
		SenderName:     req.SenderName,
		Message:        msg,
	})
	if err != nil && !result.MessageAppended {
		return serviceError(err)
	}

	resp := dto.SendMessageResponse{
		Message:                 toMessageResponse(result.Message),
		MessageAppended:         result.MessageAppended,
		SenderSummaryUpdated:    result.SenderSummaryErr == nil,
		RecipientSummaryUpdated: result.RecipientSummaryErr == nil,
	}
	if result.SenderSummaryErr != nil {
		resp.Errors = append(resp.Errors, stepError(string(conversationservice.StageSenderSummary), result.SenderSummaryErr))
	}
	if result.RecipientSummaryErr != nil {
		resp.Errors = append(resp.Errors, stepError(string(conversationservice.StageRecipientSummary), result.RecipientSummaryErr))
	}

	status := http.StatusCreated
	if !result.OK() {
		status = http.StatusMultiStatus
	}
	return WriteJSON(w, status, resp)
}

// ConversationsStream streams the caller's conversation summaries.
func (h *conversationEndpoints) ConversationsStream(w http.ResponseWriter, r *http.Request) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	if err := h.requireStreams(); err != nil {
		return err
	}

	email := session.Email
	roomID := "conversations:" + session.IdentityKey()
	h.streams.Stream(w, r, roomID, session.IdentityKey(), func(ctx context.Context, emit func(websocket.Event)) (*store.Subscription, error) {
		return h.service.WatchConversations(ctx, email, func(conversations []model.Conversation, err error) {
			if err != nil {
				emit(websocket.Event{Type: "error", Err: err})
				return
			}
			emit(websocket.Event{Type: "conversations", Payload: toConversationList(conversations)})
		})
	})
	return nil
}

// MessagesStream streams the thread at /{id}/messages.
func (h *conversationEndpoints) MessagesStream(w http.ResponseWriter, r *http.Request) error {
	parts, ok := pathParts(r.URL.Path, h.paths.StreamPrefix)
	if !ok || len(parts) != 2 || parts[1] != "messages" {
		return notFound(r.URL.Path)
	}
	id := parts[0]

	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	if err := h.requireStreams(); err != nil {
		return err
	}
	if err := h.requireParticipant(r.Context(), session, id); err != nil {
		return err
	}

	h.streams.Stream(w, r, "messages:"+id, session.IdentityKey(), func(ctx context.Context, emit func(websocket.Event)) (*store.Subscription, error) {
		return h.service.WatchMessages(ctx, id, func(messages []model.Message, err error) {
			if err != nil {
				emit(websocket.Event{Type: "error", Err: err})
				return
			}
			emit(websocket.Event{Type: "messages", Payload: toMessageList(messages)})
		})
	})
	return nil
}

func (h *conversationEndpoints) requireStreams() error {
	if h.streams == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("stream handler missing"),
		}
	}
	return nil
}

// requireParticipant hides threads that are not in the caller's own
// conversation list.
func (h *conversationEndpoints) requireParticipant(ctx context.Context, session model.Session, id string) error {
	conversations, err := h.service.FetchConversations(ctx, session.Email)
	if err != nil {
		return serviceError(err)
	}
	for _, c := range conversations {
		if c.ID == id {
			return nil
		}
	}
	return &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    "conversation not found",
		Code:       string(conversationservice.ErrorCodeConversationNotFound),
		ErrorLog:   fmt.Errorf("%s is not a conversation of %s", id, session.IdentityKey()),
	}
}

func toMessage(payload dto.MessagePayload) (model.Message, error) {
	msg := model.Message{
		ID:      strings.TrimSpace(payload.ID),
		Kind:    model.MessageKind(strings.TrimSpace(payload.Type)),
		Content: payload.Content,
	}
	if payload.SentAt != "" {
		sentAt, err := time.Parse(time.RFC3339, payload.SentAt)
		if err != nil {
			return model.Message{}, &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "sentAt must be RFC3339",
				Code:       string(conversationservice.ErrorCodeValidation),
				ErrorLog:   fmt.Errorf("parse sentAt: %w", err),
			}
		}
		msg.SentAt = sentAt
	}
	return msg, nil
}

func toConversationList(conversations []model.Conversation) dto.ListConversationsResponse {
	resp := dto.ListConversationsResponse{Conversations: make([]dto.ConversationResponse, len(conversations))}
	for i, c := range conversations {
		resp.Conversations[i] = toConversationResponse(c)
	}
	return resp
}

func toMessageList(messages []model.Message) dto.ListMessagesResponse {
	resp := dto.ListMessagesResponse{Messages: make([]dto.MessageResponse, len(messages))}
	for i, m := range messages {
		resp.Messages[i] = toMessageResponse(m)
	}
	return resp
}

func toConversationResponse(c model.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:             c.ID,
		OtherUserEmail: c.OtherUserEmail,
		Name:           c.Name,
		LatestMessage: dto.LatestMessageResponse{
			Date:    c.LatestMessage.Date,
			Message: c.LatestMessage.Message,
			IsRead:  c.LatestMessage.IsRead,
		},
	}
}

func toMessageResponse(m model.Message) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:          m.ID,
		Type:        string(m.Kind),
		Content:     m.Content,
		SenderEmail: m.SenderEmail,
		SenderName:  m.SenderName,
		IsRead:      m.IsRead,
	}
	if !m.SentAt.IsZero() {
		resp.Date = record.FormatDate(m.SentAt)
	}
	return resp
}
