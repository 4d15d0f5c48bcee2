package dto

type LatestMessageResponse struct {
	Date    string `json:"date"`
	Message string `json:"message"`
	IsRead  bool   `json:"isRead"`
}

type ConversationResponse struct {
	ID             string                `json:"id"`
	OtherUserEmail string                `json:"otherUserEmail"`
	Name           string                `json:"name"`
	LatestMessage  LatestMessageResponse `json:"latestMessage"`
}

type MessageResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	Date        string `json:"date"`
	SenderEmail string `json:"senderEmail"`
	SenderName  string `json:"senderName"`
	IsRead      bool   `json:"isRead"`
}

// MessagePayload is an outgoing message. ID and SentAt are optional and
// filled by the server when empty; SentAt is RFC3339.
type MessagePayload struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Content string `json:"content"`
	SentAt  string `json:"sentAt,omitempty"`
}

type CreateConversationRequest struct {
	OtherUserEmail string         `json:"otherUserEmail"`
	OtherUserName  string         `json:"otherUserName"`
	Message        MessagePayload `json:"message"`
}

type CreateConversationResponse struct {
	ConversationID     string               `json:"conversationId"`
	Conversation       ConversationResponse `json:"conversation"`
	Message            MessageResponse      `json:"message"`
	CounterpartUpdated bool                 `json:"counterpartUpdated"`
	Errors             []StepError          `json:"errors,omitempty"`
}

type SendMessageRequest struct {
	OtherUserEmail string         `json:"otherUserEmail"`
	SenderName     string         `json:"senderName,omitempty"`
	Message        MessagePayload `json:"message"`
}

type SendMessageResponse struct {
	Message                 MessageResponse `json:"message"`
	MessageAppended         bool            `json:"messageAppended"`
	SenderSummaryUpdated    bool            `json:"senderSummaryUpdated"`
	RecipientSummaryUpdated bool            `json:"recipientSummaryUpdated"`
	Errors                  []StepError     `json:"errors,omitempty"`
}

// StepError describes one failed write of a multi-write operation.
type StepError struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}
