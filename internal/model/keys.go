package model

import (
	"fmt"
	"strings"
)

const (
	UsersNode         = "users"
	ConversationsNode = "conversations"
	MessagesNode      = "messages"

	conversationIDPrefix = "conversation_"

	// reservedIDChars cannot appear in a path segment.
	reservedIDChars = "/.#$[]"
)

var identityKeyReplacer = strings.NewReplacer(".", "-", "@", "-")

// IdentityKey derives the storage key of a user record from an email
// address. Distinct emails may collide (e.g. "a-b@x.io" and "a.b@x.io").
func IdentityKey(email string) string {
	return identityKeyReplacer.Replace(email)
}

func ConversationID(firstMessageID string) string {
	return conversationIDPrefix + firstMessageID
}

func IsConversationID(id string) bool {
	return strings.HasPrefix(id, conversationIDPrefix) && ValidMessageID(strings.TrimPrefix(id, conversationIDPrefix))
}

// ValidMessageID reports whether id can name a message and, as a first
// message, the single path segment of its thread.
func ValidMessageID(id string) bool {
	return strings.TrimSpace(id) == id && id != "" && !strings.ContainsAny(id, reservedIDChars)
}

func UserPath(email string) string {
	return IdentityKey(email)
}

func ConversationsPath(email string) string {
	return fmt.Sprintf("%s/%s", IdentityKey(email), ConversationsNode)
}

func ThreadPath(conversationID string) string {
	return conversationID
}

func MessagesPath(conversationID string) string {
	return fmt.Sprintf("%s/%s", conversationID, MessagesNode)
}

func UsersPath() string {
	return UsersNode
}
