// Package record maps domain objects to the untyped nested maps persisted
// in the document store and back. Decoding fails closed: a record with a
// missing or mistyped field is dropped, never partially decoded.
package record

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"chatting-demo-backend/internal/model"
)

// DateLayout is the "MMM d, yyyy 'at' h:mm a" pattern shared by every
// encoder and decoder. Dates are rendered and parsed in UTC.
const DateLayout = "Jan 2, 2006 at 3:04 PM"

const (
	KeyID             = "id"
	KeyName           = "name"
	KeyOtherUserEmail = "otherUserEmail"
	KeyLatestMessage  = "latestMessage"
	KeyDate           = "date"
	KeyMessage        = "message"
	KeyIsRead         = "isRead"
	KeyType           = "type"
	KeyContent        = "content"
	KeySenderEmail    = "senderEmail"
	KeyEmail          = "email"
	KeyFirstName      = "firstName"
	KeyLastName       = "lastName"
	KeyConversations  = "conversations"
	KeyMessages       = "messages"
)

var (
	ErrUnsupportedKind = errors.New("record: message kind has no stored representation")
	ErrMalformed       = errors.New("record: malformed node")
)

type Record = map[string]interface{}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func EncodeLatestMessage(latest model.LatestMessage) Record {
	return Record{
		KeyDate:    latest.Date,
		KeyMessage: latest.Message,
		KeyIsRead:  latest.IsRead,
	}
}

func DecodeLatestMessage(value interface{}) (model.LatestMessage, bool) {
	rec, ok := asRecord(value)
	if !ok {
		return model.LatestMessage{}, false
	}
	date, ok := stringField(rec, KeyDate)
	if !ok {
		return model.LatestMessage{}, false
	}
	message, ok := stringField(rec, KeyMessage)
	if !ok {
		return model.LatestMessage{}, false
	}
	isRead, ok := boolField(rec, KeyIsRead)
	if !ok {
		return model.LatestMessage{}, false
	}
	return model.LatestMessage{Date: date, Message: message, IsRead: isRead}, true
}

// LatestFromMessage builds the unread summary snapshot of msg.
func LatestFromMessage(msg model.Message) model.LatestMessage {
	return model.LatestMessage{
		Date:    FormatDate(msg.SentAt),
		Message: msg.Content,
		IsRead:  false,
	}
}

func EncodeConversation(c model.Conversation) Record {
	return Record{
		KeyID:             c.ID,
		KeyOtherUserEmail: c.OtherUserEmail,
		KeyName:           c.Name,
		KeyLatestMessage:  EncodeLatestMessage(c.LatestMessage),
	}
}

func DecodeConversation(value interface{}) (model.Conversation, bool) {
	rec, ok := asRecord(value)
	if !ok {
		return model.Conversation{}, false
	}
	id, ok := stringField(rec, KeyID)
	if !ok {
		return model.Conversation{}, false
	}
	name, ok := stringField(rec, KeyName)
	if !ok {
		return model.Conversation{}, false
	}
	other, ok := stringField(rec, KeyOtherUserEmail)
	if !ok {
		return model.Conversation{}, false
	}
	latest, ok := DecodeLatestMessage(rec[KeyLatestMessage])
	if !ok {
		return model.Conversation{}, false
	}
	return model.Conversation{
		ID:             id,
		OtherUserEmail: other,
		Name:           name,
		LatestMessage:  latest,
	}, true
}

// DecodeConversations decodes a conversations list, dropping malformed
// entries. A node that is not a list is ErrMalformed.
func DecodeConversations(value interface{}) ([]model.Conversation, error) {
	items, ok := AsList(value)
	if !ok {
		return nil, ErrMalformed
	}
	out := make([]model.Conversation, 0, len(items))
	for _, item := range items {
		if c, ok := DecodeConversation(item); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func EncodeMessage(msg model.Message) (Record, error) {
	if !msg.Kind.Stored() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, msg.Kind)
	}
	return Record{
		KeyID:          msg.ID,
		KeyType:        string(msg.Kind),
		KeyContent:     msg.Content,
		KeyDate:        FormatDate(msg.SentAt),
		KeySenderEmail: msg.SenderEmail,
		KeyIsRead:      msg.IsRead,
		KeyName:        msg.SenderName,
	}, nil
}

func DecodeMessage(value interface{}) (model.Message, bool) {
	rec, ok := asRecord(value)
	if !ok {
		return model.Message{}, false
	}
	name, ok := stringField(rec, KeyName)
	if !ok {
		return model.Message{}, false
	}
	isRead, ok := boolField(rec, KeyIsRead)
	if !ok {
		return model.Message{}, false
	}
	id, ok := stringField(rec, KeyID)
	if !ok {
		return model.Message{}, false
	}
	content, ok := stringField(rec, KeyContent)
	if !ok {
		return model.Message{}, false
	}
	sender, ok := stringField(rec, KeySenderEmail)
	if !ok {
		return model.Message{}, false
	}
	dateStr, ok := stringField(rec, KeyDate)
	if !ok {
		return model.Message{}, false
	}
	kindStr, ok := stringField(rec, KeyType)
	if !ok {
		return model.Message{}, false
	}
	sentAt, err := ParseDate(dateStr)
	if err != nil {
		return model.Message{}, false
	}

	kind := model.MessageKindText
	switch model.MessageKind(kindStr) {
	case model.MessageKindPhoto, model.MessageKindVideo:
		if !isAbsoluteURL(content) {
			return model.Message{}, false
		}
		kind = model.MessageKind(kindStr)
	}

	return model.Message{
		ID:          id,
		Kind:        kind,
		Content:     content,
		SentAt:      sentAt,
		SenderEmail: sender,
		SenderName:  name,
		IsRead:      isRead,
	}, true
}

// DecodeMessages decodes a thread's messages list, dropping malformed
// entries. A node that is not a list is ErrMalformed.
func DecodeMessages(value interface{}) ([]model.Message, error) {
	items, ok := AsList(value)
	if !ok {
		return nil, ErrMalformed
	}
	out := make([]model.Message, 0, len(items))
	for _, item := range items {
		if m, ok := DecodeMessage(item); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func EncodeDirectoryEntry(e model.DirectoryEntry) Record {
	return Record{
		KeyName:  e.Name,
		KeyEmail: e.Email,
	}
}

func DecodeDirectoryEntry(value interface{}) (model.DirectoryEntry, bool) {
	rec, ok := asRecord(value)
	if !ok {
		return model.DirectoryEntry{}, false
	}
	name, ok := stringField(rec, KeyName)
	if !ok {
		return model.DirectoryEntry{}, false
	}
	email, ok := stringField(rec, KeyEmail)
	if !ok {
		return model.DirectoryEntry{}, false
	}
	return model.DirectoryEntry{Name: name, Email: email}, true
}

func DecodeDirectory(value interface{}) ([]model.DirectoryEntry, error) {
	items, ok := AsList(value)
	if !ok {
		return nil, ErrMalformed
	}
	out := make([]model.DirectoryEntry, 0, len(items))
	for _, item := range items {
		if e, ok := DecodeDirectoryEntry(item); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// EncodeUser produces a fresh user record without conversations.
func EncodeUser(u model.User) Record {
	return Record{
		KeyFirstName: u.FirstName,
		KeyLastName:  u.LastName,
	}
}

func DecodeUser(email string, value interface{}) (model.User, bool) {
	rec, ok := asRecord(value)
	if !ok {
		return model.User{}, false
	}
	first, ok := stringField(rec, KeyFirstName)
	if !ok {
		return model.User{}, false
	}
	last, ok := stringField(rec, KeyLastName)
	if !ok {
		return model.User{}, false
	}
	return model.User{Email: email, FirstName: first, LastName: last}, true
}

// AsRecord exposes the map view of a stored node.
func AsRecord(value interface{}) (Record, bool) {
	return asRecord(value)
}

// AsList exposes the list view of a stored node.
func AsList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	}
	return nil, false
}

func asRecord(value interface{}) (Record, bool) {
	rec, ok := value.(map[string]interface{})
	return rec, ok && rec != nil
}

func stringField(rec Record, key string) (string, bool) {
	v, ok := rec[key].(string)
	return v, ok
}

func boolField(rec Record, key string) (bool, bool) {
	v, ok := rec[key].(bool)
	return v, ok
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
