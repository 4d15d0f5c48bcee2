package model

import "time"

type MessageKind string

const (
	MessageKindText           MessageKind = "text"
	MessageKindPhoto          MessageKind = "photo"
	MessageKindVideo          MessageKind = "video"
	MessageKindAttributedText MessageKind = "attributed_text"
	MessageKindLocation       MessageKind = "location"
	MessageKindEmoji          MessageKind = "emoji"
	MessageKindAudio          MessageKind = "audio"
	MessageKindContact        MessageKind = "contact"
	MessageKindLinkPreview    MessageKind = "link_preview"
	MessageKindCustom         MessageKind = "custom"
)

// Stored reports whether the kind has an encoded representation.
func (k MessageKind) Stored() bool {
	switch k {
	case MessageKindText, MessageKindPhoto, MessageKindVideo:
		return true
	}
	return false
}

func (k MessageKind) IsMedia() bool {
	return k == MessageKindPhoto || k == MessageKindVideo
}

// Message is one entry of a conversation thread. Content is the literal
// text for text messages and the media URL for photo and video messages.
type Message struct {
	ID          string
	Kind        MessageKind
	Content     string
	SentAt      time.Time
	SenderEmail string
	SenderName  string
	IsRead      bool
}
