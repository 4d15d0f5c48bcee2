package model

// LatestMessage is the summary copied into both participants' records.
type LatestMessage struct {
	Date    string
	Message string
	IsRead  bool
}

// Conversation is one participant's summary of a conversation.
// OtherUserEmail always names the counterparty.
type Conversation struct {
	ID             string
	OtherUserEmail string
	Name           string
	LatestMessage  LatestMessage
}
