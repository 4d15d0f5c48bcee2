package model

import "testing"

func TestIdentityKey(t *testing.T) {
	cases := map[string]string{
		"alice@example.com":       "alice-example-com",
		"john.doe@mail.co.uk":     "john-doe-mail-co-uk",
		"already-key-example-com": "already-key-example-com",
		"":                        "",
	}
	for in, want := range cases {
		if got := IdentityKey(in); got != want {
			t.Fatalf("IdentityKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIdentityKeyIdempotent(t *testing.T) {
	emails := []string{"alice@example.com", "a.b.c@d.e.f", "bob+tag@example.org", "x@y"}
	for _, email := range emails {
		once := IdentityKey(email)
		if twice := IdentityKey(once); twice != once {
			t.Fatalf("IdentityKey not idempotent for %q: %q then %q", email, once, twice)
		}
	}
}

func TestConversationPaths(t *testing.T) {
	id := ConversationID("msg-1")
	if id != "conversation_msg-1" {
		t.Fatalf("unexpected conversation id %s", id)
	}
	if !IsConversationID(id) {
		t.Fatalf("expected %s to be a conversation id", id)
	}
	if IsConversationID("conversation_") {
		t.Fatal("bare prefix must not be a conversation id")
	}
	if got := ConversationsPath("bob@example.com"); got != "bob-example-com/conversations" {
		t.Fatalf("unexpected conversations path %s", got)
	}
	if got := MessagesPath(id); got != "conversation_msg-1/messages" {
		t.Fatalf("unexpected messages path %s", got)
	}
}

func TestValidMessageID(t *testing.T) {
	cases := map[string]bool{
		"m1":            true,
		"5f0c-uuid-abc": true,
		"":              false,
		"m.1":           false,
		"a/b":           false,
		"m#1":           false,
		"m$1":           false,
		"m[1]":          false,
		" m1":           false,
	}
	for id, want := range cases {
		if got := ValidMessageID(id); got != want {
			t.Fatalf("ValidMessageID(%q) = %v, want %v", id, got, want)
		}
	}
	if IsConversationID("conversation_a/b") {
		t.Fatal("conversation id with a slash must be rejected")
	}
}

func TestDisplayName(t *testing.T) {
	u := User{FirstName: " Alice ", LastName: "Smith"}
	if got := u.DisplayName(); got != "Alice Smith" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := (User{FirstName: "Bob"}).DisplayName(); got != "Bob" {
		t.Fatalf("unexpected display name %q", got)
	}
}
