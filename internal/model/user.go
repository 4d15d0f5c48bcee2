package model

import "strings"

type User struct {
	Email     string
	FirstName string
	LastName  string
}

func (u User) IdentityKey() string {
	return IdentityKey(u.Email)
}

func (u User) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// DirectoryEntry is one element of the flat /users list. Email holds the
// identity key of the registered user.
type DirectoryEntry struct {
	Name  string
	Email string
}

type SearchResult struct {
	Name  string
	Email string
}

// Session identifies the calling user for every directory and
// synchronizer operation.
type Session struct {
	Email string
	Name  string
}

func (s Session) IdentityKey() string {
	return IdentityKey(s.Email)
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.Email) != ""
}
