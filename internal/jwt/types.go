package jwt

import (
	"errors"
	"time"
)

var (
	ErrEmptyToken   = errors.New("jwt: token string is empty")
	ErrInvalidToken = errors.New("jwt: token is not valid")
	ErrNoSecret     = errors.New("jwt: signing secret is empty")
)

const DefaultTTL = 24 * time.Hour

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Claims carries the session identity: the user's email and display name.
type Claims struct {
	Email string
	Name  string
	Exp   int64
}
