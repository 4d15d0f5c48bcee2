package jwt

import (
	"fmt"
	"strings"
	"time"

	"chatting-demo-backend/internal/model"

	"github.com/golang-jwt/jwt"
)

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) CreateToken(session model.Session) (TokenResponse, error) {
	expires := i.now().Add(i.ttl).Unix()
	claims := jwt.MapClaims{
		"email": session.Email,
		"name":  session.Name,
		"exp":   expires,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: tokenString, ExpiresAt: expires}, nil
}

func (i *Issuer) ParseToken(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, ErrEmptyToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: claims of unauthorized type", ErrInvalidToken)
	}
	email, _ := mapClaims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return Claims{}, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	name, _ := mapClaims["name"].(string)
	exp, _ := mapClaims["exp"].(float64)
	return Claims{Email: email, Name: name, Exp: int64(exp)}, nil
}

// SessionFromToken verifies tokenString and returns the session it carries.
func (i *Issuer) SessionFromToken(tokenString string) (model.Session, error) {
	claims, err := i.ParseToken(tokenString)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{Email: claims.Email, Name: claims.Name}, nil
}
