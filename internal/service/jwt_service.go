package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService emite y valida bearer tokens con sub = username.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "user-analytics",
	}
}

// Issue firma un access token para el username dado.
func (s *JWTService) Issue(username string) (Token, error) {
	if len(s.secret) == 0 {
		return Token{}, ErrJWTInvalid
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Token{}, ErrJWTInvalid
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "bearer"}, nil
}

// ParseSubject valida un token y devuelve el username del claim sub.
func (s *JWTService) ParseSubject(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrJWTInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return "", ErrJWTInvalid
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrJWTExpired
		}
		return "", ErrJWTInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrJWTInvalid
	}
	if claims.Issuer != s.issuer {
		return "", ErrJWTInvalid
	}
	return claims.Subject, nil
}
