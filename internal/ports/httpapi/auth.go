package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// OperatorRole is the role claim required to change bandit parameters.
const OperatorRole = "operator"

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid operator token")
	ErrAuthDisabled  = errors.New("operator secret not configured")
	ErrNotAnOperator = errors.New("token lacks operator role")
)

// IssueOperatorToken signs an HS256 token for subject valid for ttl.
func IssueOperatorToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrAuthDisabled
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": OperatorRole,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign operator token: %w", err)
	}
	return token, nil
}

// verifyOperator checks the request's bearer token and returns its subject.
func verifyOperator(secret string, r *http.Request) (string, error) {
	if secret == "" {
		return "", ErrAuthDisabled
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(raw, "Bearer ") {
		return "", ErrMissingToken
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if role, _ := claims["role"].(string); role != OperatorRole {
		return "", ErrNotAnOperator
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
