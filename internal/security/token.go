package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims bind a token to a user, its team membership and the
// persisted session row (jti). The middleware rejects tokens whose session
// row no longer exists, which is how change-password revokes other devices.
type SessionClaims struct {
	UserID       string `json:"uid"`
	TeamID       string `json:"tid"`
	TeamMemberID string `json:"tmb"`
	IsRoot       bool   `json:"root"`
	jwt.RegisteredClaims
}

func GenerateSessionToken(secret string, sessionID string, userID string, teamID string, teamMemberID string, isRoot bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:       userID,
		TeamID:       teamID,
		TeamMemberID: teamMemberID,
		IsRoot:       isRoot,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseSessionToken(tokenStr string, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
