package server

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
)

type userClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (t *TokenService) Generate(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := userClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify returns the user ID embedded in a valid token.
func (t *TokenService) Verify(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &userClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.NewAppError("TOKEN_INVALID", "unexpected signing method", common.ErrUnauthorized)
		}
		return t.secret, nil
	})
	if err != nil {
		return uuid.Nil, common.NewAppError("TOKEN_INVALID", "invalid or expired token", common.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(*userClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, common.NewAppError("TOKEN_INVALID", "invalid token claims", common.ErrUnauthorized)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, common.NewAppError("TOKEN_INVALID", "malformed user id in token", common.ErrUnauthorized)
	}
	return id, nil
}
