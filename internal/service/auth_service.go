package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"user_accounts/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

// ErrInvalidToken is returned for tokens that parse but carry no usable claims.
var ErrInvalidToken = errors.New("invalid token")

// AuthService issues and parses access tokens on top of account checks.
type AuthService struct {
	accounts   Accounts
	signingKey []byte
	tokenTTL   time.Duration
}

func NewAuthService(accounts Accounts, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{accounts: accounts, signingKey: []byte(cfg.SigningKey), tokenTTL: ttl}
}

// SignUp registers a new user and returns its ID.
func (s *AuthService) SignUp(ctx context.Context, u models.User) (int64, error) {
	return s.accounts.Register(ctx, u)
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// GenerateToken verifies credentials and returns a signed JWT.
func (s *AuthService) GenerateToken(ctx context.Context, email, password string) (string, error) {
	u, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	return s.issueToken(u.ID)
}

// ParseToken parses JWT and returns userID
func (s *AuthService) ParseToken(accessToken string) (int64, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// issueToken signs a JWT for a user.
func (s *AuthService) issueToken(userID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString(s.signingKey)
}
