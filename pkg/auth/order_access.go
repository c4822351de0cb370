package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// OrderAccessAudience scopes order history tokens so they cannot stand in
// for back-office tokens.
const OrderAccessAudience = "order-history"

const defaultOrderAccessTTL = 24 * time.Hour

// OrderAccessClaims prove the bearer saw an order confirmation for Email.
type OrderAccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// MintOrderAccessToken issues a token that unlocks the order history of email.
func MintOrderAccessToken(cfg config.JWTConfig, now time.Time, email string) (string, time.Time, error) {
	if cfg.Secret == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	email = NormalizeEmail(email)
	if email == "" {
		return "", time.Time{}, fmt.Errorf("email is required")
	}
	ttl := cfg.OrderAccessTTL
	if ttl <= 0 {
		ttl = defaultOrderAccessTTL
	}
	expires := now.Add(ttl)

	claims := OrderAccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{OrderAccessAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing jwt: %w", err)
	}
	return signed, expires, nil
}

// ParseOrderAccessToken validates the token and returns the email it covers.
func ParseOrderAccessToken(cfg config.JWTConfig, tokenString string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	claims := &OrderAccessClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(OrderAccessAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	email := NormalizeEmail(claims.Email)
	if email == "" {
		return "", fmt.Errorf("token missing email")
	}
	return email, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
