package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "boxoffice", ExpirationMinutes: 30}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAdminToken(cfg, now, AdminTokenPayload{
		UserID:    userID,
		CompanyID: " comp-42 ",
		Role:      enums.AdminRoleOwner,
	})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.CompanyID != "comp-42" {
		t.Fatalf("expected trimmed company id, got %q", claims.CompanyID)
	}
	if claims.Role != enums.AdminRoleOwner {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer || claims.ID == "" {
		t.Fatalf("registered claims not populated: %+v", claims.RegisteredClaims)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.Time)
	}
}

func TestMintAdminTokenRequiresCompany(t *testing.T) {
	_, err := MintAdminToken(testJWTConfig(), time.Now(), AdminTokenPayload{
		UserID: uuid.New(),
		Role:   enums.AdminRoleStaff,
	})
	if err == nil || !strings.Contains(err.Error(), "company") {
		t.Fatalf("expected missing company error, got %v", err)
	}
}

func TestParseAdminTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{
		UserID:    uuid.New(),
		CompanyID: "comp-1",
		Role:      enums.AdminRoleStaff,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Secret = "different"
	if _, err := ParseAdminToken(other, token); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now().Add(-2*time.Hour), AdminTokenPayload{
		UserID:    uuid.New(),
		CompanyID: "comp-1",
		Role:      enums.AdminRoleStaff,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAdminTokenRejectsMissingCompany(t *testing.T) {
	cfg := testJWTConfig()
	claims := AdminClaims{
		UserID: uuid.New(),
		Role:   enums.AdminRoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token); err == nil {
		t.Fatal("expected token without company to be rejected")
	}
}
