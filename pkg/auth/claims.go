package auth

import (
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminTokenPayload captures the data available when minting a back-office JWT.
type AdminTokenPayload struct {
	UserID    uuid.UUID
	CompanyID string
	Role      enums.AdminRole
	JTI       string
}

// AdminClaims represents the typed JWT presented by back-office users.
type AdminClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	CompanyID string          `json:"company_id"`
	Role      enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
