package auth

import (
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is stamped on tokens minted by this service.
const DefaultIssuer = "stockcount"

// Config holds the signing settings.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// AccessTokenClaims identifies a staff member and their role.
type AccessTokenClaims struct {
	StaffID string      `json:"staff_id"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity used by services.
func (c *AccessTokenClaims) Actor() domain.Actor {
	return domain.Actor{StaffID: c.StaffID, Role: c.Role}
}
