package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"labtrust/internal/domain"
)

// Payload is the JWT payload shape shared by the issuer and both the local
// and remote verifiers. labCode is omitted entirely for tokens without a
// tenant scope.
type Payload struct {
	UserID  string   `json:"userId,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	LabCode string   `json:"labCode,omitempty"`
	jwt.RegisteredClaims
}

func (p *Payload) ToDomain() domain.Claims {
	out := domain.Claims{
		Subject: p.Subject,
		UserID:  p.UserID,
		Roles:   append([]string(nil), p.Roles...),
		LabCode: p.LabCode,
		Issuer:  p.Issuer,
	}
	if p.IssuedAt != nil {
		out.IssuedAt = p.IssuedAt.Time
	}
	if p.ExpiresAt != nil {
		out.ExpiresAt = p.ExpiresAt.Time
	}
	return out
}

func numericDate(t time.Time) *jwt.NumericDate {
	return jwt.NewNumericDate(t)
}
