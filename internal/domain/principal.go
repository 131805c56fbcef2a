package domain

import "time"

const (
	RoleAdmin   = "ADMIN"
	RoleLabTech = "LAB_TECH"
)

// Claims is the fixed shape extracted from a verified identity token.
// LabCode is empty unless the token was issued for a LAB_TECH principal.
type Claims struct {
	Subject   string
	UserID    string
	Roles     []string
	LabCode   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the authenticated identity for the lifetime of one request.
type Principal struct {
	Subject string
	UserID  string
	Roles   []string
	LabCode string
}

func PrincipalFromClaims(c Claims) Principal {
	return Principal{
		Subject: c.Subject,
		UserID:  c.UserID,
		Roles:   append([]string(nil), c.Roles...),
		LabCode: c.LabCode,
	}
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}
