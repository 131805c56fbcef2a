package token

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"labtrust/internal/domain"
	"labtrust/internal/infra/keys"
)

// Issuer builds and signs identity tokens with the service key pair.
type Issuer struct {
	pair     *keys.KeyPair
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// IssueRequest carries the verified principal attributes a token is minted from.
type IssueRequest struct {
	Subject string
	UserID  string
	Roles   []string
	LabCode string
}

// IssuedToken is the signed token plus the claims it carries.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Roles     []string
	LabCode   string
}

func NewIssuer(pair *keys.KeyPair, issuer string, lifetime time.Duration) (*Issuer, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer name is required")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}
	return &Issuer{
		pair:     pair,
		issuer:   issuer,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Issue signs an RS256 token for the given attributes. Roles are
// case-normalized, deduplicated and sorted so equal inputs produce equal
// payloads. The labCode claim is carried only for LAB_TECH principals.
func (i *Issuer) Issue(req IssueRequest) (IssuedToken, error) {
	roles := NormalizeRoles(req.Roles)
	if len(roles) == 0 {
		return IssuedToken{}, fmt.Errorf("%w: at least one role is required", domain.ErrInvalidArgument)
	}

	labCode := ""
	for _, r := range roles {
		if r == domain.RoleLabTech {
			labCode = req.LabCode
			break
		}
	}

	now := i.now().UTC()
	exp := now.Add(i.lifetime)
	claims := &Payload{
		UserID:  req.UserID,
		Roles:   roles,
		LabCode: labCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   req.Subject,
			IssuedAt:  numericDate(now),
			ExpiresAt: numericDate(exp),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = i.pair.Kid()
	signed, err := tok.SignedString(i.pair.PrivateKey())
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	return IssuedToken{
		Token:     signed,
		ExpiresAt: exp,
		Roles:     roles,
		LabCode:   labCode,
	}, nil
}

// NormalizeRoles uppercases, deduplicates and sorts a role list.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		name := strings.ToUpper(strings.TrimSpace(r))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
