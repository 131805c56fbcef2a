package remote

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/token"
)

// DefaultSkew is the clock-skew tolerance applied when comparing token
// timestamps sourced from another service's clock.
const DefaultSkew = 60 * time.Second

// Verifier validates tokens against the issuer's remotely published key
// set, selecting the key by the token's kid header. Like the local
// verifier it exposes a single failure mode to callers and keeps the
// rejection reason in the logs.
type Verifier struct {
	cache  *KeySetCache
	issuer string
	skew   time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewVerifier(cache *KeySetCache, issuer string, skew time.Duration, log zerolog.Logger) *Verifier {
	if skew <= 0 {
		skew = DefaultSkew
	}
	return &Verifier{
		cache:  cache,
		issuer: issuer,
		skew:   skew,
		now:    time.Now,
		log:    log,
	}
}

// Verify parses and validates a token. Expiry is compared with the skew
// tolerance subtracted from now, and tokens issued more than the same
// tolerance in the future are rejected.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (domain.Claims, bool) {
	var claims token.Payload
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if typ, _ := t.Header["typ"].(string); typ != "JWT" {
			return nil, errors.New("unexpected token type")
		}
		kid, _ := t.Header["kid"].(string)
		return v.cache.ResolveKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	)
	if err != nil {
		v.log.Debug().Err(err).Msg("token rejected by remote verifier")
		return domain.Claims{}, false
	}
	return claims.ToDomain(), true
}
