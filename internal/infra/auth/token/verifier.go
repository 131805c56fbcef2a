package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
)

// Verifier validates tokens against a public key held directly in memory.
// The issuer uses it for its own protected endpoints.
//
// Verification has a single observable failure mode: ok=false. The precise
// reason is logged but never reported to the caller, so a client cannot
// probe which check rejected its token.
type Verifier struct {
	public *rsa.PublicKey
	issuer string
	now    func() time.Time
	log    zerolog.Logger
}

func NewVerifier(public *rsa.PublicKey, issuer string, log zerolog.Logger) *Verifier {
	return &Verifier{
		public: public,
		issuer: issuer,
		now:    time.Now,
		log:    log,
	}
}

// Verify parses and validates a token. Expiry is strict: no clock skew is
// tolerated when the key is local.
func (v *Verifier) Verify(_ context.Context, tokenString string) (domain.Claims, bool) {
	var claims Payload
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if typ, _ := t.Header["typ"].(string); typ != "JWT" {
			return nil, errors.New("unexpected token type")
		}
		return v.public, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	)
	if err != nil {
		v.log.Debug().Err(err).Msg("token rejected by local verifier")
		return domain.Claims{}, false
	}
	return claims.ToDomain(), true
}
