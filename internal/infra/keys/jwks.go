package keys

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
)

// JWKS is the RFC 7517 document published at the well-known endpoint.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Publisher exposes the issuer's public signing keys. It holds no private
// key reference: leaking one through this path is structurally impossible.
type Publisher struct {
	public *rsa.PublicKey
	kid    string
}

func NewPublisher(pair *KeyPair) *Publisher {
	return &Publisher{public: pair.PublicKey(), kid: pair.Kid()}
}

// CurrentKeySet builds the published key set from the public key. The
// document is regenerated per call and never mutated.
func (p *Publisher) CurrentKeySet() JWKS {
	return JWKS{Keys: []JWK{
		{
			Kty: "RSA",
			Kid: p.kid,
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(p.public.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(p.public.E)).Bytes()),
		},
	}}
}
