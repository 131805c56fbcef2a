package keys

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"labtrust/internal/domain"
)

// KeyPair holds the issuer's RSA signing key material. It is immutable
// after construction and safe to share across requests.
type KeyPair struct {
	public  *rsa.PublicKey
	private *rsa.PrivateKey
	kid     string
}

// LoadKeyPair parses PEM-encoded public and private keys and checks that
// they form a matching pair. Inputs are already-materialized strings; the
// values may carry escaped newlines and stray quotes when injected through
// environment variables, so they are normalized first.
func LoadKeyPair(publicPEM, privatePEM string) (*KeyPair, error) {
	publicPEM = normalizePEM(publicPEM)
	privatePEM = normalizePEM(privatePEM)
	if publicPEM == "" {
		return nil, fmt.Errorf("%w: public key PEM is empty", domain.ErrKeyLoad)
	}
	if privatePEM == "" {
		return nil, fmt.Errorf("%w: private key PEM is empty", domain.ErrKeyLoad)
	}

	pub, err := parsePublicKey(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyLoad, err)
	}
	priv, err := parsePrivateKey(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyLoad, err)
	}
	if pub.N.Cmp(priv.N) != 0 || pub.E != priv.PublicKey.E {
		return nil, fmt.Errorf("%w: public and private keys do not match", domain.ErrKeyLoad)
	}

	return &KeyPair{
		public:  pub,
		private: priv,
		kid:     computeKid(pub),
	}, nil
}

func (k *KeyPair) PublicKey() *rsa.PublicKey   { return k.public }
func (k *KeyPair) PrivateKey() *rsa.PrivateKey { return k.private }

// Kid is a stable identifier for the public key, derived from its DER
// encoding. Published in the JWKS and stamped into token headers.
func (k *KeyPair) Kid() string { return k.kid }

func normalizePEM(raw string) string {
	clean := strings.NewReplacer(`"`, "", ",", "").Replace(raw)
	return strings.TrimSpace(strings.ReplaceAll(clean, `\n`, "\n"))
}

func parsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in public key input")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %v", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return pub, nil
}

func parsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in private key input")
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		priv, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
		return priv, nil
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %v", err)
	}
	return priv, nil
}

func computeKid(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		// MarshalPKIXPublicKey cannot fail for a key that ParsePKIXPublicKey accepted.
		panic(err)
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
