package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"labtrust/internal/domain"
	"labtrust/internal/infra/keys"
)

func testKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	pair, err := keys.LoadKeyPair(
		string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	)
	if err != nil {
		t.Fatalf("load key pair: %v", err)
	}
	return pair
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", 30*time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	issued, err := issuer.Issue(IssueRequest{
		Subject: "alice",
		UserID:  "user-1",
		Roles:   []string{"admin"},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewVerifier(pair.PublicKey(), "labtrust-auth", zerolog.Nop())
	claims, ok := verifier.Verify(context.Background(), issued.Token)
	if !ok {
		t.Fatal("expected token to verify")
	}
	if claims.Subject != "alice" || claims.UserID != "user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !reflect.DeepEqual(claims.Roles, []string{"ADMIN"}) {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
	if claims.Issuer != "labtrust-auth" {
		t.Fatalf("unexpected issuer: %q", claims.Issuer)
	}
}

func TestIssueNormalizesRoles(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	issued, err := issuer.Issue(IssueRequest{
		Subject: "bob",
		Roles:   []string{" lab_tech ", "ADMIN", "admin", ""},
		LabCode: "LAB-7",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := []string{"ADMIN", "LAB_TECH"}; !reflect.DeepEqual(issued.Roles, want) {
		t.Fatalf("roles = %v, want %v", issued.Roles, want)
	}
	if issued.LabCode != "LAB-7" {
		t.Fatalf("labCode = %q, want LAB-7", issued.LabCode)
	}
}

func TestIssueLabCodeOnlyForLabTech(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	issued, err := issuer.Issue(IssueRequest{
		Subject: "carol",
		Roles:   []string{"ADMIN"},
		LabCode: "LAB-7",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.LabCode != "" {
		t.Fatalf("labCode = %q, want empty for non-LAB_TECH token", issued.LabCode)
	}

	verifier := NewVerifier(pair.PublicKey(), "labtrust-auth", zerolog.Nop())
	claims, ok := verifier.Verify(context.Background(), issued.Token)
	if !ok {
		t.Fatal("expected token to verify")
	}
	if claims.LabCode != "" {
		t.Fatalf("labCode claim leaked: %q", claims.LabCode)
	}
}

func TestIssueRequiresRoles(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if _, err := issuer.Issue(IssueRequest{Subject: "dave"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestVerifyExpiryIsStrict(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", 30*time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return t0 }

	issued, err := issuer.Issue(IssueRequest{Subject: "alice", Roles: []string{"ADMIN"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewVerifier(pair.PublicKey(), "labtrust-auth", zerolog.Nop())

	verifier.now = func() time.Time { return t0.Add(30*time.Minute - time.Second) }
	if _, ok := verifier.Verify(context.Background(), issued.Token); !ok {
		t.Fatal("token should verify just before expiry")
	}

	// No grace period: one second past expiry is a rejection.
	verifier.now = func() time.Time { return t0.Add(30*time.Minute + time.Second) }
	if _, ok := verifier.Verify(context.Background(), issued.Token); ok {
		t.Fatal("token should not verify past expiry")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "someone-else", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issued, err := issuer.Issue(IssueRequest{Subject: "alice", Roles: []string{"ADMIN"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewVerifier(pair.PublicKey(), "labtrust-auth", zerolog.Nop())
	if _, ok := verifier.Verify(context.Background(), issued.Token); ok {
		t.Fatal("token from a different issuer should not verify")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issued, err := issuer.Issue(IssueRequest{Subject: "alice", Roles: []string{"ADMIN"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := []byte(issued.Token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	verifier := NewVerifier(pair.PublicKey(), "labtrust-auth", zerolog.Nop())
	if _, ok := verifier.Verify(context.Background(), string(tampered)); ok {
		t.Fatal("tampered token should not verify")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	pair := testKeyPair(t)
	issuer, err := NewIssuer(pair, "labtrust-auth", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issued, err := issuer.Issue(IssueRequest{Subject: "alice", Roles: []string{"ADMIN"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := testKeyPair(t)
	verifier := NewVerifier(other.PublicKey(), "labtrust-auth", zerolog.Nop())
	if _, ok := verifier.Verify(context.Background(), issued.Token); ok {
		t.Fatal("token signed with a different key should not verify")
	}
}
