package openid4vp

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vc/pkg/sdjwtvc"
	"vc/pkg/trust"
)

func TestNewSDJWTHandler(t *testing.T) {
	h, err := NewSDJWTHandler()
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}
	if h == nil {
		t.Fatal("NewSDJWTHandler() returned nil")
	}
	if h.client == nil {
		t.Error("client should not be nil")
	}
	if h.verifyOpts == nil {
		t.Error("verifyOpts should not be nil")
	}
}

func TestNewSDJWTHandler_WithOptions(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	trustedIssuers := []string{"https://issuer.example.com"}

	h, err := NewSDJWTHandler(
		WithSDJWTStaticKey(&privateKey.PublicKey),
		WithSDJWTTrustedIssuers(trustedIssuers),
	)
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}

	if h.keyResolver == nil {
		t.Error("keyResolver should be set")
	}

	if len(h.trustedIssuers) != 1 {
		t.Errorf("trustedIssuers = %d, want 1", len(h.trustedIssuers))
	}
}

func TestNewSDJWTHandler_WithKeyBinding(t *testing.T) {
	h, err := NewSDJWTHandler(
		WithSDJWTRequireKeyBinding("test-nonce", "https://verifier.example.com"),
	)
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}

	if !h.verifyOpts.RequireKeyBinding {
		t.Error("RequireKeyBinding should be true")
	}
	if h.verifyOpts.ExpectedNonce != "test-nonce" {
		t.Errorf("ExpectedNonce = %s, want test-nonce", h.verifyOpts.ExpectedNonce)
	}
	if h.verifyOpts.ExpectedAudience != "https://verifier.example.com" {
		t.Errorf("ExpectedAudience = %s", h.verifyOpts.ExpectedAudience)
	}
}

func TestSDJWTHandler_VerifyAndExtract_EmptyToken(t *testing.T) {
	h, _ := NewSDJWTHandler()

	_, err := h.VerifyAndExtract(context.Background(), "")
	if err == nil {
		t.Error("VerifyAndExtract() should fail for empty token")
	}
}

func TestSDJWTHandler_VerifyAndExtract_NoKeyResolver(t *testing.T) {
	h, _ := NewSDJWTHandler()

	// Create a minimal valid-looking SD-JWT
	// This will fail at key resolution
	token := createTestSDJWT(t)

	_, err := h.VerifyAndExtract(context.Background(), token)
	if err == nil {
		t.Error("VerifyAndExtract() should fail without key resolver")
	}
}

func TestSDJWTHandler_VerifyAndExtract_UntrustedIssuer(t *testing.T) {
	privateKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	h, _ := NewSDJWTHandler(
		WithSDJWTStaticKey(&privateKey.PublicKey),
		WithSDJWTTrustedIssuers([]string{"https://other-issuer.example.com"}),
	)

	// Create SD-JWT with different issuer
	token := createTestSDJWT(t)

	_, err := h.VerifyAndExtract(context.Background(), token)
	if err == nil {
		t.Error("VerifyAndExtract() should fail for untrusted issuer")
	}
}

func TestSDJWTVerificationResult_GetClaims(t *testing.T) {
	result := &SDJWTVerificationResult{
		Valid:  true,
		Issuer: "https://issuer.example.com",
		Claims: map[string]any{
			"iss":         "https://issuer.example.com",
			"sub":         "user123",
			"family_name": "Doe",
		},
		DisclosedClaims: map[string]any{
			"family_name": "Doe",
		},
	}

	claims := result.GetClaims()
	if claims["family_name"] != "Doe" {
		t.Error("GetClaims() should return all claims")
	}

	disclosed := result.GetDisclosedClaims()
	if disclosed["family_name"] != "Doe" {
		t.Error("GetDisclosedClaims() should return disclosed claims")
	}
}

func TestStaticKeyResolver(t *testing.T) {
	privateKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	resolver := &StaticKeyResolver{Key: &privateKey.PublicKey}

	key, err := resolver.ResolveKey(context.Background(), "any-issuer", "any-kid")
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	if key != &privateKey.PublicKey {
		t.Error("ResolveKey() should return the static key")
	}
}

func TestStaticKeyResolver_NilKey(t *testing.T) {
	resolver := &StaticKeyResolver{}

	_, err := resolver.ResolveKey(context.Background(), "any-issuer", "any-kid")
	if err == nil {
		t.Error("ResolveKey() should fail with nil key")
	}
}

func TestGetStringClaim(t *testing.T) {
	claims := map[string]any{
		"str":    "string_value",
		"number": 42,
		"bool":   true,
	}

	if getStringClaim(claims, "str") != "string_value" {
		t.Error("should return string value")
	}
	if getStringClaim(claims, "number") != "" {
		t.Error("should return empty for non-string")
	}
	if getStringClaim(claims, "missing") != "" {
		t.Error("should return empty for missing")
	}
}

func TestSDJWTHandler_WithVerificationOptions(t *testing.T) {
	opts := &sdjwtvc.VerificationOptions{
		ValidateTime:     false,
		AllowedClockSkew: 10 * time.Minute,
	}

	h, err := NewSDJWTHandler(WithSDJWTVerificationOptions(opts))
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}

	if h.verifyOpts.ValidateTime != false {
		t.Error("ValidateTime should be false")
	}
	if h.verifyOpts.AllowedClockSkew != 10*time.Minute {
		t.Error("AllowedClockSkew should be 10 minutes")
	}
}

// MockKeyResolver is a mock implementation for testing
type MockKeyResolver struct {
	Key crypto.PublicKey
	Err error
}

func (r *MockKeyResolver) ResolveKey(ctx context.Context, issuer string, keyID string) (crypto.PublicKey, error) {
	return r.Key, r.Err
}

func TestSDJWTHandler_WithKeyResolver(t *testing.T) {
	privateKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	resolver := &MockKeyResolver{Key: &privateKey.PublicKey}

	h, err := NewSDJWTHandler(WithSDJWTKeyResolver(resolver))
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}

	if h.keyResolver != resolver {
		t.Error("keyResolver should be set to mock resolver")
	}
}

// createTestSDJWT creates a minimal test SD-JWT for testing
func createTestSDJWT(t *testing.T) string {
	t.Helper()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	client := sdjwtvc.New()

	documentData := []byte(`{
		"family_name": "Doe",
		"given_name": "John"
	}`)

	vctm := &sdjwtvc.VCTM{
		VCT:  "https://example.com/credentials/test",
		Name: "Test Credential",
	}

	token, err := client.BuildCredential(
		"https://issuer.example.com",
		"key-1",
		privateKey,
		"TestCredential",
		documentData,
		nil, // no holder binding
		vctm,
		nil,
	)
	if err != nil {
		t.Fatalf("Failed to build SD-JWT: %v", err)
	}

	return token
}

func TestSDJWTHandler_VerifyAndExtract_Valid(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	// Create the handler with the matching public key
	h, err := NewSDJWTHandler(
		WithSDJWTStaticKey(&privateKey.PublicKey),
		WithSDJWTTrustedIssuers([]string{"https://issuer.example.com"}),
	)
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}

	// Create a valid SD-JWT with the same private key
	client := sdjwtvc.New()

	documentData := []byte(`{
		"family_name": "Doe",
		"given_name": "John"
	}`)

	vctm := &sdjwtvc.VCTM{
		VCT:  "https://example.com/credentials/test",
		Name: "Test Credential",
	}

	token, err := client.BuildCredential(
		"https://issuer.example.com",
		"key-1",
		privateKey,
		"TestCredential",
		documentData,
		nil, // no holder binding
		vctm,
		nil,
	)
	if err != nil {
		t.Fatalf("Failed to build SD-JWT: %v", err)
	}

	// Verify and extract
	result, err := h.VerifyAndExtract(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyAndExtract() error = %v", err)
	}

	if !result.Valid {
		t.Error("result should be valid")
	}
	if result.Issuer != "https://issuer.example.com" {
		t.Errorf("Issuer = %s, want https://issuer.example.com", result.Issuer)
	}

	// Claims are in the main Claims map (not DisclosedClaims since not selectively disclosed)
	claims := result.GetClaims()
	if claims["family_name"] != "Doe" {
		t.Errorf("family_name = %v, want Doe", claims["family_name"])
	}
	if claims["given_name"] != "John" {
		t.Errorf("given_name = %v, want John", claims["given_name"])
	}

	// Check expiration time (nbf is set, iat might not be set by BuildCredential)
	if result.ExpiresAt == nil {
		t.Error("ExpiresAt should be set")
	}
}

// selfSignedLeaf mints a self-signed certificate over privateKey's public key,
// for use as the sole entry of an x5c header in trust-evaluator tests.
func selfSignedLeaf(t *testing.T, privateKey *ecdsa.PrivateKey, commonName string) *x509.Certificate {
	t.Helper()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		t.Fatalf("failed to create self-signed certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse self-signed certificate: %v", err)
	}
	return cert
}

// buildX5CSDJWT signs a minimal SD-JWT VC by hand, carrying leaf in the x5c
// header, so VerifyAndExtract can be exercised without a KeyResolver.
func buildX5CSDJWT(t *testing.T, privateKey *ecdsa.PrivateKey, issuer string, leaf *x509.Certificate) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": issuer,
		"vct": "https://example.com/credentials/test",
		"sub": "user-1",
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["typ"] = "dc+sd-jwt"
	token.Header["x5c"] = []string{base64.StdEncoding.EncodeToString(leaf.Raw)}

	signed, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("failed to sign x5c SD-JWT: %v", err)
	}
	return signed
}

// TestSDJWTHandler_VerifyAndExtract_TrustEvaluator exercises the KeyResolver-free
// path: the credential carries its issuer's certificate in the x5c header, and a
// trust.TrustEvaluator (backed by the same local trust anchors used for mdoc
// verification) derives the verification key once the chain is found trusted.
func TestSDJWTHandler_VerifyAndExtract_TrustEvaluator(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	leaf := selfSignedLeaf(t, privateKey, "https://issuer.example.com")
	evaluator := trust.NewLocalTrustEvaluator(trust.LocalTrustConfig{
		TrustedRoots: []*x509.Certificate{leaf},
	})

	h, err := NewSDJWTHandler(WithSDJWTTrustEvaluator(evaluator))
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}
	if h.keyResolver != nil {
		t.Fatal("keyResolver should remain unset when only a trust evaluator is configured")
	}

	token := buildX5CSDJWT(t, privateKey, "https://issuer.example.com", leaf)

	result, err := h.VerifyAndExtract(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyAndExtract() error = %v", err)
	}
	if !result.Valid {
		t.Error("result should be valid")
	}
	if result.Issuer != "https://issuer.example.com" {
		t.Errorf("Issuer = %s, want https://issuer.example.com", result.Issuer)
	}
}

func TestSDJWTHandler_VerifyAndExtract_NoResolverNoTrustEvaluator(t *testing.T) {
	h, err := NewSDJWTHandler()
	if err != nil {
		t.Fatalf("NewSDJWTHandler() error = %v", err)
	}

	privateKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	leaf := selfSignedLeaf(t, privateKey, "https://issuer.example.com")
	token := buildX5CSDJWT(t, privateKey, "https://issuer.example.com", leaf)

	if _, err := h.VerifyAndExtract(context.Background(), token); err == nil {
		t.Error("VerifyAndExtract() should fail without a key resolver or trust evaluator")
	}
}
