package openid4vp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	jwxv1 "github.com/lestrrat-go/jwx/jwk"
)

func jwksTestServer(t *testing.T, privateKey *ecdsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()

	key, err := jwxv1.New(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	if err := key.Set(jwxv1.KeyIDKey, kid); err != nil {
		t.Fatalf("set kid: %v", err)
	}

	set := jwxv1.NewSet()
	set.Add(key)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := jwxv1.EncodeJSON(w, set); err != nil {
			t.Fatalf("encode jwks: %v", err)
		}
	}))
}

func TestJWKSKeyResolver_ResolveKey(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	srv := jwksTestServer(t, privateKey, "key-1")
	defer srv.Close()

	resolver := NewJWKSKeyResolver()
	resolver.JWKSURL = func(issuer string) string { return srv.URL }

	pub, err := resolver.ResolveKey(context.Background(), "https://issuer.example.com", "key-1")
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		t.Fatalf("ResolveKey() returned %T, want *ecdsa.PublicKey", pub)
	}
	if !ecPub.Equal(&privateKey.PublicKey) {
		t.Error("ResolveKey() returned a key that does not match the published JWKS")
	}
}

func TestJWKSKeyResolver_UnknownKidFails(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	srv := jwksTestServer(t, privateKey, "key-1")
	defer srv.Close()

	resolver := NewJWKSKeyResolver()
	resolver.JWKSURL = func(issuer string) string { return srv.URL }

	if _, err := resolver.ResolveKey(context.Background(), "https://issuer.example.com", "key-missing"); err == nil {
		t.Error("ResolveKey() should fail for an unknown kid")
	}
}

func TestJWKSKeyResolver_CachesSetPerURL(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	hits := 0
	key, err := jwxv1.New(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	if err := key.Set(jwxv1.KeyIDKey, "key-1"); err != nil {
		t.Fatalf("set kid: %v", err)
	}
	set := jwxv1.NewSet()
	set.Add(key)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		if err := jwxv1.EncodeJSON(w, set); err != nil {
			t.Fatalf("encode jwks: %v", err)
		}
	}))
	defer srv.Close()

	resolver := NewJWKSKeyResolver()
	resolver.JWKSURL = func(issuer string) string { return srv.URL }

	for range 3 {
		if _, err := resolver.ResolveKey(context.Background(), "https://issuer.example.com", "key-1"); err != nil {
			t.Fatalf("ResolveKey() error = %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("JWKS endpoint was hit %d times, want 1 (cached)", hits)
	}
}
