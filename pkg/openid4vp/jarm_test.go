package openid4vp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

func TestJARMOptionFromConfig(t *testing.T) {
	tests := []struct {
		name                       string
		signedAlg, encAlg, encEnc string
		want                       JARMKind
	}{
		{"none configured", "", "", "", JARMUnsigned},
		{"signed only", "ES256", "", "", JARMSigned},
		{"encrypted only", "", "ECDH-ES", "A128GCM", JARMEncrypted},
		{"signed and encrypted", "ES256", "ECDH-ES", "A128GCM", JARMSignedAndEncrypted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JARMOptionFromConfig(tt.signedAlg, tt.encAlg, tt.encEnc)
			if got.Kind != tt.want {
				t.Errorf("JARMOptionFromConfig() kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestDecryptJARM_Unsigned_PlainJSON(t *testing.T) {
	body, err := json.Marshal(&AuthorizationResponse{State: "req-1", IDToken: "header.payload.signature"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := DecryptJARM(string(body), nil, JARMOption{Kind: JARMUnsigned})
	if err != nil {
		t.Fatalf("DecryptJARM() error = %v", err)
	}
	if resp.State != "req-1" {
		t.Errorf("State = %q, want req-1", resp.State)
	}
}

func signedJARMResponse(t *testing.T, privateKey *ecdsa.PrivateKey, state string) string {
	t.Helper()

	walletKey := jose.JSONWebKey{Key: &privateKey.PublicKey, Algorithm: "ES256", Use: "sig"}
	walletKeyJSON, err := walletKey.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal sub_jwk: %v", err)
	}
	var subJWK map[string]any
	if err := json.Unmarshal(walletKeyJSON, &subJWK); err != nil {
		t.Fatalf("unmarshal sub_jwk: %v", err)
	}

	claims := jwt.MapClaims{"state": state, "sub_jwk": subJWK}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestDecryptJARM_Signed_Valid(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signed := signedJARMResponse(t, privateKey, "req-1")

	resp, err := DecryptJARM(signed, nil, JARMOption{Kind: JARMSigned, Alg: "ES256"})
	if err != nil {
		t.Fatalf("DecryptJARM() error = %v", err)
	}
	if resp.State != "req-1" {
		t.Errorf("State = %q, want req-1", resp.State)
	}
}

func TestDecryptJARM_Signed_WrongAlgRejected(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signed := signedJARMResponse(t, privateKey, "req-1")

	_, err = DecryptJARM(signed, nil, JARMOption{Kind: JARMSigned, Alg: "ES384"})
	if err == nil {
		t.Error("DecryptJARM() should fail when the configured alg does not match the JWT's alg")
	}
}

func TestDecryptJARM_Signed_TamperedSignatureRejected(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signed := signedJARMResponse(t, privateKey, "req-1")

	// Flip a byte in the signature segment.
	parts := []byte(signed)
	parts[len(parts)-1] ^= 0x01

	_, err = DecryptJARM(string(parts), nil, JARMOption{Kind: JARMSigned, Alg: "ES256"})
	if err == nil {
		t.Error("DecryptJARM() should fail on a tampered signature")
	}
}

func TestDecryptJARM_Signed_MissingSubJWKRejected(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{"state": "req-1"})
	signed, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = DecryptJARM(signed, nil, JARMOption{Kind: JARMSigned, Alg: "ES256"})
	if err == nil {
		t.Error("DecryptJARM() should fail when the response carries no sub_jwk")
	}
}
