package openid4vp

import (
	"crypto/ecdh"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// JARMKind identifies which of the four JARM envelope shapes a direct_post.jwt
// response uses. The Verifier dispatches on this variant rather than modeling
// it as a class hierarchy, per the signed/encrypted combinations JARM defines.
type JARMKind int

const (
	JARMUnsigned JARMKind = iota
	JARMSigned
	JARMEncrypted
	JARMSignedAndEncrypted
)

// JARMOption is the JARM envelope variant this Verifier is configured to
// expect, derived from client_metadata's authorization_signed_response_alg
// and authorization_encrypted_response_alg/enc.
type JARMOption struct {
	Kind JARMKind
	// Alg is the inner JWT's signing algorithm, set for Signed and SignedAndEncrypted.
	Alg string
	// KeyAlg is the JWE's key-management algorithm, set for Encrypted and SignedAndEncrypted.
	KeyAlg string
	// Enc is the JWE's content-encryption algorithm, set for Encrypted and SignedAndEncrypted.
	Enc string
}

// JARMOptionFromConfig builds the JARMOption this Verifier negotiated, from
// the algorithm fields published in client_metadata. An empty signedAlg means
// the Wallet was not asked to sign; an empty encryptedAlg means it was not
// asked to encrypt.
func JARMOptionFromConfig(signedAlg, encryptedAlg, encryptedEnc string) JARMOption {
	switch {
	case signedAlg != "" && encryptedAlg != "":
		return JARMOption{Kind: JARMSignedAndEncrypted, Alg: signedAlg, KeyAlg: encryptedAlg, Enc: encryptedEnc}
	case encryptedAlg != "":
		return JARMOption{Kind: JARMEncrypted, KeyAlg: encryptedAlg, Enc: encryptedEnc}
	case signedAlg != "":
		return JARMOption{Kind: JARMSigned, Alg: signedAlg}
	default:
		return JARMOption{Kind: JARMUnsigned}
	}
}

// JWEHeaderKid peeks at a compact JWE's protected header and returns its "kid",
// without decrypting. The Verifier uses this to locate the Presentation (and
// so the ephemeral private key to decrypt with) before the ciphertext can be
// opened, when a direct_post.jwt response carries no cleartext state parameter.
func JWEHeaderKid(jweCompact string) (string, error) {
	parts := strings.Split(jweCompact, ".")
	if len(parts) != 5 {
		return "", fmt.Errorf("jarm: not a compact JWE")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("jarm: failed to decode JWE header: %w", err)
	}

	var header struct {
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", fmt.Errorf("jarm: failed to parse JWE header: %w", err)
	}
	if header.Kid == "" {
		return "", fmt.Errorf("jarm: JWE header carries no kid")
	}
	return header.Kid, nil
}

// DecryptJARM unwraps a direct_post.jwt response body per the negotiated
// JARMOption: Encrypted/SignedAndEncrypted decrypt the JWE first with
// privateKey; Signed/SignedAndEncrypted then verify the inner JWT's signature
// against the Wallet's self-attested sub_jwk before trusting its claims.
func DecryptJARM(responseJWT string, privateKey *ecdh.PrivateKey, opt JARMOption) (*AuthorizationResponse, error) {
	payload := []byte(responseJWT)
	if opt.Kind == JARMEncrypted || opt.Kind == JARMSignedAndEncrypted {
		plaintext, err := decryptJWE(responseJWT, privateKey)
		if err != nil {
			return nil, fmt.Errorf("jarm: %w", err)
		}
		payload = plaintext
	}

	var claims []byte
	var err error
	switch opt.Kind {
	case JARMSigned, JARMSignedAndEncrypted:
		claims, err = verifyJARMSignature(payload, opt.Alg)
	default:
		claims, err = extractJARMClaims(payload)
	}
	if err != nil {
		return nil, err
	}

	var resp AuthorizationResponse
	if err := json.Unmarshal(claims, &resp); err != nil {
		return nil, fmt.Errorf("jarm: failed to decode authorization response: %w", err)
	}
	return &resp, nil
}

// verifyJARMSignature verifies a signed JARM JWT against the public key the
// Wallet self-attests in its "sub_jwk" claim, the Self-Issued OP v2 pattern
// where sub is the key's thumbprint and sub_jwk carries the key itself, then
// returns its claims. Unlike extractJARMClaims, a failure here is fatal: a
// Signed or SignedAndEncrypted JARMOption means this Verifier will not accept
// the response without a verified signature.
func verifyJARMSignature(payload []byte, expectedAlg string) ([]byte, error) {
	parser := jwt.NewParser()
	unverified, _, err := parser.ParseUnverified(string(payload), jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("jarm: failed to parse signed response: %w", err)
	}
	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("jarm: signed response carries no claims")
	}
	subJWKClaim, ok := claims["sub_jwk"]
	if !ok {
		return nil, fmt.Errorf("jarm: signed response carries no sub_jwk")
	}
	subJWKJSON, err := json.Marshal(subJWKClaim)
	if err != nil {
		return nil, fmt.Errorf("jarm: failed to re-marshal sub_jwk: %w", err)
	}
	var walletKey jose.JSONWebKey
	if err := walletKey.UnmarshalJSON(subJWKJSON); err != nil {
		return nil, fmt.Errorf("jarm: invalid sub_jwk: %w", err)
	}

	verified, err := jwt.Parse(string(payload), func(token *jwt.Token) (any, error) {
		if alg, _ := token.Header["alg"].(string); alg != expectedAlg {
			return nil, fmt.Errorf("jarm: signed with %v, expected %s", token.Header["alg"], expectedAlg)
		}
		return walletKey.Key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jarm: signature verification failed: %w", err)
	}
	if !verified.Valid {
		return nil, fmt.Errorf("jarm: signature verification failed")
	}

	verifiedClaims, err := json.Marshal(verified.Claims)
	if err != nil {
		return nil, fmt.Errorf("jarm: failed to re-marshal verified claims: %w", err)
	}
	return verifiedClaims, nil
}

// extractJARMClaims returns the JSON claims carried by an Unsigned or
// Encrypted-only JARM payload. When the payload parses as a JWT its
// unverified claims are extracted (there is no signature to verify for these
// variants); otherwise the payload is assumed to be plain JSON.
func extractJARMClaims(payload []byte) ([]byte, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(string(payload), jwt.MapClaims{})
	if err != nil {
		// Not a JWT; treat as plain JSON response body.
		return payload, nil
	}
	claims, err := json.Marshal(token.Claims)
	if err != nil {
		return nil, fmt.Errorf("jarm: failed to re-marshal JWT claims: %w", err)
	}
	return claims, nil
}

// decryptJWE decrypts a compact JWE using the alg/enc the header itself
// declares, returning the plaintext payload.
func decryptJWE(jweCompact string, key any) ([]byte, error) {
	parts := strings.Split(jweCompact, ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("not a compact JWE")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWE header: %w", err)
	}

	var header struct {
		Alg string `json:"alg"`
		Enc string `json:"enc"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse JWE header: %w", err)
	}

	jwe, err := jose.ParseEncrypted(jweCompact, []jose.KeyAlgorithm{jose.KeyAlgorithm(header.Alg)}, []jose.ContentEncryption{jose.ContentEncryption(header.Enc)})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWE: %w", err)
	}

	plaintext, err := jwe.Decrypt(key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt JWE: %w", err)
	}

	return plaintext, nil
}
