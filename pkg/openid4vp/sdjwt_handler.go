package openid4vp

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"vc/pkg/sdjwtvc"
	"vc/pkg/trust"
)

// SDJWTHandler handles SD-JWT format credentials in OpenID4VP flows.
type SDJWTHandler struct {
	client         *sdjwtvc.Client
	keyResolver    KeyResolver
	verifyOpts     *sdjwtvc.VerificationOptions
	trustedIssuers []string
}

// KeyResolver resolves public keys for SD-JWT verification.
// Implementations can fetch keys from JWKS endpoints, local stores, etc.
type KeyResolver interface {
	// ResolveKey resolves a public key for the given issuer and key ID.
	ResolveKey(ctx context.Context, issuer string, keyID string) (crypto.PublicKey, error)
}

// StaticKeyResolver is a simple key resolver that returns a fixed key.
type StaticKeyResolver struct {
	Key crypto.PublicKey
}

// ResolveKey returns the static key regardless of issuer/keyID.
func (r *StaticKeyResolver) ResolveKey(ctx context.Context, issuer string, keyID string) (crypto.PublicKey, error) {
	if r.Key == nil {
		return nil, errors.New("no key configured")
	}
	return r.Key, nil
}

// SDJWTHandlerOption configures an SDJWTHandler.
type SDJWTHandlerOption func(*SDJWTHandler)

// WithSDJWTKeyResolver sets the key resolver for SD-JWT verification.
func WithSDJWTKeyResolver(resolver KeyResolver) SDJWTHandlerOption {
	return func(h *SDJWTHandler) {
		h.keyResolver = resolver
	}
}

// WithSDJWTStaticKey sets a static public key for SD-JWT verification.
func WithSDJWTStaticKey(key crypto.PublicKey) SDJWTHandlerOption {
	return func(h *SDJWTHandler) {
		h.keyResolver = &StaticKeyResolver{Key: key}
	}
}

// WithSDJWTVerificationOptions sets the verification options.
func WithSDJWTVerificationOptions(opts *sdjwtvc.VerificationOptions) SDJWTHandlerOption {
	return func(h *SDJWTHandler) {
		h.verifyOpts = opts
	}
}

// WithSDJWTTrustEvaluator sets a trust.TrustEvaluator used to validate the
// issuer's x5c certificate chain against the configured issuer trust list.
// When the chain is found trusted, sdjwtvc.ParseAndVerify takes the
// verification key from the leaf certificate itself, so a KeyResolver is not
// required for x5c-bearing credentials.
func WithSDJWTTrustEvaluator(evaluator trust.TrustEvaluator) SDJWTHandlerOption {
	return func(h *SDJWTHandler) {
		if h.verifyOpts == nil {
			h.verifyOpts = &sdjwtvc.VerificationOptions{}
		}
		h.verifyOpts.TrustEvaluator = evaluator
	}
}

// WithSDJWTTrustedIssuers sets the list of trusted issuers.
func WithSDJWTTrustedIssuers(issuers []string) SDJWTHandlerOption {
	return func(h *SDJWTHandler) {
		h.trustedIssuers = issuers
	}
}

// WithSDJWTRequireKeyBinding requires key binding JWT to be present.
func WithSDJWTRequireKeyBinding(nonce, audience string) SDJWTHandlerOption {
	return func(h *SDJWTHandler) {
		if h.verifyOpts == nil {
			h.verifyOpts = &sdjwtvc.VerificationOptions{}
		}
		h.verifyOpts.RequireKeyBinding = true
		h.verifyOpts.ExpectedNonce = nonce
		h.verifyOpts.ExpectedAudience = audience
	}
}

// NewSDJWTHandler creates a new SD-JWT handler for OpenID4VP.
func NewSDJWTHandler(opts ...SDJWTHandlerOption) (*SDJWTHandler, error) {
	h := &SDJWTHandler{
		client: sdjwtvc.New(),
		verifyOpts: &sdjwtvc.VerificationOptions{
			ValidateTime:     true,
			AllowedClockSkew: 5 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// VerifyAndExtract verifies an SD-JWT VP token and extracts the disclosed claims.
func (h *SDJWTHandler) VerifyAndExtract(ctx context.Context, vpToken string) (*SDJWTVerificationResult, error) {
	if vpToken == "" {
		return nil, errors.New("VP token is empty")
	}

	// Parse the token first to extract issuer and key ID
	parsed, err := sdjwtvc.Token(vpToken).Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse SD-JWT: %w", err)
	}

	// Extract issuer for key resolution and trust validation
	issuer, _ := parsed.Claims["iss"].(string)
	if issuer == "" {
		return nil, errors.New("SD-JWT missing issuer claim")
	}

	// Validate trusted issuer if configured
	if len(h.trustedIssuers) > 0 {
		trusted := false
		for _, ti := range h.trustedIssuers {
			if ti == issuer {
				trusted = true
				break
			}
		}
		if !trusted {
			return nil, fmt.Errorf("issuer %s is not trusted", issuer)
		}
	}

	// Resolve the public key. An x5c-bearing credential verified against a
	// configured trust.TrustEvaluator supplies its own key (see
	// sdjwtvc.ParseAndVerify), so a KeyResolver is only required when no
	// trust evaluator is configured.
	var publicKey crypto.PublicKey
	if h.keyResolver != nil {
		keyID, _ := parsed.Header["kid"].(string)
		publicKey, err = h.keyResolver.ResolveKey(ctx, issuer, keyID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve public key: %w", err)
		}
	} else if h.verifyOpts == nil || h.verifyOpts.TrustEvaluator == nil {
		return nil, errors.New("no key resolver or trust evaluator configured")
	}

	// Verify the SD-JWT
	verifyResult, err := h.client.ParseAndVerify(vpToken, publicKey, h.verifyOpts)
	if err != nil {
		return nil, fmt.Errorf("SD-JWT verification failed: %w", err)
	}

	if !verifyResult.Valid {
		errMsgs := make([]string, 0, len(verifyResult.Errors))
		for _, e := range verifyResult.Errors {
			errMsgs = append(errMsgs, e.Error())
		}
		return nil, fmt.Errorf("SD-JWT validation failed: %s", strings.Join(errMsgs, "; "))
	}

	// Build the result
	result := &SDJWTVerificationResult{
		Valid:           true,
		Issuer:          issuer,
		Subject:         getStringClaim(verifyResult.Claims, "sub"),
		VCT:             getStringClaim(verifyResult.Claims, "vct"),
		Claims:          verifyResult.Claims,
		DisclosedClaims: verifyResult.DisclosedClaims,
		KeyBindingValid: verifyResult.KeyBindingValid,
		VCTM:            verifyResult.VCTM,
	}

	// Extract expiration if present
	if exp, ok := verifyResult.Claims["exp"].(float64); ok {
		expTime := time.Unix(int64(exp), 0)
		result.ExpiresAt = &expTime
	}

	// Extract issuance time if present
	if iat, ok := verifyResult.Claims["iat"].(float64); ok {
		iatTime := time.Unix(int64(iat), 0)
		result.IssuedAt = &iatTime
	}

	return result, nil
}

// SDJWTVerificationResult contains the result of SD-JWT verification and claim extraction.
type SDJWTVerificationResult struct {
	Valid           bool
	Issuer          string
	Subject         string
	VCT             string // Verifiable Credential Type
	Claims          map[string]any
	DisclosedClaims map[string]any
	KeyBindingValid bool
	ExpiresAt       *time.Time
	IssuedAt        *time.Time
	VCTM            *sdjwtvc.VCTM
}

// GetClaims returns all claims (both standard and disclosed).
func (r *SDJWTVerificationResult) GetClaims() map[string]any {
	return r.Claims
}

// GetDisclosedClaims returns only the selectively disclosed claims.
func (r *SDJWTVerificationResult) GetDisclosedClaims() map[string]any {
	return r.DisclosedClaims
}

// getStringClaim safely extracts a string claim from the claims map.
func getStringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
