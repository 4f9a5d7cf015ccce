// Package openid4vp provides OpenID4VP protocol support including mdoc credential handling.
package openid4vp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"vc/pkg/mdoc"
)

// MDocHandler handles mdoc format credentials in OpenID4VP flows.
type MDocHandler struct {
	verifier  *mdoc.Verifier
	trustList *mdoc.IACATrustList
}

// MDocHandlerOption configures an MDocHandler.
type MDocHandlerOption func(*MDocHandler)

// WithMDocTrustList sets the trust list for mdoc verification.
func WithMDocTrustList(trustList *mdoc.IACATrustList) MDocHandlerOption {
	return func(h *MDocHandler) {
		h.trustList = trustList
	}
}

// WithMDocVerifier sets a pre-configured verifier.
func WithMDocVerifier(v *mdoc.Verifier) MDocHandlerOption {
	return func(h *MDocHandler) {
		h.verifier = v
	}
}

// NewMDocHandler creates a new mdoc handler for OpenID4VP.
func NewMDocHandler(opts ...MDocHandlerOption) (*MDocHandler, error) {
	h := &MDocHandler{}

	for _, opt := range opts {
		opt(h)
	}

	// Create verifier if not provided
	if h.verifier == nil {
		if h.trustList == nil {
			// Create empty trust list (won't trust any issuers - for testing only)
			h.trustList = mdoc.NewIACATrustList()
		}
		var err error
		h.verifier, err = mdoc.NewVerifier(mdoc.VerifierConfig{
			TrustList: h.trustList,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create verifier: %w", err)
		}
	}

	return h, nil
}

// VerifyAndExtract verifies an mdoc VP token and extracts the disclosed claims.
// The vpToken should be the base64url-encoded DeviceResponse.
func (h *MDocHandler) VerifyAndExtract(ctx context.Context, vpToken string) (*MDocVerificationResult, error) {
	// Decode the VP token (base64url-encoded DeviceResponse)
	data, err := base64.RawURLEncoding.DecodeString(vpToken)
	if err != nil {
		// Try standard base64
		data, err = base64.StdEncoding.DecodeString(vpToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decode mdoc VP token: %w", err)
		}
	}

	// Parse the DeviceResponse
	deviceResponse, err := mdoc.DecodeDeviceResponse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DeviceResponse: %w", err)
	}

	// Verify the device response
	verifyResult := h.verifier.VerifyDeviceResponse(deviceResponse)

	// Check if verification failed
	if !verifyResult.Valid {
		errMsgs := make([]string, 0, len(verifyResult.Errors))
		for _, e := range verifyResult.Errors {
			errMsgs = append(errMsgs, e.Error())
		}
		return nil, fmt.Errorf("mdoc verification failed: %s", strings.Join(errMsgs, "; "))
	}

	// Extract claims from verified documents
	result := &MDocVerificationResult{
		Valid:     true,
		Documents: make(map[string]*MDocDocumentClaims),
	}

	for i := range deviceResponse.Documents {
		doc := &deviceResponse.Documents[i]
		claims, err := h.extractDocumentClaims(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to extract claims from %s: %w", doc.DocType, err)
		}
		result.Documents[doc.DocType] = claims
	}

	return result, nil
}

// MDocVerificationResult contains the result of mdoc verification and claim extraction.
type MDocVerificationResult struct {
	Valid     bool
	Documents map[string]*MDocDocumentClaims
}

// MDocDocumentClaims contains the claims from a single mdoc document.
type MDocDocumentClaims struct {
	DocType    string
	Namespaces map[string]map[string]any
}

// GetClaims returns a flat map of all claims from all namespaces.
func (dc *MDocDocumentClaims) GetClaims() map[string]any {
	claims := make(map[string]any)
	for ns, nsItems := range dc.Namespaces {
		for key, value := range nsItems {
			// Use qualified name to avoid collisions
			qualifiedKey := fmt.Sprintf("%s.%s", ns, key)
			claims[qualifiedKey] = value

			// Also add unqualified name for the primary namespace
			if ns == mdoc.Namespace {
				claims[key] = value
			}
		}
	}
	return claims
}

// extractDocumentClaims extracts claims from a verified document.
func (h *MDocHandler) extractDocumentClaims(doc *mdoc.Document) (*MDocDocumentClaims, error) {
	claims := &MDocDocumentClaims{
		DocType:    doc.DocType,
		Namespaces: make(map[string]map[string]any),
	}

	for ns, items := range doc.IssuerSigned.NameSpaces {
		nsClaims := make(map[string]any)
		for _, item := range items {
			nsClaims[item.ElementIdentifier] = item.ElementValue
		}
		claims.Namespaces[ns] = nsClaims
	}

	return claims, nil
}
