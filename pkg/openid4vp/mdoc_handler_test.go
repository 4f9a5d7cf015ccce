package openid4vp

import (
	"context"
	"encoding/base64"
	"testing"

	"vc/pkg/mdoc"

	"github.com/fxamacker/cbor/v2"
)

func TestNewMDocHandler(t *testing.T) {
	h, err := NewMDocHandler()
	if err != nil {
		t.Fatalf("NewMDocHandler() error = %v", err)
	}
	if h == nil {
		t.Fatal("NewMDocHandler() returned nil")
	}
	if h.verifier == nil {
		t.Error("verifier should not be nil")
	}
}

func TestNewMDocHandler_WithTrustList(t *testing.T) {
	trustList := mdoc.NewIACATrustList()

	h, err := NewMDocHandler(WithMDocTrustList(trustList))
	if err != nil {
		t.Fatalf("NewMDocHandler() error = %v", err)
	}
	if h.trustList != trustList {
		t.Error("trust list was not set correctly")
	}
}

func TestMDocDocumentClaims_GetClaims(t *testing.T) {
	dc := &MDocDocumentClaims{
		DocType: mdoc.DocType,
		Namespaces: map[string]map[string]any{
			mdoc.Namespace: {
				"family_name": "Doe",
				"given_name":  "John",
			},
			"custom.namespace": {
				"custom_field": "custom_value",
			},
		},
	}

	claims := dc.GetClaims()

	// Unqualified claims from primary namespace
	if claims["family_name"] != "Doe" {
		t.Errorf("family_name = %v, want Doe", claims["family_name"])
	}

	// Qualified claims
	if claims[mdoc.Namespace+".family_name"] != "Doe" {
		t.Error("qualified family_name not found")
	}
	if claims["custom.namespace.custom_field"] != "custom_value" {
		t.Error("qualified custom_field not found")
	}
}

func TestMDocHandler_VerifyAndExtract_InvalidToken(t *testing.T) {
	h, _ := NewMDocHandler()

	tests := []struct {
		name    string
		vpToken string
	}{
		{
			name:    "Empty token",
			vpToken: "",
		},
		{
			name:    "Invalid base64",
			vpToken: "!!!invalid!!!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.VerifyAndExtract(context.Background(), tt.vpToken)
			if err == nil {
				t.Error("VerifyAndExtract() should fail")
			}
		})
	}
}

func TestMDocHandler_VerifyAndExtract_UnsignedDeviceResponseRejected(t *testing.T) {
	deviceResponse := mdoc.DeviceResponse{
		Version: "1.0",
		Status:  0,
		Documents: []mdoc.Document{
			{
				DocType: mdoc.DocType,
				IssuerSigned: mdoc.IssuerSigned{
					NameSpaces: map[string][]mdoc.IssuerSignedItem{
						mdoc.Namespace: {
							{ElementIdentifier: "family_name", ElementValue: "Doe"},
							{ElementIdentifier: "given_name", ElementValue: "John"},
							{ElementIdentifier: "birth_date", ElementValue: "1990-01-15"},
						},
					},
				},
			},
		},
	}

	data, err := cbor.Marshal(deviceResponse)
	if err != nil {
		t.Fatalf("Failed to encode DeviceResponse: %v", err)
	}
	vpToken := base64.RawURLEncoding.EncodeToString(data)

	h, _ := NewMDocHandler()
	// The unsigned fixture above carries no IssuerAuth/COSE signature, so
	// VerifyDeviceResponse is expected to reject it; this pins that an
	// unsigned DeviceResponse never reaches claim extraction.
	_, err = h.VerifyAndExtract(context.Background(), vpToken)
	if err == nil {
		t.Error("VerifyAndExtract() should fail for an unsigned DeviceResponse")
	}
}

func TestMDocVerificationResult_Documents(t *testing.T) {
	result := &MDocVerificationResult{
		Valid:     true,
		Documents: make(map[string]*MDocDocumentClaims),
	}

	result.Documents[mdoc.DocType] = &MDocDocumentClaims{
		DocType: mdoc.DocType,
		Namespaces: map[string]map[string]any{
			mdoc.Namespace: {
				"family_name": "Doe",
			},
		},
	}

	if !result.Valid {
		t.Error("result should be valid")
	}

	if len(result.Documents) != 1 {
		t.Errorf("expected 1 document, got %d", len(result.Documents))
	}

	doc, ok := result.Documents[mdoc.DocType]
	if !ok {
		t.Fatal("document not found")
	}

	claims := doc.GetClaims()
	if claims["family_name"] != "Doe" {
		t.Error("family_name not found in claims")
	}
}
