package openid4vp

import (
	"crypto"
	"crypto/ecdh"
	"strings"
	"time"
)

// PresentationStatus tags the current state of a Presentation's lifecycle.
// Transitions never reverse: Requested -> RequestObjectRetrieved -> Submitted,
// with TimedOut reachable as a terminal leaf from any non-Submitted state, and
// statusConsumed reachable only from Submitted once a Redirect response_code
// has been exchanged.
type PresentationStatus string

const (
	StatusRequested               PresentationStatus = "Requested"
	StatusRequestObjectRetrieved  PresentationStatus = "RequestObjectRetrieved"
	StatusSubmitted               PresentationStatus = "Submitted"
	StatusTimedOut                PresentationStatus = "TimedOut"
	statusConsumed                PresentationStatus = "consumed"
)

// ResponseMode is the transport discipline for the Wallet's Authorisation Response.
type ResponseMode string

const (
	DirectPost    ResponseMode = "direct_post"
	DirectPostJwt ResponseMode = "direct_post.jwt"
)

// EmbedMode controls whether an artifact (Request Object, Presentation Definition)
// is embedded by value in the JAR or handed to the Wallet by reference.
type EmbedMode string

const (
	EmbedByValue     EmbedMode = "by_value"
	EmbedByReference EmbedMode = "by_reference"
)

// IDTokenType names the kind of SIOP id_token a Verifier requests, per OpenID4VP's
// id_token_type parameter.
type IDTokenType string

const (
	IDTokenTypeSubjectSigned IDTokenType = "subject_signed_id_token"
	IDTokenTypeAttesterSigned IDTokenType = "attester_signed_id_token"
)

// PresentationTypeKind distinguishes the three fixed-at-initiation request shapes.
type PresentationTypeKind string

const (
	KindIdTokenRequest  PresentationTypeKind = "id_token"
	KindVpTokenRequest  PresentationTypeKind = "vp_token"
	KindIdAndVpToken    PresentationTypeKind = "id_and_vp_token"
)

// PresentationType is a variant fixed at InitTransaction time: IdTokenRequest,
// VpTokenRequest, or IdAndVpToken. Only the fields relevant to Kind are populated.
type PresentationType struct {
	Kind                   PresentationTypeKind
	IDTokenType            IDTokenType
	PresentationDefinition *PresentationDefinition
}

// RequiresIDToken reports whether this PresentationType's WalletResponse must carry an id_token.
func (t PresentationType) RequiresIDToken() bool {
	return t.Kind == KindIdTokenRequest || t.Kind == KindIdAndVpToken
}

// RequiresVPToken reports whether this PresentationType's WalletResponse must carry a vp_token
// and presentation_submission.
func (t PresentationType) RequiresVPToken() bool {
	return t.Kind == KindVpTokenRequest || t.Kind == KindIdAndVpToken
}

// GetWalletResponseMethodKind distinguishes Poll from Redirect.
type GetWalletResponseMethodKind string

const (
	MethodPoll     GetWalletResponseMethodKind = "poll"
	MethodRedirect GetWalletResponseMethodKind = "redirect"
)

// responseCodePlaceholder is the single placeholder substituted into a Redirect
// URI template, e.g. "/cb?code={code}".
const responseCodePlaceholder = "{code}"

// GetWalletResponseMethod is a variant: Poll, or Redirect carrying a URI template
// with a single placeholder for the ResponseCode.
type GetWalletResponseMethod struct {
	Kind        GetWalletResponseMethodKind
	URITemplate string
}

// Poll returns the Poll variant of GetWalletResponseMethod.
func Poll() GetWalletResponseMethod {
	return GetWalletResponseMethod{Kind: MethodPoll}
}

// Redirect returns the Redirect variant carrying uriTemplate.
func Redirect(uriTemplate string) GetWalletResponseMethod {
	return GetWalletResponseMethod{Kind: MethodRedirect, URITemplate: uriTemplate}
}

// Expand substitutes code into the URI template's placeholder.
func (m GetWalletResponseMethod) Expand(code ResponseCode) string {
	return strings.ReplaceAll(m.URITemplate, responseCodePlaceholder, string(code))
}

// WalletResponseKind distinguishes the shapes a WalletResponse may take.
type WalletResponseKind string

const (
	WalletResponseIDToken      WalletResponseKind = "id_token"
	WalletResponseVPToken      WalletResponseKind = "vp_token"
	WalletResponseIDAndVPToken WalletResponseKind = "id_and_vp_token"
	WalletResponseError        WalletResponseKind = "error"
)

// WalletResponse is the domain result of a validated (or rejected) Authorisation Response.
type WalletResponse struct {
	Kind                   WalletResponseKind
	IDToken                string
	VPToken                string
	PresentationSubmission *PresentationSubmission
	ErrorCode              string
	ErrorDescription       string
}

// ZKPKeys maps a presentation-definition input-descriptor id to the public key
// used to verify that descriptor's ZKP challenge.
type ZKPKeys map[string]crypto.PublicKey

// Presentation is the tagged-variant lifecycle record for a single verification
// transaction. Status selects which of the optional fields below are meaningful;
// see PresentationStatus for the state diagram.
type Presentation struct {
	Status PresentationStatus

	ID                         TransactionId
	RequestID                  RequestId
	InitiatedAt                time.Time
	Type                       PresentationType
	ResponseMode               ResponseMode
	PresentationDefinitionMode EmbedMode
	GetWalletResponseMethod    GetWalletResponseMethod
	Nonce                      string

	// EphemeralECPrivateKey is present iff ResponseMode == DirectPostJwt (invariant I3).
	EphemeralECPrivateKey *ecdh.PrivateKey

	// ZKPKeys, when present, maps descriptor ids to ZKP verification keys (invariant I5).
	ZKPKeys ZKPKeys

	RequestObjectRetrievedAt *time.Time

	SubmittedAt *time.Time
	WalletResp  *WalletResponse
	// ResponseCode is present in Submitted iff GetWalletResponseMethod.Kind == MethodRedirect (invariant I4).
	ResponseCode *ResponseCode

	TimedOutAt     *time.Time
	TimedOutReason string
}

// NewRequestedPresentation constructs a fresh Presentation in the Requested state.
func NewRequestedPresentation(
	id TransactionId,
	requestID RequestId,
	now time.Time,
	typ PresentationType,
	responseMode ResponseMode,
	pdMode EmbedMode,
	method GetWalletResponseMethod,
	nonce string,
	ephemeralKey *ecdh.PrivateKey,
	zkpKeys ZKPKeys,
) Presentation {
	return Presentation{
		Status:                     StatusRequested,
		ID:                         id,
		RequestID:                  requestID,
		InitiatedAt:                now,
		Type:                       typ,
		ResponseMode:               responseMode,
		PresentationDefinitionMode: pdMode,
		GetWalletResponseMethod:    method,
		Nonce:                      nonce,
		EphemeralECPrivateKey:      ephemeralKey,
		ZKPKeys:                    zkpKeys,
	}
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (p Presentation) IsTerminal() bool {
	return p.Status == StatusTimedOut || p.Status == StatusSubmitted || p.Status == statusConsumed
}

// IsExpired reports whether p should be swept to TimedOut: non-terminal and
// now - InitiatedAt >= maxAge.
func (p Presentation) IsExpired(now time.Time, maxAge time.Duration) bool {
	if p.Status == StatusTimedOut || p.Status == StatusSubmitted || p.Status == statusConsumed {
		return false
	}
	return now.Sub(p.InitiatedAt) >= maxAge
}

// RetrieveRequestObject transitions Requested -> RequestObjectRetrieved. The
// transition is at-most-once: calling it again returns ErrInvalidState.
func (p Presentation) RetrieveRequestObject(now time.Time) (Presentation, error) {
	if p.Status == StatusTimedOut {
		return p, ErrExpired
	}
	if p.Status != StatusRequested {
		return p, ErrInvalidState
	}
	next := p
	next.Status = StatusRequestObjectRetrieved
	t := now
	next.RequestObjectRetrievedAt = &t
	return next, nil
}

// Submit transitions RequestObjectRetrieved -> Submitted, recording the verified
// WalletResponse and, when allocated, the ResponseCode for Redirect retrieval.
func (p Presentation) Submit(now time.Time, wr WalletResponse, code *ResponseCode) (Presentation, error) {
	if p.Status == StatusTimedOut {
		return p, ErrExpired
	}
	if p.Status != StatusRequestObjectRetrieved {
		return p, ErrPresentationNotInExpectedState
	}
	next := p
	next.Status = StatusSubmitted
	t := now
	next.SubmittedAt = &t
	next.WalletResp = &wr
	next.ResponseCode = code
	return next, nil
}

// TimeOut transitions any non-terminal state to TimedOut. It is idempotent:
// calling it on an already-terminal Presentation is a no-op.
func (p Presentation) TimeOut(now time.Time, reason string) Presentation {
	if p.IsTerminal() {
		return p
	}
	next := p
	next.Status = StatusTimedOut
	t := now
	next.TimedOutAt = &t
	next.TimedOutReason = reason
	return next
}

// ConsumeResponseCode transitions Submitted to the internal consumed state,
// enforcing single-use retrieval of a Redirect-mode WalletResponse (invariant P2).
func (p Presentation) ConsumeResponseCode() (Presentation, error) {
	if p.Status != StatusSubmitted {
		return p, ErrInvalidState
	}
	next := p
	next.Status = statusConsumed
	return next, nil
}
