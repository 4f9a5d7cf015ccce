package apiv1

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vc/pkg/openid4vp"
)

// PostWalletResponseRequest carries the raw fields of a Wallet's Authorization
// Response, as posted to either direct_post (cleartext form fields) or
// direct_post.jwt (an encrypted "response" JWE, optionally beside a
// cleartext state).
type PostWalletResponseRequest struct {
	Mode openid4vp.ResponseMode

	// direct_post fields; State is also read for direct_post.jwt when set
	State                      string
	IDToken                    string
	VPToken                    string
	PresentationSubmissionJSON string

	// direct_post.jwt field
	Response string
}

// PostWalletResponseReply mirrors the Authorization Response's HTTP reply:
// a redirect_uri when the transaction uses the Redirect retrieval method,
// empty otherwise.
type PostWalletResponseReply struct {
	RedirectURI string
}

// PostWalletResponse validates a Wallet's Authorization Response end to end:
// it locates the Presentation, enforces the declared response transport,
// unwraps JARM encryption when used, classifies the payload against the
// Presentation's declared type, cryptographically verifies every submitted
// credential, and transitions the Presentation to Submitted.
func (c *Client) PostWalletResponse(ctx context.Context, req *PostWalletResponseRequest) (*PostWalletResponseReply, error) {
	requestID, err := c.extractState(req)
	if err != nil {
		return nil, err
	}

	presentation, ok := c.store.LoadByRequestID(requestID)
	if !ok {
		return nil, openid4vp.ErrPresentationDefinitionNotFound
	}

	// Gate on lifecycle state before spending any work decrypting JARM or
	// verifying credentials: a Presentation that is not awaiting a wallet
	// response (not yet retrieved, already submitted, expired) fails the same
	// way regardless of what the Wallet posted.
	if presentation.Status != openid4vp.StatusRequestObjectRetrieved {
		return nil, openid4vp.ErrPresentationNotInExpectedState
	}

	if presentation.ResponseMode != req.Mode {
		return nil, &openid4vp.UnexpectedResponseModeError{Expected: presentation.ResponseMode, Actual: req.Mode}
	}

	authResp, err := c.unwrapAuthorizationResponse(req, presentation)
	if err != nil {
		return nil, err
	}

	if err := classifyPayload(presentation.Type, authResp); err != nil {
		return nil, err
	}

	wr, err := c.verifyAuthorizationResponse(ctx, authResp, presentation)
	if err != nil {
		return nil, err
	}

	var code *openid4vp.ResponseCode
	if presentation.GetWalletResponseMethod.Kind == openid4vp.MethodRedirect {
		generated, err := openid4vp.NewResponseCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate response code: %w", err)
		}
		code = &generated
	}

	next, err := c.store.Submit(requestID, time.Now(), *wr, code)
	if err != nil {
		return nil, err
	}

	reply := &PostWalletResponseReply{}
	if code != nil {
		reply.RedirectURI = next.GetWalletResponseMethod.Expand(*code)
	}
	return reply, nil
}

// extractState recovers the RequestId this response belongs to from the
// cleartext "state" field. direct_post requires it; for direct_post.jwt
// without a cleartext state, it is recovered from the encrypting JWE's kid,
// which GetRequestObject published as the ephemeral key's kid.
func (c *Client) extractState(req *PostWalletResponseRequest) (openid4vp.RequestId, error) {
	if req.Mode == openid4vp.DirectPostJwt {
		if req.State != "" {
			return openid4vp.RequestId(req.State), nil
		}
		kid, err := openid4vp.JWEHeaderKid(req.Response)
		if err != nil {
			return "", fmt.Errorf("%w: %v", openid4vp.ErrInvalidJarm, err)
		}
		return openid4vp.RequestId(kid), nil
	}
	if req.State == "" {
		return "", openid4vp.ErrMissingState
	}
	return openid4vp.RequestId(req.State), nil
}

// unwrapAuthorizationResponse produces the normalized AuthorizationResponse,
// decrypting the JARM envelope for direct_post.jwt or assembling one directly
// from the posted form fields for direct_post.
func (c *Client) unwrapAuthorizationResponse(req *PostWalletResponseRequest, presentation openid4vp.Presentation) (*openid4vp.AuthorizationResponse, error) {
	if req.Mode == openid4vp.DirectPostJwt {
		jarmOption := openid4vp.JARMOptionFromConfig(
			c.cfg.Verifier.ClientMetadata.AuthorizationSignedResponseAlg,
			c.cfg.Verifier.ClientMetadata.AuthorizationEncryptedResponseAlg,
			c.cfg.Verifier.ClientMetadata.AuthorizationEncryptedResponseEnc,
		)
		authResp, err := openid4vp.DecryptJARM(req.Response, presentation.EphemeralECPrivateKey, jarmOption)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", openid4vp.ErrInvalidJarm, err)
		}
		if authResp.State != string(presentation.RequestID) {
			return nil, openid4vp.ErrIncorrectStateInJarm
		}
		return authResp, nil
	}

	authResp := &openid4vp.AuthorizationResponse{
		State:   req.State,
		IDToken: req.IDToken,
	}
	if req.VPToken != "" {
		tok, err := openid4vp.ToVPTokenRaw([]byte(req.VPToken))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", openid4vp.ErrInvalidVPToken, err)
		}
		authResp.VPTokens = []openid4vp.VPTokenRaw{*tok}
	}
	if req.PresentationSubmissionJSON != "" {
		var ps openid4vp.PresentationSubmission
		if err := json.Unmarshal([]byte(req.PresentationSubmissionJSON), &ps); err != nil {
			return nil, fmt.Errorf("%w: invalid presentation_submission: %v", openid4vp.ErrInvalidVPToken, err)
		}
		authResp.PresentationSubmission = &ps
	}
	return authResp, nil
}

// classifyPayload enforces that the Wallet's response carries the fields the
// Presentation's declared type requires.
func classifyPayload(typ openid4vp.PresentationType, authResp *openid4vp.AuthorizationResponse) error {
	if typ.RequiresIDToken() && authResp.IDToken == "" {
		return openid4vp.ErrMissingIdToken
	}
	if typ.RequiresVPToken() && (len(authResp.VPTokens) == 0 || authResp.PresentationSubmission == nil) {
		return openid4vp.ErrMissingVpTokenOrPresentationSubmission
	}
	return nil
}

// verifyAuthorizationResponse cryptographically verifies every descriptor in
// the presentation_submission and assembles the resulting WalletResponse.
func (c *Client) verifyAuthorizationResponse(ctx context.Context, authResp *openid4vp.AuthorizationResponse, presentation openid4vp.Presentation) (*openid4vp.WalletResponse, error) {
	wr := &openid4vp.WalletResponse{
		IDToken: authResp.IDToken,
	}

	switch {
	case presentation.Type.RequiresIDToken() && presentation.Type.RequiresVPToken():
		wr.Kind = openid4vp.WalletResponseIDAndVPToken
	case presentation.Type.RequiresIDToken():
		wr.Kind = openid4vp.WalletResponseIDToken
		return wr, nil
	default:
		wr.Kind = openid4vp.WalletResponseVPToken
	}

	if len(authResp.VPTokens) > 0 {
		wr.VPToken = authResp.VPTokens[0].JWT
	}
	wr.PresentationSubmission = authResp.PresentationSubmission

	if presentation.Type.RequiresVPToken() {
		body := openid4vp.VPTokenBody(authResp.VPTokens)
		if _, err := c.validator.ValidatePresentationSubmission(ctx, body, authResp.PresentationSubmission, presentation.ZKPKeys); err != nil {
			return nil, err
		}
	}

	return wr, nil
}
