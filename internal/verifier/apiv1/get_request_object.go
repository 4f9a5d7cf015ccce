package apiv1

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"vc/pkg/openid4vp"
)

// GetRequestObject serves the signed Request Object (JAR) the Wallet fetches
// at request_uri. It transitions the Presentation Requested -> RequestObjectRetrieved
// at most once; a repeated fetch fails with ErrInvalidState.
func (c *Client) GetRequestObject(ctx context.Context, requestID openid4vp.RequestId) (string, error) {
	presentation, err := c.store.RetrieveRequestObject(requestID, time.Now())
	if err != nil {
		return "", err
	}

	reqObj, err := c.buildRequestObject(presentation)
	if err != nil {
		return "", fmt.Errorf("failed to build request object: %w", err)
	}

	signed, err := reqObj.Sign(c.verifierKeyPair.SigningMethodToUse, c.verifierKeyPair.PrivateKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to sign request object: %w", err)
	}
	return signed, nil
}

// buildRequestObject constructs the JAR payload for presentation, per spec
// component 4.2: client identity, response transport, nonce/state binding,
// client_metadata (with the ephemeral encryption key when DirectPostJwt), and
// the presentation definition embedded by value or referenced by URI.
func (c *Client) buildRequestObject(presentation openid4vp.Presentation) (*openid4vp.RequestObject, error) {
	cfg := c.cfg.Verifier

	responseURI := fmt.Sprintf("%s/wallet/direct_post", cfg.PublicURL)
	if presentation.ResponseMode == openid4vp.DirectPostJwt {
		responseURI = fmt.Sprintf("%s/wallet/direct_post.jwt", cfg.PublicURL)
	}

	clientMetadata := &openid4vp.ClientMetadata{
		AuthorizationSignedResponseALG:    cfg.ClientMetadata.AuthorizationSignedResponseAlg,
		AuthorizationEncryptedResponseALG: cfg.ClientMetadata.AuthorizationEncryptedResponseAlg,
		AuthorizationEncryptedResponseENC: cfg.ClientMetadata.AuthorizationEncryptedResponseEnc,
	}

	if presentation.ResponseMode == openid4vp.DirectPostJwt {
		// The ephemeral public key is published here, keyed by RequestID, so the
		// Wallet encrypts to it and so this Verifier can later locate the
		// Presentation from the JWE's kid before decrypting (see JWEHeaderKid).
		pubJWK, err := jwk.Import(presentation.EphemeralECPrivateKey.PublicKey())
		if err != nil {
			return nil, fmt.Errorf("failed to import ephemeral public key: %w", err)
		}
		if err := pubJWK.Set(jwk.KeyIDKey, string(presentation.RequestID)); err != nil {
			return nil, fmt.Errorf("failed to set ephemeral key kid: %w", err)
		}
		if err := pubJWK.Set(jwk.KeyUsageKey, "enc"); err != nil {
			return nil, fmt.Errorf("failed to set ephemeral key use: %w", err)
		}
		clientMetadata.JWKS = &openid4vp.Keys{Keys: []jwk.Key{pubJWK}}
	}

	reqObj := &openid4vp.RequestObject{
		ISS:            cfg.ClientID,
		AUD:            "https://self-issued.me/v2",
		IAT:            time.Now().Unix(),
		ResponseType:   "code",
		ClientID:       cfg.ClientID,
		ClientIDScheme: cfg.ClientIDScheme,
		ResponseMode:   string(presentation.ResponseMode),
		Nonce:          presentation.Nonce,
		State:          string(presentation.RequestID),
		ResponseURI:    responseURI,
		ClientMetadata: clientMetadata,
	}

	if pd := presentation.Type.PresentationDefinition; pd != nil {
		if presentation.PresentationDefinitionMode == openid4vp.EmbedByValue {
			reqObj.PresentationDefinition = pd
		} else {
			reqObj.PresentationDefinitionURI = fmt.Sprintf("%s/wallet/presentation_definition/%s", cfg.PublicURL, presentation.RequestID)
		}
	}

	return reqObj, nil
}
