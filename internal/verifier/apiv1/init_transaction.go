package apiv1

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"vc/pkg/openid4vp"
)

// InitTransactionRequest describes a Verifier front-end's request to start a
// new verification transaction.
type InitTransactionRequest struct {
	Type                       openid4vp.PresentationTypeKind
	IDTokenType                openid4vp.IDTokenType
	PresentationDefinition     *openid4vp.PresentationDefinition
	ResponseMode               openid4vp.ResponseMode
	GetWalletResponseMethod    openid4vp.GetWalletResponseMethod
	Nonce                      string
	ZKPKeys                    openid4vp.ZKPKeys
}

// InitTransactionReply is returned to the Verifier front-end.
type InitTransactionReply struct {
	TransactionID          openid4vp.TransactionId
	RequestURI             string
	PresentationDefinition *openid4vp.PresentationDefinition
}

// InitTransaction starts a new Presentation lifecycle: it allocates fresh
// identifiers, generates an ephemeral encryption key when the response must
// be encrypted, and builds the request_uri the Wallet will later fetch the
// signed Request Object from.
func (c *Client) InitTransaction(ctx context.Context, req *InitTransactionRequest) (*InitTransactionReply, error) {
	if req.ResponseMode == openid4vp.DirectPostJwt && c.cfg.Verifier.ClientMetadata.AuthorizationEncryptedResponseAlg == "" {
		return nil, openid4vp.ErrInvalidConfiguration
	}

	txID, err := openid4vp.NewTransactionId()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction id: %w", err)
	}
	requestID, err := openid4vp.NewRequestId()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}
	nonce := req.Nonce
	if nonce == "" {
		nonce, err = generateNonce()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
	}

	var ephemeralKey *ecdh.PrivateKey
	if req.ResponseMode == openid4vp.DirectPostJwt {
		ephemeralKey, err = ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral encryption key: %w", err)
		}
	}

	typ := openid4vp.PresentationType{
		Kind:                   req.Type,
		IDTokenType:            req.IDTokenType,
		PresentationDefinition: req.PresentationDefinition,
	}

	now := time.Now()
	presentation := openid4vp.NewRequestedPresentation(
		txID, requestID, now, typ,
		req.ResponseMode, c.cfg.Verifier.PresentationDefinition.Embed,
		req.GetWalletResponseMethod, nonce, ephemeralKey, req.ZKPKeys,
	)
	c.store.Put(presentation)

	requestURI := fmt.Sprintf("%s/wallet/request.jwt/%s", c.cfg.Verifier.PublicURL, requestID)

	reply := &InitTransactionReply{
		TransactionID: txID,
		RequestURI:    requestURI,
	}
	if c.cfg.Verifier.RequestJWT.Embed == openid4vp.EmbedByValue {
		reply.PresentationDefinition = req.PresentationDefinition
	}
	return reply, nil
}

// generateNonce returns a fresh cryptographically random nonce, base64url
// encoded so it satisfies the Request Object's ASCII-URL-safe constraint.
func generateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
