package apiv1

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vc/pkg/openid4vp"
)

func TestInitTransaction_IDToken(t *testing.T) {
	c := newTestClient(t)

	reply, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		IDTokenType:             openid4vp.IDTokenTypeSubjectSigned,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: openid4vp.Poll(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.TransactionID)
	assert.True(t, strings.HasPrefix(reply.RequestURI, "https://verifier.example.test/wallet/request.jwt/"))

	p, ok := c.store.LoadByTransactionID(reply.TransactionID)
	require.True(t, ok)
	assert.Equal(t, openid4vp.StatusRequested, p.Status)
	assert.Nil(t, p.EphemeralECPrivateKey)
}

func TestInitTransaction_DirectPostJwt_GeneratesEphemeralKey(t *testing.T) {
	c := newTestClient(t)

	reply, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindVpTokenRequest,
		PresentationDefinition:  &openid4vp.PresentationDefinition{ID: "pd-1"},
		ResponseMode:            openid4vp.DirectPostJwt,
		GetWalletResponseMethod: openid4vp.Poll(),
	})
	require.NoError(t, err)

	p, ok := c.store.LoadByTransactionID(reply.TransactionID)
	require.True(t, ok)
	assert.NotNil(t, p.EphemeralECPrivateKey)
}

func TestInitTransaction_DirectPostJwt_WithoutEncryptionAlgFails(t *testing.T) {
	c := newTestClient(t)
	c.cfg.Verifier.ClientMetadata.AuthorizationEncryptedResponseAlg = ""

	_, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		ResponseMode:            openid4vp.DirectPostJwt,
		GetWalletResponseMethod: openid4vp.Poll(),
	})
	assert.ErrorIs(t, err, openid4vp.ErrInvalidConfiguration)
}

func TestInitTransaction_RequestURIUsesRequestID_NotTransactionID(t *testing.T) {
	c := newTestClient(t)

	reply, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: openid4vp.Poll(),
	})
	require.NoError(t, err)
	assert.NotContains(t, reply.RequestURI, string(reply.TransactionID))
}
