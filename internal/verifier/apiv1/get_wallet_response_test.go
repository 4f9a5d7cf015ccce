package apiv1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vc/pkg/openid4vp"
)

func TestGetWalletResponse_UnknownTransactionFails(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetWalletResponse(context.Background(), &GetWalletResponseRequest{
		TransactionID: openid4vp.TransactionId("does-not-exist"),
	})
	assert.ErrorIs(t, err, openid4vp.ErrNotFound)
}

func TestGetWalletResponse_Poll_NotYetSubmittedFails(t *testing.T) {
	c := newTestClient(t)

	init, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		IDTokenType:             openid4vp.IDTokenTypeSubjectSigned,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: openid4vp.Poll(),
	})
	require.NoError(t, err)

	_, err = c.GetWalletResponse(context.Background(), &GetWalletResponseRequest{
		TransactionID: init.TransactionID,
	})
	assert.ErrorIs(t, err, openid4vp.ErrInvalidState)
}

func TestGetWalletResponse_Poll_SubmittedSucceedsAndIsRepeatable(t *testing.T) {
	c := newTestClient(t)

	init, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		IDTokenType:             openid4vp.IDTokenTypeSubjectSigned,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: openid4vp.Poll(),
	})
	require.NoError(t, err)
	p, ok := c.store.LoadByTransactionID(init.TransactionID)
	require.True(t, ok)

	_, err = c.GetRequestObject(context.Background(), p.RequestID)
	require.NoError(t, err)

	_, err = c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(p.RequestID),
		IDToken: "header.payload.signature",
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		reply, err := c.GetWalletResponse(context.Background(), &GetWalletResponseRequest{
			TransactionID: init.TransactionID,
		})
		require.NoError(t, err)
		assert.Equal(t, "header.payload.signature", reply.IDToken)
	}
}

func TestGetWalletResponse_Redirect_RequiresResponseCode(t *testing.T) {
	c := newTestClient(t)

	init, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		IDTokenType:             openid4vp.IDTokenTypeSubjectSigned,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: openid4vp.Redirect("https://verifier.example.test/cb?code={code}"),
	})
	require.NoError(t, err)

	_, err = c.GetWalletResponse(context.Background(), &GetWalletResponseRequest{
		TransactionID: init.TransactionID,
	})
	assert.ErrorIs(t, err, openid4vp.ErrInvalidState)
}

func TestGetWalletResponse_Redirect_SingleUse(t *testing.T) {
	c := newTestClient(t)

	init, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		IDTokenType:             openid4vp.IDTokenTypeSubjectSigned,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: openid4vp.Redirect("https://verifier.example.test/cb?code={code}"),
	})
	require.NoError(t, err)
	p, ok := c.store.LoadByTransactionID(init.TransactionID)
	require.True(t, ok)

	_, err = c.GetRequestObject(context.Background(), p.RequestID)
	require.NoError(t, err)

	reply, err := c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(p.RequestID),
		IDToken: "header.payload.signature",
	})
	require.NoError(t, err)
	require.NotEmpty(t, reply.RedirectURI)

	code := openid4vp.ResponseCode(reply.RedirectURI[len("https://verifier.example.test/cb?code="):])

	first, err := c.GetWalletResponse(context.Background(), &GetWalletResponseRequest{
		TransactionID: init.TransactionID,
		ResponseCode:  &code,
	})
	require.NoError(t, err)
	assert.Equal(t, "header.payload.signature", first.IDToken)

	_, err = c.GetWalletResponse(context.Background(), &GetWalletResponseRequest{
		TransactionID: init.TransactionID,
		ResponseCode:  &code,
	})
	assert.ErrorIs(t, err, openid4vp.ErrNotFound)
}
