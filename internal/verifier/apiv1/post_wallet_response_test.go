package apiv1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vc/pkg/openid4vp"
)

func initIDTokenPresentation(t *testing.T, c *Client, method openid4vp.GetWalletResponseMethod) openid4vp.RequestId {
	t.Helper()
	reply, err := c.InitTransaction(context.Background(), &InitTransactionRequest{
		Type:                    openid4vp.KindIdTokenRequest,
		IDTokenType:             openid4vp.IDTokenTypeSubjectSigned,
		ResponseMode:            openid4vp.DirectPost,
		GetWalletResponseMethod: method,
	})
	require.NoError(t, err)
	p, ok := c.store.LoadByTransactionID(reply.TransactionID)
	require.True(t, ok)
	return p.RequestID
}

func TestPostWalletResponse_IDToken_HappyPath_Poll(t *testing.T) {
	c := newTestClient(t)
	requestID := initIDTokenPresentation(t, c, openid4vp.Poll())

	_, err := c.GetRequestObject(context.Background(), requestID)
	require.NoError(t, err)

	reply, err := c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(requestID),
		IDToken: "header.payload.signature",
	})
	require.NoError(t, err)
	assert.Empty(t, reply.RedirectURI)

	p, ok := c.store.LoadByRequestID(requestID)
	require.True(t, ok)
	assert.Equal(t, openid4vp.StatusSubmitted, p.Status)
	require.NotNil(t, p.WalletResp)
	assert.Equal(t, "header.payload.signature", p.WalletResp.IDToken)
}

func TestPostWalletResponse_IDToken_HappyPath_Redirect(t *testing.T) {
	c := newTestClient(t)
	requestID := initIDTokenPresentation(t, c, openid4vp.Redirect("https://verifier.example.test/cb?code={code}"))

	_, err := c.GetRequestObject(context.Background(), requestID)
	require.NoError(t, err)

	reply, err := c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(requestID),
		IDToken: "header.payload.signature",
	})
	require.NoError(t, err)
	assert.Contains(t, reply.RedirectURI, "https://verifier.example.test/cb?code=")
	assert.NotContains(t, reply.RedirectURI, "{code}")
}

func TestPostWalletResponse_MissingStateFails(t *testing.T) {
	c := newTestClient(t)

	_, err := c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		IDToken: "header.payload.signature",
	})
	assert.ErrorIs(t, err, openid4vp.ErrMissingState)
}

func TestPostWalletResponse_UnknownRequestIDFails(t *testing.T) {
	c := newTestClient(t)

	_, err := c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   "does-not-exist",
		IDToken: "header.payload.signature",
	})
	assert.ErrorIs(t, err, openid4vp.ErrPresentationDefinitionNotFound)
}

func TestPostWalletResponse_ResponseModeMismatchFails(t *testing.T) {
	c := newTestClient(t)
	requestID := initIDTokenPresentation(t, c, openid4vp.Poll())

	_, err := c.GetRequestObject(context.Background(), requestID)
	require.NoError(t, err)

	_, err = c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPostJwt,
		State:   string(requestID),
		IDToken: "header.payload.signature",
	})
	var modeErr *openid4vp.UnexpectedResponseModeError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, openid4vp.DirectPost, modeErr.Expected)
	assert.Equal(t, openid4vp.DirectPostJwt, modeErr.Actual)
}

func TestPostWalletResponse_MissingIDTokenFails(t *testing.T) {
	c := newTestClient(t)
	requestID := initIDTokenPresentation(t, c, openid4vp.Poll())

	_, err := c.GetRequestObject(context.Background(), requestID)
	require.NoError(t, err)

	_, err = c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:  openid4vp.DirectPost,
		State: string(requestID),
	})
	assert.ErrorIs(t, err, openid4vp.ErrMissingIdToken)
}

func TestPostWalletResponse_BeforeRequestObjectRetrievedFails(t *testing.T) {
	c := newTestClient(t)
	requestID := initIDTokenPresentation(t, c, openid4vp.Poll())

	// The Wallet never fetched the Request Object, so the Presentation is
	// still Requested, not RequestObjectRetrieved. The posted id_token is
	// also malformed; the lifecycle gate must reject this before any crypto
	// work is attempted, so the error is ErrPresentationNotInExpectedState,
	// not a token-parsing error.
	_, err := c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(requestID),
		IDToken: "not-a-valid-jwt",
	})
	assert.ErrorIs(t, err, openid4vp.ErrPresentationNotInExpectedState)
}

func TestPostWalletResponse_SecondSubmissionFails(t *testing.T) {
	c := newTestClient(t)
	requestID := initIDTokenPresentation(t, c, openid4vp.Poll())

	_, err := c.GetRequestObject(context.Background(), requestID)
	require.NoError(t, err)

	_, err = c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(requestID),
		IDToken: "header.payload.signature",
	})
	require.NoError(t, err)

	_, err = c.PostWalletResponse(context.Background(), &PostWalletResponseRequest{
		Mode:    openid4vp.DirectPost,
		State:   string(requestID),
		IDToken: "header.payload.signature",
	})
	assert.ErrorIs(t, err, openid4vp.ErrPresentationNotInExpectedState)
}
