package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"vc/internal/verifier/apiv1"
	"vc/pkg/helpers"
	"vc/pkg/openid4vp"
)

func (s *Service) endpointStatus(ctx context.Context, c *gin.Context) (any, error) {
	return s.apiv1.Status(ctx)
}

// endpointInitTransaction implements POST /ui/presentations: the Verifier
// front-end starts a new verification transaction.
func (s *Service) endpointInitTransaction(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.InitTransactionRequest{}
	if err := s.bindRequest(c, req); err != nil {
		return nil, err
	}
	return s.apiv1.InitTransaction(ctx, req)
}

// handlerGetRequestObject implements GET /wallet/request.jwt/{requestId}:
// the Wallet fetches the signed JAR. It bypasses the JSON-envelope endpoint
// wrapper since the body is the raw JWT, not a JSON reply.
func (s *Service) handlerGetRequestObject(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := openid4vp.RequestId(c.Param("requestId"))
		jwt, err := s.apiv1.GetRequestObject(ctx, requestID)
		if err != nil {
			c.JSON(httpStatusForError(err), gin.H{"error": helpers.NewErrorFromError(err)})
			return
		}
		c.Data(http.StatusOK, "application/oauth-authz-req+jwt", []byte(jwt))
	}
}

// endpointDirectPost implements POST /wallet/direct_post.
func (s *Service) endpointDirectPost(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.PostWalletResponseRequest{
		Mode:                       openid4vp.DirectPost,
		State:                      c.PostForm("state"),
		IDToken:                    c.PostForm("id_token"),
		VPToken:                    c.PostForm("vp_token"),
		PresentationSubmissionJSON: c.PostForm("presentation_submission"),
	}
	reply, err := s.apiv1.PostWalletResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// endpointDirectPostJWT implements POST /wallet/direct_post.jwt.
func (s *Service) endpointDirectPostJWT(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.PostWalletResponseRequest{
		Mode:     openid4vp.DirectPostJwt,
		Response: c.PostForm("response"),
	}
	reply, err := s.apiv1.PostWalletResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// endpointGetWalletResponse implements GET /ui/presentations/{transactionId}.
func (s *Service) endpointGetWalletResponse(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.GetWalletResponseRequest{
		TransactionID: openid4vp.TransactionId(c.Param("transactionId")),
	}
	if code := c.Query("response_code"); code != "" {
		rc := openid4vp.ResponseCode(code)
		req.ResponseCode = &rc
	}
	return s.apiv1.GetWalletResponse(ctx, req)
}
