package apiv1

import (
	"context"

	"vc/pkg/openid4vp"
)

// GetWalletResponseRequest identifies which transaction's result is being
// fetched, and, for Redirect-retrieval transactions, the single-use code
// exchanged by the Verifier front-end.
type GetWalletResponseRequest struct {
	TransactionID openid4vp.TransactionId
	ResponseCode  *openid4vp.ResponseCode
}

// GetWalletResponseReply is the Verifier front-end's view of a completed
// Authorization Response.
type GetWalletResponseReply struct {
	IDToken                string
	VPToken                string
	PresentationSubmission *openid4vp.PresentationSubmission
}

// GetWalletResponse returns the verified result of a Presentation. Poll-method
// transactions may be read repeatedly once Submitted; Redirect-method
// transactions require the matching ResponseCode and may be read only once,
// since ConsumeResponseCode transitions the record out of Submitted.
func (c *Client) GetWalletResponse(ctx context.Context, req *GetWalletResponseRequest) (*GetWalletResponseReply, error) {
	presentation, ok := c.store.LoadByTransactionID(req.TransactionID)
	if !ok {
		return nil, openid4vp.ErrNotFound
	}

	if presentation.GetWalletResponseMethod.Kind == openid4vp.MethodRedirect {
		if req.ResponseCode == nil {
			return nil, openid4vp.ErrInvalidState
		}
		consumed, err := c.store.ConsumeResponseCode(req.TransactionID, *req.ResponseCode)
		if err != nil {
			return nil, err
		}
		presentation = consumed
	} else if presentation.Status != openid4vp.StatusSubmitted {
		return nil, openid4vp.ErrInvalidState
	}

	if presentation.WalletResp == nil {
		return nil, openid4vp.ErrInvalidState
	}

	return &GetWalletResponseReply{
		IDToken:                presentation.WalletResp.IDToken,
		VPToken:                presentation.WalletResp.VPToken,
		PresentationSubmission: presentation.WalletResp.PresentationSubmission,
	}, nil
}
