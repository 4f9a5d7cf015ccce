package httpserver

import (
	"context"

	"vc/internal/verifier/apiv1"
	"vc/pkg/openid4vp"
)

// Apiv1 is the subset of apiv1.Client the HTTP layer drives.
type Apiv1 interface {
	InitTransaction(ctx context.Context, req *apiv1.InitTransactionRequest) (*apiv1.InitTransactionReply, error)
	GetRequestObject(ctx context.Context, requestID openid4vp.RequestId) (string, error)
	PostWalletResponse(ctx context.Context, req *apiv1.PostWalletResponseRequest) (*apiv1.PostWalletResponseReply, error)
	GetWalletResponse(ctx context.Context, req *apiv1.GetWalletResponseRequest) (*apiv1.GetWalletResponseReply, error)
	Status(ctx context.Context) (*apiv1.StatusReply, error)
}
