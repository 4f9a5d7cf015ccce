package apiv1

import (
	"context"
)

// StatusReply reports this instance's health for the service's readiness probe.
type StatusReply struct {
	Status            string `json:"status"`
	PresentationsHeld int    `json:"presentations_held"`
}

// Status returns the instance's health. It never fails: the Presentation
// Store is in-memory, so there is no external dependency to probe.
func (c *Client) Status(ctx context.Context) (*StatusReply, error) {
	return &StatusReply{
		Status:            "OK",
		PresentationsHeld: c.store.Len(),
	}, nil
}
