package sdjwtvc

// Client performs SD-JWT VC building and verification operations.
// It carries no mutable state; the zero value is ready to use.
type Client struct{}

// New returns a ready-to-use SD-JWT VC client.
func New() *Client {
	return &Client{}
}
