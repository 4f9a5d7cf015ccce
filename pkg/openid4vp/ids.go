package openid4vp

import (
	"crypto/rand"
	"encoding/base64"
)

// TransactionId identifies a Presentation from the Verifier front-end's perspective.
type TransactionId string

// RequestId identifies a Presentation from the Wallet's perspective; it doubles
// as the OAuth2 "state" parameter carried through the JAR and the Wallet's response.
type RequestId string

// ResponseCode is a one-shot handoff token returned to the Verifier front-end
// via redirect, exchanged once for the stored WalletResponse.
type ResponseCode string

// idByteLength is the amount of randomness backing each opaque identifier.
const idByteLength = 32

func newOpaqueID() (string, error) {
	buf := make([]byte, idByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewTransactionId generates a fresh, cryptographically random TransactionId.
func NewTransactionId() (TransactionId, error) {
	s, err := newOpaqueID()
	if err != nil {
		return "", err
	}
	return TransactionId(s), nil
}

// NewRequestId generates a fresh, cryptographically random RequestId.
func NewRequestId() (RequestId, error) {
	s, err := newOpaqueID()
	if err != nil {
		return "", err
	}
	return RequestId(s), nil
}

// NewResponseCode generates a fresh, cryptographically random ResponseCode.
func NewResponseCode() (ResponseCode, error) {
	s, err := newOpaqueID()
	if err != nil {
		return "", err
	}
	return ResponseCode(s), nil
}
