package openid4vp

import (
	"crypto"

	"github.com/golang-jwt/jwt/v5"
)

// KeyType names the algorithm family of a Verifier signing key.
type KeyType string

const (
	KeyTypeRSA     KeyType = "RSA"
	KeyTypeEC      KeyType = "EC"
	KeyTypeEd25519 KeyType = "Ed25519"
)

// KeyPair is the Verifier's own signing key, loaded once at startup and used
// to sign every Request Object JAR via RequestObject.Sign.
type KeyPair struct {
	PrivateKey         crypto.PrivateKey
	PublicKey          crypto.PublicKey
	SigningMethodToUse jwt.SigningMethod
	KeyType            KeyType
}

// CertData holds a parsed X.509 certificate in both encodings, as carried in
// a Request Object's x5c header.
type CertData struct {
	CertPEM []byte
	CertDER []byte
}
