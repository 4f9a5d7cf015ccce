// Package zkp verifies the zero-knowledge-proof-wrapped credential formats
// vc+sd-jwt+zkp and mso_mdoc+zkp: a Wallet proves possession of a credential
// without revealing its issuer signature, by presenting a detached
// challenge-response proof over the disclosed payload keyed to a public key
// the Verifier registered for that presentation's input descriptor.
package zkp

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Format domain-separates the challenge hash so a proof produced for one
// credential encoding can never be replayed against another.
type Format string

const (
	// FormatSDJWT is used for the vc+sd-jwt+zkp descriptor format.
	FormatSDJWT Format = "SDJWT"
	// FormatMSOMDoc is used for the mso_mdoc+zkp descriptor format.
	FormatMSOMDoc Format = "MSOMDOC"
)

// ErrChallengeMismatch is returned when a proof does not verify against its payload and key.
var ErrChallengeMismatch = errors.New("zkp: challenge verification failed")

// Verifier checks ZKP challenges. It is stateless and safe for concurrent use;
// per the spec's shared-resource policy it is initialized once and shared
// read-only across Presentations.
type Verifier struct{}

// New returns a ready-to-use Verifier.
func New() *Verifier {
	return &Verifier{}
}

// challengeDigest computes the domain-separated digest a proof is made over:
// SHA3-256(format || payload).
func challengeDigest(format Format, payload []byte) [32]byte {
	h := sha3.New256()
	h.Write([]byte(format))
	h.Write(payload)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// VerifyChallenge verifies that proof is a valid ECDSA signature by the holder
// of pub over the domain-separated digest of (format, payload). It returns
// ErrChallengeMismatch on any cryptographic failure, never a partial result.
func (v *Verifier) VerifyChallenge(pub *ecdsa.PublicKey, format Format, payload []byte, proof []byte) error {
	if pub == nil {
		return fmt.Errorf("zkp: no public key registered for this descriptor")
	}
	digest := challengeDigest(format, payload)
	if !ecdsa.VerifyASN1(pub, digest[:], proof) {
		return ErrChallengeMismatch
	}
	return nil
}

// SDJWTPayload extracts the payload a vc+sd-jwt+zkp proof is computed over:
// the SD-JWT portion of the token, i.e. everything before the first "~".
// Anything from the first "~" onward is treated as proof material, not disclosures.
func SDJWTPayload(token string) (payload string, proof []byte) {
	for i := 0; i < len(token); i++ {
		if token[i] == '~' {
			return token[:i], []byte(token[i+1:])
		}
	}
	return token, nil
}
