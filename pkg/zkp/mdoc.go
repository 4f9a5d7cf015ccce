package zkp

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"vc/pkg/mdoc"
)

// MDocEnvelope is the wire format for mso_mdoc+zkp: a sibling of the plain
// mso_mdoc DeviceResponse's "documents" list, carrying one detached proof per
// document in the same order.
type MDocEnvelope struct {
	Documents []mdoc.Document `cbor:"documents"`
	Proofs    [][]byte        `cbor:"proofs"`
}

// DecodeMDocEnvelope decodes a base64url-CBOR mso_mdoc+zkp token's raw bytes.
func DecodeMDocEnvelope(data []byte) (*MDocEnvelope, error) {
	var env MDocEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("zkp: failed to decode mdoc envelope: %w", err)
	}
	if len(env.Documents) != len(env.Proofs) {
		return nil, fmt.Errorf("zkp: %d documents but %d proofs", len(env.Documents), len(env.Proofs))
	}
	return &env, nil
}

// DocumentPayload re-encodes a single Document alone, independent of the
// enclosing envelope, as the payload the ZKP challenge for that document is
// computed over.
func DocumentPayload(doc *mdoc.Document) ([]byte, error) {
	return mdoc.EncodeDocument(doc)
}
