package openid4vp

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"vc/pkg/zkp"
)

// CredentialValidator dispatches a submitted vp_token to the handler for its
// descriptor's format and returns a normalized claim set. One CredentialValidator
// is shared read-only across Presentations.
type CredentialValidator struct {
	sdjwt *SDJWTHandler
	mdoc  *MDocHandler
	zkp   *zkp.Verifier
}

// NewCredentialValidator wires the format-specific handlers together.
func NewCredentialValidator(sdjwt *SDJWTHandler, mdoc *MDocHandler) *CredentialValidator {
	return &CredentialValidator{
		sdjwt: sdjwt,
		mdoc:  mdoc,
		zkp:   zkp.New(),
	}
}

// ValidatedDescriptor is the outcome of validating one descriptor_map entry.
type ValidatedDescriptor struct {
	DescriptorID string
	Format       string
	Claims       map[string]any
}

// ValidatePresentationSubmission walks every Descriptor in submission.DescriptorMap,
// resolves its path against the decoded Authorization Response body, and verifies
// the referenced credential using the handler for its format. It fails closed on
// the first invalid descriptor, per invariant I2 (no partial acceptance).
func (v *CredentialValidator) ValidatePresentationSubmission(
	ctx context.Context,
	responseBody any,
	submission *PresentationSubmission,
	zkpKeys ZKPKeys,
) ([]ValidatedDescriptor, error) {
	if submission == nil {
		return nil, ErrMissingVpTokenOrPresentationSubmission
	}

	out := make([]ValidatedDescriptor, 0, len(submission.DescriptorMap))
	for _, d := range submission.DescriptorMap {
		token, err := resolveTokenAtPath(responseBody, d.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: descriptor %s: %v", ErrMissingVpTokenOrPresentationSubmission, d.ID, err)
		}

		claims, err := v.validateOne(ctx, d, token, zkpKeys)
		if err != nil {
			return nil, err
		}
		out = append(out, ValidatedDescriptor{DescriptorID: d.ID, Format: d.Format, Claims: claims})
	}
	return out, nil
}

func resolveTokenAtPath(body any, path string) (string, error) {
	result, err := jsonpath.Get(path, body)
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string token", path)
	}
	return s, nil
}

func (v *CredentialValidator) validateOne(ctx context.Context, d Descriptor, token string, zkpKeys ZKPKeys) (map[string]any, error) {
	switch d.Format {
	case "vc+sd-jwt", "sd_jwt":
		res, err := v.sdjwt.VerifyAndExtract(ctx, token)
		if err != nil || res == nil || !res.Valid {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSDJwt, err)
		}
		return res.GetClaims(), nil

	case "mso_mdoc":
		res, err := v.mdoc.VerifyAndExtract(ctx, token)
		if err != nil || res == nil || !res.Valid {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMdoc, err)
		}
		return flattenMDocDocuments(res), nil

	case "vc+sd-jwt+zkp":
		return v.validateSDJWTZKP(ctx, d.ID, token, zkpKeys)

	case "mso_mdoc+zkp":
		return v.validateMDocZKP(ctx, d.ID, token, zkpKeys)

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, d.Format)
	}
}

func (v *CredentialValidator) validateSDJWTZKP(ctx context.Context, descriptorID, token string, zkpKeys ZKPKeys) (map[string]any, error) {
	pub, err := zkpKey(zkpKeys, descriptorID)
	if err != nil {
		return nil, err
	}

	payload, proof := zkp.SDJWTPayload(token)
	if err := v.zkp.VerifyChallenge(pub, zkp.FormatSDJWT, []byte(payload), proof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSDJwt, err)
	}

	res, err := v.sdjwt.VerifyAndExtract(ctx, payload)
	if err != nil || res == nil || !res.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSDJwt, err)
	}
	return res.GetClaims(), nil
}

func (v *CredentialValidator) validateMDocZKP(ctx context.Context, descriptorID, token string, zkpKeys ZKPKeys) (map[string]any, error) {
	pub, err := zkpKey(zkpKeys, descriptorID)
	if err != nil {
		return nil, err
	}

	data, err := decodeMDocBytes(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMdoc, err)
	}

	env, err := zkp.DecodeMDocEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMdoc, err)
	}

	claims := make(map[string]any)
	for i := range env.Documents {
		doc := env.Documents[i]
		payload, err := zkp.DocumentPayload(&doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMdoc, err)
		}
		if err := v.zkp.VerifyChallenge(pub, zkp.FormatMSOMDoc, payload, env.Proofs[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMdoc, err)
		}
		for ns, items := range doc.IssuerSigned.NameSpaces {
			for _, item := range items {
				claims[ns+"."+item.ElementIdentifier] = item.ElementValue
			}
		}
	}
	return claims, nil
}

func decodeMDocBytes(token string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err == nil {
		return data, nil
	}
	return base64.StdEncoding.DecodeString(token)
}

func zkpKey(keys ZKPKeys, descriptorID string) (*ecdsa.PublicKey, error) {
	if keys == nil {
		return nil, fmt.Errorf("zkp: no keys registered for this presentation")
	}
	pub, ok := keys[descriptorID]
	if !ok {
		return nil, fmt.Errorf("zkp: no key registered for descriptor %s", descriptorID)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("zkp: key for descriptor %s is not ECDSA", descriptorID)
	}
	return ecPub, nil
}

// VPTokenBody normalizes an AuthorizationResponse's vp_token into the shape a
// Presentation Submission's descriptor_map paths are written against: the
// decoded vp_token value itself, a single token for one credential or an
// array of tokens when several were requested.
func VPTokenBody(tokens []VPTokenRaw) any {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) == 1 {
		return vpTokenValue(tokens[0])
	}
	vals := make([]any, len(tokens))
	for i, t := range tokens {
		vals[i] = vpTokenValue(t)
	}
	return vals
}

func vpTokenValue(t VPTokenRaw) any {
	if t.JWT != "" {
		return t.JWT
	}
	return t.JSON
}

func flattenMDocDocuments(res *MDocVerificationResult) map[string]any {
	claims := make(map[string]any)
	for docType, dc := range res.Documents {
		for k, val := range dc.GetClaims() {
			claims[docType+"."+k] = val
		}
	}
	return claims
}
