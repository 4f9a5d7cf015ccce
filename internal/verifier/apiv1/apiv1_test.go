package apiv1

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"vc/pkg/model"
	"vc/pkg/openid4vp"
	"vc/pkg/trust"
)

// newTestClient builds a Client with a throwaway EC signing key and an empty
// Store, bypassing New()'s PEM/trust-list loading so orchestrator logic can
// be exercised directly.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	// Empty trust list, matching loadIACATrustList's safe default absent
	// configuration: no issuer certificate is trusted until one is added.
	issuerTrust := trust.NewLocalTrustEvaluator(trust.LocalTrustConfig{})
	sdjwt, err := openid4vp.NewSDJWTHandler(openid4vp.WithSDJWTTrustEvaluator(issuerTrust))
	require.NoError(t, err)
	mdocHandler, err := openid4vp.NewMDocHandler()
	require.NoError(t, err)

	return &Client{
		cfg: &model.Cfg{
			Verifier: model.Verifier{
				ClientID:  "https://verifier.example.test",
				PublicURL: "https://verifier.example.test",
				ClientMetadata: model.ClientMetadataCfg{
					AuthorizationEncryptedResponseAlg: "ECDH-ES",
					AuthorizationEncryptedResponseEnc: "A128CBC-HS256",
				},
				RequestJWT:             model.RequestJWTCfg{Embed: model.EmbedByReference},
				PresentationDefinition: model.PresentationDefinitionCfg{Embed: model.EmbedByValue},
			},
		},
		store:     openid4vp.NewStore(),
		validator: openid4vp.NewCredentialValidator(sdjwt, mdocHandler),
		verifierKeyPair: &openid4vp.KeyPair{
			PrivateKey:         priv,
			PublicKey:          &priv.PublicKey,
			SigningMethodToUse: jwt.SigningMethodES256,
			KeyType:            openid4vp.KeyTypeEC,
		},
	}
}
