package model

import (
	"time"

	"vc/pkg/openid4vp"
)

// APIServer holds the api server configuration
type APIServer struct {
	Addr string `yaml:"addr" validate:"required"`
	TLS  TLS    `yaml:"tls" validate:"omitempty"`
}

// TLS holds the tls configuration
type TLS struct {
	Enabled      bool   `yaml:"enabled"`
	CertFilePath string `yaml:"cert_file_path"`
	KeyFilePath  string `yaml:"key_file_path"`
}

// Log holds the log configuration
type Log struct {
	Level      string `yaml:"level"`
	FolderPath string `yaml:"folder_path"`
}

// OTEL holds the opentelemetry configuration
type OTEL struct {
	Addr    string `yaml:"addr"`
	Timeout int64  `yaml:"timeout" default:"10"`
}

// Common holds configuration shared by every part of the service
type Common struct {
	Production bool    `yaml:"production"`
	Log        Log     `yaml:"log"`
	Tracing    OTEL    `yaml:"tracing" validate:"omitempty"`
}

// EmbedMode controls whether a JAR artifact is embedded by value or handed
// to the wallet by reference. Reuses openid4vp's type directly so
// configuration values flow into Presentation construction without conversion.
type EmbedMode = openid4vp.EmbedMode

const (
	// EmbedByValue embeds the artifact directly in the request object.
	EmbedByValue = openid4vp.EmbedByValue
	// EmbedByReference hands the wallet a URI it must dereference.
	EmbedByReference = openid4vp.EmbedByReference
)

// JARSigning holds the signing configuration for the Request Object (JAR)
type JARSigning struct {
	// Algorithm names the JWS algorithm used to sign the JAR, e.g. "RS256" or "ES256"
	Algorithm string `yaml:"algorithm" validate:"required"`

	// KeyPath is a path to a PEM-encoded private key used to sign the JAR
	KeyPath string `yaml:"key_path" validate:"required"`
}

// ClientMetadataCfg declares the response encryption/signing capabilities advertised
// to the wallet in the JAR's client_metadata parameter
type ClientMetadataCfg struct {
	AuthorizationSignedResponseAlg    string `yaml:"authorization_signed_response_alg"`
	AuthorizationEncryptedResponseAlg string `yaml:"authorization_encrypted_response_alg" default:"ECDH-ES"`
	AuthorizationEncryptedResponseEnc string `yaml:"authorization_encrypted_response_enc" default:"A128CBC-HS256"`
}

// RequestJWTCfg controls how the Request Object is handed to the wallet
type RequestJWTCfg struct {
	Embed EmbedMode `yaml:"embed" default:"by_reference"`
}

// PresentationDefinitionCfg controls how the Presentation Definition is handed to the wallet
type PresentationDefinitionCfg struct {
	Embed EmbedMode `yaml:"embed" default:"by_value"`
}

// IssuerTrust names the trust anchors the verifier accepts credentials from
type IssuerTrust struct {
	// CertPath is a PEM bundle of issuer/IACA certificates trusted for mdoc verification
	CertPath string `yaml:"cert_path"`

	// JWKSPath is a JWK set of issuer signing keys trusted for SD-JWT VC verification
	JWKSPath string `yaml:"jwks_path"`
}

// Verifier holds the verifier configuration
type Verifier struct {
	APIServer APIServer `yaml:"api_server" validate:"required"`

	// ClientID is the OAuth2 client_id this verifier presents itself as
	ClientID string `yaml:"client_id" validate:"required"`

	// ClientIDScheme per OpenID4VP, e.g. "x509_san_dns", "pre-registered"
	ClientIDScheme string `yaml:"client_id_scheme" default:"pre-registered"`

	// PublicURL is the externally reachable base URL of this verifier, used to
	// construct response_uri/request_uri values handed to wallets
	PublicURL string `yaml:"public_url" validate:"required"`

	// ResponseMode is the default response_mode used for initiated transactions:
	// "direct_post" or "direct_post.jwt"
	ResponseMode string `yaml:"response_mode" default:"direct_post.jwt"`

	// MaxAge bounds how long a presentation may remain outstanding before the
	// timeout sweeper marks it TimedOut
	MaxAge time.Duration `yaml:"max_age" default:"6m"`

	JAR                    JARSigning                `yaml:"jar" validate:"required"`
	ClientMetadata         ClientMetadataCfg         `yaml:"client_metadata"`
	RequestJWT             RequestJWTCfg             `yaml:"request_jwt"`
	PresentationDefinition PresentationDefinitionCfg `yaml:"presentation_definition"`
	Issuer                 IssuerTrust               `yaml:"issuer"`
}

// Cfg is the main configuration structure for this application
type Cfg struct {
	Common   Common   `yaml:"common"`
	Verifier Verifier `yaml:"verifier" validate:"required"`
}
