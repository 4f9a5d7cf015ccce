package apiv1

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vc/pkg/logger"
	"vc/pkg/model"
	"vc/pkg/openid4vp"
	"vc/pkg/trace"
	"vc/pkg/trust"
)

// Client holds the verifier's runtime dependencies: the in-memory Presentation
// Store, the Verifier's own JAR signing key, and the credential validator the
// Wallet's Authorization Response is checked against. The Request Object and
// ephemeral encryption key for each transaction live on the Presentation
// itself (see openid4vp.Presentation), not in a side cache, since each is
// used by at most one Presentation and the Store already indexes by RequestId.
type Client struct {
	cfg    *model.Cfg
	log    *logger.Log
	tracer *trace.Tracer

	store     *openid4vp.Store
	validator *openid4vp.CredentialValidator

	verifierKeyPair *openid4vp.KeyPair
	issuerTrust     *trust.CachingTrustEvaluator

	stopSweeper chan struct{}
}

// New wires up a Client from configuration: loads the Verifier's signing key,
// constructs the Presentation Store, and starts the timeout sweeper.
func New(ctx context.Context, cfg *model.Cfg, tracer *trace.Tracer, log *logger.Log) (*Client, error) {
	c := &Client{
		cfg:         cfg,
		log:         log.New("apiv1"),
		tracer:      tracer,
		store:       openid4vp.NewStore(),
		stopSweeper: make(chan struct{}),
	}

	keyPair, err := LoadKeyPairFromPEMFile(cfg.Verifier.JAR.KeyPath)
	if err != nil {
		c.log.Error(err, "Failed to load verifier JAR signing key")
		return nil, err
	}
	c.verifierKeyPair = keyPair

	trustList, err := loadIACATrustList(cfg.Verifier.Issuer.CertPath)
	if err != nil {
		c.log.Error(err, "Failed to load issuer trust list")
		return nil, err
	}

	// The same configured issuer certificates back both credential formats:
	// mdoc verifies document signer chains against the IACA trust list
	// directly, SD-JWT verifies x5c chains through the TrustEvaluator
	// abstraction so it can later be swapped for go-trust/AuthZEN. The
	// evaluator is wrapped in a TTL cache since the same small set of
	// issuer certificates gets re-evaluated on every Presentation.
	localTrust := trust.NewLocalTrustEvaluator(trust.LocalTrustConfig{
		TrustedRoots: trustList.GetTrustedIssuers(),
		AllowedRoles: []string{string(trust.RoleIssuer)},
	})
	c.issuerTrust = trust.NewCachingTrustEvaluator(localTrust, trust.TrustCacheConfig{TTL: trust.DefaultTrustCacheTTL})
	sdjwt, err := openid4vp.NewSDJWTHandler(openid4vp.WithSDJWTTrustEvaluator(c.issuerTrust))
	if err != nil {
		c.log.Error(err, "Failed to construct sd-jwt handler")
		return nil, err
	}

	mdocHandler, err := openid4vp.NewMDocHandler(openid4vp.WithMDocTrustList(trustList))
	if err != nil {
		c.log.Error(err, "Failed to construct mdoc handler")
		return nil, err
	}
	c.validator = openid4vp.NewCredentialValidator(sdjwt, mdocHandler)

	go c.runSweeper(ctx)

	c.log.Info("Started")

	return c, nil
}

// Close stops the Client's background goroutines.
func (c *Client) Close() {
	close(c.stopSweeper)
	if c.issuerTrust != nil {
		c.issuerTrust.Stop()
	}
}

// runSweeper periodically transitions timed-out Presentations per the
// Timeout Sweeper design: idempotent, ordering-insensitive, no effect on
// already-terminal records.
func (c *Client) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopSweeper:
			return
		case <-ticker.C:
			swept := c.store.Sweep(time.Now(), c.cfg.Verifier.MaxAge)
			if swept > 0 {
				c.log.Info("Swept expired presentations", "count", swept)
			}
		}
	}
}

// sweepInterval runs the sweeper at a fraction of MaxAge so expiry is
// observed promptly without scanning on every request.
func (c *Client) sweepInterval() time.Duration {
	interval := c.cfg.Verifier.MaxAge / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// LoadKeyPairFromPEMFile loads the Verifier's JAR signing key from a PEM file,
// trying PKCS#8, PKCS#1 (RSA), SEC1 (EC), and raw Ed25519 in turn.
func LoadKeyPairFromPEMFile(filepath string) (*openid4vp.KeyPair, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("unable to read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || !strings.Contains(block.Type, "PRIVATE KEY") {
		return nil, errors.New("no valid private key found in PEM")
	}

	if privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return buildKeyPair(privKey)
	}
	if rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return buildKeyPair(rsaKey)
	}
	if ecKey, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return buildKeyPair(ecKey)
	}
	if edKey, ok := parseRawEd25519(block.Bytes); ok {
		return buildKeyPair(edKey)
	}

	return nil, errors.New("unsupported or unknown private key format: tried PKCS#8, PKCS#1 (RSA), SEC1 (EC), raw Ed25519")
}

func buildKeyPair(privKey crypto.PrivateKey) (*openid4vp.KeyPair, error) {
	switch key := privKey.(type) {
	case *rsa.PrivateKey:
		return &openid4vp.KeyPair{
			PrivateKey:         key,
			PublicKey:          &key.PublicKey,
			SigningMethodToUse: jwt.SigningMethodRS256,
			KeyType:            openid4vp.KeyTypeRSA,
		}, nil
	case *ecdsa.PrivateKey:
		return &openid4vp.KeyPair{
			PrivateKey:         key,
			PublicKey:          &key.PublicKey,
			SigningMethodToUse: jwt.SigningMethodES256,
			KeyType:            openid4vp.KeyTypeEC,
		}, nil
	case ed25519.PrivateKey:
		return &openid4vp.KeyPair{
			PrivateKey:         key,
			PublicKey:          key.Public(),
			SigningMethodToUse: jwt.SigningMethodEdDSA,
			KeyType:            openid4vp.KeyTypeEd25519,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported private key type: %T", key)
	}
}

func parseRawEd25519(b []byte) (ed25519.PrivateKey, bool) {
	if len(b) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(b), true
	}
	return nil, false
}
