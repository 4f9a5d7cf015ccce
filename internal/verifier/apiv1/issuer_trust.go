package apiv1

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"vc/pkg/mdoc"
)

// loadIACATrustList reads a PEM bundle of IACA/issuer certificates from
// certPath and returns a trust list populated with each certificate found.
// An empty certPath yields an empty trust list: mdoc verification will then
// reject every document, which is the safe default absent configuration.
func loadIACATrustList(certPath string) (*mdoc.IACATrustList, error) {
	trustList := mdoc.NewIACATrustList()
	if certPath == "" {
		return trustList, nil
	}

	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read issuer cert bundle: %w", err)
	}

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse issuer certificate: %w", err)
		}
		if err := trustList.AddTrustedIACA(cert); err != nil {
			return nil, fmt.Errorf("failed to add trusted issuer certificate: %w", err)
		}
	}

	return trustList, nil
}
