package openid4vp

import (
	"context"
	"crypto"
	"fmt"
	"sync"

	jwxv1 "github.com/lestrrat-go/jwx/jwk"
)

// JWKSKeyResolver resolves an SD-JWT issuer's verification key by fetching
// its published JWK Set, for issuers that advertise keys this way instead of
// embedding an x5c certificate chain in the credential header. Fetched sets
// are cached per issuer since the same handful of issuers gets verified
// against repeatedly across Presentations.
type JWKSKeyResolver struct {
	// JWKSURL derives the JWKS endpoint for an issuer. Defaults to
	// issuer + "/.well-known/jwks.json" when nil.
	JWKSURL func(issuer string) string

	mu    sync.Mutex
	cache map[string]jwxv1.Set
}

// NewJWKSKeyResolver constructs a JWKSKeyResolver with an empty cache.
func NewJWKSKeyResolver() *JWKSKeyResolver {
	return &JWKSKeyResolver{cache: make(map[string]jwxv1.Set)}
}

// ResolveKey fetches issuer's JWKS (or reuses the cached set) and returns the
// raw public key for keyID.
func (r *JWKSKeyResolver) ResolveKey(ctx context.Context, issuer string, keyID string) (crypto.PublicKey, error) {
	url := issuer + "/.well-known/jwks.json"
	if r.JWKSURL != nil {
		url = r.JWKSURL(issuer)
	}

	set, err := r.fetchSet(ctx, url)
	if err != nil {
		return nil, err
	}

	key, found := set.LookupKeyID(keyID)
	if !found {
		return nil, fmt.Errorf("jwks: no key found for kid %q at %s", keyID, url)
	}

	var pubKey crypto.PublicKey
	if err := key.Raw(&pubKey); err != nil {
		return nil, fmt.Errorf("jwks: failed to extract raw public key: %w", err)
	}
	return pubKey, nil
}

func (r *JWKSKeyResolver) fetchSet(ctx context.Context, url string) (jwxv1.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.cache[url]; ok {
		return set, nil
	}

	set, err := jwxv1.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("jwks: failed to fetch %s: %w", url, err)
	}
	if r.cache == nil {
		r.cache = make(map[string]jwxv1.Set)
	}
	r.cache[url] = set
	return set, nil
}
