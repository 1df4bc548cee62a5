package gate

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"github.com/golang/glog"
)

const (
	jwksFetchRetries = 3
	jwksRetryWait    = 500 * time.Millisecond
	jwksCacheTTL     = 12 * time.Hour
)

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// publicKey decodes the base64url modulus and exponent into an RSA key.
func (k jwk) publicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

// KeyCache stores signing keys by kid. Implementations must tolerate
// concurrent access.
type KeyCache interface {
	Get(ctx context.Context, kid string) (jwk, bool)
	Set(ctx context.Context, kid string, key jwk)
}

type memoryKeyCache struct {
	mu   sync.RWMutex
	keys map[string]jwk
}

func NewMemoryKeyCache() KeyCache {
	return &memoryKeyCache{keys: map[string]jwk{}}
}

func (c *memoryKeyCache) Get(_ context.Context, kid string) (jwk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[kid]
	return k, ok
}

func (c *memoryKeyCache) Set(_ context.Context, kid string, key jwk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[kid] = key
}

type redisKeyCache struct {
	client *redis.Client
}

// NewRedisKeyCache caches keys in redis so restarts and replicas share the
// same JWKS view.
func NewRedisKeyCache(client *redis.Client) KeyCache {
	return &redisKeyCache{client: client}
}

func (c *redisKeyCache) key(kid string) string {
	return "launchpad:jwks:" + kid
}

func (c *redisKeyCache) Get(ctx context.Context, kid string) (jwk, bool) {
	raw, err := c.client.Get(ctx, c.key(kid)).Result()
	if err != nil {
		if err != redis.Nil {
			glog.Warningf("redis jwks get failed: %v", err)
		}
		return jwk{}, false
	}
	var k jwk
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		glog.Warningf("corrupt cached jwks entry for kid %s: %v", kid, err)
		return jwk{}, false
	}
	return k, true
}

func (c *redisKeyCache) Set(ctx context.Context, kid string, key jwk) {
	raw, err := json.Marshal(key)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(kid), raw, jwksCacheTTL).Err(); err != nil {
		glog.Warningf("redis jwks set failed: %v", err)
	}
}

type jwksFetcher struct {
	http     *resty.Client
	certsURL string
	cache    KeyCache
}

func newJWKSFetcher(certsURL string, cache KeyCache) *jwksFetcher {
	return &jwksFetcher{
		http:     resty.New().SetTimeout(10 * time.Second),
		certsURL: certsURL,
		cache:    cache,
	}
}

// signingKey returns the RSA public key for a kid, fetching the JWKS from
// the identity provider when the kid is not cached yet.
func (f *jwksFetcher) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k, ok := f.cache.Get(ctx, kid); ok {
		return k.publicKey()
	}

	set, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var found *jwk
	for i := range set.Keys {
		k := set.Keys[i]
		f.cache.Set(ctx, k.Kid, k)
		if k.Kid == kid {
			found = &k
		}
	}
	if found == nil {
		return nil, fmt.Errorf("no signing key with kid %q", kid)
	}
	return found.publicKey()
}

func (f *jwksFetcher) fetch(ctx context.Context) (*jwkSet, error) {
	var lastErr error
	for attempt := 1; attempt <= jwksFetchRetries; attempt++ {
		var set jwkSet
		resp, err := f.http.R().
			SetContext(ctx).
			SetResult(&set).
			Get(f.certsURL)
		if err == nil && resp.IsSuccess() {
			return &set, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("jwks endpoint returned %s", resp.Status())
		}
		glog.Warningf("jwks fetch failed (attempt %d/%d): %v", attempt, jwksFetchRetries, lastErr)

		if attempt == jwksFetchRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jwksRetryWait):
		}
	}
	return nil, fmt.Errorf("failed to fetch jwks from %s: %w", f.certsURL, lastErr)
}
