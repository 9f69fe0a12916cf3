package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"mandi/pkg/httpx"
)

// KeySet memoizes the identity provider's published signing keys for the
// process lifetime. Concurrent first-use fetches may duplicate work; the
// fetch is idempotent, so the race is wasted effort, not a hazard.
type KeySet struct {
	URL     string
	Client  *http.Client
	Retries int

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

func NewKeySet(url string, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &KeySet{URL: strings.TrimSpace(url), Client: client, Retries: 1}
}

// Key returns the RSA public key for a kid, fetching the set on first use.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k == nil || k.URL == "" {
		return nil, errors.New("key set url is required")
	}
	k.mu.RLock()
	keys := k.keys
	k.mu.RUnlock()
	if keys == nil {
		fetched, err := k.fetch(ctx)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		if k.keys == nil {
			k.keys = fetched
		}
		keys = k.keys
		k.mu.Unlock()
	}
	pub, ok := keys[kid]
	if !ok {
		return nil, errors.New("kid not present in key set")
	}
	return pub, nil
}

func (k *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	status, body, err := httpx.RequestJSON(ctx, k.Client, http.MethodGet, k.URL, nil, nil, k.Retries, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.New("key set fetch failed")
	}
	var payload struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	keys := map[string]*rsa.PublicKey{}
	for _, key := range payload.Keys {
		if strings.ToUpper(key.Kty) != "RSA" || strings.TrimSpace(key.Kid) == "" {
			continue
		}
		pub, err := rsaFromJWK(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("key set has no usable rsa keys")
	}
	return keys, nil
}

func rsaFromJWK(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	if len(eb) == 0 {
		return nil, errors.New("invalid exponent")
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e <= 1 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
