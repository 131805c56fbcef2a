package remote

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"labtrust/internal/domain"
)

const (
	defaultTTL          = 15 * time.Minute
	defaultSoftTTL      = 10 * time.Minute
	defaultMaxStale     = time.Hour
	defaultFetchTimeout = 2 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

type keyState int

const (
	keyMissing keyState = iota
	keyFresh
	keyAging
	keyStale
)

type cachedKey struct {
	key       *rsa.PublicKey
	fetchedAt time.Time
}

// KeySetCache fetches and caches the issuer's published key set. Entries
// past the soft TTL trigger a background refresh while the current key is
// still served; a requested kid absent from the cache forces one
// synchronous refresh so key rotation does not have to wait for expiry.
// Keys that drop out of the published set are retained up to maxStale, and
// a stale key is preferred over failing when a refresh cannot be completed.
type KeySetCache struct {
	url          string
	httpClient   *http.Client
	ttl          time.Duration
	softTTL      time.Duration
	maxStale     time.Duration
	fetchTimeout time.Duration
	maxBodyBytes int64
	now          func() time.Time
	log          zerolog.Logger

	mu   sync.RWMutex
	keys map[string]cachedKey

	refreshMu sync.Mutex
	refreshCh chan struct{}
	lastErr   error
}

type Option func(*KeySetCache)

func WithHTTPClient(client *http.Client) Option {
	return func(c *KeySetCache) { c.httpClient = client }
}

func WithTTL(soft, hard time.Duration) Option {
	return func(c *KeySetCache) {
		c.softTTL = soft
		c.ttl = hard
	}
}

func NewKeySetCache(url string, log zerolog.Logger, opts ...Option) (*KeySetCache, error) {
	if url == "" {
		return nil, errors.New("jwks url is required")
	}
	c := &KeySetCache{
		url:          url,
		httpClient:   &http.Client{Timeout: defaultFetchTimeout},
		ttl:          defaultTTL,
		softTTL:      defaultSoftTTL,
		maxStale:     defaultMaxStale,
		fetchTimeout: defaultFetchTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
		now:          time.Now,
		log:          log,
		keys:         map[string]cachedKey{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveKey returns the public key for kid, refreshing the cached set as
// the staleness policy requires. It fails closed with ErrKeyNotFound when
// neither a fresh nor a retained stale key is available.
func (c *KeySetCache) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: token carries no key id", domain.ErrKeyNotFound)
	}
	now := c.now()
	key, state := c.lookup(kid, now)
	switch state {
	case keyFresh:
		return key, nil
	case keyAging:
		c.refreshAsync()
		return key, nil
	}

	// Miss or hard-expired: one synchronous refresh before giving up.
	if err := c.refresh(ctx); err != nil {
		if state == keyStale {
			c.log.Warn().Err(err).Str("kid", kid).Msg("jwks refresh failed, serving stale key")
			return key, nil
		}
		return nil, fmt.Errorf("%w: refresh failed: %v", domain.ErrKeyNotFound, err)
	}
	if key, state := c.lookup(kid, c.now()); state != keyMissing {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q not in published key set", domain.ErrKeyNotFound, kid)
}

func (c *KeySetCache) lookup(kid string, now time.Time) (*rsa.PublicKey, keyState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.keys[kid]
	if !ok {
		return nil, keyMissing
	}
	age := now.Sub(entry.fetchedAt)
	switch {
	case age < c.softTTL:
		return entry.key, keyFresh
	case age < c.ttl:
		return entry.key, keyAging
	case age < c.ttl+c.maxStale:
		return entry.key, keyStale
	default:
		return nil, keyMissing
	}
}

func (c *KeySetCache) refreshAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	go func() {
		defer cancel()
		_ = c.refresh(ctx)
	}()
}

// refresh is singleflight: concurrent callers share one in-flight fetch.
func (c *KeySetCache) refresh(ctx context.Context) error {
	ch, leader := c.beginRefresh()
	if !leader {
		return c.waitRefresh(ctx, ch)
	}
	err := c.doRefresh(ctx)
	c.finishRefresh(err, ch)
	return err
}

func (c *KeySetCache) beginRefresh() (chan struct{}, bool) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if c.refreshCh != nil {
		return c.refreshCh, false
	}
	ch := make(chan struct{})
	c.refreshCh = ch
	return ch, true
}

func (c *KeySetCache) waitRefresh(ctx context.Context, ch chan struct{}) error {
	select {
	case <-ch:
		c.refreshMu.Lock()
		defer c.refreshMu.Unlock()
		return c.lastErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *KeySetCache) finishRefresh(err error, ch chan struct{}) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	c.lastErr = err
	close(ch)
	c.refreshCh = nil
}

func (c *KeySetCache) doRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	fetched, err := c.fetchOnce(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	next := make(map[string]cachedKey, len(fetched))
	for kid, key := range fetched {
		next[kid] = cachedKey{key: key, fetchedAt: now}
	}

	// Carry forward keys dropped by rotation, with their original fetch
	// time, so in-flight tokens signed by them keep verifying for a while.
	c.mu.Lock()
	for kid, entry := range c.keys {
		if _, ok := next[kid]; ok {
			continue
		}
		if now.Sub(entry.fetchedAt) < c.ttl+c.maxStale {
			next[kid] = entry
		}
	}
	c.keys = next
	c.mu.Unlock()
	return nil
}

func (c *KeySetCache) fetchOnce(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("jwks response exceeds %d bytes", c.maxBodyBytes)
	}

	var payload jwksResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, key := range payload.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		pub, err := jwkToRSAPublicKey(key)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}
	return keys, nil
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func jwkToRSAPublicKey(key jwkKey) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes).Int64()
	if e <= 0 || e > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e)}, nil
}
