package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// DefaultCertsURL serves the x509 certificates that sign Firebase ID tokens,
// keyed by kid.
const DefaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const (
	defaultCertsMaxAge = time.Hour
	certsFetchTimeout  = 10 * time.Second
)

// RemoteKeySource fetches the certificate map over HTTP and caches it for as
// long as the response's Cache-Control max-age allows.
type RemoteKeySource struct {
	url    string
	client *http.Client
	now    func() time.Time
	log    *slog.Logger

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time

	fetches singleflight.Group
}

var _ KeySource = (*RemoteKeySource)(nil)

func NewRemoteKeySource(
	url string,
	client *http.Client,
	logger *slog.Logger,
) *RemoteKeySource {
	if url == "" {
		url = DefaultCertsURL
	}
	if client == nil {
		client = &http.Client{Timeout: certsFetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteKeySource{
		url:    url,
		client: client,
		now:    time.Now,
		log:    logger.With("component", "firebase-certs"),
	}
}

func (s *RemoteKeySource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}
	return key, nil
}

func (s *RemoteKeySource) current(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	s.mu.RLock()
	keys, expires := s.keys, s.expires
	s.mu.RUnlock()
	if keys != nil && s.now().Before(expires) {
		return keys, nil
	}

	// the shared fetch outlives any one caller; each caller only stops
	// waiting on its own deadline
	flight := s.fetches.DoChan("certs", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), certsFetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx)
	})
	select {
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]*rsa.PublicKey), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to fetch certs: %w", ctx.Err())
	}
}

func (s *RemoteKeySource) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build certs request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch certs: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, fmt.Errorf("failed to decode certs: %w", err)
	}
	keys, err := parseCertificates(certs)
	if err != nil {
		return nil, err
	}

	maxAge := parseMaxAge(resp.Header.Get("Cache-Control"))
	s.mu.Lock()
	s.keys = keys
	s.expires = s.now().Add(maxAge)
	s.mu.Unlock()

	s.log.Info("refreshed signing certificates", "count", len(keys), "max_age", maxAge)
	return keys, nil
}

func parseCertificates(certs map[string]string) (map[string]*rsa.PublicKey, error) {
	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(certPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate '%s': %w", kid, err)
		}
		keys[kid] = key
	}
	return keys, nil
}

func parseMaxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			break
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultCertsMaxAge
}
