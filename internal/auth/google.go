// Package auth verifies Google sign-in ID tokens.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/cwrk-planet/codecollab/internal/domain"
	"github.com/cwrk-planet/codecollab/pkg/errs"
)

const (
	DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

	defaultClockSkew = 30 * time.Second
	defaultKeysTTL   = time.Hour
	maxCertsBody     = 1 << 20

	// unknown kids refetch the key set at most this often
	minKidRefresh = time.Minute
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type Authenticator interface {
	Authenticate(ctx context.Context, idToken string) (domain.User, error)
}

type GoogleOptions struct {
	ClientID  string
	CertsURL  string
	ClockSkew time.Duration

	HTTPClient *http.Client
	Now        func() time.Time
}

// GoogleClaims carries the profile fields Google puts in its ID tokens.
type GoogleClaims struct {
	jwt.StandardClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type Google struct {
	clientID  string
	certsURL  string
	clockSkew time.Duration
	http      *http.Client
	now       func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expires   time.Time
	fetchedAt time.Time
}

func NewGoogle(opts GoogleOptions) *Google {
	if opts.CertsURL == "" {
		opts.CertsURL = DefaultCertsURL
	}
	if opts.ClockSkew == 0 {
		opts.ClockSkew = defaultClockSkew
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Google{
		clientID:  opts.ClientID,
		certsURL:  opts.CertsURL,
		clockSkew: opts.ClockSkew,
		http:      opts.HTTPClient,
		now:       opts.Now,
	}
}

// Authenticate checks the token signature against Google's published keys
// and its issuer, audience and lifetime. Every failure is ErrUnauthorized.
func (g *Google) Authenticate(ctx context.Context, idToken string) (domain.User, error) {
	if g.clientID == "" {
		return domain.User{}, fmt.Errorf("%w: google client id not configured", errs.ErrUnavailable)
	}
	if idToken == "" {
		return domain.User{}, fmt.Errorf("%w: empty token", errs.ErrUnauthorized)
	}

	claims := &GoogleClaims{}
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodRS256.Alg()},
		SkipClaimsValidation: true,
	}
	token, err := parser.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		kid, _ := t.Header["kid"].(string)
		return g.key(ctx, kid)
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", errs.ErrUnauthorized, err)
	}
	if !token.Valid {
		return domain.User{}, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}

	if !validIssuer(claims) {
		return domain.User{}, fmt.Errorf("%w: issuer %q", errs.ErrUnauthorized, claims.Issuer)
	}
	if !claims.VerifyAudience(g.clientID, true) {
		return domain.User{}, fmt.Errorf("%w: audience mismatch", errs.ErrUnauthorized)
	}

	now := g.now()
	exp := time.Unix(claims.ExpiresAt, 0).Add(g.clockSkew)
	if claims.ExpiresAt == 0 || now.After(exp) {
		return domain.User{}, fmt.Errorf("%w: token expired", errs.ErrUnauthorized)
	}
	if claims.IssuedAt != 0 && now.Before(time.Unix(claims.IssuedAt, 0).Add(-g.clockSkew)) {
		return domain.User{}, fmt.Errorf("%w: token used before issued", errs.ErrUnauthorized)
	}

	return domain.User{Name: claims.Name, Email: claims.Email, Picture: claims.Picture}, nil
}

func validIssuer(c *GoogleClaims) bool {
	for _, iss := range googleIssuers {
		if c.VerifyIssuer(iss, true) {
			return true
		}
	}
	return false
}

// key returns the public key for kid, refreshing the cached set when it has
// expired or does not know the kid (Google rotates keys). A miss on a fresh
// set refetches no more than once per minKidRefresh.
func (g *Google) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	fresh := now.Before(g.expires)
	k, ok := g.keys[kid]
	switch {
	case ok && fresh:
		return k, nil
	case fresh && now.Sub(g.fetchedAt) < minKidRefresh:
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	if err := g.refresh(ctx); err != nil {
		return nil, err
	}
	k, ok = g.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return k, nil
}

type jwks struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		Alg string `json:"alg"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (g *Google) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.certsURL, nil)
	if err != nil {
		return fmt.Errorf("build certs request: %w", err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch certs: status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCertsBody)).Decode(&set); err != nil {
		return fmt.Errorf("decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			slog.WarnContext(ctx, "skip malformed google cert", "kid", k.Kid, "err", err)
			continue
		}
		keys[k.Kid] = pub
	}

	g.keys = keys
	g.fetchedAt = g.now()
	g.expires = g.fetchedAt.Add(maxAge(resp.Header.Get("Cache-Control")))
	slog.DebugContext(ctx, "google certs refreshed", "keys", len(keys), "expires", g.expires)
	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() > 1<<31-1 || exp.Int64() < 3 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}

func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		v, ok := strings.CutPrefix(strings.TrimSpace(part), "max-age=")
		if !ok {
			continue
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultKeysTTL
}
