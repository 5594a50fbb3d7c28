package creds

import (
	"context"
	"crypto/rsa"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

const (
	assertionLifetime = time.Hour
	// renewSkew renews the bearer this long before it actually expires so an
	// in-flight batch never crosses the expiry line mid-dispatch.
	renewSkew = 60 * time.Second

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// accountSource exchanges a signed service-account assertion for a bearer
// token and caches it until shortly before expiry.
type accountSource struct {
	acct *ServiceAccount
	http *http.Client
	now  func() time.Time

	mu     sync.Mutex
	bearer string
	exp    time.Time
}

func newAccountSource(acct *ServiceAccount) *accountSource {
	return &accountSource{
		acct: acct,
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
}

func (s *accountSource) Bearer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bearer != "" && s.now().Before(s.exp.Add(-renewSkew)) {
		return s.bearer, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}
	bearer, expiresIn, err := s.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}
	s.bearer = bearer
	s.exp = s.now().Add(time.Duration(expiresIn) * time.Second)
	return s.bearer, nil
}

func (s *accountSource) signAssertion() (string, error) {
	key, err := parsePrivateKey(s.acct.PrivateKey)
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "parse service account private key")
	}
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": s.acct.ClientID,
		"sub": s.acct.ClientID,
		"aud": s.acct.TokenURI,
		"key": s.acct.KeyID,
		"iat": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	})
	tok.Header["kid"] = s.acct.KeyID
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "sign service account assertion")
	}
	return signed, nil
}

func (s *accountSource) exchange(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.acct.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, types.Err(types.ErrAuth, err, "build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", 0, types.Err(types.ErrAuth, err, "token exchange")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, types.Err(types.ErrAuth, err, "read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, types.Err(types.ErrAuth, nil,
			"token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int    `json:"expiresIn"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", 0, types.Err(types.ErrAuth, err, "parse token response")
	}
	if out.AccessToken == "" {
		return "", 0, types.Err(types.ErrAuth, nil, "token endpoint returned no access token")
	}
	if out.ExpiresIn <= 0 {
		out.ExpiresIn = int(assertionLifetime / time.Second)
	}
	return out.AccessToken, out.ExpiresIn, nil
}

func parsePrivateKey(pemKey string) (*rsa.PrivateKey, error) {
	return jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
}
