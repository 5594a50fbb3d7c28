package creds

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

func clearCredEnv(t *testing.T) {
	t.Setenv(APIKeyEnvKey, "")
	t.Setenv(CredentialsEnvKey, "")
	t.Setenv(CredentialsFileEnvKey, "")
	t.Setenv(SecretIDEnvKey, "")
}

func testKeyPEM(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, string(pem.EncodeToMemory(block))
}

func TestDetectAPIKey(t *testing.T) {
	clearCredEnv(t)
	t.Setenv(APIKeyEnvKey, "sky-abc123")

	c, err := Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindAPIKey, c.Kind)

	bearer, err := c.TokenSource().Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sky-abc123", bearer)
}

func TestDetectInlineServiceAccount(t *testing.T) {
	clearCredEnv(t)
	_, pemKey := testKeyPEM(t)
	raw, err := json.Marshal(ServiceAccount{
		ClientID:   "client-1",
		KeyID:      "key-1",
		TokenURI:   "https://manage.skyflowapis.com/v1/auth/sa/oauth/token",
		PrivateKey: pemKey,
	})
	require.NoError(t, err)
	t.Setenv(CredentialsEnvKey, string(raw))

	c, err := Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindServiceAccount, c.Kind)
	assert.Equal(t, "client-1", c.Account.ClientID)
}

func TestDetectCredentialsFile(t *testing.T) {
	clearCredEnv(t)
	_, pemKey := testKeyPEM(t)
	raw, err := json.Marshal(ServiceAccount{
		ClientID: "client-2", KeyID: "key-2",
		TokenURI: "https://example.test/token", PrivateKey: pemKey,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	t.Setenv(CredentialsFileEnvKey, path)

	c, err := Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindServiceAccount, c.Kind)
}

func TestDetectMissingCredentials(t *testing.T) {
	clearCredEnv(t)
	_, err := Detect(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
}

func TestDetectRejectsIncompleteAccount(t *testing.T) {
	clearCredEnv(t)
	t.Setenv(CredentialsEnvKey, `{"clientID":"c","keyID":"k"}`)
	_, err := Detect(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
}

func TestAccountSourceExchangesAndCaches(t *testing.T) {
	key, pemKey := testKeyPEM(t)

	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.Form.Get("grant_type"))

		// The assertion must be RS256-signed with the account key.
		parsed, err := jwt.Parse(r.Form.Get("assertion"), func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		require.NoError(t, err)
		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, "client-1", claims["iss"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": "bearer-1",
			"expiresIn":   3600,
		})
	}))
	defer srv.Close()

	src := newAccountSource(&ServiceAccount{
		ClientID: "client-1", KeyID: "key-1",
		TokenURI: srv.URL, PrivateKey: pemKey,
	})

	b1, err := src.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bearer-1", b1)

	b2, err := src.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
	assert.Equal(t, 1, exchanges, "second call must reuse the cached bearer")
}

func TestAccountSourceRenewsNearExpiry(t *testing.T) {
	_, pemKey := testKeyPEM(t)

	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		exchanges++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": "bearer", "expiresIn": 120,
		})
	}))
	defer srv.Close()

	src := newAccountSource(&ServiceAccount{
		ClientID: "c", KeyID: "k", TokenURI: srv.URL, PrivateKey: pemKey,
	})
	base := time.Now()
	src.now = func() time.Time { return base }

	_, err := src.Bearer(context.Background())
	require.NoError(t, err)

	// Inside the renewal skew window the bearer counts as expired.
	src.now = func() time.Time { return base.Add(70 * time.Second) }
	_, err = src.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, exchanges)
}

func TestAccountSourceTokenEndpointFailure(t *testing.T) {
	_, pemKey := testKeyPEM(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	src := newAccountSource(&ServiceAccount{
		ClientID: "c", KeyID: "k", TokenURI: srv.URL, PrivateKey: pemKey,
	})
	_, err := src.Bearer(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
}
