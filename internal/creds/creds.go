// Package creds resolves the process-wide Skyflow credential. The credential
// shape (API key vs service account) is detected exactly once at startup and
// carried as a tagged variant; request handlers never re-inspect it.
package creds

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

const (
	APIKeyEnvKey          = "SKYFLOW_API_KEY"
	CredentialsEnvKey     = "SKYFLOW_CREDENTIALS"
	CredentialsFileEnvKey = "SKYFLOW_CREDENTIALS_FILE"
	SecretIDEnvKey        = "SKYFLOW_CREDENTIALS_SECRET_ID"
)

// Kind tags the detected credential shape.
type Kind int

const (
	KindAPIKey Kind = iota
	KindServiceAccount
)

// ServiceAccount is the Skyflow service-account key file shape.
type ServiceAccount struct {
	ClientID   string `json:"clientID"`
	KeyID      string `json:"keyID"`
	TokenURI   string `json:"tokenURI"`
	PrivateKey string `json:"privateKey"`
}

func (a ServiceAccount) validate() error {
	if a.ClientID == "" || a.KeyID == "" || a.TokenURI == "" || a.PrivateKey == "" {
		return types.Err(types.ErrAuth, nil,
			"service account key must carry clientID, keyID, tokenURI and privateKey")
	}
	return nil
}

// Credentials is the tagged variant resolved at startup.
type Credentials struct {
	Kind    Kind
	APIKey  string
	Account *ServiceAccount
}

// Detect resolves credentials from, in order: SKYFLOW_API_KEY, inline
// SKYFLOW_CREDENTIALS JSON, a SKYFLOW_CREDENTIALS_FILE path, or an AWS Secrets
// Manager secret named by SKYFLOW_CREDENTIALS_SECRET_ID.
func Detect(ctx context.Context) (*Credentials, error) {
	if key := os.Getenv(APIKeyEnvKey); key != "" {
		log.WithField("kind", "api_key").Info("Skyflow credentials detected")
		return &Credentials{Kind: KindAPIKey, APIKey: key}, nil
	}

	var raw []byte
	switch {
	case os.Getenv(CredentialsEnvKey) != "":
		raw = []byte(os.Getenv(CredentialsEnvKey))
	case os.Getenv(CredentialsFileEnvKey) != "":
		b, err := os.ReadFile(os.Getenv(CredentialsFileEnvKey))
		if err != nil {
			return nil, types.Err(types.ErrAuth, err, "read credentials file")
		}
		raw = b
	case os.Getenv(SecretIDEnvKey) != "":
		b, err := fetchSecret(ctx, os.Getenv(SecretIDEnvKey))
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		return nil, types.Err(types.ErrAuth, nil,
			"no Skyflow credentials found; set %s, %s, %s or %s",
			APIKeyEnvKey, CredentialsEnvKey, CredentialsFileEnvKey, SecretIDEnvKey)
	}

	var acct ServiceAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, types.Err(types.ErrAuth, err, "parse service account key")
	}
	if err := acct.validate(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"kind": "service_account", "clientID": acct.ClientID}).
		Info("Skyflow credentials detected")
	return &Credentials{Kind: KindServiceAccount, Account: &acct}, nil
}

// TokenSource builds the bearer source matching the credential kind.
func (c *Credentials) TokenSource() ports.TokenSource {
	switch c.Kind {
	case KindAPIKey:
		return staticSource{key: c.APIKey}
	default:
		return newAccountSource(c.Account)
	}
}

// staticSource serves a fixed API key as the bearer.
type staticSource struct{ key string }

func (s staticSource) Bearer(context.Context) (string, error) { return s.key, nil }

func fetchSecret(ctx context.Context, secretID string) ([]byte, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, types.Err(types.ErrAuth, err, "load AWS config")
	}
	sm := secretsmanager.NewFromConfig(awsCfg)
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, types.Err(types.ErrAuth, err, "fetch secret %s", secretID)
	}
	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}
	if len(out.SecretBinary) > 0 {
		return out.SecretBinary, nil
	}
	return nil, types.Err(types.ErrAuth, nil, "secret %s is empty", secretID)
}
